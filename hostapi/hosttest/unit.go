package hosttest

import (
	"unsafe"

	"github.com/algesten/caudio/hostapi"
)

type scopeElement struct {
	scope   hostapi.Scope
	element hostapi.Element
}

type unitState struct {
	component hostapi.Component

	initialized bool
	started     bool
	disposed    bool

	renderProc hostapi.RenderProc
	renderData unsafe.Pointer

	formats map[scopeElement]hostapi.StreamDescription

	initCount    int
	startCount   int
	stopCount    int
	uninitCount  int
	disposeCount int
}

// RegisterComponent adds a component to the host registry and returns its
// handle.
func (h *Host) RegisterComponent(desc hostapi.ComponentDescription, name string, version hostapi.Version) hostapi.Component {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := hostapi.Component(h.allocRef())
	h.registry = append(h.registry, registryEntry{
		component: c,
		desc:      desc,
		name:      name,
		version:   version,
	})
	return c
}

// FindComponents implements hostapi.UnitHost. Zero fields in desc match any
// value, mirroring the host's wildcard search convention.
func (h *Host) FindComponents(desc hostapi.ComponentDescription) []hostapi.Component {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []hostapi.Component
	for _, e := range h.registry {
		if matchesComponent(desc, e.desc) {
			out = append(out, e.component)
		}
	}
	return out
}

func matchesComponent(search, have hostapi.ComponentDescription) bool {
	if search.Type != 0 && search.Type != have.Type {
		return false
	}
	if search.SubType != 0 && search.SubType != have.SubType {
		return false
	}
	if search.Manufacturer != 0 && search.Manufacturer != have.Manufacturer {
		return false
	}
	return true
}

// ComponentInfo implements hostapi.UnitHost.
func (h *Host) ComponentInfo(c hostapi.Component) (string, hostapi.Version, hostapi.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range h.registry {
		if e.component == c {
			return e.name, e.version, hostapi.NoErr
		}
	}
	return "", hostapi.Version{}, hostapi.StatusParam
}

// NewUnit implements hostapi.UnitHost.
func (h *Host) NewUnit(c hostapi.Component) (hostapi.UnitRef, hostapi.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()

	found := false
	for _, e := range h.registry {
		if e.component == c {
			found = true
			break
		}
	}
	if !found {
		return 0, hostapi.StatusParam
	}

	ref := hostapi.UnitRef(h.allocRef())
	h.units[ref] = &unitState{
		component: c,
		formats:   make(map[scopeElement]hostapi.StreamDescription),
	}
	return ref, hostapi.NoErr
}

func (h *Host) unit(ref hostapi.UnitRef) (*unitState, hostapi.Status) {
	u, ok := h.units[ref]
	if !ok || u.disposed {
		return nil, hostapi.StatusParam
	}
	return u, hostapi.NoErr
}

// InitializeUnit implements hostapi.UnitHost. A second initialize without an
// intervening uninitialize is a host state error, which makes wrapper-level
// idempotence observable in tests.
func (h *Host) InitializeUnit(ref hostapi.UnitRef) hostapi.Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.injected(FailInitializeUnit); ok {
		return s
	}

	u, status := h.unit(ref)
	if status != hostapi.NoErr {
		return status
	}
	if u.initialized {
		return hostapi.StatusUnitInitialized
	}
	u.initialized = true
	u.initCount++
	return hostapi.NoErr
}

// UninitializeUnit implements hostapi.UnitHost.
func (h *Host) UninitializeUnit(ref hostapi.UnitRef) hostapi.Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	u, status := h.unit(ref)
	if status != hostapi.NoErr {
		return status
	}
	if u.started {
		return hostapi.StatusUnitCannotDoInContext
	}
	if !u.initialized {
		return hostapi.StatusUnitUninitialized
	}
	u.initialized = false
	u.uninitCount++
	return hostapi.NoErr
}

// StartUnit implements hostapi.UnitHost.
func (h *Host) StartUnit(ref hostapi.UnitRef) hostapi.Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.injected(FailStartUnit); ok {
		return s
	}

	u, status := h.unit(ref)
	if status != hostapi.NoErr {
		return status
	}
	if !u.initialized {
		return hostapi.StatusUnitUninitialized
	}
	if u.started {
		return hostapi.NoErr
	}
	u.started = true
	u.startCount++
	return hostapi.NoErr
}

// StopUnit implements hostapi.UnitHost.
func (h *Host) StopUnit(ref hostapi.UnitRef) hostapi.Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	u, status := h.unit(ref)
	if status != hostapi.NoErr {
		return status
	}
	if u.started {
		u.started = false
		u.stopCount++
	}
	return hostapi.NoErr
}

// DisposeUnit implements hostapi.UnitHost.
func (h *Host) DisposeUnit(ref hostapi.UnitRef) hostapi.Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	u, ok := h.units[ref]
	if !ok || u.disposed {
		return hostapi.StatusParam
	}
	u.disposed = true
	u.started = false
	u.initialized = false
	u.disposeCount++
	return hostapi.NoErr
}

// SetRenderCallback implements hostapi.UnitHost.
func (h *Host) SetRenderCallback(ref hostapi.UnitRef, proc hostapi.RenderProc, userData unsafe.Pointer) hostapi.Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	u, status := h.unit(ref)
	if status != hostapi.NoErr {
		return status
	}
	if u.started {
		return hostapi.StatusUnitCannotDoInContext
	}
	u.renderProc = proc
	u.renderData = userData
	return hostapi.NoErr
}

// SetStreamFormat implements hostapi.UnitHost.
func (h *Host) SetStreamFormat(ref hostapi.UnitRef, scope hostapi.Scope, element hostapi.Element, desc *hostapi.StreamDescription) hostapi.Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.injected(FailSetFormat); ok {
		return s
	}

	u, status := h.unit(ref)
	if status != hostapi.NoErr {
		return status
	}
	if u.started {
		return hostapi.StatusUnitCannotDoInContext
	}
	u.formats[scopeElement{scope, element}] = *desc
	return hostapi.NoErr
}

// GetStreamFormat implements hostapi.UnitHost.
func (h *Host) GetStreamFormat(ref hostapi.UnitRef, scope hostapi.Scope, element hostapi.Element) (hostapi.StreamDescription, hostapi.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()

	u, status := h.unit(ref)
	if status != hostapi.NoErr {
		return hostapi.StreamDescription{}, status
	}
	desc, ok := u.formats[scopeElement{scope, element}]
	if !ok {
		return hostapi.StreamDescription{}, hostapi.StatusUnitInvalidProperty
	}
	return desc, hostapi.NoErr
}

// UnitCounters reports how many times each lifecycle transition ran on the
// host side.
type UnitCounters struct {
	Initialize   int
	Uninitialize int
	Start        int
	Stop         int
	Dispose      int
}

// UnitCounts returns the host-side transition counters for a unit.
func (h *Host) UnitCounts(ref hostapi.UnitRef) UnitCounters {
	h.mu.Lock()
	defer h.mu.Unlock()

	u, ok := h.units[ref]
	if !ok {
		return UnitCounters{}
	}
	return UnitCounters{
		Initialize:   u.initCount,
		Uninitialize: u.uninitCount,
		Start:        u.startCount,
		Stop:         u.stopCount,
		Dispose:      u.disposeCount,
	}
}

// DriveRender invokes the unit's render callback with a host-owned buffer
// list of the given shape, the way the host pulls audio on its render
// thread. It reports false when no callback is registered.
func (h *Host) DriveRender(ref hostapi.UnitRef, ts *hostapi.TimeStamp, bus uint32, frames int) (hostapi.Status, bool) {
	h.mu.Lock()
	u, ok := h.units[ref]
	if !ok || u.disposed || u.renderProc == nil {
		h.mu.Unlock()
		return hostapi.NoErr, false
	}
	proc, userData := u.renderProc, u.renderData
	desc, hasFormat := u.formats[scopeElement{hostapi.ScopeInput, hostapi.ElementOutput}]
	h.mu.Unlock()

	channels := 2
	bytesPerFrame := 8 // f32 stereo default
	if hasFormat {
		channels = int(desc.ChannelsPerFrame)
		bytesPerFrame = int(desc.BytesPerFrame)
	}

	list, keepAlive := buildHostList(1, channels, frames*bytesPerFrame)

	flags := hostapi.RenderActionPreRender
	status := proc(userData, &flags, ts, bus, uint32(frames), list)

	// The slab must survive the callback; the views into it die with the
	// call, matching the borrowed-list contract.
	_ = keepAlive

	return status, true
}

// buildHostList lays out a buffer list in host-owned memory: the count field,
// the descriptor array, and one byte slab per descriptor.
func buildHostList(buffers, channels, bytesEach int) (*hostapi.AudioBufferList, [][]byte) {
	headerBytes := int(unsafe.Sizeof(hostapi.AudioBufferList{})) +
		(buffers-1)*int(unsafe.Sizeof(hostapi.AudioBuffer{}))
	header := make([]uint64, (headerBytes+7)/8)

	list := (*hostapi.AudioBufferList)(unsafe.Pointer(&header[0]))
	list.NumberBuffers = uint32(buffers)

	slabs := make([][]byte, buffers)
	descs := unsafe.Slice(&list.Buffers[0], buffers)
	for i := range descs {
		slab := make([]byte, bytesEach)
		slabs[i] = slab
		descs[i].NumberChannels = uint32(channels)
		descs[i].DataByteSize = uint32(bytesEach)
		if bytesEach > 0 {
			descs[i].Data = unsafe.Pointer(&slab[0])
		}
	}

	return list, slabs
}
