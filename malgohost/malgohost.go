// Package malgohost implements the streaming-queue half of the host
// contract on top of miniaudio, so the same queue and pool code that runs
// against the in-memory test host drives real playback and capture devices.
package malgohost

import (
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"github.com/gen2brain/malgo"

	"github.com/algesten/caudio/hostapi"
	"github.com/algesten/caudio/internal/errors"
	"github.com/algesten/caudio/internal/logging"
)

// Host drives malgo devices behind the hostapi.QueueHost interface.
type Host struct {
	ctx *malgo.AllocatedContext
	log *slog.Logger

	mu      sync.Mutex
	nextRef uintptr
	queues  map[hostapi.QueueRef]*queueState

	playbackID unsafe.Pointer
	captureID  unsafe.Pointer
}

// New initializes a miniaudio context with the platform's native backend.
func New(logger *slog.Logger) (*Host, error) {
	if logger == nil {
		logger = logging.ForService("malgohost")
	}

	// Pin the backend per platform instead of letting miniaudio probe.
	var backends []malgo.Backend
	switch runtime.GOOS {
	case "linux":
		backends = []malgo.Backend{malgo.BackendAlsa}
	case "windows":
		backends = []malgo.Backend{malgo.BackendWasapi}
	case "darwin":
		backends = []malgo.Backend{malgo.BackendCoreaudio}
	}

	ctx, err := malgo.InitContext(backends, malgo.ContextConfig{}, func(message string) {
		logger.Debug("miniaudio", "message", message)
	})
	if err != nil {
		return nil, errors.New(err).
			Component("malgohost").
			Category(errors.CategoryResource).
			Context("operation", "init_context").
			Build()
	}

	return &Host{
		ctx:    ctx,
		log:    logger,
		queues: make(map[hostapi.QueueRef]*queueState),
	}, nil
}

// Close disposes all queues and tears down the miniaudio context.
func (h *Host) Close() error {
	h.mu.Lock()
	refs := make([]hostapi.QueueRef, 0, len(h.queues))
	for ref := range h.queues {
		refs = append(refs, ref)
	}
	h.mu.Unlock()

	for _, ref := range refs {
		h.DisposeQueue(ref, true)
	}

	if err := h.ctx.Uninit(); err != nil {
		h.ctx.Free()
		return errors.New(err).
			Component("malgohost").
			Category(errors.CategoryResource).
			Context("operation", "uninit_context").
			Build()
	}
	h.ctx.Free()
	return nil
}

// DeviceInfo describes one playback or capture device.
type DeviceInfo struct {
	Name      string
	ID        string
	IsDefault bool
}

// DeviceKind selects which device list to enumerate.
type DeviceKind int

const (
	Playback DeviceKind = iota
	Capture
)

// Devices enumerates the available devices of the given kind.
func (h *Host) Devices(kind DeviceKind) ([]DeviceInfo, error) {
	deviceType := malgo.Playback
	if kind == Capture {
		deviceType = malgo.Capture
	}

	infos, err := h.ctx.Devices(deviceType)
	if err != nil {
		return nil, errors.New(err).
			Component("malgohost").
			Category(errors.CategoryResource).
			Context("operation", "enumerate_devices").
			Build()
	}

	out := make([]DeviceInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, DeviceInfo{
			Name:      info.Name(),
			ID:        info.ID.String(),
			IsDefault: info.IsDefault != 0,
		})
	}
	return out, nil
}

// SelectDevice pins future queues of the given kind to the first device
// whose name contains the given substring. An empty name keeps the system
// default.
func (h *Host) SelectDevice(kind DeviceKind, name string) error {
	if name == "" {
		return nil
	}

	deviceType := malgo.Playback
	if kind == Capture {
		deviceType = malgo.Capture
	}
	infos, err := h.ctx.Devices(deviceType)
	if err != nil {
		return errors.New(err).
			Component("malgohost").
			Category(errors.CategoryResource).
			Context("operation", "enumerate_devices").
			Build()
	}

	for i := range infos {
		if strings.Contains(infos[i].Name(), name) {
			h.mu.Lock()
			if kind == Capture {
				h.captureID = infos[i].ID.Pointer()
			} else {
				h.playbackID = infos[i].ID.Pointer()
			}
			h.mu.Unlock()
			return nil
		}
	}
	return errors.Newf("no %s device matches %q", deviceKindName(kind), name).
		Component("malgohost").
		Category(errors.CategoryResource).
		Build()
}

func deviceKindName(kind DeviceKind) string {
	if kind == Capture {
		return "capture"
	}
	return "playback"
}

// deviceFormat maps a linear-PCM description onto a malgo sample format.
func deviceFormat(desc *hostapi.StreamDescription) (malgo.FormatType, hostapi.Status) {
	if desc.FormatID != hostapi.FormatIDLinearPCM {
		return malgo.FormatUnknown, hostapi.StatusUnsupportedDataFormat
	}
	isFloat := desc.FormatFlags&hostapi.LinearPCMFlagIsFloat != 0
	switch {
	case isFloat && desc.BitsPerChannel == 32:
		return malgo.FormatF32, hostapi.NoErr
	case !isFloat && desc.BitsPerChannel == 16:
		return malgo.FormatS16, hostapi.NoErr
	case !isFloat && desc.BitsPerChannel == 32:
		return malgo.FormatS32, hostapi.NoErr
	default:
		return malgo.FormatUnknown, hostapi.StatusUnsupportedDataFormat
	}
}

type queueState struct {
	host *Host
	ref  hostapi.QueueRef

	mu          sync.Mutex
	desc        hostapi.StreamDescription
	output      hostapi.OutputProc
	input       hostapi.InputProc
	userData    unsafe.Pointer
	device      *malgo.Device
	held        []*hostapi.QueueBuffer
	headOffset  int
	allocations map[*hostapi.QueueBuffer][]byte
	sampleTime  float64
	disposed    bool
}

// NewOutputQueue implements hostapi.QueueHost. The malgo playback device's
// data callback drains the enqueued-buffer FIFO and fires the completion
// proc on miniaudio's real-time thread.
func (h *Host) NewOutputQueue(desc *hostapi.StreamDescription, proc hostapi.OutputProc, userData unsafe.Pointer) (hostapi.QueueRef, hostapi.Status) {
	f, status := deviceFormat(desc)
	if status != hostapi.NoErr {
		return 0, status
	}

	q := &queueState{
		host:        h,
		desc:        *desc,
		output:      proc,
		userData:    userData,
		allocations: make(map[*hostapi.QueueBuffer][]byte),
	}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = f
	config.Playback.Channels = desc.ChannelsPerFrame
	config.SampleRate = uint32(desc.SampleRate)
	config.Alsa.NoMMap = 1
	h.mu.Lock()
	config.Playback.DeviceID = h.playbackID
	h.mu.Unlock()

	device, err := malgo.InitDevice(h.ctx.Context, config, malgo.DeviceCallbacks{
		Data: func(pOutput, _ []byte, _ uint32) {
			q.fillOutput(pOutput)
		},
	})
	if err != nil {
		h.log.Error("playback device init failed", "error", err)
		return 0, hostapi.StatusUnsupportedDataFormat
	}
	q.device = device

	h.mu.Lock()
	h.nextRef++
	q.ref = hostapi.QueueRef(h.nextRef)
	h.queues[q.ref] = q
	h.mu.Unlock()
	return q.ref, hostapi.NoErr
}

// fillOutput copies enqueued audio into the device buffer, completing each
// drained host buffer in FIFO order. Shortfall plays back as silence.
func (q *queueState) fillOutput(out []byte) {
	var completed []*hostapi.QueueBuffer

	q.mu.Lock()
	pos := 0
	for pos < len(out) && len(q.held) > 0 {
		head := q.held[0]
		data := unsafe.Slice((*byte)(head.AudioData), int(head.AudioDataByteSize))
		n := copy(out[pos:], data[q.headOffset:])
		pos += n
		q.headOffset += n
		if q.headOffset == len(data) {
			q.held = q.held[1:]
			q.headOffset = 0
			completed = append(completed, head)
		}
	}
	for i := pos; i < len(out); i++ {
		out[i] = 0
	}
	proc, userData, ref := q.output, q.userData, q.ref
	q.mu.Unlock()

	for _, buf := range completed {
		proc(userData, ref, buf)
	}
}

// NewInputQueue implements hostapi.QueueHost. The capture callback hands the
// proc a host-owned buffer aliasing miniaudio's input slice, valid only for
// the call.
func (h *Host) NewInputQueue(desc *hostapi.StreamDescription, proc hostapi.InputProc, userData unsafe.Pointer) (hostapi.QueueRef, hostapi.Status) {
	f, status := deviceFormat(desc)
	if status != hostapi.NoErr {
		return 0, status
	}

	q := &queueState{
		host:        h,
		desc:        *desc,
		input:       proc,
		userData:    userData,
		allocations: make(map[*hostapi.QueueBuffer][]byte),
	}

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.Capture.Format = f
	config.Capture.Channels = desc.ChannelsPerFrame
	config.SampleRate = uint32(desc.SampleRate)
	config.Alsa.NoMMap = 1
	h.mu.Lock()
	config.Capture.DeviceID = h.captureID
	h.mu.Unlock()

	device, err := malgo.InitDevice(h.ctx.Context, config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frames uint32) {
			q.deliverInput(pInput, frames)
		},
	})
	if err != nil {
		h.log.Error("capture device init failed", "error", err)
		return 0, hostapi.StatusUnsupportedDataFormat
	}
	q.device = device

	h.mu.Lock()
	h.nextRef++
	q.ref = hostapi.QueueRef(h.nextRef)
	h.queues[q.ref] = q
	h.mu.Unlock()
	return q.ref, hostapi.NoErr
}

func (q *queueState) deliverInput(in []byte, frames uint32) {
	if len(in) == 0 {
		return
	}

	q.mu.Lock()
	ts := hostapi.TimeStamp{
		SampleTime: q.sampleTime,
		Flags:      hostapi.TimeStampSampleTimeValid,
	}
	q.sampleTime += float64(frames)
	proc, userData, ref := q.input, q.userData, q.ref
	q.mu.Unlock()

	buf := &hostapi.QueueBuffer{
		AudioDataBytesCapacity: uint32(len(in)),
		AudioData:              unsafe.Pointer(&in[0]),
		AudioDataByteSize:      uint32(len(in)),
	}
	proc(userData, ref, buf, &ts)
}

func (h *Host) queue(ref hostapi.QueueRef) (*queueState, hostapi.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	q, ok := h.queues[ref]
	if !ok || q.disposed {
		return nil, hostapi.StatusParam
	}
	return q, hostapi.NoErr
}

// AllocateBuffer implements hostapi.QueueHost.
func (h *Host) AllocateBuffer(ref hostapi.QueueRef, byteSize uint32) (*hostapi.QueueBuffer, hostapi.Status) {
	q, status := h.queue(ref)
	if status != hostapi.NoErr {
		return nil, status
	}
	if byteSize == 0 {
		return nil, hostapi.StatusParam
	}

	storage := make([]byte, byteSize)
	buf := &hostapi.QueueBuffer{
		AudioDataBytesCapacity: byteSize,
		AudioData:              unsafe.Pointer(&storage[0]),
		AudioDataByteSize:      byteSize,
	}

	q.mu.Lock()
	q.allocations[buf] = storage
	q.mu.Unlock()
	return buf, hostapi.NoErr
}

// FreeBuffer implements hostapi.QueueHost.
func (h *Host) FreeBuffer(ref hostapi.QueueRef, buf *hostapi.QueueBuffer) hostapi.Status {
	q, status := h.queue(ref)
	if status != hostapi.NoErr {
		return status
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.allocations[buf]; !ok {
		return hostapi.StatusParam
	}
	delete(q.allocations, buf)
	return hostapi.NoErr
}

// EnqueueBuffer implements hostapi.QueueHost.
func (h *Host) EnqueueBuffer(ref hostapi.QueueRef, buf *hostapi.QueueBuffer) hostapi.Status {
	q, status := h.queue(ref)
	if status != hostapi.NoErr {
		return status
	}
	if q.output == nil {
		return hostapi.StatusParam
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.allocations[buf]; !ok {
		return hostapi.StatusParam
	}
	q.held = append(q.held, buf)
	return hostapi.NoErr
}

// StartQueue implements hostapi.QueueHost.
func (h *Host) StartQueue(ref hostapi.QueueRef) hostapi.Status {
	q, status := h.queue(ref)
	if status != hostapi.NoErr {
		return status
	}
	if err := q.device.Start(); err != nil {
		h.log.Error("device start failed", "error", err)
		return hostapi.StatusHardwareNotRunning
	}
	return hostapi.NoErr
}

// StopQueue implements hostapi.QueueHost.
func (h *Host) StopQueue(ref hostapi.QueueRef, immediate bool) hostapi.Status {
	q, status := h.queue(ref)
	if status != hostapi.NoErr {
		return status
	}
	if q.device.IsStarted() {
		if err := q.device.Stop(); err != nil {
			h.log.Warn("device stop failed", "error", err)
		}
	}

	if immediate {
		q.mu.Lock()
		flush := q.held
		q.held = nil
		q.headOffset = 0
		proc, userData := q.output, q.userData
		q.mu.Unlock()

		if proc != nil {
			for _, buf := range flush {
				proc(userData, ref, buf)
			}
		}
	}
	return hostapi.NoErr
}

// DisposeQueue implements hostapi.QueueHost.
func (h *Host) DisposeQueue(ref hostapi.QueueRef, immediate bool) hostapi.Status {
	h.mu.Lock()
	q, ok := h.queues[ref]
	if !ok || q.disposed {
		h.mu.Unlock()
		return hostapi.StatusParam
	}
	q.disposed = true
	h.mu.Unlock()

	q.device.Uninit()

	q.mu.Lock()
	q.held = nil
	q.allocations = make(map[*hostapi.QueueBuffer][]byte)
	q.mu.Unlock()
	return hostapi.NoErr
}
