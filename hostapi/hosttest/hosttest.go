// Package hosttest provides an in-memory host implementation for tests.
// Output queues run a goroutine standing in for the host's real-time thread:
// enqueued buffers are delivered back through the completion proc
// asynchronously, so pool and lifecycle code is exercised under the same
// threading contract a real host imposes.
package hosttest

import (
	"sync"
	"unsafe"

	"github.com/algesten/caudio/hostapi"
)

// Failure injection points. Set before exercising the host.
const (
	FailNewQueue       = "new_queue"
	FailAllocateBuffer = "allocate_buffer"
	FailEnqueueBuffer  = "enqueue_buffer"
	FailStartQueue     = "start_queue"
	FailInitializeUnit = "initialize_unit"
	FailStartUnit      = "start_unit"
	FailSetFormat      = "set_format"
)

// Host is an in-memory implementation of hostapi.Host.
type Host struct {
	mu       sync.Mutex
	nextRef  uintptr
	queues   map[hostapi.QueueRef]*queueState
	units    map[hostapi.UnitRef]*unitState
	registry []registryEntry
	failures map[string]hostapi.Status
}

type registryEntry struct {
	component hostapi.Component
	desc      hostapi.ComponentDescription
	name      string
	version   hostapi.Version
}

// New creates an empty host.
func New() *Host {
	return &Host{
		queues:   make(map[hostapi.QueueRef]*queueState),
		units:    make(map[hostapi.UnitRef]*unitState),
		failures: make(map[string]hostapi.Status),
	}
}

// FailWith makes the named operation return the given status until cleared
// with ClearFailures.
func (h *Host) FailWith(op string, status hostapi.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures[op] = status
}

// ClearFailures removes all injected failures.
func (h *Host) ClearFailures() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = make(map[string]hostapi.Status)
}

func (h *Host) injected(op string) (hostapi.Status, bool) {
	s, ok := h.failures[op]
	return s, ok
}

func (h *Host) allocRef() uintptr {
	h.nextRef++
	return h.nextRef
}

// ---- queue host ----

type queueState struct {
	host     *Host
	ref      hostapi.QueueRef
	desc     hostapi.StreamDescription
	output   hostapi.OutputProc
	input    hostapi.InputProc
	userData unsafe.Pointer

	cond     *sync.Cond // guarded by host.mu
	started  bool
	holding  bool
	disposed bool
	held     []*hostapi.QueueBuffer

	// Backing storage for allocated buffers; entries stay here until
	// FreeBuffer so the sample memory outlives any outstanding pointer.
	allocations map[*hostapi.QueueBuffer][]byte

	disposeCount int
	stopCount    int
}

// NewOutputQueue implements hostapi.QueueHost.
func (h *Host) NewOutputQueue(desc *hostapi.StreamDescription, proc hostapi.OutputProc, userData unsafe.Pointer) (hostapi.QueueRef, hostapi.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.injected(FailNewQueue); ok {
		return 0, s
	}

	q := &queueState{
		host:        h,
		ref:         hostapi.QueueRef(h.allocRef()),
		desc:        *desc,
		output:      proc,
		userData:    userData,
		allocations: make(map[*hostapi.QueueBuffer][]byte),
	}
	q.cond = sync.NewCond(&h.mu)
	h.queues[q.ref] = q

	// The completion-delivery goroutine stands in for the host's own
	// real-time thread.
	go q.deliver()

	return q.ref, hostapi.NoErr
}

// NewInputQueue implements hostapi.QueueHost. Input callbacks are driven by
// tests through DriveInput.
func (h *Host) NewInputQueue(desc *hostapi.StreamDescription, proc hostapi.InputProc, userData unsafe.Pointer) (hostapi.QueueRef, hostapi.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.injected(FailNewQueue); ok {
		return 0, s
	}

	q := &queueState{
		host:        h,
		ref:         hostapi.QueueRef(h.allocRef()),
		desc:        *desc,
		input:       proc,
		userData:    userData,
		allocations: make(map[*hostapi.QueueBuffer][]byte),
	}
	q.cond = sync.NewCond(&h.mu)
	h.queues[q.ref] = q

	return q.ref, hostapi.NoErr
}

// deliver loops on the queue's held buffers and fires the completion proc
// for each, outside the host lock, until the queue is disposed.
func (q *queueState) deliver() {
	h := q.host
	for {
		h.mu.Lock()
		for !q.disposed && (!q.started || q.holding || len(q.held) == 0) {
			q.cond.Wait()
		}
		if q.disposed {
			h.mu.Unlock()
			return
		}
		buf := q.held[0]
		q.held = q.held[1:]
		proc, userData, ref := q.output, q.userData, q.ref
		h.mu.Unlock()

		if proc != nil {
			proc(userData, ref, buf)
		}
	}
}

// AllocateBuffer implements hostapi.QueueHost.
func (h *Host) AllocateBuffer(queue hostapi.QueueRef, byteSize uint32) (*hostapi.QueueBuffer, hostapi.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.injected(FailAllocateBuffer); ok {
		return nil, s
	}

	q, ok := h.queues[queue]
	if !ok || q.disposed {
		return nil, hostapi.StatusParam
	}

	buf := &hostapi.QueueBuffer{AudioDataBytesCapacity: byteSize}
	if byteSize > 0 {
		data := make([]byte, byteSize)
		buf.AudioData = unsafe.Pointer(&data[0])
		q.allocations[buf] = data
	} else {
		q.allocations[buf] = nil
	}

	return buf, hostapi.NoErr
}

// FreeBuffer implements hostapi.QueueHost.
func (h *Host) FreeBuffer(queue hostapi.QueueRef, buf *hostapi.QueueBuffer) hostapi.Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	q, ok := h.queues[queue]
	if !ok {
		return hostapi.StatusParam
	}
	if _, ok := q.allocations[buf]; !ok {
		return hostapi.StatusParam
	}
	delete(q.allocations, buf)
	return hostapi.NoErr
}

// EnqueueBuffer implements hostapi.QueueHost.
func (h *Host) EnqueueBuffer(queue hostapi.QueueRef, buf *hostapi.QueueBuffer) hostapi.Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.injected(FailEnqueueBuffer); ok {
		return s
	}

	q, ok := h.queues[queue]
	if !ok || q.disposed {
		return hostapi.StatusParam
	}
	if _, ok := q.allocations[buf]; !ok {
		return hostapi.StatusParam
	}

	q.held = append(q.held, buf)
	q.cond.Broadcast()
	return hostapi.NoErr
}

// StartQueue implements hostapi.QueueHost.
func (h *Host) StartQueue(queue hostapi.QueueRef) hostapi.Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.injected(FailStartQueue); ok {
		return s
	}

	q, ok := h.queues[queue]
	if !ok || q.disposed {
		return hostapi.StatusParam
	}
	q.started = true
	q.cond.Broadcast()
	return hostapi.NoErr
}

// StopQueue implements hostapi.QueueHost. With immediate set, outstanding
// buffers are flushed back through the completion proc before returning.
func (h *Host) StopQueue(queue hostapi.QueueRef, immediate bool) hostapi.Status {
	h.mu.Lock()
	q, ok := h.queues[queue]
	if !ok || q.disposed {
		h.mu.Unlock()
		return hostapi.StatusParam
	}
	q.started = false
	q.stopCount++

	var flush []*hostapi.QueueBuffer
	if immediate {
		flush = q.held
		q.held = nil
	}
	proc, userData := q.output, q.userData
	h.mu.Unlock()

	if proc != nil {
		for _, buf := range flush {
			proc(userData, queue, buf)
		}
	}
	return hostapi.NoErr
}

// DisposeQueue implements hostapi.QueueHost.
func (h *Host) DisposeQueue(queue hostapi.QueueRef, immediate bool) hostapi.Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	q, ok := h.queues[queue]
	if !ok {
		return hostapi.StatusParam
	}
	if q.disposed {
		return hostapi.StatusParam
	}
	q.disposed = true
	q.disposeCount++
	q.held = nil
	q.cond.Broadcast()
	return hostapi.NoErr
}

// HoldCompletions pauses or resumes asynchronous completion delivery for a
// queue, so tests can pin buffers in the checked-out state.
func (h *Host) HoldCompletions(queue hostapi.QueueRef, hold bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if q, ok := h.queues[queue]; ok {
		q.holding = hold
		q.cond.Broadcast()
	}
}

// ReleaseOne synchronously delivers one held completion. It reports whether
// a buffer was outstanding.
func (h *Host) ReleaseOne(queue hostapi.QueueRef) bool {
	h.mu.Lock()
	q, ok := h.queues[queue]
	if !ok || len(q.held) == 0 {
		h.mu.Unlock()
		return false
	}
	buf := q.held[0]
	q.held = q.held[1:]
	proc, userData := q.output, q.userData
	h.mu.Unlock()

	if proc != nil {
		proc(userData, queue, buf)
	}
	return true
}

// OutstandingBuffers returns how many buffers the host currently holds for
// the queue.
func (h *Host) OutstandingBuffers(queue hostapi.QueueRef) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if q, ok := h.queues[queue]; ok {
		return len(q.held)
	}
	return 0
}

// QueueDisposeCount returns how many times the queue was disposed.
func (h *Host) QueueDisposeCount(queue hostapi.QueueRef) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if q, ok := h.queues[queue]; ok {
		return q.disposeCount
	}
	return 0
}

// AllocationCount returns how many buffers remain allocated for the queue.
func (h *Host) AllocationCount(queue hostapi.QueueRef) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if q, ok := h.queues[queue]; ok {
		return len(q.allocations)
	}
	return 0
}

// DriveInput invokes an input queue's callback with a host-owned buffer
// holding the given bytes, the way a capture device delivers data.
func (h *Host) DriveInput(queue hostapi.QueueRef, data []byte, ts *hostapi.TimeStamp) bool {
	h.mu.Lock()
	q, ok := h.queues[queue]
	if !ok || q.input == nil || !q.started {
		h.mu.Unlock()
		return false
	}
	proc, userData := q.input, q.userData
	h.mu.Unlock()

	buf := &hostapi.QueueBuffer{
		AudioDataBytesCapacity: uint32(len(data)),
		AudioDataByteSize:      uint32(len(data)),
	}
	if len(data) > 0 {
		buf.AudioData = unsafe.Pointer(&data[0])
	}

	proc(userData, queue, buf, ts)
	return true
}
