package hostapi

import "unsafe"

// QueueRef is an opaque handle to one host streaming queue. A queue handle is
// exclusively owned by the lifecycle object that created it.
type QueueRef uintptr

// UnitRef is an opaque handle to one host processing unit.
type UnitRef uintptr

// OutputProc is the fixed signature of an output queue completion callback.
// The host invokes it on its own thread once per buffer when it has finished
// reading the buffer's data. userData is the opaque token passed at queue
// creation.
type OutputProc func(userData unsafe.Pointer, queue QueueRef, buf *QueueBuffer)

// InputProc is the fixed signature of an input queue callback. The buffer is
// owned by the host and valid only for the duration of the call.
type InputProc func(userData unsafe.Pointer, queue QueueRef, buf *QueueBuffer, ts *TimeStamp)

// RenderProc is the fixed signature of a unit render callback. The buffer
// list is host-owned memory, valid only for the duration of the call. A
// nonzero return propagates the failure to the host.
type RenderProc func(userData unsafe.Pointer, flags *RenderActionFlags, ts *TimeStamp, bus uint32, frames uint32, list *AudioBufferList) Status

// QueueHost is the streaming-queue half of the host contract.
type QueueHost interface {
	// NewOutputQueue creates a queue that consumes buffers the application
	// fills. proc is invoked on the host's thread with userData whenever the
	// host finishes with an enqueued buffer.
	NewOutputQueue(desc *StreamDescription, proc OutputProc, userData unsafe.Pointer) (QueueRef, Status)

	// NewInputQueue creates a queue that produces filled buffers, delivered
	// through proc on the host's thread.
	NewInputQueue(desc *StreamDescription, proc InputProc, userData unsafe.Pointer) (QueueRef, Status)

	// AllocateBuffer allocates a buffer owned by the queue. The host keeps
	// the backing storage alive until FreeBuffer or queue disposal.
	AllocateBuffer(queue QueueRef, byteSize uint32) (*QueueBuffer, Status)

	// FreeBuffer releases a buffer allocated with AllocateBuffer.
	FreeBuffer(queue QueueRef, buf *QueueBuffer) Status

	// EnqueueBuffer hands the buffer to the host. The host owns it until the
	// completion callback returns it.
	EnqueueBuffer(queue QueueRef, buf *QueueBuffer) Status

	StartQueue(queue QueueRef) Status

	// StopQueue halts the queue. When immediate is true, outstanding buffers
	// are returned through the completion callback before StopQueue returns.
	StopQueue(queue QueueRef, immediate bool) Status

	DisposeQueue(queue QueueRef, immediate bool) Status
}

// UnitHost is the processing-unit half of the host contract.
type UnitHost interface {
	// FindComponents iterates the host registry for components matching desc.
	FindComponents(desc ComponentDescription) []Component

	// ComponentInfo returns the display name and version of a component.
	ComponentInfo(c Component) (name string, version Version, status Status)

	NewUnit(c Component) (UnitRef, Status)
	InitializeUnit(u UnitRef) Status
	UninitializeUnit(u UnitRef) Status
	StartUnit(u UnitRef) Status
	StopUnit(u UnitRef) Status
	DisposeUnit(u UnitRef) Status

	// SetRenderCallback registers the render proc and its opaque token.
	// Hosts reject registration while the unit is started.
	SetRenderCallback(u UnitRef, proc RenderProc, userData unsafe.Pointer) Status

	SetStreamFormat(u UnitRef, scope Scope, element Element, desc *StreamDescription) Status
	GetStreamFormat(u UnitRef, scope Scope, element Element) (StreamDescription, Status)
}

// Host is a backend implementing the full contract.
type Host interface {
	QueueHost
	UnitHost
}
