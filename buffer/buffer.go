// Package buffer provides typed views over host-owned sample storage: single
// streaming queue buffers and variable-length buffer lists matching the
// host's binary layout.
package buffer

import (
	"unsafe"

	"github.com/algesten/caudio/format"
	"github.com/algesten/caudio/hostapi"
	"github.com/algesten/caudio/internal/errors"
)

func elemSize[S format.Sample]() int {
	var zero S
	return int(unsafe.Sizeof(zero))
}

// Buffer is one fixed-capacity region of samples backed by a host queue
// buffer. Owned buffers free their host allocation exactly once on Close;
// borrowed buffers never free.
type Buffer[S format.Sample] struct {
	host        hostapi.QueueHost
	queue       hostapi.QueueRef
	ref         *hostapi.QueueBuffer
	freeOnClose bool
	closed      bool
}

// Allocate creates a buffer owned by the given queue with room for capacity
// samples. index is stored in the buffer's user-data slot so completion
// callbacks can map the buffer back to its pool entry.
func Allocate[S format.Sample](host hostapi.QueueHost, queue hostapi.QueueRef, index, capacity int) (*Buffer[S], error) {
	byteSize := capacity * elemSize[S]()

	ref, status := host.AllocateBuffer(queue, uint32(byteSize))
	if err := status.Err(); err != nil {
		return nil, errors.New(err).
			Component("buffer").
			Category(errors.CategoryBuffer).
			Context("operation", "allocate").
			Context("byte_size", byteSize).
			Build()
	}

	// A fresh buffer starts out fully valid; Resize trims before filling
	// partial frames.
	ref.AudioDataByteSize = uint32(byteSize)
	ref.UserData = uintptr(index)

	return &Buffer[S]{
		host:        host,
		queue:       queue,
		ref:         ref,
		freeOnClose: true,
	}, nil
}

// Borrowed wraps a host-owned queue buffer, typically inside an input
// callback. The wrapper is only valid for the scope the host hands it out
// in and never frees the underlying storage.
func Borrowed[S format.Sample](queue hostapi.QueueRef, ref *hostapi.QueueBuffer) *Buffer[S] {
	return &Buffer[S]{queue: queue, ref: ref}
}

// Sys returns the raw host buffer for enqueueing.
func (b *Buffer[S]) Sys() *hostapi.QueueBuffer {
	return b.ref
}

// Index returns the pool index stored in the buffer's user-data slot.
func (b *Buffer[S]) Index() int {
	return int(b.ref.UserData)
}

// Cap returns the maximum number of samples the buffer can hold.
func (b *Buffer[S]) Cap() int {
	return int(b.ref.AudioDataBytesCapacity) / elemSize[S]()
}

// Len returns the number of valid samples.
func (b *Buffer[S]) Len() int {
	return int(b.ref.AudioDataByteSize) / elemSize[S]()
}

// Resize sets the number of valid samples, clamping to [0, Cap]. There is no
// error path: out-of-range requests are clamped so real-time call sites
// never have to handle a failure mid-callback. Never reallocates.
func (b *Buffer[S]) Resize(n int) {
	if n < 0 {
		n = 0
	}
	if c := b.Cap(); n > c {
		n = c
	}
	b.ref.AudioDataByteSize = uint32(n * elemSize[S]())
}

// Samples returns the valid samples as a slice over the live storage. It
// must not be used concurrently with Resize on the same buffer.
func (b *Buffer[S]) Samples() []S {
	n := b.Len()
	if n == 0 || b.ref.AudioData == nil {
		return nil
	}
	return unsafe.Slice((*S)(b.ref.AudioData), n)
}

// Close frees the host allocation for owned buffers. Borrowed buffers and
// repeated calls are no-ops.
func (b *Buffer[S]) Close() error {
	if !b.freeOnClose || b.closed {
		return nil
	}
	b.closed = true

	if err := b.host.FreeBuffer(b.queue, b.ref).Err(); err != nil {
		return errors.New(err).
			Component("buffer").
			Category(errors.CategoryBuffer).
			Context("operation", "free").
			Build()
	}
	return nil
}
