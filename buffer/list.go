package buffer

import (
	"unsafe"

	"github.com/algesten/caudio/format"
	"github.com/algesten/caudio/hostapi"
)

// The owned list layout: one header allocation holding the count field and
// all descriptors, one contiguous sample slab the descriptors point into.
//
//	header                       sample slab
//	+----------------+           +-----------------+
//	| NumberBuffers  |      +--> | chunk 0         |
//	+----------------+      |    |                 |
//	| desc 0  ptr ---+------+    +-----------------+
//	| desc 1  ptr ---+---------> | chunk 1         |
//	| ...            |           |                 |
//	+----------------+           +-----------------+
//
// The header struct declares one descriptor slot; lists with more buffers
// need extra trailing bytes after the declared struct size, which is why the
// header lives in its own raw allocation rather than in a plain struct value.

var (
	listHeaderSize = int(unsafe.Sizeof(hostapi.AudioBufferList{}))
	descriptorSize = int(unsafe.Sizeof(hostapi.AudioBuffer{}))
)

// List is an ordered collection of sample buffers in the host's
// variable-length binary layout. Owned lists free with the value; borrowed
// lists are views over host memory and must not outlive the callback that
// provided them.
type List[S format.Sample] struct {
	list *hostapi.AudioBufferList

	// Backing storage for owned lists. Holding these here keeps the header
	// and every descriptor's data pointer alive for the List's lifetime;
	// both stay nil for borrowed lists.
	header []uint64
	data   []S
}

// NewList builds an owned list of buffers*channels*frames samples in one
// slab, sliced without overlap across buffers descriptors.
//
// For non-interleaved stereo data use buffers=2, channels=1; for interleaved
// stereo buffers=1, channels=2. buffers == 0 yields a valid empty list.
func NewList[S format.Sample](buffers, channels, frames int) *List[S] {
	if buffers == 0 {
		header := allocHeader(listHeaderSize)
		list := (*hostapi.AudioBufferList)(unsafe.Pointer(&header[0]))
		list.NumberBuffers = 0
		return &List[S]{list: list, header: header}
	}

	// Space for the declared struct plus the descriptors beyond its one
	// inline slot.
	headerBytes := listHeaderSize + (buffers-1)*descriptorSize
	header := allocHeader(headerBytes)
	list := (*hostapi.AudioBufferList)(unsafe.Pointer(&header[0]))
	list.NumberBuffers = uint32(buffers)

	samplesPerBuffer := channels * frames
	bytesPerBuffer := samplesPerBuffer * elemSize[S]()

	var data []S
	if samplesPerBuffer > 0 {
		data = make([]S, buffers*samplesPerBuffer)
	}

	descs := unsafe.Slice(&list.Buffers[0], buffers)
	for i := range descs {
		descs[i].NumberChannels = uint32(channels)
		descs[i].DataByteSize = uint32(bytesPerBuffer)
		if samplesPerBuffer > 0 {
			descs[i].Data = unsafe.Pointer(&data[i*samplesPerBuffer])
		}
	}

	return &List[S]{list: list, header: header, data: data}
}

// allocHeader returns a zeroed allocation of at least n bytes backed by
// uint64s, keeping descriptor pointers 8-byte aligned.
func allocHeader(n int) []uint64 {
	return make([]uint64, (n+7)/8)
}

// Borrow wraps a host-provided list header without copying or taking
// ownership. The header must stay valid for the List's entire lifetime,
// which the caller enforces by scope.
func Borrow[S format.Sample](list *hostapi.AudioBufferList) *List[S] {
	return &List[S]{list: list}
}

// Owned reports whether the list frees its backing storage.
func (l *List[S]) Owned() bool {
	return l.header != nil
}

// Len returns the number of buffers in the list.
func (l *List[S]) Len() int {
	return int(l.list.NumberBuffers)
}

// SysList returns the raw header for handing to the host.
func (l *List[S]) SysList() *hostapi.AudioBufferList {
	return l.list
}

func (l *List[S]) descriptors() []hostapi.AudioBuffer {
	n := l.Len()
	if n == 0 {
		return nil
	}
	return unsafe.Slice(&l.list.Buffers[0], n)
}

// At returns a typed view of the i-th buffer.
func (l *List[S]) At(i int) View[S] {
	return View[S]{buf: &l.descriptors()[i]}
}

// Channels reports the channels per buffer, derived from the first
// descriptor. An empty list reports zero.
func (l *List[S]) Channels() int {
	if l.Len() == 0 {
		return 0
	}
	return l.At(0).Channels()
}

// Frames reports the frames per buffer, derived from the first descriptor.
// An empty list reports zero.
func (l *List[S]) Frames() int {
	if l.Len() == 0 {
		return 0
	}
	return l.At(0).Frames()
}

// View is a typed wrapper over one buffer descriptor.
type View[S format.Sample] struct {
	buf *hostapi.AudioBuffer
}

// Channels returns the number of interleaved channels in this buffer.
func (v View[S]) Channels() int {
	return int(v.buf.NumberChannels)
}

// Len returns the total number of samples, derived from the descriptor's
// byte length and the element size rather than any native slice length.
func (v View[S]) Len() int {
	return int(v.buf.DataByteSize) / elemSize[S]()
}

// Frames returns the number of frames: total samples divided by channels,
// since channels are interleaved within one buffer.
func (v View[S]) Frames() int {
	c := v.Channels()
	if c == 0 {
		return 0
	}
	return v.Len() / c
}

// Samples returns the buffer's samples as a mutable slice.
func (v View[S]) Samples() []S {
	n := v.Len()
	if n == 0 || v.buf.Data == nil {
		return nil
	}
	return unsafe.Slice((*S)(v.buf.Data), n)
}
