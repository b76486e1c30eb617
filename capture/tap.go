// Package capture buffers captured audio outside the host callback and
// exports it as WAV.
package capture

import (
	"sync"
	"time"
	"unsafe"

	"github.com/smallnest/ringbuffer"

	"github.com/algesten/caudio/format"
	"github.com/algesten/caudio/internal/errors"
)

// Tap is a sliding window of the most recent captured samples. Write never
// blocks: on overflow the oldest data is discarded, which is the only safe
// policy inside a host callback.
type Tap[S format.Sample] struct {
	mu      sync.Mutex
	rb      *ringbuffer.RingBuffer
	elem    int
	dropped uint64
}

// NewTap creates a tap holding at most capacity samples.
func NewTap[S format.Sample](capacity int) (*Tap[S], error) {
	if capacity <= 0 {
		return nil, errors.Newf("tap capacity must be positive, got %d", capacity).
			Component("capture").
			Category(errors.CategoryValidation).
			Build()
	}
	var zero S
	elem := int(unsafe.Sizeof(zero))
	return &Tap[S]{
		rb:   ringbuffer.New(capacity * elem),
		elem: elem,
	}, nil
}

// NewTapWindow sizes the tap for a duration of audio in the given format.
func NewTapWindow[S format.Sample](f format.StreamFormat, window time.Duration) (*Tap[S], error) {
	if err := format.EnsureSampleType[S](f); err != nil {
		return nil, err
	}
	frames := int(f.SampleRate() * window.Seconds())
	if frames < 1 {
		frames = 1
	}
	return NewTap[S](frames * f.Channels())
}

func sampleBytes[S format.Sample](samples []S) []byte {
	if len(samples) == 0 {
		return nil
	}
	var zero S
	return unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), len(samples)*int(unsafe.Sizeof(zero)))
}

// Write appends samples, discarding the oldest buffered data when the tap
// is full. It never blocks and always accepts the whole slice.
func (t *Tap[S]) Write(samples []S) {
	data := sampleBytes(samples)
	if len(data) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(data) > t.rb.Capacity() {
		// Larger than the whole window: only the tail survives.
		t.dropped += uint64(len(data)-t.rb.Capacity()) / uint64(t.elem)
		data = data[len(data)-t.rb.Capacity():]
	}
	if overflow := len(data) - t.rb.Free(); overflow > 0 {
		discard := make([]byte, overflow)
		n, _ := t.rb.Read(discard)
		t.dropped += uint64(n) / uint64(t.elem)
	}
	t.rb.Write(data) //nolint:errcheck // free space was just made
}

// Read drains up to len(dst) samples in arrival order and returns how many
// were copied.
func (t *Tap[S]) Read(dst []S) int {
	raw := sampleBytes(dst)
	if len(raw) == 0 {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	n, _ := t.rb.Read(raw)
	return n / t.elem
}

// Drain returns everything currently buffered.
func (t *Tap[S]) Drain() []S {
	t.mu.Lock()
	buffered := t.rb.Length() / t.elem
	t.mu.Unlock()

	out := make([]S, buffered)
	return out[:t.Read(out)]
}

// Len returns the number of buffered samples.
func (t *Tap[S]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rb.Length() / t.elem
}

// Cap returns the tap's sample capacity.
func (t *Tap[S]) Cap() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rb.Capacity() / t.elem
}

// Dropped returns how many samples overflow has discarded so far.
func (t *Tap[S]) Dropped() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}
