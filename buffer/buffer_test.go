package buffer

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algesten/caudio/hostapi"
	"github.com/algesten/caudio/hostapi/hosttest"
)

func newTestQueue(t *testing.T, h *hosttest.Host) hostapi.QueueRef {
	t.Helper()

	desc := hostapi.StreamDescription{
		SampleRate:       48000,
		FormatID:         hostapi.FormatIDLinearPCM,
		FormatFlags:      hostapi.LinearPCMFlagIsFloat | hostapi.LinearPCMFlagIsPacked,
		BytesPerPacket:   8,
		FramesPerPacket:  1,
		BytesPerFrame:    8,
		ChannelsPerFrame: 2,
		BitsPerChannel:   32,
	}
	proc := func(_ unsafe.Pointer, _ hostapi.QueueRef, _ *hostapi.QueueBuffer) {}
	q, status := h.NewOutputQueue(&desc, proc, nil)
	require.Equal(t, hostapi.NoErr, status)
	return q
}

func TestAllocateAndClose(t *testing.T) {
	t.Parallel()

	h := hosttest.New()
	q := newTestQueue(t, h)

	b, err := Allocate[float32](h, q, 3, 512)
	require.NoError(t, err)

	assert.Equal(t, 3, b.Index())
	assert.Equal(t, 512, b.Cap())
	assert.Equal(t, 512, b.Len())
	assert.Equal(t, 1, h.AllocationCount(q))

	s := b.Samples()
	require.Len(t, s, 512)
	s[0], s[511] = 1.5, -1.5
	assert.Equal(t, float32(1.5), b.Samples()[0])
	assert.Equal(t, float32(-1.5), b.Samples()[511])

	require.NoError(t, b.Close())
	assert.Equal(t, 0, h.AllocationCount(q))
	require.NoError(t, b.Close())
	assert.Equal(t, 0, h.AllocationCount(q))
}

func TestResizeClamps(t *testing.T) {
	t.Parallel()

	h := hosttest.New()
	q := newTestQueue(t, h)

	b, err := Allocate[int16](h, q, 0, 64)
	require.NoError(t, err)
	defer b.Close()

	b.Resize(10)
	assert.Equal(t, 10, b.Len())
	assert.Len(t, b.Samples(), 10)

	b.Resize(1000)
	assert.Equal(t, 64, b.Len())

	b.Resize(-5)
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Samples())

	assert.Equal(t, 64, b.Cap())
}

func TestBorrowedNeverFrees(t *testing.T) {
	t.Parallel()

	h := hosttest.New()
	q := newTestQueue(t, h)

	owned, err := Allocate[float32](h, q, 0, 32)
	require.NoError(t, err)

	borrowed := Borrowed[float32](q, owned.Sys())
	assert.Equal(t, 32, borrowed.Cap())
	require.NoError(t, borrowed.Close())
	assert.Equal(t, 1, h.AllocationCount(q), "borrowed close must not free host storage")

	require.NoError(t, owned.Close())
	assert.Equal(t, 0, h.AllocationCount(q))
}

func TestAllocateFailureInjection(t *testing.T) {
	t.Parallel()

	h := hosttest.New()
	q := newTestQueue(t, h)
	h.FailWith(hosttest.FailAllocateBuffer, hostapi.StatusMemFull)

	_, err := Allocate[float32](h, q, 0, 128)
	require.Error(t, err)
	assert.True(t, hostapi.IsStatus(err, hostapi.StatusMemFull))
}
