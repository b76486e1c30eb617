package buffer

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algesten/caudio/hostapi"
)

func TestNewListShape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		buffers           int
		channels          int
		frames            int
		wantBytesPerBuf   uint32
		wantSamplesPerBuf int
	}{
		{"interleaved stereo f32", 1, 2, 512, 4096, 1024},
		{"non-interleaved stereo f32", 2, 1, 512, 2048, 512},
		{"mono single frame", 1, 1, 1, 4, 1},
		{"many buffers", 8, 1, 64, 256, 64},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			l := NewList[float32](tc.buffers, tc.channels, tc.frames)

			assert.True(t, l.Owned())
			assert.Equal(t, tc.buffers, l.Len())
			assert.Equal(t, tc.channels, l.Channels())
			assert.Equal(t, tc.frames, l.Frames())

			sys := l.SysList()
			require.NotNil(t, sys)
			assert.Equal(t, uint32(tc.buffers), sys.NumberBuffers)

			for i := 0; i < tc.buffers; i++ {
				v := l.At(i)
				assert.Equal(t, tc.channels, v.Channels())
				assert.Equal(t, tc.frames, v.Frames())
				assert.Equal(t, tc.wantSamplesPerBuf, v.Len())
				assert.Len(t, v.Samples(), tc.wantSamplesPerBuf)
			}
		})
	}
}

func TestNewListEmpty(t *testing.T) {
	t.Parallel()

	l := NewList[int16](0, 2, 512)

	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 0, l.Channels())
	assert.Equal(t, 0, l.Frames())
	require.NotNil(t, l.SysList())
	assert.Equal(t, uint32(0), l.SysList().NumberBuffers)
}

func TestNewListBuffersDoNotOverlap(t *testing.T) {
	t.Parallel()

	const buffers, frames = 4, 16
	l := NewList[int32](buffers, 1, frames)

	for i := 0; i < buffers; i++ {
		for s := range l.At(i).Samples() {
			l.At(i).Samples()[s] = int32(i*1000 + s)
		}
	}

	for i := 0; i < buffers; i++ {
		for s, got := range l.At(i).Samples() {
			assert.Equal(t, int32(i*1000+s), got, "buffer %d sample %d", i, s)
		}
	}
}

func TestNewListDescriptorAlignment(t *testing.T) {
	t.Parallel()

	l := NewList[float64](3, 2, 8)

	p := uintptr(unsafe.Pointer(l.SysList()))
	assert.Zero(t, p%8)
	for i := 0; i < l.Len(); i++ {
		d := uintptr(unsafe.Pointer(&l.At(i).Samples()[0]))
		assert.Zero(t, d%8, "buffer %d data pointer", i)
	}
}

func TestBorrowedListReadsHostLayout(t *testing.T) {
	t.Parallel()

	data := make([]float32, 256)
	for i := range data {
		data[i] = float32(i)
	}

	var raw struct {
		list hostapi.AudioBufferList
	}
	raw.list.NumberBuffers = 1
	raw.list.Buffers[0] = hostapi.AudioBuffer{
		NumberChannels: 2,
		DataByteSize:   uint32(len(data)) * 4,
		Data:           unsafe.Pointer(&data[0]),
	}

	l := Borrow[float32](&raw.list)

	assert.False(t, l.Owned())
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 2, l.Channels())
	assert.Equal(t, 128, l.Frames())
	assert.Equal(t, float32(255), l.At(0).Samples()[255])

	l.At(0).Samples()[0] = -1
	assert.Equal(t, float32(-1), data[0])
}
