package capture

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algesten/caudio/format"
)

func TestTapWriteRead(t *testing.T) {
	t.Parallel()

	tap, err := NewTap[int16](8)
	require.NoError(t, err)

	tap.Write([]int16{1, 2, 3})
	assert.Equal(t, 3, tap.Len())

	dst := make([]int16, 8)
	n := tap.Read(dst)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int16{1, 2, 3}, dst[:n])
	assert.Equal(t, 0, tap.Len())
	assert.Zero(t, tap.Dropped())
}

func TestTapOverflowDropsOldest(t *testing.T) {
	t.Parallel()

	tap, err := NewTap[int16](4)
	require.NoError(t, err)

	tap.Write([]int16{1, 2, 3, 4})
	tap.Write([]int16{5, 6})

	assert.Equal(t, []int16{3, 4, 5, 6}, tap.Drain())
	assert.Equal(t, uint64(2), tap.Dropped())
}

func TestTapWriteLargerThanWindow(t *testing.T) {
	t.Parallel()

	tap, err := NewTap[float32](2)
	require.NoError(t, err)

	tap.Write([]float32{1, 2, 3, 4, 5})

	assert.Equal(t, []float32{4, 5}, tap.Drain())
	assert.Equal(t, uint64(3), tap.Dropped())
}

func TestNewTapWindow(t *testing.T) {
	t.Parallel()

	f := format.New(48000, format.SampleFormatI16, 0, 2)
	tap, err := NewTapWindow[int16](f, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 9600, tap.Cap())

	_, err = NewTapWindow[float32](f, time.Second)
	require.Error(t, err, "sample type must match the format")
}

func TestNewTapRejectsZeroCapacity(t *testing.T) {
	t.Parallel()

	_, err := NewTap[int16](0)
	require.Error(t, err)
}

func TestSaveWAVRoundTrip(t *testing.T) {
	t.Parallel()

	f := format.New(44100, format.SampleFormatI16, 0, 1)
	samples := []int16{0, 1000, -1000, 32767, -32768}
	path := filepath.Join(t.TempDir(), "nested", "out.wav")

	require.NoError(t, SaveWAV(path, f, samples))

	in, err := os.Open(path)
	require.NoError(t, err)
	defer in.Close()

	dec := wav.NewDecoder(in)
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)

	assert.Equal(t, 44100, buf.Format.SampleRate)
	assert.Equal(t, 1, buf.Format.NumChannels)
	require.Len(t, buf.Data, len(samples))
	for i, want := range samples {
		assert.Equal(t, int(want), buf.Data[i])
	}
}

func TestWriteWAVRejectsFloatFormat(t *testing.T) {
	t.Parallel()

	f := format.New(48000, format.SampleFormatF32, 0, 2)
	err := SaveWAV(filepath.Join(t.TempDir(), "x.wav"), f, nil)
	require.Error(t, err)
}
