package queue

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algesten/caudio/buffer"
	"github.com/algesten/caudio/hostapi"
	"github.com/algesten/caudio/hostapi/hosttest"
)

func TestNewInputRejectsNilCallback(t *testing.T) {
	h := hosttest.New()

	_, err := NewInput[float32](h, stereoF32(), nil, Options{})
	require.Error(t, err)
}

func TestNewInputRejectsSampleMismatch(t *testing.T) {
	h := hosttest.New()

	_, err := NewInput[int32](h, stereoF32(), func(*hostapi.TimeStamp, *buffer.Buffer[int32]) {}, Options{})
	require.Error(t, err)
}

func TestInputDeliversBorrowedBuffers(t *testing.T) {
	h := hosttest.New()

	var (
		gotSamples []float32
		gotTime    float64
	)
	q, err := NewInput[float32](h, stereoF32(), func(ts *hostapi.TimeStamp, b *buffer.Buffer[float32]) {
		gotTime = ts.SampleTime
		gotSamples = append(gotSamples[:0], b.Samples()...)
	}, Options{})
	require.NoError(t, err)
	defer q.Close()

	require.NoError(t, q.Start())

	raw := make([]byte, 8)
	binary.LittleEndian.PutUint32(raw[0:], math.Float32bits(0.25))
	binary.LittleEndian.PutUint32(raw[4:], math.Float32bits(-0.5))

	require.True(t, h.DriveInput(q.ref, raw, &hostapi.TimeStamp{SampleTime: 1024}))

	require.Len(t, gotSamples, 2)
	assert.Equal(t, float32(0.25), gotSamples[0])
	assert.Equal(t, float32(-0.5), gotSamples[1])
	assert.Equal(t, float64(1024), gotTime)

	require.NoError(t, q.Stop(false))
}

func TestInputCloseDisposesExactlyOnce(t *testing.T) {
	h := hosttest.New()

	q, err := NewInput[float32](h, stereoF32(), func(*hostapi.TimeStamp, *buffer.Buffer[float32]) {}, Options{})
	require.NoError(t, err)
	ref := q.ref

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
	assert.Equal(t, 1, h.QueueDisposeCount(ref))
}
