package queue

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/algesten/caudio/format"
	"github.com/algesten/caudio/hostapi"
	"github.com/algesten/caudio/hostapi/hosttest"
	"github.com/algesten/caudio/internal/observability/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func stereoF32() format.StreamFormat {
	return format.New(48000, format.SampleFormatF32, 0, 2)
}

func TestNewOutputRejectsSampleMismatch(t *testing.T) {
	h := hosttest.New()

	_, err := NewOutput[int16](h, stereoF32(), Options{Capacity: 64})
	require.Error(t, err)
}

func TestNewOutputRejectsZeroCapacity(t *testing.T) {
	h := hosttest.New()

	_, err := NewOutput[float32](h, stereoF32(), Options{})
	require.Error(t, err)
}

func TestAcquireYieldsDistinctBuffers(t *testing.T) {
	h := hosttest.New()

	q, err := NewOutput[float32](h, stereoF32(), Options{Buffers: 4, Capacity: 64})
	require.NoError(t, err)
	defer q.Close()

	seen := make(map[int]bool)
	leases := make([]*Lease[float32], 0, 4)
	for i := 0; i < 4; i++ {
		l, err := q.Acquire()
		require.NoError(t, err)
		leases = append(leases, l)

		idx := l.Buffer().Index()
		assert.False(t, seen[idx], "index %d handed out twice", idx)
		seen[idx] = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = q.AcquireContext(ctx)
	require.Error(t, err, "pool exhausted, acquire must not succeed")

	for _, l := range leases {
		l.Release()
	}
}

func TestAcquireBlocksUntilCompletion(t *testing.T) {
	h := hosttest.New()

	q, err := NewOutput[float32](h, stereoF32(), Options{Buffers: 2, Capacity: 32})
	require.NoError(t, err)
	defer q.Close()

	h.HoldCompletions(q.ref, true)
	require.NoError(t, q.Start())

	for i := 0; i < 2; i++ {
		l, err := q.Acquire()
		require.NoError(t, err)
		require.NoError(t, l.Submit())
	}
	assert.Equal(t, 2, h.OutstandingBuffers(q.ref))

	acquired := make(chan *Lease[float32])
	go func() {
		l, err := q.Acquire()
		if assert.NoError(t, err) {
			acquired <- l
		}
	}()

	select {
	case <-acquired:
		t.Fatal("acquire returned while all buffers were checked out")
	case <-time.After(30 * time.Millisecond):
	}

	require.True(t, h.ReleaseOne(q.ref))

	select {
	case l := <-acquired:
		l.Release()
	case <-time.After(time.Second):
		t.Fatal("acquire did not wake after completion")
	}

	h.HoldCompletions(q.ref, false)
}

func TestReleaseReturnsIndexImmediately(t *testing.T) {
	h := hosttest.New()

	q, err := NewOutput[float32](h, stereoF32(), Options{Buffers: 1, Capacity: 16})
	require.NoError(t, err)
	defer q.Close()

	l, err := q.Acquire()
	require.NoError(t, err)
	idx := l.Buffer().Index()
	l.Release()

	l2, err := q.Acquire()
	require.NoError(t, err)
	assert.Equal(t, idx, l2.Buffer().Index())
	l2.Release()
}

func TestSubmitFailureReturnsIndexToPool(t *testing.T) {
	h := hosttest.New()

	q, err := NewOutput[float32](h, stereoF32(), Options{Buffers: 1, Capacity: 16})
	require.NoError(t, err)
	defer q.Close()

	l, err := q.Acquire()
	require.NoError(t, err)

	h.FailWith(hosttest.FailEnqueueBuffer, hostapi.StatusParam)
	err = l.Submit()
	require.Error(t, err)
	assert.True(t, hostapi.IsStatus(err, hostapi.StatusParam))
	h.ClearFailures()

	l2, err := q.Acquire()
	require.NoError(t, err, "failed submit must return the buffer to the pool")
	l2.Release()
}

func TestSubmitTwiceFails(t *testing.T) {
	h := hosttest.New()

	q, err := NewOutput[float32](h, stereoF32(), Options{Buffers: 2, Capacity: 16})
	require.NoError(t, err)
	defer q.Close()
	require.NoError(t, q.Start())

	l, err := q.Acquire()
	require.NoError(t, err)
	require.NoError(t, l.Submit())
	require.Error(t, l.Submit())
}

func TestAcquireContextCancellation(t *testing.T) {
	h := hosttest.New()

	q, err := NewOutput[float32](h, stereoF32(), Options{Buffers: 1, Capacity: 16})
	require.NoError(t, err)
	defer q.Close()

	l, err := q.Acquire()
	require.NoError(t, err)
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = q.AcquireContext(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStopFlushReturnsOutstandingBuffers(t *testing.T) {
	h := hosttest.New()

	q, err := NewOutput[float32](h, stereoF32(), Options{Buffers: 3, Capacity: 16})
	require.NoError(t, err)
	defer q.Close()

	h.HoldCompletions(q.ref, true)
	require.NoError(t, q.Start())

	for i := 0; i < 3; i++ {
		l, err := q.Acquire()
		require.NoError(t, err)
		require.NoError(t, l.Submit())
	}
	assert.Equal(t, 3, h.OutstandingBuffers(q.ref))

	require.NoError(t, q.Stop(true))
	assert.Equal(t, 0, h.OutstandingBuffers(q.ref))

	for i := 0; i < 3; i++ {
		l, err := q.Acquire()
		require.NoError(t, err)
		l.Release()
	}
}

func TestCloseDisposesExactlyOnce(t *testing.T) {
	h := hosttest.New()

	q, err := NewOutput[float32](h, stereoF32(), Options{Buffers: 2, Capacity: 16})
	require.NoError(t, err)
	ref := q.ref

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	assert.Equal(t, 1, h.QueueDisposeCount(ref))
	assert.Equal(t, 0, h.AllocationCount(ref))
}

func TestPlaybackRoundTrips(t *testing.T) {
	h := hosttest.New()

	reg := prometheus.NewRegistry()
	qm, err := metrics.NewQueueMetrics(reg)
	require.NoError(t, err)

	const (
		buffers    = 10
		capacity   = 64
		iterations = 300
	)

	q, err := NewOutput[float32](h, stereoF32(), Options{
		Buffers:  buffers,
		Capacity: capacity,
		Metrics:  qm,
	})
	require.NoError(t, err)
	require.NoError(t, q.Start())

	phase := 0.0
	for i := 0; i < iterations; i++ {
		l, err := q.Acquire()
		require.NoError(t, err)

		b := l.Buffer()
		b.Resize(128)
		assert.Equal(t, capacity, b.Len(), "resize past capacity must clamp")

		for s := range b.Samples() {
			b.Samples()[s] = float32(math.Sin(phase))
			phase += 2 * math.Pi * 440 / 48000
		}

		require.NoError(t, l.Submit())
		assert.LessOrEqual(t, h.OutstandingBuffers(q.ref), buffers)
	}

	require.NoError(t, q.Stop(true))
	assert.Equal(t, 0, h.OutstandingBuffers(q.ref))
	require.NoError(t, q.Close())
}
