// Package queue provides typed streaming queues over a hostapi.QueueHost:
// an output queue with a blocking buffer pool and an input queue that
// delivers host-filled buffers to an application callback.
package queue

import (
	"context"
	"log/slog"
	"sync/atomic"
	"unsafe"

	"github.com/google/uuid"

	"github.com/algesten/caudio/bridge"
	"github.com/algesten/caudio/buffer"
	"github.com/algesten/caudio/format"
	"github.com/algesten/caudio/hostapi"
	"github.com/algesten/caudio/internal/errors"
	"github.com/algesten/caudio/internal/logging"
	"github.com/algesten/caudio/internal/observability/metrics"
)

const defaultBuffers = 4

// Options configures a streaming queue.
type Options struct {
	// Buffers is the pool size for output queues. Zero means 4.
	Buffers int

	// Capacity is the sample capacity of each pool buffer. Required for
	// output queues.
	Capacity int

	// Metrics receives pool and completion counters when non-nil.
	Metrics *metrics.QueueMetrics

	// Logger overrides the default structured logger.
	Logger *slog.Logger
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.ForService("queue")
}

// Output is a playback queue with a fixed pool of reusable buffers. The
// application acquires a lease, fills the buffer, and submits it; the host's
// completion callback is the only path that returns a submitted buffer to
// the pool.
type Output[S format.Sample] struct {
	host hostapi.QueueHost
	ref  hostapi.QueueRef
	id   string

	bufs []*buffer.Buffer[S]
	free chan int

	br      *bridge.Bridge[*Output[S]]
	metrics *metrics.QueueMetrics
	log     *slog.Logger

	started atomic.Bool
	closed  atomic.Bool
}

// NewOutput creates an output queue for the given format and allocates its
// buffer pool up front. The sample type S must match the format's sample
// format.
func NewOutput[S format.Sample](host hostapi.QueueHost, f format.StreamFormat, opts Options) (*Output[S], error) {
	if err := format.EnsureSampleType[S](f); err != nil {
		return nil, err
	}
	if opts.Capacity <= 0 {
		return nil, errors.Newf("buffer capacity must be positive, got %d", opts.Capacity).
			Component("queue").
			Category(errors.CategoryValidation).
			Build()
	}
	count := opts.Buffers
	if count <= 0 {
		count = defaultBuffers
	}

	q := &Output[S]{
		host:    host,
		id:      uuid.NewString(),
		bufs:    make([]*buffer.Buffer[S], 0, count),
		free:    make(chan int, count),
		metrics: opts.Metrics,
		log:     opts.logger(),
	}
	q.br = bridge.New(q)

	desc := f.Description()
	ref, status := host.NewOutputQueue(&desc, outputCompletion[S], q.br.Token())
	if err := status.Err(); err != nil {
		q.br.Close()
		return nil, errors.New(err).
			Component("queue").
			Category(errors.CategoryHostStatus).
			Context("queue_id", q.id).
			Context("operation", "new_output_queue").
			Build()
	}
	q.ref = ref

	for i := 0; i < count; i++ {
		b, err := buffer.Allocate[S](host, ref, i, opts.Capacity)
		if err != nil {
			q.teardown()
			return nil, err
		}
		q.bufs = append(q.bufs, b)
		q.free <- i
	}

	q.log.Debug("output queue created",
		"queue_id", q.id,
		"buffers", count,
		"capacity", opts.Capacity,
		"sample_rate", f.SampleRate(),
		"channels", f.Channels())

	q.updateGauges()
	return q, nil
}

// outputCompletion is the fixed-signature trampoline the host invokes on its
// own thread when it finishes with a buffer.
func outputCompletion[S format.Sample](userData unsafe.Pointer, _ hostapi.QueueRef, buf *hostapi.QueueBuffer) {
	q, err := bridge.Restore[*Output[S]](userData)
	if err != nil {
		return
	}
	q.complete(int(buf.UserData))
}

func (q *Output[S]) complete(index int) {
	q.free <- index
	if q.metrics != nil {
		q.metrics.RecordCompletion(q.id)
	}
	q.updateGauges()
}

// ID returns the queue's log identifier.
func (q *Output[S]) ID() string {
	return q.id
}

// Buffers returns the pool size.
func (q *Output[S]) Buffers() int {
	return len(q.bufs)
}

// Acquire blocks until a buffer is free and returns a lease exclusively
// owning it. No two outstanding leases ever reference the same buffer.
func (q *Output[S]) Acquire() (*Lease[S], error) {
	return q.AcquireContext(context.Background())
}

// AcquireContext is Acquire with cancellation. A cancelled or expired
// context returns the context error wrapped in a timeout-category error.
func (q *Output[S]) AcquireContext(ctx context.Context) (*Lease[S], error) {
	if q.closed.Load() {
		return nil, errClosed(q.id)
	}

	select {
	case i := <-q.free:
		if q.metrics != nil {
			q.metrics.RecordAcquire(q.id)
		}
		q.updateGauges()
		return &Lease[S]{q: q, buf: q.bufs[i]}, nil
	case <-ctx.Done():
		cat := errors.CategoryCancellation
		if ctx.Err() == context.DeadlineExceeded {
			cat = errors.CategoryTimeout
		}
		return nil, errors.New(ctx.Err()).
			Component("queue").
			Category(cat).
			Context("queue_id", q.id).
			Context("operation", "acquire").
			Build()
	}
}

// Start begins playback.
func (q *Output[S]) Start() error {
	status := q.host.StartQueue(q.ref)
	if err := status.Err(); err != nil {
		if q.metrics != nil {
			q.metrics.RecordStart(q.id, "error")
		}
		return errors.New(err).
			Component("queue").
			Category(errors.CategoryHostStatus).
			Context("queue_id", q.id).
			Context("operation", "start").
			Build()
	}
	q.started.Store(true)
	if q.metrics != nil {
		q.metrics.RecordStart(q.id, "success")
	}
	return nil
}

// Stop halts the queue. With immediate set, the host returns outstanding
// buffers through the completion callback before Stop returns.
func (q *Output[S]) Stop(immediate bool) error {
	status := q.host.StopQueue(q.ref, immediate)
	if err := status.Err(); err != nil {
		if q.metrics != nil {
			q.metrics.RecordStop(q.id, "error")
		}
		return errors.New(err).
			Component("queue").
			Category(errors.CategoryHostStatus).
			Context("queue_id", q.id).
			Context("operation", "stop").
			Build()
	}
	q.started.Store(false)
	if q.metrics != nil {
		q.metrics.RecordStop(q.id, "success")
	}
	return nil
}

// Close stops the queue, frees its buffers, disposes the host queue, and
// releases the callback token. Only the first call does anything. Teardown
// failures are logged, not returned: there is no recovery path for a
// half-disposed queue.
func (q *Output[S]) Close() error {
	if !q.closed.CompareAndSwap(false, true) {
		return nil
	}
	q.teardown()
	return nil
}

func (q *Output[S]) teardown() {
	if status := q.host.StopQueue(q.ref, true); status != hostapi.NoErr {
		q.log.Warn("stop during close failed", "queue_id", q.id, "status", int32(status))
	}
	for _, b := range q.bufs {
		if err := b.Close(); err != nil {
			q.log.Warn("buffer free failed", "queue_id", q.id, "index", b.Index(), "error", err)
		}
	}
	if status := q.host.DisposeQueue(q.ref, true); status != hostapi.NoErr {
		q.log.Warn("queue dispose failed", "queue_id", q.id, "status", int32(status))
	}
	q.br.Close()
	q.log.Debug("output queue closed", "queue_id", q.id)
}

func (q *Output[S]) updateGauges() {
	if q.metrics == nil {
		return
	}
	free := len(q.free)
	q.metrics.UpdateBuffersFree(q.id, free)
	q.metrics.UpdateBuffersCheckedOut(q.id, cap(q.free)-free)
}

func errClosed(queueID string) error {
	return errors.Newf("queue is closed").
		Component("queue").
		Category(errors.CategoryState).
		Context("queue_id", queueID).
		Build()
}
