package queue

import (
	"log/slog"
	"sync/atomic"
	"unsafe"

	"github.com/google/uuid"

	"github.com/algesten/caudio/bridge"
	"github.com/algesten/caudio/buffer"
	"github.com/algesten/caudio/format"
	"github.com/algesten/caudio/hostapi"
	"github.com/algesten/caudio/internal/errors"
	"github.com/algesten/caudio/internal/observability/metrics"
)

// InputFunc receives captured audio on the host's thread. The buffer is
// borrowed host memory, valid only for the duration of the call: copy out
// anything that must survive the callback.
type InputFunc[S format.Sample] func(ts *hostapi.TimeStamp, b *buffer.Buffer[S])

// Input is a capture queue delivering host-filled buffers to an application
// callback.
type Input[S format.Sample] struct {
	host hostapi.QueueHost
	ref  hostapi.QueueRef
	id   string

	fn      InputFunc[S]
	br      *bridge.Bridge[*Input[S]]
	metrics *metrics.QueueMetrics
	log     *slog.Logger

	closed atomic.Bool
}

// NewInput creates a capture queue for the given format. The sample type S
// must match the format's sample format.
func NewInput[S format.Sample](host hostapi.QueueHost, f format.StreamFormat, fn InputFunc[S], opts Options) (*Input[S], error) {
	if err := format.EnsureSampleType[S](f); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, errors.Newf("input callback must not be nil").
			Component("queue").
			Category(errors.CategoryValidation).
			Build()
	}

	q := &Input[S]{
		host:    host,
		id:      uuid.NewString(),
		fn:      fn,
		metrics: opts.Metrics,
		log:     opts.logger(),
	}
	q.br = bridge.New(q)

	desc := f.Description()
	ref, status := host.NewInputQueue(&desc, inputDelivery[S], q.br.Token())
	if err := status.Err(); err != nil {
		q.br.Close()
		return nil, errors.New(err).
			Component("queue").
			Category(errors.CategoryHostStatus).
			Context("queue_id", q.id).
			Context("operation", "new_input_queue").
			Build()
	}
	q.ref = ref

	q.log.Debug("input queue created",
		"queue_id", q.id,
		"sample_rate", f.SampleRate(),
		"channels", f.Channels())
	return q, nil
}

// inputDelivery is the fixed-signature trampoline the host invokes with each
// filled buffer.
func inputDelivery[S format.Sample](userData unsafe.Pointer, queue hostapi.QueueRef, buf *hostapi.QueueBuffer, ts *hostapi.TimeStamp) {
	q, err := bridge.Restore[*Input[S]](userData)
	if err != nil {
		return
	}
	if q.metrics != nil {
		q.metrics.RecordCompletion(q.id)
	}
	q.fn(ts, buffer.Borrowed[S](queue, buf))
}

// ID returns the queue's log identifier.
func (q *Input[S]) ID() string {
	return q.id
}

// Start begins capture.
func (q *Input[S]) Start() error {
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
	if q.metrics != nil {
		q.metrics.RecordStart(q.id, "success")
	}
	return nil
}

// Stop halts capture.
func (q *Input[S]) Stop(immediate bool) error {
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
	if q.metrics != nil {
		q.metrics.RecordStop(q.id, "success")
	}
	return nil
}

// Close stops the queue, disposes it, and releases the callback token.
// Only the first call does anything.
func (q *Input[S]) Close() error {
	if !q.closed.CompareAndSwap(false, true) {
		return nil
	}
	if status := q.host.StopQueue(q.ref, true); status != hostapi.NoErr {
		q.log.Warn("stop during close failed", "queue_id", q.id, "status", int32(status))
	}
	if status := q.host.DisposeQueue(q.ref, true); status != hostapi.NoErr {
		q.log.Warn("queue dispose failed", "queue_id", q.id, "status", int32(status))
	}
	q.br.Close()
	q.log.Debug("input queue closed", "queue_id", q.id)
	return nil
}
