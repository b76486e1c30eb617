package queue

import (
	"github.com/algesten/caudio/buffer"
	"github.com/algesten/caudio/format"
	"github.com/algesten/caudio/internal/errors"
)

// Lease is exclusive ownership of one pool buffer between Acquire and either
// Submit or Release. A lease is used from a single goroutine.
type Lease[S format.Sample] struct {
	q       *Output[S]
	buf     *buffer.Buffer[S]
	settled bool
}

// Buffer returns the leased buffer for filling and resizing.
func (l *Lease[S]) Buffer() *buffer.Buffer[S] {
	return l.buf
}

// Submit hands the buffer to the host. The buffer stays checked out until
// the host's completion callback returns it to the pool. On failure the
// index goes straight back to the pool and the error carries the host
// status.
func (l *Lease[S]) Submit() error {
	if l.settled {
		return errors.Newf("lease already settled").
			Component("queue").
			Category(errors.CategoryState).
			Context("queue_id", l.q.id).
			Context("index", l.buf.Index()).
			Build()
	}
	l.settled = true

	status := l.q.host.EnqueueBuffer(l.q.ref, l.buf.Sys())
	if err := status.Err(); err != nil {
		l.q.free <- l.buf.Index()
		l.q.updateGauges()
		if l.q.metrics != nil {
			l.q.metrics.RecordError(l.q.id, "enqueue")
		}
		return errors.New(err).
			Component("queue").
			Category(errors.CategoryHostStatus).
			Context("queue_id", l.q.id).
			Context("index", l.buf.Index()).
			Context("operation", "enqueue").
			Build()
	}

	if l.q.metrics != nil {
		l.q.metrics.RecordSubmit(l.q.id)
	}
	return nil
}

// Release returns the buffer to the pool without submitting it. A no-op
// after Submit or a previous Release.
func (l *Lease[S]) Release() {
	if l.settled {
		return
	}
	l.settled = true
	l.q.free <- l.buf.Index()
	if l.q.metrics != nil {
		l.q.metrics.RecordLeaseDrop(l.q.id)
	}
	l.q.updateGauges()
}

// Close releases the lease. It exists so a lease can sit in a defer next to
// other io.Closer values.
func (l *Lease[S]) Close() error {
	l.Release()
	return nil
}
