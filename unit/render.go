package unit

import (
	"unsafe"

	"github.com/algesten/caudio/bridge"
	"github.com/algesten/caudio/buffer"
	"github.com/algesten/caudio/format"
	"github.com/algesten/caudio/hostapi"
	"github.com/algesten/caudio/internal/errors"
	"github.com/algesten/caudio/internal/observability/metrics"
)

// RenderFunc produces audio on the host's render thread. The list is
// borrowed host memory, valid only for the duration of the call. A non-nil
// error is reported to the host as a status code.
type RenderFunc[S format.Sample] func(ts *hostapi.TimeStamp, bus uint32, frames uint32, list *buffer.List[S]) error

type renderState[S format.Sample] struct {
	unitID  string
	fn      RenderFunc[S]
	metrics *metrics.UnitMetrics
}

type renderHandle[S format.Sample] struct {
	br *bridge.Bridge[*renderState[S]]
}

func (h renderHandle[S]) close() {
	h.br.Close()
}

// SetRenderCallback registers fn as the unit's render callback. A unit holds
// at most one registration for its lifetime, and registration is rejected
// while the unit is started. This is a free function because the sample type
// is independent of the Unit itself.
func SetRenderCallback[S format.Sample](u *Unit, fn RenderFunc[S]) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := u.checkOpenLocked(); err != nil {
		return err
	}
	if u.started {
		return errStarted(u.id, "set_render_callback")
	}
	if u.render != nil {
		return errors.Newf("render callback already registered").
			Component("unit").
			Category(errors.CategoryState).
			Context("unit_id", u.id).
			Build()
	}
	if fn == nil {
		return errors.Newf("render callback must not be nil").
			Component("unit").
			Category(errors.CategoryValidation).
			Context("unit_id", u.id).
			Build()
	}

	st := &renderState[S]{unitID: u.id, fn: fn, metrics: u.metrics}
	br := bridge.New(st)

	status := u.host.SetRenderCallback(u.ref, renderTrampoline[S], br.Token())
	if err := status.Err(); err != nil {
		br.Close()
		return errors.New(err).
			Component("unit").
			Category(errors.CategoryHostStatus).
			Context("unit_id", u.id).
			Context("operation", "set_render_callback").
			Build()
	}

	u.render = renderHandle[S]{br: br}
	return nil
}

// renderTrampoline is the fixed-signature proc registered with the host. It
// recovers the typed state, wraps the host-owned list, and maps the
// callback's error back to a status.
func renderTrampoline[S format.Sample](userData unsafe.Pointer, _ *hostapi.RenderActionFlags, ts *hostapi.TimeStamp, bus uint32, frames uint32, list *hostapi.AudioBufferList) hostapi.Status {
	st, err := bridge.Restore[*renderState[S]](userData)
	if err != nil {
		return hostapi.StatusParam
	}

	renderErr := st.fn(ts, bus, frames, buffer.Borrow[S](list))
	if renderErr != nil {
		if st.metrics != nil {
			st.metrics.RecordRenderCall(st.unitID, "error")
		}
		return statusOf(renderErr)
	}

	if st.metrics != nil {
		st.metrics.RecordRenderCall(st.unitID, "success")
	}
	return hostapi.NoErr
}

// statusOf extracts a host status from an error chain, falling back to the
// generic parameter error when the callback failed for a reason the host
// has no code for.
func statusOf(err error) hostapi.Status {
	var se *hostapi.StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return hostapi.StatusParam
}
