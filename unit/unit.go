// Package unit wraps a host processing unit with an idempotent lifecycle
// state machine, typed render-callback registration, and stream-format
// property access.
package unit

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/algesten/caudio/format"
	"github.com/algesten/caudio/hostapi"
	"github.com/algesten/caudio/internal/errors"
	"github.com/algesten/caudio/internal/logging"
	"github.com/algesten/caudio/internal/observability/metrics"
)

// Options configures a Unit.
type Options struct {
	// Metrics receives lifecycle and render counters when non-nil.
	Metrics *metrics.UnitMetrics

	// Logger overrides the default structured logger.
	Logger *slog.Logger
}

// Unit owns one host unit handle and tracks its lifecycle so transitions
// are idempotent and correctly ordered regardless of the caller's sequence.
// A Unit is safe for concurrent use.
type Unit struct {
	host hostapi.UnitHost
	ref  hostapi.UnitRef
	id   string

	mu          sync.Mutex
	initialized bool
	started     bool
	closed      bool

	render renderRegistration

	metrics *metrics.UnitMetrics
	log     *slog.Logger
}

type renderRegistration interface {
	close()
}

// New instantiates the component on the host and wraps the handle.
func New(host hostapi.UnitHost, c hostapi.Component, opts Options) (*Unit, error) {
	ref, status := host.NewUnit(c)
	if err := status.Err(); err != nil {
		return nil, errors.New(err).
			Component("unit").
			Category(errors.CategoryHostStatus).
			Context("operation", "new_unit").
			Build()
	}

	log := opts.Logger
	if log == nil {
		log = logging.ForService("unit")
	}

	u := &Unit{
		host:    host,
		ref:     ref,
		id:      uuid.NewString(),
		metrics: opts.Metrics,
		log:     log,
	}
	u.log.Debug("unit created", "unit_id", u.id)
	return u, nil
}

// ID returns the unit's log identifier.
func (u *Unit) ID() string {
	return u.id
}

// Initialize prepares the unit for rendering. A no-op when already
// initialized; on failure the unit stays uninitialized.
func (u *Unit) Initialize() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.initializeLocked()
}

func (u *Unit) initializeLocked() error {
	if err := u.checkOpenLocked(); err != nil {
		return err
	}
	if u.initialized {
		return nil
	}
	if err := u.transitionLocked("initialize", u.host.InitializeUnit); err != nil {
		return err
	}
	u.initialized = true
	return nil
}

// Start begins rendering, initializing first when needed. A no-op when
// already started.
func (u *Unit) Start() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.started {
		return nil
	}
	if err := u.initializeLocked(); err != nil {
		return err
	}
	if err := u.transitionLocked("start", u.host.StartUnit); err != nil {
		return err
	}
	u.started = true
	return nil
}

// Stop halts rendering. A no-op when not started.
func (u *Unit) Stop() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.stopLocked()
}

func (u *Unit) stopLocked() error {
	if err := u.checkOpenLocked(); err != nil {
		return err
	}
	if !u.started {
		return nil
	}
	if err := u.transitionLocked("stop", u.host.StopUnit); err != nil {
		return err
	}
	u.started = false
	return nil
}

// Uninitialize releases the unit's render resources, stopping first when
// needed. A no-op when not initialized.
func (u *Unit) Uninitialize() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.uninitializeLocked()
}

func (u *Unit) uninitializeLocked() error {
	if err := u.checkOpenLocked(); err != nil {
		return err
	}
	if !u.initialized {
		return nil
	}
	if err := u.stopLocked(); err != nil {
		return err
	}
	if err := u.transitionLocked("uninitialize", u.host.UninitializeUnit); err != nil {
		return err
	}
	u.initialized = false
	return nil
}

// Close stops and uninitializes best-effort, then disposes the handle and
// the callback token exactly once. Later calls no-op.
func (u *Unit) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return nil
	}
	u.closed = true

	if u.started {
		if status := u.host.StopUnit(u.ref); status != hostapi.NoErr {
			u.log.Warn("stop during close failed", "unit_id", u.id, "status", int32(status))
		}
		u.started = false
	}
	if u.initialized {
		if status := u.host.UninitializeUnit(u.ref); status != hostapi.NoErr {
			u.log.Warn("uninitialize during close failed", "unit_id", u.id, "status", int32(status))
		}
		u.initialized = false
	}
	if status := u.host.DisposeUnit(u.ref); status != hostapi.NoErr {
		u.log.Warn("dispose failed", "unit_id", u.id, "status", int32(status))
	}
	if u.render != nil {
		u.render.close()
		u.render = nil
	}
	if u.metrics != nil {
		u.metrics.RecordTransition(u.id, "close", "success")
	}
	u.log.Debug("unit closed", "unit_id", u.id)
	return nil
}

// SetStreamFormat sets the stream format property on the given scope and
// element. Rejected while the unit is started.
func (u *Unit) SetStreamFormat(scope hostapi.Scope, element hostapi.Element, f format.StreamFormat) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := u.checkOpenLocked(); err != nil {
		return err
	}
	if u.started {
		return errStarted(u.id, "set_stream_format")
	}

	desc := f.Description()
	status := u.host.SetStreamFormat(u.ref, scope, element, &desc)
	if err := status.Err(); err != nil {
		return errors.New(err).
			Component("unit").
			Category(errors.CategoryHostStatus).
			Context("unit_id", u.id).
			Context("operation", "set_stream_format").
			Build()
	}
	return nil
}

// StreamFormat reads back the stream format property, validating that the
// host returned a representable linear-PCM description.
func (u *Unit) StreamFormat(scope hostapi.Scope, element hostapi.Element) (format.StreamFormat, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := u.checkOpenLocked(); err != nil {
		return format.StreamFormat{}, err
	}
	if u.started {
		return format.StreamFormat{}, errStarted(u.id, "get_stream_format")
	}

	desc, status := u.host.GetStreamFormat(u.ref, scope, element)
	if err := status.Err(); err != nil {
		return format.StreamFormat{}, errors.New(err).
			Component("unit").
			Category(errors.CategoryHostStatus).
			Context("unit_id", u.id).
			Context("operation", "get_stream_format").
			Build()
	}
	return format.FromDescription(desc)
}

func (u *Unit) transitionLocked(name string, op func(hostapi.UnitRef) hostapi.Status) error {
	status := op(u.ref)
	if err := status.Err(); err != nil {
		if u.metrics != nil {
			u.metrics.RecordTransition(u.id, name, "error")
		}
		return errors.New(err).
			Component("unit").
			Category(errors.CategoryHostStatus).
			Context("unit_id", u.id).
			Context("operation", name).
			Build()
	}
	if u.metrics != nil {
		u.metrics.RecordTransition(u.id, name, "success")
	}
	return nil
}

func (u *Unit) checkOpenLocked() error {
	if !u.closed {
		return nil
	}
	return errors.Newf("unit is closed").
		Component("unit").
		Category(errors.CategoryState).
		Context("unit_id", u.id).
		Build()
}

func errStarted(unitID, operation string) error {
	return errors.Newf("operation not allowed while unit is started").
		Component("unit").
		Category(errors.CategoryState).
		Context("unit_id", unitID).
		Context("operation", operation).
		Build()
}
