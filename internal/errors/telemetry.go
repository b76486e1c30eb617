package errors

import (
	"sync/atomic"

	"github.com/getsentry/sentry-go"
)

// hasActiveReporting is checked on every Build so the disabled path stays cheap.
var hasActiveReporting atomic.Bool

// EnableTelemetry turns on Sentry reporting for errors built by this package.
// The embedding application owns sentry.Init; this package only captures events.
func EnableTelemetry() {
	hasActiveReporting.Store(true)
}

// DisableTelemetry turns off Sentry reporting.
func DisableTelemetry() {
	hasActiveReporting.Store(false)
}

// reportToTelemetry sends the error to Sentry with component/category tags.
// Each error is reported at most once.
func reportToTelemetry(ee *EnhancedError) {
	if ee.IsReported() {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.Component)
		scope.SetTag("category", string(ee.Category))
		if ee.Priority != "" {
			scope.SetTag("priority", ee.Priority)
		}
		if len(ee.Context) > 0 {
			scope.SetContext("error_context", sentry.Context(ee.GetContext()))
		}
		sentry.CaptureException(ee.Err)
	})

	ee.MarkReported()
}
