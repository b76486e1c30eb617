// Package bridge carries typed callback state across the host boundary.
// Host callbacks receive a single opaque user-data pointer; a Bridge pins a
// Go value behind such a pointer and recovers it with its original type on
// the other side.
package bridge

import (
	"sync/atomic"
	"unsafe"

	pointer "github.com/mattn/go-pointer"

	"github.com/algesten/caudio/internal/errors"
)

// Bridge pins a value of type T for the duration of a host registration.
// The token stays valid until Close, which releases the pin exactly once.
// Closing while the host may still invoke the callback is a use-after-free
// in spirit, so callers stop the host side first.
type Bridge[T any] struct {
	token  unsafe.Pointer
	closed atomic.Bool
}

// New pins state and returns the bridge holding its token.
func New[T any](state T) *Bridge[T] {
	return &Bridge[T]{token: pointer.Save(state)}
}

// Token returns the opaque pointer to hand to the host as user data.
func (b *Bridge[T]) Token() unsafe.Pointer {
	return b.token
}

// Restore recovers the typed state from a token inside a callback. It
// returns an error rather than panicking when the token is nil or holds a
// different type, since callbacks run on host threads where a panic cannot
// be recovered meaningfully.
func Restore[T any](token unsafe.Pointer) (T, error) {
	var zero T
	if token == nil {
		return zero, errors.Newf("nil callback token").
			Component("bridge").
			Category(errors.CategoryValidation).
			Build()
	}
	v := pointer.Restore(token)
	state, ok := v.(T)
	if !ok {
		return zero, errors.Newf("callback token holds %T", v).
			Component("bridge").
			Category(errors.CategoryValidation).
			Build()
	}
	return state, nil
}

// Close releases the pinned state. Subsequent calls are no-ops.
func (b *Bridge[T]) Close() {
	if b.closed.CompareAndSwap(false, true) {
		pointer.Unref(b.token)
	}
}
