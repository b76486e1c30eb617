package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderDefaults(t *testing.T) {
	t.Parallel()

	err := Newf("queue not running").Build()
	require.Error(t, err)
	assert.Equal(t, ComponentUnknown, err.Component)
	assert.Equal(t, CategoryGeneric, err.Category)
	assert.Equal(t, "queue not running", err.Error())
}

func TestBuilderContext(t *testing.T) {
	t.Parallel()

	err := New(NewStd("buffer index out of range")).
		Component("queue").
		Category(CategoryBuffer).
		Context("index", 7).
		Context("operation", "submit").
		Build()

	assert.Equal(t, "queue", err.Component)
	assert.Equal(t, CategoryBuffer, err.Category)

	ctx := err.GetContext()
	assert.Equal(t, 7, ctx["index"])
	assert.Equal(t, "submit", ctx["operation"])

	// The copy must not alias the internal map.
	ctx["index"] = 99
	assert.Equal(t, 7, err.GetContext()["index"])
}

func TestCategoryMatching(t *testing.T) {
	t.Parallel()

	err := Newf("not started").Category(CategoryState).Build()
	assert.True(t, IsCategory(err, CategoryState))
	assert.False(t, IsCategory(err, CategoryValidation))
}

func TestUnwrap(t *testing.T) {
	t.Parallel()

	inner := NewStd("host refused")
	err := New(inner).Category(CategoryHostStatus).Build()
	assert.True(t, Is(err, inner))
	assert.Equal(t, inner, Unwrap(err))
}

func TestInvalidPriorityFallsBack(t *testing.T) {
	t.Parallel()

	err := Newf("x").Priority("urgent!!").Build()
	assert.Equal(t, PriorityMedium, err.Priority)
}
