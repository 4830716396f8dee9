package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validationf("bad input")))
	assert.Equal(t, KindNotFound, KindOf(NotFoundf("missing")))
	assert.Equal(t, KindPrecondition, KindOf(Preconditionf("not now")))
	assert.Equal(t, KindInternal, KindOf(Internalf(errors.New("boom"), "storage")))

	t.Run("untyped errors default to internal", func(t *testing.T) {
		assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	})

	t.Run("wrapped app errors keep their kind", func(t *testing.T) {
		wrapped := fmt.Errorf("outer: %w", Preconditionf("inner"))
		assert.Equal(t, KindPrecondition, KindOf(wrapped))
	})
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internalf(cause, "appending transaction")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "appending transaction")
	assert.Contains(t, err.Error(), "connection reset")
}
