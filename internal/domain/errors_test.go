package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsAs(t *testing.T) {
	wrapped := fmt.Errorf("load preset: %w", ErrNotFound("preset %q not found", "daily"))

	var nf *NotFoundError
	assert.True(t, errors.As(wrapped, &nf))
	assert.Equal(t, `preset "daily" not found`, nf.Message)

	var ve *ValidationError
	assert.False(t, errors.As(wrapped, &ve))

	assert.Equal(t, "duplicate x", ErrConflict("duplicate %s", "x").Error())
}

func TestQueryError_Unwrap(t *testing.T) {
	err := &QueryError{SQL: "SELECT 1", Err: context.Canceled}
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "query failed: context canceled", err.Error())
}
