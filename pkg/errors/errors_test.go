package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorKeepsTypedError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrInvalidConfig, "durationMin must be > 0"))

	got := FromError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, "INVALID_CONFIG", got.Code)
	assert.Equal(t, http.StatusBadRequest, got.Status)
	assert.Equal(t, "durationMin must be > 0", got.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	got := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.EqualError(t, got, "internal server error: boom")
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrValidation, "subject code is required")
	assert.Equal(t, "validation failed", ErrValidation.Message)
	assert.Equal(t, "subject code is required", clone.Message)
	assert.Nil(t, FromError(nil))
}
