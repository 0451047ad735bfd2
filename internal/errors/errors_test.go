package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	err := Validation("lat", "lat must be a finite number")
	assert.Equal(t, "[VALIDATION_ERROR] lat must be a finite number", err.Error())
	assert.Equal(t, "lat", err.Field)

	wrapped := Persistence("insert prices", fmt.Errorf("disk full"))
	assert.Equal(t, "[PERSISTENCE_ERROR] insert prices: disk full", wrapped.Error())
}

func TestIsType_FollowsWrapChain(t *testing.T) {
	base := NotFound("market", "MH999")
	outer := fmt.Errorf("estimate transport: %w", base)

	assert.True(t, IsType(outer, TypeNotFound))
	assert.False(t, IsType(outer, TypeValidation))
	assert.False(t, IsType(fmt.Errorf("plain"), TypeNotFound))
	assert.False(t, IsType(nil, TypeNotFound))

	e, ok := As(outer)
	require.True(t, ok)
	assert.Equal(t, "MH999", e.Context["id"])
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("timeout")
	err := Internal("query", cause)
	assert.ErrorIs(t, err, cause)
}

func TestWithContext(t *testing.T) {
	err := New(TypeConfig, "bad").WithContext("key", 1).WithContext("other", "x")
	assert.Len(t, err.Context, 2)
	assert.True(t, err.Is(TypeConfig))
}
