package id

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csafcms/internal/core/apperror"
)

func TestNew(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a, b)

	u, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), u.Version())
	assert.NoError(t, Validate(a))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("0f4e3a1c-advisory"))
	assert.True(t, apperror.IsInvalidRequest(Validate("")))
	assert.True(t, apperror.IsInvalidRequest(Validate("_design/x")))
}
