package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_StatusCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, NotFound("booking", nil).StatusCode())
	assert.Equal(t, http.StatusBadRequest, BadRequest("bad", nil).StatusCode())
	assert.Equal(t, http.StatusUnauthorized, Unauthorized(nil).StatusCode())
	assert.Equal(t, http.StatusForbidden, Forbidden("no").StatusCode())
	assert.Equal(t, http.StatusConflict, Conflict("nope", nil).StatusCode())
	assert.Equal(t, http.StatusInternalServerError, Internal(nil).StatusCode())
}

func TestAs_Wrapped(t *testing.T) {
	err := fmt.Errorf("failed to move patient: %w", Conflict("invalid transition", nil))

	appErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, ErrConflict, appErr.Code)
	assert.True(t, HasCode(err, ErrConflict))
	assert.False(t, HasCode(fmt.Errorf("plain"), ErrConflict))
}
