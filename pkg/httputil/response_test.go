package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/telehealth-api/pkg/errors"
)

func TestRespondWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", errors.NotFound("booking", nil), http.StatusNotFound, "booking not found"},
		{"wrapped conflict", fmt.Errorf("x: %w", errors.Conflict("invalid transition", nil)), http.StatusConflict, "invalid transition"},
		{"plain", fmt.Errorf("db exploded"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			RespondWithError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tc.message, resp.Error.Message)
			assert.Equal(t, tc.status, resp.Error.Code)
		})
	}
}
