package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func respond(t *testing.T, err error) (int, Response) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(ContextRequestID, "req-1")

	RespondWithError(c, err)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestRespondWithErrorConflict(t *testing.T) {
	code, body := respond(t, apperrors.Conflict("This doctor (House, Gregory) has active surgery on 2024-03-01", []string{"d1"}))

	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, StatusError, body.Status)
	assert.Equal(t, "This doctor (House, Gregory) has active surgery on 2024-03-01", body.Message)
	assert.Equal(t, []interface{}{"d1"}, body.Details)
	assert.Equal(t, "req-1", body.RequestID)
}

func TestRespondWithErrorHidesInternalCause(t *testing.T) {
	code, body := respond(t, errors.New("mongo: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal server error", body.Message)
}

func TestRespondWithErrorDeadline(t *testing.T) {
	code, body := respond(t, fmt.Errorf("failed to list surgeries: %w", context.DeadlineExceeded))

	assert.Equal(t, http.StatusGatewayTimeout, code)
	assert.Equal(t, "request timeout", body.Message)
}
