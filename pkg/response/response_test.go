package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"carforum/pkg/errs"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(err error) (*httptest.ResponseRecorder, Response) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	HandleError(c, err)

	var body Response
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"validation", errs.Invalid("title", "required"), http.StatusBadRequest, ErrInvalidParam},
		{"not found wrapped", fmt.Errorf("get post: %w", errs.ErrNotFound), http.StatusNotFound, ErrNotFound},
		{"invalid vote", errs.ErrInvalidVote, http.StatusBadRequest, ErrInvalidVote},
		{"invalid target", errs.ErrInvalidTarget, http.StatusBadRequest, ErrInvalidTarget},
		{"unauthorized", errs.ErrUnauthorized, http.StatusUnauthorized, ErrAuthFailed},
		{"forbidden", errs.ErrForbidden, http.StatusForbidden, ErrNoPermission},
		{"dependency", errs.Dependency("openai", errors.New("timeout")), http.StatusBadGateway, ErrDependency},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ErrServerInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := serve(tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestHandleError_ValidationCarriesField(t *testing.T) {
	_, body := serve(errs.Invalid("email", "invalid format"))
	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "email", data["field"])
	assert.Equal(t, "email: invalid format", body.Message)
}

func TestHandleError_InternalHidesDetail(t *testing.T) {
	_, body := serve(errors.New("pq: relation does not exist"))
	assert.Equal(t, "Internal server error", body.Message)
}

func TestSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Success(c, gin.H{"likes": 1})

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CodeSuccess, body.Code)
	assert.Equal(t, "success", body.Message)
}
