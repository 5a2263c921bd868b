package util

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRespondErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err  error
		want int
	}{
		{NewValidationError("score", "out of range"), http.StatusBadRequest},
		{fmt.Errorf("lesson %q: %w", "x", ErrNotFound), http.StatusNotFound},
		{ErrUserNotFound, http.StatusNotFound},
		{ErrNotEnrolled, http.StatusNotFound},
		{ErrAlreadyEnrolled, http.StatusConflict},
		{fmt.Errorf("save: %w", ErrConcurrentModification), http.StatusConflict},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrPermissionDenied, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		RespondError(c, tc.err)
		assert.Equal(t, tc.want, w.Code, tc.err.Error())
	}
}

func TestRespondErrorQuotaRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	RespondError(c, &QuotaExceededError{Limit: 1, RetryAfter: time.Now().Add(2 * time.Hour)})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"limit":1`)
}
