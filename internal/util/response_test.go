package util

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &ValidationError{Field: "text", QuestionPosition: 2, Reason: "question text is required"}, http.StatusBadRequest},
		{"authorization", NewAuthorizationError("assessment 7 is owned by 3"), http.StatusForbidden},
		{"state", NewStateError("assessment", "ACTIVE", "DRAFT"), http.StatusConflict},
		{"conflict", fmt.Errorf("assign: %w", ErrConflict), http.StatusConflict},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"consistency", NewConsistencyError("answer 3 references question 9", nil), http.StatusUnprocessableEntity},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleServiceError(c, tc.err)

			assert.Equal(t, tc.code, w.Code)
			var body Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestHandleServiceError_HidesAuthorizationCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleServiceError(c, NewAuthorizationError("assessment 7 is owned by 3"))

	assert.NotContains(t, w.Body.String(), "owned by")
}

func TestHandleServiceError_ValidationCarriesPosition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleServiceError(c, &ValidationError{Field: "options", QuestionPosition: 3, QuestionText: "pick", Reason: "MCQ requires at least one option"})

	var body struct {
		Data ValidationError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Data.QuestionPosition)
	assert.Equal(t, "options", body.Data.Field)
}
