package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errThingNotFound = errors.New("объект не найден")

func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "not found", err: errThingNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "обёрнутый not found", err: fmt.Errorf("ошибка загрузки: %w", errThingNotFound), wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "некорректный запрос", err: fmt.Errorf("%w: money_limit", ErrBadRequest), wantStatus: http.StatusBadRequest, wantCode: "invalid_argument"},
		{name: "прочая ошибка", err: errors.New("deadlock found"), wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
		{name: "nil ошибка", err: nil, wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleError(c, tt.err, errThingNotFound)

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Error)
			assert.NotContains(t, resp.Message, "deadlock", "детали внутренних ошибок не раскрываются")
		})
	}
}

func TestParseID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		raw    string
		wantOK bool
		wantID int64
	}{
		{raw: "42", wantOK: true, wantID: 42},
		{raw: "abc", wantOK: false},
		{raw: "0", wantOK: false},
		{raw: "-5", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Params = gin.Params{{Key: "id", Value: tt.raw}}

			id, ok := ParseID(c, "id")

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, id)
			} else {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}
