package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestServer_Readyz(t *testing.T) {
	tests := []struct {
		name       string
		check      ReadinessChecker
		wantStatus int
		wantBody   string
	}{
		{name: "без проверки", check: nil, wantStatus: http.StatusOK, wantBody: `{"status":"ready"}`},
		{
			name:       "зависимости доступны",
			check:      func(context.Context) error { return nil },
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
		{
			name:       "MySQL недоступен",
			check:      func(context.Context) error { return errors.New("mysql ping: refused") },
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"not_ready"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.check != nil {
				opts = append(opts, WithReadinessCheck(tt.check))
			}
			srv := NewServer(":0", "test", opts...)

			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String(), "детали ошибки не раскрываются")
		})
	}
}

func TestServer_Healthz(t *testing.T) {
	srv := NewServer(":0", "test")

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
}

func TestRecordOutboxPublish(t *testing.T) {
	before := testutil.ToFloat64(OutboxPublishedTotal.WithLabelValues("metrics-test", "error"))

	RecordOutboxPublish("metrics-test", errors.New("broker down"))
	RecordOutboxPublish("metrics-test", nil)

	assert.Equal(t, before+1, testutil.ToFloat64(OutboxPublishedTotal.WithLabelValues("metrics-test", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(OutboxPublishedTotal.WithLabelValues("metrics-test", "success")))
}
