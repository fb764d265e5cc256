package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func getHealth(h *HealthHandler) (*httptest.ResponseRecorder, gjson.Result) {
	router := gin.New()
	router.GET("/health", h.Get)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	return w, gjson.Parse(w.Body.String())
}

func TestHealthHandler_NoChecks(t *testing.T) {
	w, body := getHealth(NewHealthHandler("1.2.0", "api-0"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Get("success").Bool())
	assert.Equal(t, "ok", body.Get("data.status").String())
	assert.Equal(t, "1.2.0", body.Get("data.version").String())
	assert.Equal(t, "api-0", body.Get("data.instance").String())
	assert.NotEmpty(t, body.Get("data.uptime").String())
	assert.False(t, body.Get("data.checks").Exists())
}

func TestHealthHandler_Checks(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		opts       []HealthOption
		wantStatus int
		wantState  string
		wantChecks map[string]string
	}{
		{
			name:       "all healthy",
			opts:       []HealthOption{WithHealthCheck("database", healthy), WithHealthCheck("redis", healthy)},
			wantStatus: http.StatusOK,
			wantState:  "ok",
			wantChecks: map[string]string{"database": "ok", "redis": "ok"},
		},
		{
			name:       "one failing",
			opts:       []HealthOption{WithHealthCheck("database", healthy), WithHealthCheck("redis", failing)},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "degraded",
			wantChecks: map[string]string{"database": "ok", "redis": "connection refused"},
		},
		{
			name:       "later registration replaces",
			opts:       []HealthOption{WithHealthCheck("database", failing), WithHealthCheck("database", healthy)},
			wantStatus: http.StatusOK,
			wantState:  "ok",
			wantChecks: map[string]string{"database": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := getHealth(NewHealthHandler("dev", "", tt.opts...))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, body.Get("success").Bool())
			assert.Equal(t, tt.wantState, body.Get("data.status").String())
			checks := map[string]string{}
			body.Get("data.checks").ForEach(func(k, v gjson.Result) bool {
				checks[k.String()] = v.String()
				return true
			})
			assert.Equal(t, tt.wantChecks, checks)
		})
	}
}

func TestHealthHandler_CheckTimeout(t *testing.T) {
	slow := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	h := NewHealthHandler("dev", "", WithHealthCheck("feed", slow), WithHealthTimeout(10*time.Millisecond))

	w, body := getHealth(h)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, context.DeadlineExceeded.Error(), body.Get("data.checks.feed").String())
}
