package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		ping   error
		status int
		body   string
	}{
		{"health ignores store", "/api/health", errors.New("down"), http.StatusOK, "ok"},
		{"ready", "/api/ready", nil, http.StatusOK, "ok"},
		{"not ready", "/api/ready", errors.New("connection refused"), http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(pingerFunc(func(ctx context.Context) error {
				if _, ok := ctx.Deadline(); !ok {
					t.Error("expected ping to carry a deadline")
				}
				return tt.ping
			}))
			r := gin.New()
			r.GET("/api/health", h.Health)
			r.GET("/api/ready", h.Ready)

			rec := doRequest(r, http.MethodGet, tt.path, "")
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if parseJSON(t, rec)["status"] != tt.body {
				t.Errorf("unexpected body %s", rec.Body.String())
			}
		})
	}
}
