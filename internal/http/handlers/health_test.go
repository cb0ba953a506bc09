package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/mural/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

func TestReadyz(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("refused") }

	tests := []struct {
		name     string
		checks   map[string]handlers.PingFunc
		stopping bool
		want     int
	}{
		{name: "no_checks", want: http.StatusOK},
		{name: "all_up", checks: map[string]handlers.PingFunc{"db": ok, "cache": ok}, want: http.StatusOK},
		{name: "db_down", checks: map[string]handlers.PingFunc{"db": down, "cache": ok}, want: http.StatusServiceUnavailable},
		{name: "shutting_down", checks: map[string]handlers.PingFunc{"db": ok}, stopping: true, want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stopping := tt.stopping
			h := handlers.NewHealthHandler(tt.checks, func() bool { return stopping })

			r := gin.New()
			r.GET("/healthz", h.Healthz)
			r.GET("/readyz", h.Readyz)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if w.Code != tt.want {
				t.Fatalf("readyz: got %d, want %d, body=%s", w.Code, tt.want, w.Body.String())
			}

			w = httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if w.Code != http.StatusOK {
				t.Fatalf("healthz: got %d", w.Code)
			}
		})
	}
}
