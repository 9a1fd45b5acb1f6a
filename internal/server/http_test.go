package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"campusbook/auth/internal/auth/handler"
	authservice "campusbook/auth/internal/auth/service"
	"campusbook/auth/internal/telemetry/otel"
)

type nilVerifier struct{}

func (nilVerifier) VerifyAccess(ctx context.Context, token, ip string) (*authservice.Identity, error) {
	return nil, authservice.ErrSessionInvalid
}

func newTestRouter(t *testing.T, health HealthCheck) http.Handler {
	t.Helper()
	metrics, err := otel.NewAuthMetrics(sdkmetric.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewAuthMetrics: %v", err)
	}
	return NewRouter(handler.NewHandler(nil), nilVerifier{}, metrics, health)
}

func TestHealthzOK(t *testing.T) {
	router := newTestRouter(t, func(ctx context.Context) error { return nil })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status: want 200, got %d", rec.Code)
	}
}

func TestHealthzDependencyFailure(t *testing.T) {
	router := newTestRouter(t, func(ctx context.Context) error { return errors.New("db down") })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status: want 503, got %d", rec.Code)
	}
}

func TestRouterAppliesGate(t *testing.T) {
	router := newTestRouter(t, nil)

	// A bad Authorization header is rejected before any route handler runs.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Authorization", "Bearer expired-or-revoked")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: want 401, got %d", rec.Code)
	}
}
