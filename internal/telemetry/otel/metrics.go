package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// AuthMetrics counts authentication operations by outcome.
type AuthMetrics struct {
	requests metric.Int64Counter
}

// NewAuthMetrics registers the auth counters on the given provider.
func NewAuthMetrics(mp *sdkmetric.MeterProvider) (*AuthMetrics, error) {
	meter := mp.Meter("campusbook/auth")
	requests, err := meter.Int64Counter("auth.http.requests",
		metric.WithDescription("Auth endpoint requests by route and status code"))
	if err != nil {
		return nil, err
	}
	return &AuthMetrics{requests: requests}, nil
}

// RecordRequest counts one handled request.
func (m *AuthMetrics) RecordRequest(ctx context.Context, route string, status int) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		))
}
