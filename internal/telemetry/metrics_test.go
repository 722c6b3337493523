package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"
)

func TestNew_CreatesInstruments(t *testing.T) {
	m, err := New(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	m.LoginSuccess(ctx, "password")
	m.LoginFailure(ctx, "password")
	m.MFASuccess(ctx, "authenticator")
	m.MFAFailure(ctx, "email")
	m.TokenIssued(ctx, "login")
	m.DomainVerified(ctx)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.LoginSuccess(ctx, "password")
	m.MFAFailure(ctx, "recovery")
	m.TokenIssued(ctx, "api")
	m.DomainVerified(ctx)
}
