// Package telemetry exposes OpenTelemetry counters for authentication and
// tenant-resolution outcomes. Services hold a *Metrics and increment through
// it; a nil *Metrics is safe and counts nothing, so tests and embedded
// deployments need no meter.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the instrument set for the identity core.
type Metrics struct {
	loginSuccess   metric.Int64Counter
	loginFailure   metric.Int64Counter
	mfaSuccess     metric.Int64Counter
	mfaFailure     metric.Int64Counter
	tokenIssued    metric.Int64Counter
	domainVerified metric.Int64Counter
}

// New creates the instrument set on the given meter.
func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error
	if m.loginSuccess, err = meter.Int64Counter("auth_login_success_total",
		metric.WithDescription("Successful credential verifications.")); err != nil {
		return nil, err
	}
	if m.loginFailure, err = meter.Int64Counter("auth_login_failure_total",
		metric.WithDescription("Failed credential verifications.")); err != nil {
		return nil, err
	}
	if m.mfaSuccess, err = meter.Int64Counter("auth_mfa_success_total",
		metric.WithDescription("Successful MFA verifications.")); err != nil {
		return nil, err
	}
	if m.mfaFailure, err = meter.Int64Counter("auth_mfa_failure_total",
		metric.WithDescription("Failed MFA verifications.")); err != nil {
		return nil, err
	}
	if m.tokenIssued, err = meter.Int64Counter("auth_token_issued_total",
		metric.WithDescription("Bearer tokens issued, by type.")); err != nil {
		return nil, err
	}
	if m.domainVerified, err = meter.Int64Counter("tenant_domain_verified_total",
		metric.WithDescription("Domains that passed TXT verification.")); err != nil {
		return nil, err
	}
	return m, nil
}

// LoginSuccess counts one successful credential verification for the method.
func (m *Metrics) LoginSuccess(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.loginSuccess.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// LoginFailure counts one failed credential verification for the method.
func (m *Metrics) LoginFailure(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.loginFailure.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// MFASuccess counts one successful factor verification.
func (m *Metrics) MFASuccess(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.mfaSuccess.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// MFAFailure counts one failed factor verification.
func (m *Metrics) MFAFailure(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.mfaFailure.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// TokenIssued counts one issued bearer token by type.
func (m *Metrics) TokenIssued(ctx context.Context, tokenType string) {
	if m == nil {
		return
	}
	m.tokenIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("type", tokenType)))
}

// DomainVerified counts one successful domain verification.
func (m *Metrics) DomainVerified(ctx context.Context) {
	if m == nil {
		return
	}
	m.domainVerified.Add(ctx, 1)
}
