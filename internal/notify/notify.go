// Package notify defines the outbound notification contract. Delivery is
// fire-and-forget: callers never roll back state when dispatch fails (an OTP
// stays valid even if the email bounces), and templating/transport live
// outside the core.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Template identifiers for the notifications the core triggers.
const (
	TemplateEmailOTP         = "email_otp"
	TemplateMagicLink        = "magic_link"
	TemplateTeamInvitation   = "team_invitation"
	TemplateMemberDeactivate = "member_deactivated"
)

// Dispatcher sends a templated notification to a recipient. Implementations
// must not log secret values passed in data (codes, links).
type Dispatcher interface {
	Send(ctx context.Context, templateID, recipient string, data map[string]string)
}

// LogDispatcher is a Dispatcher that records dispatch intent to the log and
// sends nothing. Used in development and as the default when no transport is
// wired. It logs template and recipient only, never the data payload.
type LogDispatcher struct {
	log *zap.Logger
}

// NewLogDispatcher returns a LogDispatcher writing to log.
func NewLogDispatcher(log *zap.Logger) *LogDispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogDispatcher{log: log}
}

// Send logs the dispatch. The data payload is intentionally omitted: it can
// carry OTPs and signed links.
func (d *LogDispatcher) Send(ctx context.Context, templateID, recipient string, data map[string]string) {
	d.log.Info("notification dispatched",
		zap.String("template", templateID),
		zap.String("recipient", recipient),
	)
}

// Recorder is a Dispatcher for tests; it records every send.
type Recorder struct {
	Sent []RecordedSend
}

// RecordedSend is one captured dispatch.
type RecordedSend struct {
	TemplateID string
	Recipient  string
	Data       map[string]string
}

// Send appends the dispatch to Sent.
func (r *Recorder) Send(ctx context.Context, templateID, recipient string, data map[string]string) {
	r.Sent = append(r.Sent, RecordedSend{TemplateID: templateID, Recipient: recipient, Data: data})
}
