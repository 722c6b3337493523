// Package audit records authentication attempts. Recording is best-effort:
// a storage failure is logged and never fails the operation that triggered it.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"identity-plane/internal/audit/domain"
	auditrepo "identity-plane/internal/audit/repository"
)

// Recorder writes login attempts through the audit repository.
type Recorder struct {
	repo auditrepo.Repository
	log  *zap.Logger
}

// NewRecorder returns a Recorder persisting to repo and logging failures to log.
func NewRecorder(repo auditrepo.Repository, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{repo: repo, log: log}
}

// Record writes one attempt and returns its id. Best-effort: on storage
// failure the error is logged and an empty id returned. Secrets never appear
// in the record; only identifiers and the client fingerprint.
func (r *Recorder) Record(ctx context.Context, userID, email string, method domain.Method, fp domain.Fingerprint, success, suspicious bool) string {
	if r == nil || r.repo == nil {
		return ""
	}
	a := &domain.LoginAttempt{
		ID:          uuid.New().String(),
		UserID:      userID,
		Email:       email,
		Method:      method,
		Fingerprint: fp,
		Success:     success,
		Suspicious:  suspicious,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.repo.Create(ctx, a); err != nil {
		r.log.Warn("audit: failed to record login attempt",
			zap.String("method", string(method)),
			zap.Bool("success", success),
			zap.Error(err),
		)
		return ""
	}
	return a.ID
}

// Suspicious reports whether fp is unknown for the user: the user has logged
// in successfully before, but never from this browser/platform/device. A
// first-ever login is not suspicious. Best-effort: a storage failure reads as
// not suspicious.
func (r *Recorder) Suspicious(ctx context.Context, userID string, fp domain.Fingerprint) bool {
	if r == nil || r.repo == nil || userID == "" {
		return false
	}
	attempts, err := r.repo.ListByUser(ctx, userID, 50)
	if err != nil {
		r.log.Warn("audit: failed to list login attempts", zap.Error(err))
		return false
	}
	seen := false
	for _, a := range attempts {
		if !a.Success {
			continue
		}
		seen = true
		if a.Fingerprint.Browser == fp.Browser &&
			a.Fingerprint.Platform == fp.Platform &&
			a.Fingerprint.Device == fp.Device {
			return false
		}
	}
	return seen
}
