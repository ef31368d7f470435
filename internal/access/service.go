// Package access implements the access orchestrator: every attempt against a
// share id is policy-checked, audited, and, on a grant, atomically charged
// against the share's view limit before a temporary download URL is issued.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/securevault-gateway/internal/metrics"
	"github.com/securevault-gateway/internal/models"
	"github.com/securevault-gateway/internal/policy"
	"github.com/securevault-gateway/internal/share"
)

// HandleTTL is the validity window of an issued download URL. The handle
// expires on its own; a client that stalls cannot extend access.
const HandleTTL = 60 * time.Second

// ErrShareNotFound mirrors the store sentinel for unknown ids. No audit entry
// is written for an unknown id; there is nothing to audit against.
var ErrShareNotFound = share.ErrShareNotFound

// ErrStorageUnavailable reports that the blob collaborator failed to issue a
// download URL after the view was already consumed. The increment is not
// rolled back; the view is lost. Accepted tradeoff: rolling back would let a
// crashed issuance path mint free views.
var ErrStorageUnavailable = Error("storage unavailable")

type Error string

func (e Error) Error() string {
	return string(e)
}

// DeniedError is a policy denial. Callers match on the type; Reason is the
// human-readable violation recorded in the audit trail.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return "access denied: " + e.Reason
}

// URLIssuer issues temporary content handles for stored objects.
type URLIssuer interface {
	PresignedDownloadURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
}

// Request carries the client fingerprint of one access attempt.
type Request struct {
	ShareID   string
	IPAddress string
	UserAgent string
	Password  string
}

// Grant is the successful result of an access attempt.
type Grant struct {
	URL       string
	Filename  string
	ViewsLeft int
}

// Service orchestrates access attempts.
type Service struct {
	shares models.ShareRepository
	logs   models.AccessLogRepository
	urls   URLIssuer
	logger *logrus.Logger
	now    func() time.Time
}

func NewService(shares models.ShareRepository, logs models.AccessLogRepository, urls URLIssuer, logger *logrus.Logger) *Service {
	return &Service{
		shares: shares,
		logs:   logs,
		urls:   urls,
		logger: logger,
		now:    time.Now,
	}
}

// AttemptAccess runs one access attempt end to end. Every attempt against a
// known id produces exactly one audit entry whose status is "Granted" iff a
// view was committed. On a grant the view counter is charged through the
// store's conditional increment, so racing callers can never overdraw the
// limit: the loser of the race is denied and audited as such.
func (s *Service) AttemptAccess(ctx context.Context, req Request) (*Grant, error) {
	rec, err := s.shares.GetByID(ctx, req.ShareID)
	if errors.Is(err, share.ErrShareNotFound) {
		metrics.AccessAttempts.WithLabelValues(metrics.OutcomeNotFound).Inc()
		return nil, err
	}
	if err != nil {
		metrics.AccessAttempts.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("lookup share: %w", err)
	}

	now := s.now()
	decision := policy.Evaluate(rec, now)

	// Optional per-share password gate. Checked after the expiry/view-count
	// policy so the fixed decision order is preserved.
	if decision.Active && rec.PasswordHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(req.Password)) != nil {
			decision = policy.Decision{Reason: policy.ReasonInvalidPassword}
		}
	}

	if !decision.Active {
		s.logAttempt(ctx, rec, req, "Denied: "+decision.Reason, now)
		metrics.AccessAttempts.WithLabelValues(metrics.OutcomeDenied).Inc()
		return nil, &DeniedError{Reason: decision.Reason}
	}

	newCount, ok, err := s.shares.IncrementViewsIfBelowLimit(ctx, rec.ID)
	if err != nil {
		metrics.AccessAttempts.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("consume view: %w", err)
	}
	if !ok {
		// Lost the race for the last view.
		s.logAttempt(ctx, rec, req, "Denied: "+policy.ReasonMaxViews, now)
		metrics.AccessAttempts.WithLabelValues(metrics.OutcomeDenied).Inc()
		return nil, &DeniedError{Reason: policy.ReasonMaxViews}
	}

	s.logAttempt(ctx, rec, req, models.StatusGranted, now)
	metrics.AccessAttempts.WithLabelValues(metrics.OutcomeGranted).Inc()

	url, err := s.urls.PresignedDownloadURL(ctx, rec.FilePath, HandleTTL)
	if err != nil {
		// The view is already consumed and stays consumed.
		s.logger.WithError(err).WithField("share_id", rec.ID).Error("failed to issue download url after consuming view")
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return &Grant{
		URL:       url,
		Filename:  rec.OriginalName,
		ViewsLeft: rec.MaxViews - newCount,
	}, nil
}

// logAttempt appends the audit entry best-effort. A failed append is a
// warning, never a request failure.
func (s *Service) logAttempt(ctx context.Context, rec *models.ShareRecord, req Request, status string, now time.Time) {
	entry := &models.AccessLogEntry{
		FileID:     rec.ID,
		Filename:   rec.OriginalName,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
		Status:     status,
		AccessedAt: now,
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		metrics.AuditWriteFailures.Inc()
		s.logger.WithError(err).WithFields(logrus.Fields{
			"share_id": rec.ID,
			"status":   status,
		}).Warn("audit log write failed")
	}
}
