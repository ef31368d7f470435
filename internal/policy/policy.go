// Package policy decides whether a share currently grants access. The
// evaluation is a pure function of the record and the caller-supplied clock;
// all bookkeeping lives in the access orchestrator.
package policy

import (
	"time"

	"github.com/securevault-gateway/internal/models"
)

// Denial reasons, recorded verbatim in the audit trail after the
// "Denied: " prefix.
const (
	ReasonExpired         = "Link Expired"
	ReasonMaxViews        = "Max views reached"
	ReasonInvalidPassword = "Invalid password"
)

// Decision is the outcome of evaluating a share against the policy pair
// (expiry, view limit). Reason is empty iff Active.
type Decision struct {
	Active bool
	Reason string
}

var active = Decision{Active: true}

// Evaluate checks the record against now. The order is fixed: expiry wins
// over an exhausted view count when both hold. Both instants are compared in
// UTC; records loaded from storage already carry UTC expiries (offset-less
// stored values are interpreted as UTC, see database.ParseTimestamp).
func Evaluate(rec *models.ShareRecord, now time.Time) Decision {
	if now.UTC().After(rec.ExpiresAt.UTC()) {
		return Decision{Reason: ReasonExpired}
	}
	if rec.CurrentViews >= rec.MaxViews {
		return Decision{Reason: ReasonMaxViews}
	}
	return active
}
