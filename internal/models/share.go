package models

import (
	"context"
	"time"
)

// ShareRecord is the metadata ledger entry for one uploaded file. Everything
// except CurrentViews is immutable after creation; CurrentViews is mutated
// only through ShareRepository.IncrementViewsIfBelowLimit.
type ShareRecord struct {
	ID           string    `json:"id"`
	FilePath     string    `json:"file_path"`
	OriginalName string    `json:"original_name"`
	ExpiresAt    time.Time `json:"expires_at"`
	MaxViews     int       `json:"max_views"`
	CurrentViews int       `json:"current_views"`
	OwnerID      *string   `json:"user_id,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Orphan reports whether the share has no associated owner.
func (r *ShareRecord) Orphan() bool {
	return r.OwnerID == nil || *r.OwnerID == ""
}

// AccessLogEntry is one append-only audit record of an access attempt. The
// file reference is soft: entries outlive their share, and Append must succeed
// even for ids no share row backs anymore.
type AccessLogEntry struct {
	ID         int64     `json:"id"`
	FileID     string    `json:"file_id"`
	Filename   string    `json:"filename"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	Status     string    `json:"status"`
	AccessedAt time.Time `json:"accessed_at"`
}

// StatusGranted is the audit status of a committed grant. Every denial is
// recorded as "Denied: <reason>".
const StatusGranted = "Granted"

// Granted reports whether the entry records a committed grant.
func (e *AccessLogEntry) Granted() bool {
	return e.Status == StatusGranted
}

// ShareFilter narrows ShareRepository.CountWhere.
type ShareFilter struct {
	OwnerID      *string
	ExpiresAfter *time.Time
}

// ShareRepository is the durable store for share records.
type ShareRepository interface {
	Insert(ctx context.Context, rec *ShareRecord) error
	GetByID(ctx context.Context, id string) (*ShareRecord, error)
	// IncrementViewsIfBelowLimit performs the atomic conditional increment of
	// current_views. ok is false when the record was already at its limit; in
	// that case newCount is undefined.
	IncrementViewsIfBelowLimit(ctx context.Context, id string) (newCount int, ok bool, err error)
	CountWhere(ctx context.Context, f ShareFilter) (int, error)
}

// Sort orders for AccessLogRepository.Query.
const (
	SortNewest = "newest"
	SortOldest = "oldest"
	SortStatus = "status"
)

// LogFilter is the filter specification passed to AccessLogRepository.Query.
// The repository decides join strategy; callers only say what to filter.
type LogFilter struct {
	OwnerID *string
	Since   *time.Time
	Sort    string
	Limit   int
}

// AccessLogRepository is the append-only audit store.
type AccessLogRepository interface {
	Append(ctx context.Context, entry *AccessLogEntry) error
	Query(ctx context.Context, f LogFilter) ([]AccessLogEntry, error)
	// CountDenied counts entries whose status is not "Granted", optionally
	// restricted to shares owned by ownerID and to entries at or after since.
	CountDenied(ctx context.Context, ownerID *string, since *time.Time) (int, error)
}
