// Package audit implements the append-only access log store. Entries are
// never updated or deleted; the file reference is soft, so appends succeed
// even when no share row backs the id anymore.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/securevault-gateway/internal/database"
	"github.com/securevault-gateway/internal/models"
)

// Store persists access log entries.
type Store struct {
	db     *sql.DB
	driver string
}

// NewStore creates an access log store over db.
func NewStore(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

func (s *Store) Append(ctx context.Context, entry *models.AccessLogEntry) error {
	query := database.Rebind(s.driver, `
		INSERT INTO access_logs (file_id, filename, ip_address, user_agent, status, accessed_at)
		VALUES (?, ?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		entry.FileID,
		entry.Filename,
		entry.IPAddress,
		entry.UserAgent,
		entry.Status,
		database.FormatTimestamp(entry.AccessedAt),
	)
	if err != nil {
		return fmt.Errorf("append access log: %w", err)
	}
	return nil
}

// Query returns log entries matching f. An owner filter joins against the
// shares table; the join is the store's concern, callers only specify the
// filter.
func (s *Store) Query(ctx context.Context, f models.LogFilter) ([]models.AccessLogEntry, error) {
	query := `
		SELECT l.id, l.file_id, l.filename, l.ip_address, l.user_agent, l.status, l.accessed_at
		FROM access_logs l`
	var args []interface{}

	if f.OwnerID != nil {
		query += ` JOIN shares sh ON sh.id = l.file_id WHERE sh.user_id = ?`
		args = append(args, *f.OwnerID)
	} else {
		query += ` WHERE 1=1`
	}
	if f.Since != nil {
		query += ` AND l.accessed_at >= ?`
		args = append(args, database.FormatTimestamp(*f.Since))
	}

	switch f.Sort {
	case models.SortOldest:
		query += ` ORDER BY l.accessed_at ASC`
	case models.SortStatus:
		query += ` ORDER BY l.status ASC, l.accessed_at DESC`
	default:
		query += ` ORDER BY l.accessed_at DESC`
	}

	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, database.Rebind(s.driver, query), args...)
	if err != nil {
		return nil, fmt.Errorf("query access logs: %w", err)
	}
	defer rows.Close()

	var entries []models.AccessLogEntry
	for rows.Next() {
		var (
			entry      models.AccessLogEntry
			accessedAt string
		)
		if err := rows.Scan(&entry.ID, &entry.FileID, &entry.Filename, &entry.IPAddress, &entry.UserAgent, &entry.Status, &accessedAt); err != nil {
			return nil, fmt.Errorf("scan access log: %w", err)
		}
		// Rows with unreadable timestamps are skipped, not fatal: the audit
		// trail may contain entries written by other tooling.
		t, err := database.ParseTimestamp(accessedAt)
		if err != nil {
			continue
		}
		entry.AccessedAt = t
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query access logs: %w", err)
	}
	return entries, nil
}

func (s *Store) CountDenied(ctx context.Context, ownerID *string, since *time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM access_logs l`
	var args []interface{}

	if ownerID != nil {
		query += ` JOIN shares sh ON sh.id = l.file_id WHERE sh.user_id = ?`
		args = append(args, *ownerID)
	} else {
		query += ` WHERE 1=1`
	}
	query += ` AND l.status != ?`
	args = append(args, models.StatusGranted)
	if since != nil {
		query += ` AND l.accessed_at >= ?`
		args = append(args, database.FormatTimestamp(*since))
	}

	var count int
	if err := s.db.QueryRowContext(ctx, database.Rebind(s.driver, query), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count denied: %w", err)
	}
	return count, nil
}
