// Package share implements the durable share record store over database/sql.
package share

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/securevault-gateway/internal/database"
	"github.com/securevault-gateway/internal/models"
)

// ErrShareNotFound is returned by GetByID for an unknown id.
var ErrShareNotFound = Error("share not found")

// Store persists share records. It works against PostgreSQL and SQLite;
// queries are written with ? placeholders and rebound per driver.
type Store struct {
	db     *sql.DB
	driver string
}

// NewStore creates a share store over db.
func NewStore(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

func (s *Store) Insert(ctx context.Context, rec *models.ShareRecord) error {
	query := database.Rebind(s.driver, `
		INSERT INTO shares (id, file_path, original_name, expires_at, max_views, current_views, user_id, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	var owner sql.NullString
	if !rec.Orphan() {
		owner = sql.NullString{String: *rec.OwnerID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.FilePath,
		rec.OriginalName,
		database.FormatTimestamp(rec.ExpiresAt),
		rec.MaxViews,
		rec.CurrentViews,
		owner,
		rec.PasswordHash,
		database.FormatTimestamp(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert share: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*models.ShareRecord, error) {
	query := database.Rebind(s.driver, `
		SELECT id, file_path, original_name, expires_at, max_views, current_views, user_id, password_hash, created_at
		FROM shares WHERE id = ?`)

	var (
		rec       models.ShareRecord
		expiresAt string
		createdAt string
		owner     sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.FilePath,
		&rec.OriginalName,
		&expiresAt,
		&rec.MaxViews,
		&rec.CurrentViews,
		&owner,
		&rec.PasswordHash,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrShareNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get share: %w", err)
	}

	if rec.ExpiresAt, err = database.ParseTimestamp(expiresAt); err != nil {
		return nil, fmt.Errorf("get share %s: %w", id, err)
	}
	if rec.CreatedAt, err = database.ParseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("get share %s: %w", id, err)
	}
	if owner.Valid && owner.String != "" {
		rec.OwnerID = &owner.String
	}
	return &rec, nil
}

// IncrementViewsIfBelowLimit consumes one view. The check and the increment
// happen in a single conditional UPDATE so that concurrent callers racing for
// the last view serialize at the database; the losing caller sees ok=false.
// RETURNING yields the count this statement committed, not a later one.
func (s *Store) IncrementViewsIfBelowLimit(ctx context.Context, id string) (int, bool, error) {
	query := database.Rebind(s.driver, `
		UPDATE shares SET current_views = current_views + 1
		WHERE id = ? AND current_views < max_views
		RETURNING current_views`)

	var newCount int
	err := s.db.QueryRowContext(ctx, query, id).Scan(&newCount)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("increment views: %w", err)
	}
	return newCount, true, nil
}

func (s *Store) CountWhere(ctx context.Context, f models.ShareFilter) (int, error) {
	query := `SELECT COUNT(*) FROM shares WHERE 1=1`
	var args []interface{}

	if f.OwnerID != nil {
		query += ` AND user_id = ?`
		args = append(args, *f.OwnerID)
	}
	if f.ExpiresAfter != nil {
		// Rows written by this store are canonically encoded, so text
		// comparison matches instant ordering. Offset-less rows from
		// external writers sort before any same-second canonical value;
		// against those the filter is only accurate to the second.
		query += ` AND expires_at > ?`
		args = append(args, database.FormatTimestamp(*f.ExpiresAfter))
	}

	var count int
	if err := s.db.QueryRowContext(ctx, database.Rebind(s.driver, query), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count shares: %w", err)
	}
	return count, nil
}

type Error string

func (e Error) Error() string {
	return string(e)
}
