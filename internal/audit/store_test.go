package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securevault-gateway/internal/database"
	"github.com/securevault-gateway/internal/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db, database.DriverSQLite))
	return db
}

func insertShare(t *testing.T, db *sql.DB, id string, owner *string) {
	t.Helper()

	var ownerVal sql.NullString
	if owner != nil {
		ownerVal = sql.NullString{String: *owner, Valid: true}
	}
	_, err := db.Exec(`INSERT INTO shares (id, file_path, original_name, expires_at, max_views, current_views, user_id, created_at)
		VALUES (?, ?, ?, ?, 1, 0, ?, ?)`,
		id, id+"/f.txt", "f.txt",
		database.FormatTimestamp(time.Now().Add(time.Hour)),
		ownerVal,
		database.FormatTimestamp(time.Now()))
	require.NoError(t, err)
}

func entry(fileID, status string, accessedAt time.Time) *models.AccessLogEntry {
	return &models.AccessLogEntry{
		FileID:     fileID,
		Filename:   "f.txt",
		IPAddress:  "203.0.113.7",
		UserAgent:  "curl/8.0",
		Status:     status,
		AccessedAt: accessedAt,
	}
}

func TestStore_AppendAndQuery(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db, database.DriverSQLite)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Append(ctx, entry("s1", models.StatusGranted, now.Add(-2*time.Minute))))
	require.NoError(t, store.Append(ctx, entry("s1", "Denied: Link Expired", now.Add(-time.Minute))))
	require.NoError(t, store.Append(ctx, entry("s2", "Denied: Max views reached", now)))

	got, err := store.Query(ctx, models.LogFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Default order is newest first.
	assert.Equal(t, "s2", got[0].FileID)
	assert.Equal(t, models.StatusGranted, got[2].Status)
	assert.True(t, got[2].Granted())
	assert.False(t, got[0].Granted())
	assert.Equal(t, "203.0.113.7", got[0].IPAddress)
}

// A log row may reference an id no share row backs; appends and reads must
// still work. The audit trail outlives its shares.
func TestStore_AppendWithoutShareRow(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db, database.DriverSQLite)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, entry("ghost", models.StatusGranted, time.Now())))

	got, err := store.Query(ctx, models.LogFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ghost", got[0].FileID)
}

func TestStore_QuerySortOrders(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db, database.DriverSQLite)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Append(ctx, entry("a", models.StatusGranted, now.Add(-3*time.Minute))))
	require.NoError(t, store.Append(ctx, entry("b", "Denied: Link Expired", now.Add(-2*time.Minute))))
	require.NoError(t, store.Append(ctx, entry("c", models.StatusGranted, now.Add(-time.Minute))))

	t.Run("oldest", func(t *testing.T) {
		got, err := store.Query(ctx, models.LogFilter{Sort: models.SortOldest})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "a", got[0].FileID)
		assert.Equal(t, "c", got[2].FileID)
	})

	t.Run("status grouped", func(t *testing.T) {
		got, err := store.Query(ctx, models.LogFilter{Sort: models.SortStatus})
		require.NoError(t, err)
		require.Len(t, got, 3)
		// Denials group before grants, newest first within a group.
		assert.Equal(t, "b", got[0].FileID)
		assert.Equal(t, "c", got[1].FileID)
		assert.Equal(t, "a", got[2].FileID)
	})
}

func TestStore_QueryLimitAndSince(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db, database.DriverSQLite)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, entry("s1", models.StatusGranted, now.Add(-time.Duration(i)*time.Hour))))
	}

	got, err := store.Query(ctx, models.LogFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	since := now.Add(-90 * time.Minute)
	got, err = store.Query(ctx, models.LogFilter{Since: &since})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStore_QueryOwnerJoin(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db, database.DriverSQLite)
	ctx := context.Background()
	now := time.Now().UTC()

	owner := "owner-1"
	insertShare(t, db, "mine", &owner)
	insertShare(t, db, "theirs", nil)

	require.NoError(t, store.Append(ctx, entry("mine", models.StatusGranted, now)))
	require.NoError(t, store.Append(ctx, entry("theirs", "Denied: Link Expired", now)))
	require.NoError(t, store.Append(ctx, entry("ghost", "Denied: Link Expired", now)))

	got, err := store.Query(ctx, models.LogFilter{OwnerID: &owner})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "mine", got[0].FileID)
}

func TestStore_CountDenied(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db, database.DriverSQLite)
	ctx := context.Background()
	now := time.Now().UTC()

	owner := "owner-1"
	insertShare(t, db, "mine", &owner)

	require.NoError(t, store.Append(ctx, entry("mine", models.StatusGranted, now)))
	require.NoError(t, store.Append(ctx, entry("mine", "Denied: Link Expired", now)))
	require.NoError(t, store.Append(ctx, entry("other", "Denied: Max views reached", now)))
	require.NoError(t, store.Append(ctx, entry("other", "Denied: Invalid password", now.Add(-48*time.Hour))))

	total, err := store.CountDenied(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	mine, err := store.CountDenied(ctx, &owner, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, mine)

	since := now.Add(-24 * time.Hour)
	recent, err := store.CountDenied(ctx, nil, &since)
	require.NoError(t, err)
	assert.Equal(t, 2, recent)
}

// Rows whose timestamps cannot be read are skipped, never fatal.
func TestStore_QuerySkipsUnparseableTimestamps(t *testing.T) {
	db := newTestDB(t)
	store := NewStore(db, database.DriverSQLite)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, entry("s1", models.StatusGranted, time.Now())))
	_, err := db.Exec(`INSERT INTO access_logs (file_id, filename, ip_address, user_agent, status, accessed_at)
		VALUES ('s1', 'f.txt', '', '', 'Granted', 'not-a-timestamp')`)
	require.NoError(t, err)

	got, err := store.Query(ctx, models.LogFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
