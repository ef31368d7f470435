package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securevault-gateway/internal/database"
	"github.com/securevault-gateway/internal/models"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		expiresAt    time.Time
		maxViews     int
		currentViews int
		wantActive   bool
		wantReason   string
	}{
		{
			name:         "active share",
			expiresAt:    now.Add(time.Hour),
			maxViews:     3,
			currentViews: 1,
			wantActive:   true,
		},
		{
			name:         "expired",
			expiresAt:    now.Add(-time.Minute),
			maxViews:     3,
			currentViews: 0,
			wantActive:   false,
			wantReason:   ReasonExpired,
		},
		{
			name:         "views exhausted",
			expiresAt:    now.Add(time.Hour),
			maxViews:     3,
			currentViews: 3,
			wantActive:   false,
			wantReason:   ReasonMaxViews,
		},
		{
			name:         "expiry wins over exhausted views",
			expiresAt:    now.Add(-time.Hour),
			maxViews:     1,
			currentViews: 1,
			wantActive:   false,
			wantReason:   ReasonExpired,
		},
		{
			name:         "exactly at expiry instant is still active",
			expiresAt:    now,
			maxViews:     1,
			currentViews: 0,
			wantActive:   true,
		},
		{
			name:         "last view remaining",
			expiresAt:    now.Add(time.Hour),
			maxViews:     5,
			currentViews: 4,
			wantActive:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &models.ShareRecord{
				ID:           "s1",
				ExpiresAt:    tt.expiresAt,
				MaxViews:     tt.maxViews,
				CurrentViews: tt.currentViews,
			}

			d := Evaluate(rec, now)
			assert.Equal(t, tt.wantActive, d.Active)
			assert.Equal(t, tt.wantReason, d.Reason)
		})
	}
}

// A stored expiry without a zone offset must be read as UTC. A record whose
// naive expiry is one minute in the future (in UTC terms) must still be
// active even when the process runs in a zone hours away from UTC.
func TestEvaluate_NaiveTimestampIsUTC(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	expiresAt, err := database.ParseTimestamp("2024-06-15T12:01:00")
	require.NoError(t, err)

	rec := &models.ShareRecord{ID: "s1", ExpiresAt: expiresAt, MaxViews: 1}
	assert.True(t, Evaluate(rec, now).Active)

	// Same instant expressed with an explicit offset behaves identically.
	withOffset, err := database.ParseTimestamp("2024-06-15T14:01:00+02:00")
	require.NoError(t, err)
	assert.True(t, expiresAt.Equal(withOffset))

	rec.ExpiresAt = withOffset
	assert.True(t, Evaluate(rec, now).Active)

	// And a local-time view of now must not flip the decision.
	local := now.In(time.FixedZone("UTC+8", 8*3600))
	assert.True(t, Evaluate(rec, local).Active)
}
