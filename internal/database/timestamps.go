package database

import (
	"fmt"
	"time"
)

// Timestamps are persisted as RFC 3339 text in UTC. Rows written by earlier
// revisions of the system carry bare ISO timestamps without a zone offset;
// those must be read back as UTC instants, never as local time.
const (
	// storedLayout is fixed width: trailing fractional zeros are kept so
	// that lexicographic comparison of stored values matches instant
	// ordering, which the stores rely on for range filters.
	storedLayout = "2006-01-02T15:04:05.000000000Z07:00"

	parseLayout = time.RFC3339Nano

	// naiveLayout matches ISO 8601 timestamps with no offset.
	naiveLayout = "2006-01-02T15:04:05.999999999"
)

// FormatTimestamp renders t in the canonical stored form (UTC, RFC 3339).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(storedLayout)
}

// ParseTimestamp reads a stored timestamp. Values without an explicit offset
// are interpreted as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(parseLayout, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation(naiveLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", s)
}
