// Package analytics turns the audit trail into dashboard aggregates: totals,
// denial counts, and a fixed 24-bucket hourly activity histogram.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/securevault-gateway/internal/models"
)

// MaxLogLimit caps ListLogs page sizes.
const MaxLogLimit = 100

const (
	defaultLogLimit = 50
	statsCacheTTL   = 10 * time.Second
	histogramWindow = 24 * time.Hour
)

// Service is the read-only aggregator over the share and audit stores. The
// optional redis cache absorbs dashboard polling; aggregates are eventually
// consistent anyway, so a few seconds of staleness is fine.
type Service struct {
	shares models.ShareRepository
	logs   models.AccessLogRepository
	cache  *redis.Client
	logger *logrus.Logger
	now    func() time.Time
}

func NewService(shares models.ShareRepository, logs models.AccessLogRepository, cache *redis.Client, logger *logrus.Logger) *Service {
	return &Service{
		shares: shares,
		logs:   logs,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// rangeWindow resolves a range selector to the start of the scan window.
// nil means unbounded ("all", the default).
func rangeWindow(selector string, now time.Time) *time.Time {
	var since time.Time
	switch selector {
	case "1h":
		since = now.Add(-time.Hour)
	case "24h":
		since = now.Add(-24 * time.Hour)
	case "7d":
		since = now.AddDate(0, 0, -7)
	case "30d":
		since = now.AddDate(0, 0, -30)
	case "3m":
		since = now.AddDate(0, -3, 0)
	case "6m":
		since = now.AddDate(0, -6, 0)
	case "1y":
		since = now.AddDate(-1, 0, 0)
	default:
		return nil
	}
	return &since
}

// ComputeStats builds the dashboard aggregate, optionally filtered to one
// owner. The range selector narrows the denied-attempt scan window; the
// activity histogram always covers the trailing 24 hours.
func (s *Service) ComputeStats(ctx context.Context, ownerID *string, rangeSelector string) (*models.StatsResponse, error) {
	if cached := s.cacheGet(ctx, ownerID, rangeSelector); cached != nil {
		return cached, nil
	}

	now := s.now()

	totalUploads, err := s.shares.CountWhere(ctx, models.ShareFilter{OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("count uploads: %w", err)
	}

	activeLinks, err := s.shares.CountWhere(ctx, models.ShareFilter{OwnerID: ownerID, ExpiresAfter: &now})
	if err != nil {
		return nil, fmt.Errorf("count active links: %w", err)
	}

	since := rangeWindow(rangeSelector, now)
	denied, err := s.logs.CountDenied(ctx, ownerID, since)
	if err != nil && ownerID != nil {
		// Owner join unavailable: degrade to the unfiltered aggregate rather
		// than failing the whole dashboard.
		s.logger.WithError(err).Warn("owner-filtered denial count failed, degrading to unfiltered")
		denied, err = s.logs.CountDenied(ctx, nil, since)
	}
	if err != nil {
		return nil, fmt.Errorf("count denied: %w", err)
	}

	histogram, err := s.hourlyHistogram(ctx, ownerID, now)
	if err != nil {
		return nil, err
	}

	stats := &models.StatsResponse{
		TotalUploads:   totalUploads,
		ActiveLinks:    activeLinks,
		ThreatsBlocked: denied,
		ActivityGraph:  histogram,
	}
	s.cacheSet(ctx, ownerID, rangeSelector, stats)
	return stats, nil
}

// hourlyHistogram buckets the trailing 24 hours of attempts by elapsed hour;
// bucket 23 is the current hour. Entries outside the window are skipped.
func (s *Service) hourlyHistogram(ctx context.Context, ownerID *string, now time.Time) ([24]int, error) {
	var buckets [24]int

	cutoff := now.Add(-histogramWindow)
	filter := models.LogFilter{OwnerID: ownerID, Since: &cutoff}

	entries, err := s.logs.Query(ctx, filter)
	if err != nil && ownerID != nil {
		s.logger.WithError(err).Warn("owner-filtered histogram failed, degrading to unfiltered")
		filter.OwnerID = nil
		entries, err = s.logs.Query(ctx, filter)
	}
	if err != nil {
		return buckets, fmt.Errorf("scan activity: %w", err)
	}

	for _, e := range entries {
		age := now.Sub(e.AccessedAt)
		if age < 0 || age >= histogramWindow {
			continue
		}
		buckets[23-int(age.Hours())]++
	}
	return buckets, nil
}

// ListLogs returns audit entries for the monitoring view. Sort controls
// listing order only; limit is clamped to MaxLogLimit.
func (s *Service) ListLogs(ctx context.Context, ownerID *string, rangeSelector, sort string, limit int) ([]models.AccessLogEntry, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > MaxLogLimit {
		limit = MaxLogLimit
	}

	filter := models.LogFilter{
		OwnerID: ownerID,
		Since:   rangeWindow(rangeSelector, s.now()),
		Sort:    sort,
		Limit:   limit,
	}

	entries, err := s.logs.Query(ctx, filter)
	if err != nil && ownerID != nil {
		s.logger.WithError(err).Warn("owner-filtered log query failed, degrading to unfiltered")
		filter.OwnerID = nil
		entries, err = s.logs.Query(ctx, filter)
	}
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	if entries == nil {
		entries = []models.AccessLogEntry{}
	}
	return entries, nil
}

func (s *Service) cacheKey(ownerID *string, rangeSelector string) string {
	owner := "all"
	if ownerID != nil {
		owner = *ownerID
	}
	if rangeSelector == "" {
		rangeSelector = "all"
	}
	return fmt.Sprintf("stats:%s:%s", owner, rangeSelector)
}

func (s *Service) cacheGet(ctx context.Context, ownerID *string, rangeSelector string) *models.StatsResponse {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, s.cacheKey(ownerID, rangeSelector)).Bytes()
	if err != nil {
		return nil
	}
	var stats models.StatsResponse
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil
	}
	return &stats
}

func (s *Service) cacheSet(ctx context.Context, ownerID *string, rangeSelector string, stats *models.StatsResponse) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(ownerID, rangeSelector), raw, statsCacheTTL).Err(); err != nil {
		s.logger.WithError(err).Debug("stats cache write failed")
	}
}
