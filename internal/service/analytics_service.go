package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/internal/platforms"
	"github.com/maheshrc27/socialflow/internal/repository"
)

const (
	// postSyncWindow bounds how far back published targets keep getting
	// their metrics re-synced.
	postSyncWindow = 30 * 24 * time.Hour

	// optimalTimeWindow is the lookback for optimal-time scoring.
	optimalTimeWindow = 90 * 24 * time.Hour

	// minSamplesForScoring is the floor below which a (weekday, hour) bucket
	// keeps the heuristic default instead of a computed score. Accounts with
	// fewer total samples fall back to platform-wide heuristic slots.
	minSamplesForScoring = 5

	// heuristicScore is the neutral default for slots without enough history.
	heuristicScore = 0.5
)

type AnalyticsService interface {
	SyncAccounts(ctx context.Context) error
	SyncPosts(ctx context.Context) error
	ComputeOptimalTimes(ctx context.Context, accountID int64) error
	ComputeAllOptimalTimes(ctx context.Context) error
	ListSnapshots(ctx context.Context, siteID, accountID int64, since time.Time) ([]*models.DailyAnalyticsSnapshot, error)
	ListPostAnalytics(ctx context.Context, siteID, postID int64) ([]*models.PostAnalytics, error)
	ListOptimalTimes(ctx context.Context, siteID, accountID int64) ([]*models.OptimalTimeSlot, error)
}

type analyticsService struct {
	accounts    repository.PlatformAccountRepository
	attempts    repository.PublishAttemptRepository
	snapshots   repository.AnalyticsSnapshotRepository
	postStats   repository.PostAnalyticsRepository
	optimal     repository.OptimalTimeRepository
	posts       repository.PostRepository
	credentials CredentialService
	registry    *platforms.Registry
}

func NewAnalyticsService(
	accounts repository.PlatformAccountRepository,
	attempts repository.PublishAttemptRepository,
	snapshots repository.AnalyticsSnapshotRepository,
	postStats repository.PostAnalyticsRepository,
	optimal repository.OptimalTimeRepository,
	posts repository.PostRepository,
	credentials CredentialService,
	registry *platforms.Registry) AnalyticsService {
	return &analyticsService{
		accounts:    accounts,
		attempts:    attempts,
		snapshots:   snapshots,
		postStats:   postStats,
		optimal:     optimal,
		posts:       posts,
		credentials: credentials,
		registry:    registry,
	}
}

// SyncAccounts pulls account-level metrics for every active account and
// writes today's snapshot. One account failing is logged and skipped; the
// sweep always visits every account.
func (s *analyticsService) SyncAccounts(ctx context.Context) error {
	accounts, err := s.accounts.ListActive(ctx)
	if err != nil {
		return err
	}

	for _, account := range accounts {
		if err := s.syncAccount(ctx, account); err != nil {
			syncErr := &platforms.SyncError{Platform: account.Platform, Err: err}
			slog.Info(syncErr.Error(), "account_id", account.ID)
		}
	}

	return nil
}

func (s *analyticsService) syncAccount(ctx context.Context, account *models.PlatformAccount) error {
	var metrics *platforms.AccountMetrics
	err := s.credentials.WithSession(ctx, account.ID, func(a platforms.Adapter, session platforms.Session) error {
		m, err := a.AccountMetrics(ctx, session)
		if err != nil {
			return err
		}
		metrics = m
		return nil
	})
	if err != nil {
		return err
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var change int64
	yesterday, err := s.snapshots.GetByAccountAndDate(ctx, account.ID, today.AddDate(0, 0, -1))
	if err != nil {
		return err
	}
	if yesterday != nil {
		change = metrics.FollowersCount - yesterday.FollowersCount
	}

	snapshot := &models.DailyAnalyticsSnapshot{
		AccountID:       account.ID,
		SnapshotDate:    today,
		FollowersCount:  metrics.FollowersCount,
		FollowersChange: change,
		Impressions:     metrics.Impressions,
		Reach:           metrics.Reach,
		Engagement:      metrics.Engagement,
		Likes:           metrics.Likes,
		Comments:        metrics.Comments,
		Shares:          metrics.Shares,
		Clicks:          metrics.Clicks,
	}
	if err := s.snapshots.Upsert(ctx, snapshot); err != nil {
		return err
	}

	return s.accounts.SetSyncedCounts(ctx, account.ID, metrics.FollowersCount,
		metrics.FollowingCount, metrics.PostsCount, now)
}

// SyncPosts refreshes per-post metrics for targets published inside the sync
// window, account by account.
func (s *analyticsService) SyncPosts(ctx context.Context) error {
	accounts, err := s.accounts.ListActive(ctx)
	if err != nil {
		return err
	}

	for _, account := range accounts {
		published, err := s.attempts.ListPublishedSince(ctx, account.ID, time.Now().Add(-postSyncWindow))
		if err != nil {
			slog.Info(err.Error(), "account_id", account.ID)
			continue
		}

		for _, attempt := range published {
			if err := s.syncPostTarget(ctx, account, attempt); err != nil {
				syncErr := &platforms.SyncError{Platform: account.Platform, Err: err}
				slog.Info(syncErr.Error(), "attempt_id", attempt.ID)
				if errors.Is(err, platforms.ErrRateLimited) {
					// The rest of this account's posts would hit the same
					// limit; come back next sweep.
					break
				}
			}
		}
	}

	return nil
}

func (s *analyticsService) syncPostTarget(ctx context.Context, account *models.PlatformAccount, attempt *models.PublishAttempt) error {
	if !attempt.PlatformContentID.Valid {
		return nil
	}

	var metrics *platforms.PostMetrics
	err := s.credentials.WithSession(ctx, account.ID, func(a platforms.Adapter, session platforms.Session) error {
		m, err := a.PostMetrics(ctx, session, attempt.PlatformContentID.String)
		if err != nil {
			return err
		}
		metrics = m
		return nil
	})
	if err != nil {
		return err
	}

	return s.postStats.Upsert(ctx, &models.PostAnalytics{
		PostID:      attempt.PostID,
		AccountID:   account.ID,
		Impressions: metrics.Impressions,
		Reach:       metrics.Reach,
		Engagement:  metrics.Engagement,
		Likes:       metrics.Likes,
		Comments:    metrics.Comments,
		Shares:      metrics.Shares,
		SyncedAt:    time.Now(),
	})
}

func (s *analyticsService) ComputeAllOptimalTimes(ctx context.Context) error {
	accounts, err := s.accounts.ListActive(ctx)
	if err != nil {
		return err
	}

	for _, account := range accounts {
		if err := s.ComputeOptimalTimes(ctx, account.ID); err != nil {
			slog.Info(err.Error(), "account_id", account.ID)
		}
	}

	return nil
}

// ComputeOptimalTimes rebuilds an account's (weekday, hour) scores from its
// post performance over the lookback window. Accounts with too little history
// get their platform's heuristic defaults instead.
func (s *analyticsService) ComputeOptimalTimes(ctx context.Context, accountID int64) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return errors.New("account doesn't exist")
	}

	perf, err := s.postStats.ListPerformanceSince(ctx, accountID, time.Now().Add(-optimalTimeWindow))
	if err != nil {
		return err
	}

	var slots []*models.OptimalTimeSlot
	if len(perf) < minSamplesForScoring {
		slots = defaultSlots(account.Platform, accountID)
	} else {
		slots = scoreSlots(accountID, perf)
	}

	if err := s.optimal.DeleteByAccount(ctx, accountID); err != nil {
		return err
	}
	for _, slot := range slots {
		if err := s.optimal.Upsert(ctx, slot); err != nil {
			return err
		}
	}

	return nil
}

type slotBucket struct {
	engagement int64
	reach      int64
	samples    int
}

// scoreSlots buckets performance rows by publish weekday and hour, then
// scores each dense bucket as 0.6 * normalized engagement + 0.4 * normalized
// reach. Buckets below minSamplesForScoring keep the heuristic default score
// and stay out of the normalization. Confidence scales linearly with sample
// count, saturating at 10.
func scoreSlots(accountID int64, perf []*models.PostPerformance) []*models.OptimalTimeSlot {
	buckets := make(map[[2]int]*slotBucket)
	for _, p := range perf {
		key := [2]int{int(p.PublishedAt.Weekday()), p.PublishedAt.Hour()}
		b, ok := buckets[key]
		if !ok {
			b = &slotBucket{}
			buckets[key] = b
		}
		b.engagement += p.Engagement
		b.reach += p.Reach
		b.samples++
	}

	var maxEngagement, maxReach float64
	avg := make(map[[2]int][2]float64, len(buckets))
	for key, b := range buckets {
		e := float64(b.engagement) / float64(b.samples)
		r := float64(b.reach) / float64(b.samples)
		avg[key] = [2]float64{e, r}
		if b.samples < minSamplesForScoring {
			continue
		}
		if e > maxEngagement {
			maxEngagement = e
		}
		if r > maxReach {
			maxReach = r
		}
	}

	var slots []*models.OptimalTimeSlot
	for key, b := range buckets {
		confidence := float64(b.samples) / 10
		if confidence > 1 {
			confidence = 1
		}

		score := heuristicScore
		if b.samples >= minSamplesForScoring {
			var engagementNorm, reachNorm float64
			if maxEngagement > 0 {
				engagementNorm = avg[key][0] / maxEngagement
			}
			if maxReach > 0 {
				reachNorm = avg[key][1] / maxReach
			}
			score = 0.6*engagementNorm + 0.4*reachNorm
		}

		slots = append(slots, &models.OptimalTimeSlot{
			AccountID:  accountID,
			Weekday:    key[0],
			Hour:       key[1],
			Score:      score,
			Confidence: confidence,
			SampleSize: b.samples,
		})
	}

	return slots
}

// heuristicSlots are platform-wide posting-time conventions used until an
// account accumulates enough history of its own.
var heuristicSlots = map[string][][2]int{
	platforms.PlatformTwitter:   {{int(time.Monday), 9}, {int(time.Wednesday), 12}, {int(time.Friday), 15}},
	platforms.PlatformFacebook:  {{int(time.Tuesday), 10}, {int(time.Thursday), 13}, {int(time.Saturday), 11}},
	platforms.PlatformInstagram: {{int(time.Monday), 11}, {int(time.Wednesday), 14}, {int(time.Friday), 19}},
	platforms.PlatformLinkedIn:  {{int(time.Tuesday), 8}, {int(time.Wednesday), 10}, {int(time.Thursday), 9}},
	platforms.PlatformThreads:   {{int(time.Monday), 11}, {int(time.Wednesday), 14}, {int(time.Friday), 19}},
	platforms.PlatformPinterest: {{int(time.Saturday), 20}, {int(time.Sunday), 21}, {int(time.Friday), 15}},
	platforms.PlatformTiktok:    {{int(time.Tuesday), 19}, {int(time.Thursday), 20}, {int(time.Saturday), 21}},
	platforms.PlatformYoutube:   {{int(time.Friday), 17}, {int(time.Saturday), 10}, {int(time.Sunday), 11}},
	platforms.PlatformBluesky:   {{int(time.Monday), 9}, {int(time.Wednesday), 12}, {int(time.Friday), 15}},
	platforms.PlatformMastodon:  {{int(time.Monday), 9}, {int(time.Wednesday), 12}, {int(time.Friday), 15}},
}

func defaultSlots(platform string, accountID int64) []*models.OptimalTimeSlot {
	var slots []*models.OptimalTimeSlot
	for _, wh := range heuristicSlots[platform] {
		slots = append(slots, &models.OptimalTimeSlot{
			AccountID:  accountID,
			Weekday:    wh[0],
			Hour:       wh[1],
			Score:      heuristicScore,
			Confidence: 0,
			SampleSize: 0,
		})
	}
	return slots
}

func (s *analyticsService) ListSnapshots(ctx context.Context, siteID, accountID int64, since time.Time) ([]*models.DailyAnalyticsSnapshot, error) {
	owned, err := s.accounts.CheckBySiteID(ctx, accountID, siteID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, errors.New("account doesn't exist")
	}

	return s.snapshots.ListByAccountSince(ctx, accountID, since)
}

func (s *analyticsService) ListPostAnalytics(ctx context.Context, siteID, postID int64) ([]*models.PostAnalytics, error) {
	owned, err := s.posts.CheckBySiteID(ctx, postID, siteID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, errors.New("post doesn't exist")
	}

	return s.postStats.ListByPostID(ctx, postID)
}

func (s *analyticsService) ListOptimalTimes(ctx context.Context, siteID, accountID int64) ([]*models.OptimalTimeSlot, error) {
	owned, err := s.accounts.CheckBySiteID(ctx, accountID, siteID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, errors.New("account doesn't exist")
	}

	return s.optimal.ListByAccount(ctx, accountID)
}
