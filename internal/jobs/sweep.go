package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloo-solutions/plotsearch/internal/contracts"
	"github.com/cloo-solutions/plotsearch/internal/domain"
	"github.com/cloo-solutions/plotsearch/internal/logging"
	"github.com/cloo-solutions/plotsearch/internal/metrics"
	"github.com/cloo-solutions/plotsearch/internal/telemetry"
)

const (
	// MaxPublishAttempts bounds retries of one match event.
	MaxPublishAttempts = 3

	defaultSweepConcurrency = 4
	publishRetryDelay       = 200 * time.Millisecond
)

// Sweep outcomes, also used as metric labels.
const (
	OutcomePublished     = "published"
	OutcomeCountFailed   = "count_failed"
	OutcomePublishFailed = "publish_failed"
)

// SavedSearchSource lists active saved searches and counts their matches.
type SavedSearchSource interface {
	ListActiveForNotificationSweep(ctx context.Context) ([]*domain.SavedSearch, error)
	CountMatches(ctx context.Context, saved *domain.SavedSearch, exact bool) (int, error)
}

// MatchPublisher hands a match count to the notification collaborator.
type MatchPublisher interface {
	PublishMatch(ctx context.Context, event contracts.MatchEvaluated) error
}

type SweepConfig struct {
	// Exact applies post-filters when counting. It scans every candidate
	// listing, so it is off by default.
	Exact       bool
	Concurrency int
}

// SweepStats summarizes one sweep pass.
type SweepStats struct {
	Evaluated     int `json:"evaluated"`
	Published     int `json:"published"`
	CountFailed   int `json:"count_failed"`
	PublishFailed int `json:"publish_failed"`
}

// SweepProcessor evaluates every active saved search against live listings
// and publishes the counts. Diffing against earlier counts is the
// consumer's job.
type SweepProcessor struct {
	source    SavedSearchSource
	publisher MatchPublisher
	cfg       SweepConfig
	now       func() time.Time
	logger    *slog.Logger
	metrics   *metrics.Metrics
	retry     time.Duration
}

func NewSweepProcessor(source SavedSearchSource, publisher MatchPublisher, cfg SweepConfig, logger *slog.Logger, m *metrics.Metrics) *SweepProcessor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultSweepConcurrency
	}
	return &SweepProcessor{
		source:    source,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		logger:    logging.OrDefault(logger),
		metrics:   m,
		retry:     publishRetryDelay,
	}
}

// ProcessJobs implements JobProcessor.
func (p *SweepProcessor) ProcessJobs(ctx context.Context) error {
	_, err := p.RunOnce(ctx)
	return err
}

// RunOnce performs a single sweep. Failures for individual saved searches
// are logged and counted; only a failure to list them is returned.
func (p *SweepProcessor) RunOnce(ctx context.Context) (stats SweepStats, err error) {
	ctx, span := telemetry.StartTransaction(ctx, "saved_search.sweep", "job")
	defer span.End()
	start := time.Now()
	defer func() {
		p.metrics.ObserveOperation("sweep", start, err)
		span.SetError(err)
	}()

	active, err := p.source.ListActiveForNotificationSweep(ctx)
	if err != nil {
		return stats, fmt.Errorf("list active saved searches: %w", err)
	}
	if len(active) == 0 {
		return stats, nil
	}

	var mu sync.Mutex
	record := func(outcome string) {
		mu.Lock()
		defer mu.Unlock()
		stats.Evaluated++
		switch outcome {
		case OutcomePublished:
			stats.Published++
		case OutcomeCountFailed:
			stats.CountFailed++
		case OutcomePublishFailed:
			stats.PublishFailed++
		}
		p.metrics.SweepEvaluated(outcome)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for _, saved := range active {
		g.Go(func() error {
			record(p.evaluate(gctx, saved))
			return nil
		})
	}
	_ = g.Wait()

	span.SetData("evaluated", stats.Evaluated)
	p.logger.Info("saved search sweep finished",
		"evaluated", stats.Evaluated,
		"published", stats.Published,
		"count_failed", stats.CountFailed,
		"publish_failed", stats.PublishFailed,
		"exact", p.cfg.Exact,
		"duration_ms", time.Since(start).Milliseconds())
	return stats, nil
}

func (p *SweepProcessor) evaluate(ctx context.Context, saved *domain.SavedSearch) string {
	logger := p.logger.With("saved_search_id", saved.ID, "user_id", saved.UserID)

	n, err := p.source.CountMatches(ctx, saved, p.cfg.Exact)
	if err != nil {
		logger.Error("count saved search matches", "error", err)
		return OutcomeCountFailed
	}

	event := contracts.MatchEvaluated{
		SavedSearchID: saved.ID,
		UserID:        saved.UserID,
		Name:          saved.Name,
		Count:         n,
		Exact:         p.cfg.Exact,
		EvaluatedAt:   p.now(),
	}
	for attempt := 1; ; attempt++ {
		err = p.publisher.PublishMatch(ctx, event)
		if err == nil {
			logger.Debug("match count published", "count", n)
			return OutcomePublished
		}
		if attempt >= MaxPublishAttempts || ctx.Err() != nil {
			logger.Error("publish match count", "error", err, "attempts", attempt)
			return OutcomePublishFailed
		}
		logger.Warn("publish match count, retrying", "error", err, "attempt", attempt)
		select {
		case <-ctx.Done():
			return OutcomePublishFailed
		case <-time.After(p.retry * time.Duration(attempt)):
		}
	}
}
