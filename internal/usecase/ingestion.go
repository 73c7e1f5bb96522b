package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"NewsHarvester/internal/dedup"
	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
	"NewsHarvester/internal/retry"
)

const (
	// DefaultFreshnessWindow bounds how old a fetched item may be.
	DefaultFreshnessWindow = 48 * time.Hour
	// DefaultAnalysisLimit bounds the analysis batch per run.
	DefaultAnalysisLimit = 20
	// errorRetention is how long resolved error records are kept.
	errorRetention = 30 * 24 * time.Hour
)

// IngestorDeps wires all collaborators of a scheduled harvest run.
type IngestorDeps struct {
	Sources  ports.SourceRepository
	Articles ports.ArticleRepository
	Fetcher  ports.FeedFetcher
	Detector *dedup.Detector
	Analyzer *Analyzer
	Tracker  *retry.Tracker
	Notifier ports.Notifier
	Logger   *slog.Logger

	FreshnessWindow time.Duration
	AnalysisLimit   int
}

// Ingestor is the top-level job coordinator: fetch all active sources,
// deduplicate the run window, analyze a bounded batch, summarize. One run
// is one logical task; sources and articles are processed sequentially.
type Ingestor struct {
	sources  ports.SourceRepository
	articles ports.ArticleRepository
	fetcher  ports.FeedFetcher
	detector *dedup.Detector
	analyzer *Analyzer
	tracker  *retry.Tracker
	notifier ports.Notifier
	logger   *slog.Logger

	freshness     time.Duration
	analysisLimit int
}

// NewIngestor constructs the coordinator, applying run defaults.
func NewIngestor(deps IngestorDeps) *Ingestor {
	if deps.FreshnessWindow <= 0 {
		deps.FreshnessWindow = DefaultFreshnessWindow
	}
	if deps.AnalysisLimit <= 0 {
		deps.AnalysisLimit = DefaultAnalysisLimit
	}
	return &Ingestor{
		sources:       deps.Sources,
		articles:      deps.Articles,
		fetcher:       deps.Fetcher,
		detector:      deps.Detector,
		analyzer:      deps.Analyzer,
		tracker:       deps.Tracker,
		notifier:      deps.Notifier,
		logger:        deps.Logger,
		freshness:     deps.FreshnessWindow,
		analysisLimit: deps.AnalysisLimit,
	}
}

// Run executes one full harvest. It never returns an error: every partial
// failure is recorded in the summary and the run carries on.
func (ing *Ingestor) Run(ctx context.Context, now time.Time) domain.RunSummary {
	summary := domain.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: now,
	}

	ing.info("harvest run started", "run_id", summary.RunID)

	sources, err := ing.sources.ListActive(ctx)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("list sources: %v", err))
		summary.Duration = time.Since(now)
		ing.finish(ctx, summary)
		return summary
	}

	for _, source := range sources {
		stats := ing.harvestSource(ctx, source, now)
		summary.Sources = append(summary.Sources, stats)
		if stats.Error != "" {
			summary.Errors = append(summary.Errors,
				fmt.Sprintf("source %s: %s", source.Name, stats.Error))
		}
	}

	// The dedup pass reads the window only after every bulk insert above has
	// completed; this ordering is a hard dependency, not a convenience.
	if ing.detector != nil {
		matches, err := ing.detector.Run(ctx, now)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("duplicate detection: %v", err))
		}
		summary.Duplicates = len(matches)
	}

	if ing.analyzer != nil {
		batch, err := ing.analyzer.ProcessBatch(ctx, ing.analysisLimit)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("analysis batch: %v", err))
		}
		summary.Analyzed = batch.Analyzed
		summary.AnalysisErrors = batch.Errors
		summary.Errors = append(summary.Errors, batch.Failures...)
	}

	ing.maintain(ctx)

	summary.Duration = time.Since(now)
	ing.finish(ctx, summary)
	return summary
}

// maintain prunes aged resolved error records and reports what remains open.
// Best effort; a failing error store must not affect the run outcome.
func (ing *Ingestor) maintain(ctx context.Context) {
	if ing.tracker == nil {
		return
	}

	pruned, err := ing.tracker.DeleteResolvedOlderThan(ctx, errorRetention)
	if err != nil {
		ing.info("error record pruning failed", "error", err)
	} else if pruned > 0 {
		ing.info("pruned resolved error records", "count", pruned)
	}

	stats, err := ing.tracker.Stats(ctx, 0)
	if err != nil {
		ing.info("error stats unavailable", "error", err)
		return
	}
	if stats.Unresolved > 0 {
		ing.info("unresolved tracked errors", "count", stats.Unresolved)
	}
}

// harvestSource fetches one feed through the retry wrapper, applies the
// freshness filter, and bulk-inserts what remains. A source that exhausts
// its retries is recorded and skipped; the run moves on.
func (ing *Ingestor) harvestSource(ctx context.Context, source domain.Source, now time.Time) domain.SourceRunStats {
	stats := domain.SourceRunStats{SourceID: source.ID, Name: source.Name}

	sourceID := source.ID
	fetched, err := retry.Do(ctx, ing.tracker,
		retry.Options{Type: domain.ErrorFetch, SourceID: &sourceID},
		func(ctx context.Context) ([]domain.Article, error) {
			return ing.fetcher.Fetch(ctx, source.FeedURL)
		})
	if err != nil {
		stats.Error = err.Error()
		return stats
	}

	stats.Fetched = len(fetched)

	cutoff := now.Add(-ing.freshness)
	fresh := make([]domain.Article, 0, len(fetched))
	for _, article := range fetched {
		if article.PublishedAt.Before(cutoff) {
			continue
		}
		article.SourceID = source.ID
		article.IngestedAt = now
		fresh = append(fresh, article)
	}

	if len(fresh) == 0 {
		return stats
	}

	created, skipped, err := ing.articles.BulkInsert(ctx, fresh)
	if err != nil {
		stats.Error = fmt.Sprintf("bulk insert: %v", err)
		return stats
	}
	stats.Created = created
	stats.Skipped = skipped

	ing.info("source harvested",
		"source", source.Name,
		"fetched", stats.Fetched,
		"created", created,
		"skipped", skipped)
	return stats
}

func (ing *Ingestor) finish(ctx context.Context, summary domain.RunSummary) {
	ing.info("harvest run finished",
		"run_id", summary.RunID,
		"duration", summary.Duration,
		"sources", len(summary.Sources),
		"duplicates", summary.Duplicates,
		"analyzed", summary.Analyzed,
		"analysis_errors", summary.AnalysisErrors,
		"errors", len(summary.Errors))

	if ing.notifier == nil {
		return
	}
	if err := ing.notifier.PublishSummary(ctx, summary); err != nil {
		ing.info("summary notification failed", "run_id", summary.RunID, "error", err)
	}
}

func (ing *Ingestor) info(msg string, args ...any) {
	if ing.logger != nil {
		ing.logger.Info(msg, args...)
	}
}
