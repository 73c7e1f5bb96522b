package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
	"NewsHarvester/internal/retry"
)

// Decision thresholds for the pairwise duplicate check.
const (
	titleMatchThreshold    = 0.8
	semanticLowerThreshold = 0.5
	semanticConfidenceMin  = 0.7
	urlMatchScore          = 0.9
)

// Detector runs one cross-source duplicate-detection pass over a batch of
// freshly ingested articles. Same-source pairs are never compared; the
// earlier-published article of a matched pair is always the primary, and a
// marked duplicate leaves the pass immediately (first match wins).
type Detector struct {
	articles   ports.ArticleRepository
	classifier ports.Classifier
	tracker    *retry.Tracker
	logger     *slog.Logger
}

// NewDetector wires repositories and the semantic comparer.
// classifier may be nil, which disables the semantic fallback.
func NewDetector(articles ports.ArticleRepository, classifier ports.Classifier, tracker *retry.Tracker, logger *slog.Logger) *Detector {
	return &Detector{
		articles:   articles,
		classifier: classifier,
		tracker:    tracker,
		logger:     logger,
	}
}

// Run compares all non-duplicate articles ingested at or after since and
// persists one DuplicateMatch per detected pair. The returned matches
// mirror what was persisted.
func (d *Detector) Run(ctx context.Context, since time.Time) ([]domain.DuplicateMatch, error) {
	articles, err := d.articles.ListIngestedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list ingestion window: %w", err)
	}
	if len(articles) < 2 {
		return nil, nil
	}

	// Deterministic pass order: earlier-published first, id as tiebreak.
	sort.Slice(articles, func(i, j int) bool {
		if articles[i].PublishedAt.Equal(articles[j].PublishedAt) {
			return articles[i].ID < articles[j].ID
		}
		return articles[i].PublishedAt.Before(articles[j].PublishedAt)
	})

	matched := make(map[int64]struct{})
	var matches []domain.DuplicateMatch

	for i := 0; i < len(articles); i++ {
		if _, ok := matched[articles[i].ID]; ok {
			continue
		}
		for j := i + 1; j < len(articles); j++ {
			if _, ok := matched[articles[j].ID]; ok {
				continue
			}
			if articles[i].SourceID == articles[j].SourceID {
				continue
			}

			match, ok := d.compare(ctx, articles[i], articles[j])
			if !ok {
				continue
			}

			if err := d.articles.MarkDuplicate(ctx, match); err != nil {
				return matches, fmt.Errorf("mark duplicate %d: %w", match.DuplicateID, err)
			}
			matched[match.DuplicateID] = struct{}{}
			matches = append(matches, match)
			d.debug("duplicate detected",
				"duplicate_id", match.DuplicateID,
				"primary_id", match.PrimaryID,
				"reason", string(match.Reason),
				"score", match.Score)
		}
	}

	return matches, nil
}

// compare runs the decision procedure for one cross-source pair. Articles
// arrive sorted, so a is the earlier-published primary.
func (d *Detector) compare(ctx context.Context, a, b domain.Article) (domain.DuplicateMatch, bool) {
	similarity := titleSimilarity(a.Title, b.Title)

	if similarity >= titleMatchThreshold {
		return domain.DuplicateMatch{
			DuplicateID: b.ID,
			PrimaryID:   a.ID,
			Score:       similarity,
			Reason:      domain.MatchTitle,
		}, true
	}

	if sharedURL(a.Body, b.Body) {
		return domain.DuplicateMatch{
			DuplicateID: b.ID,
			PrimaryID:   a.ID,
			Score:       urlMatchScore,
			Reason:      domain.MatchURL,
		}, true
	}

	if similarity >= semanticLowerThreshold && d.classifier != nil {
		result, err := d.classifier.CompareEvents(ctx, a, b)
		if err != nil {
			// Dedup is best effort: record, degrade to not-a-duplicate.
			d.recordComparisonFailure(ctx, b.ID, err)
			return domain.DuplicateMatch{}, false
		}
		if result.IsSameEvent && result.Confidence >= semanticConfidenceMin {
			return domain.DuplicateMatch{
				DuplicateID: b.ID,
				PrimaryID:   a.ID,
				Score:       result.Confidence,
				Reason:      domain.MatchContent,
			}, true
		}
	}

	return domain.DuplicateMatch{}, false
}

func (d *Detector) recordComparisonFailure(ctx context.Context, articleID int64, cause error) {
	d.debug("semantic comparison failed", "article_id", articleID, "error", cause)
	if d.tracker == nil {
		return
	}
	d.tracker.Record(ctx, retry.Options{
		Type:      domain.ErrorDuplicateDetection,
		ArticleID: &articleID,
	}, cause)
}

func (d *Detector) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
