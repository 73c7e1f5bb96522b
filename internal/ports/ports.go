package ports

import (
	"context"
	"time"

	"NewsHarvester/internal/domain"
)

// FeedInfo is the result of a one-shot feed configuration check.
type FeedInfo struct {
	Title     string
	ItemCount int
}

// FeedFetcher pulls and normalizes candidate articles from a syndication feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]domain.Article, error)
	Validate(ctx context.Context, feedURL string) (FeedInfo, error)
}

// SourceRepository lists the configured feeds to harvest.
type SourceRepository interface {
	ListActive(ctx context.Context) ([]domain.Source, error)
}

// ArticleRepository persists candidate articles and their analysis state.
type ArticleRepository interface {
	// BulkInsert stores articles, skipping rows whose URL already exists.
	// Returns how many were created and how many were skipped.
	BulkInsert(ctx context.Context, articles []domain.Article) (created, skipped int, err error)
	// ListIngestedSince returns non-duplicate articles ingested at or after
	// the given time, for a duplicate-detection pass.
	ListIngestedSince(ctx context.Context, since time.Time) ([]domain.Article, error)
	// ListPendingNonDuplicates returns up to limit pending, non-duplicate
	// articles ordered oldest-ingested first.
	ListPendingNonDuplicates(ctx context.Context, limit int) ([]domain.Article, error)
	// UpdateStatus moves an article to the given status. Implementations
	// enforce legal lifecycle transitions, so concurrent writers cannot
	// interleave; a non-empty message is stored alongside error states and
	// StatusComplete stamps AnalyzedAt.
	UpdateStatus(ctx context.Context, id int64, status domain.AnalysisStatus, message string) error
	// MarkDuplicate flags the match's duplicate article as duplicate-of its
	// primary with score and reason.
	MarkDuplicate(ctx context.Context, match domain.DuplicateMatch) error
	// ResetToPending returns an errored article to pending for reattempt.
	ResetToPending(ctx context.Context, id int64) error
}

// DraftRepository persists analyzer outputs for human review.
type DraftRepository interface {
	SaveDraft(ctx context.Context, draft domain.ContentDraft) error
	// ExistingTermNames lists glossary terms already known, for filtering
	// freshly extracted candidates.
	ExistingTermNames(ctx context.Context) ([]string, error)
}

// ErrorRepository persists retry bookkeeping records.
type ErrorRepository interface {
	// FindUnresolved returns the unresolved record for the key, or nil.
	FindUnresolved(ctx context.Context, errType domain.ErrorType, sourceID, articleID *int64) (*domain.ErrorRecord, error)
	Create(ctx context.Context, record domain.ErrorRecord) error
	// IncrementRetry bumps the record's retry count and refreshes its message.
	IncrementRetry(ctx context.Context, id int64, message string) error
	// ResolveFor marks every unresolved record for the entity pair resolved.
	ResolveFor(ctx context.Context, sourceID, articleID *int64) error
	ResolveAll(ctx context.Context) error
	DeleteResolvedOlderThan(ctx context.Context, age time.Duration) (int64, error)
	Stats(ctx context.Context, recent int) (domain.ErrorStats, error)
}

// Classifier is the external text-classification service boundary. Output is
// untrusted; implementations repair and default before returning.
type Classifier interface {
	ScreenArticle(ctx context.Context, article domain.Article) (domain.ScreeningResult, error)
	GenerateContent(ctx context.Context, article domain.Article, screening domain.ScreeningResult) (domain.GeneratedContent, error)
	ExtractTerms(ctx context.Context, article domain.Article) ([]domain.TermPayload, error)
	CompareEvents(ctx context.Context, a, b domain.Article) (domain.SameEventResult, error)
}

// Notifier publishes run summaries to an external channel.
type Notifier interface {
	PublishSummary(ctx context.Context, summary domain.RunSummary) error
}

// Scheduler controls when harvest runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
