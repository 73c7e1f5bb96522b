package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
	"NewsHarvester/internal/retry"
)

type memSourceRepo struct {
	sources []domain.Source
	err     error
}

func (m *memSourceRepo) ListActive(context.Context) ([]domain.Source, error) {
	return m.sources, m.err
}

type scriptedFetcher struct {
	byURL map[string][]domain.Article
	fails map[string]error
	calls map[string]int
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		byURL: map[string][]domain.Article{},
		fails: map[string]error{},
		calls: map[string]int{},
	}
}

func (s *scriptedFetcher) Fetch(_ context.Context, feedURL string) ([]domain.Article, error) {
	s.calls[feedURL]++
	if err := s.fails[feedURL]; err != nil {
		return nil, err
	}
	return s.byURL[feedURL], nil
}

func (s *scriptedFetcher) Validate(context.Context, string) (ports.FeedInfo, error) {
	return ports.FeedInfo{}, nil
}

type insertRecorder struct {
	memArticleRepo
	inserted []domain.Article
}

func (r *insertRecorder) BulkInsert(_ context.Context, articles []domain.Article) (int, int, error) {
	r.inserted = append(r.inserted, articles...)
	return len(articles), 0, nil
}

type memNotifier struct {
	summaries []domain.RunSummary
	err       error
}

func (m *memNotifier) PublishSummary(_ context.Context, summary domain.RunSummary) error {
	m.summaries = append(m.summaries, summary)
	return m.err
}

func newTestIngestor(sources *memSourceRepo, articles ports.ArticleRepository, fetcher ports.FeedFetcher, notifier ports.Notifier) *Ingestor {
	tracker := retry.NewTracker(&memErrorRepo{}, nil)
	tracker.SetSleep(func(context.Context, time.Duration) {})
	return NewIngestor(IngestorDeps{
		Sources:  sources,
		Articles: articles,
		Fetcher:  fetcher,
		Tracker:  tracker,
		Notifier: notifier,
	})
}

func feedItem(url, title string, published time.Time) domain.Article {
	return domain.Article{URL: url, Title: title, PublishedAt: published, Status: domain.StatusPending}
}

func TestRunHarvestsAllSources(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	sources := &memSourceRepo{sources: []domain.Source{
		{ID: 1, Name: "alpha", FeedURL: "https://alpha.example/rss", Active: true},
		{ID: 2, Name: "beta", FeedURL: "https://beta.example/rss", Active: true},
	}}
	fetcher := newScriptedFetcher()
	fetcher.byURL["https://alpha.example/rss"] = []domain.Article{
		feedItem("https://alpha.example/1", "first", now.Add(-time.Hour)),
		feedItem("https://alpha.example/2", "second", now.Add(-2*time.Hour)),
	}
	fetcher.byURL["https://beta.example/rss"] = []domain.Article{
		feedItem("https://beta.example/1", "third", now.Add(-time.Hour)),
	}
	repo := &insertRecorder{memArticleRepo: *newMemArticleRepo()}
	notifier := &memNotifier{}

	summary := newTestIngestor(sources, repo, fetcher, notifier).Run(context.Background(), now)

	if summary.RunID == "" {
		t.Fatal("run must carry an id")
	}
	if len(summary.Sources) != 2 {
		t.Fatalf("expected stats for 2 sources, got %d", len(summary.Sources))
	}
	if len(repo.inserted) != 3 {
		t.Fatalf("expected 3 inserted articles, got %d", len(repo.inserted))
	}
	for _, a := range repo.inserted {
		if a.SourceID == 0 {
			t.Fatalf("inserted article missing source id: %+v", a)
		}
		if !a.IngestedAt.Equal(now) {
			t.Fatalf("inserted article must be stamped with the run time, got %v", a.IngestedAt)
		}
	}
	if len(notifier.summaries) != 1 {
		t.Fatalf("expected 1 published summary, got %d", len(notifier.summaries))
	}
}

func TestRunDropsStaleItems(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	sources := &memSourceRepo{sources: []domain.Source{
		{ID: 1, Name: "alpha", FeedURL: "https://alpha.example/rss", Active: true},
	}}
	fetcher := newScriptedFetcher()
	fetcher.byURL["https://alpha.example/rss"] = []domain.Article{
		feedItem("https://alpha.example/fresh", "fresh", now.Add(-time.Hour)),
		feedItem("https://alpha.example/stale", "stale", now.Add(-DefaultFreshnessWindow-time.Minute)),
	}
	repo := &insertRecorder{memArticleRepo: *newMemArticleRepo()}

	summary := newTestIngestor(sources, repo, fetcher, nil).Run(context.Background(), now)

	if len(repo.inserted) != 1 || repo.inserted[0].URL != "https://alpha.example/fresh" {
		t.Fatalf("only the fresh item must be inserted, got %+v", repo.inserted)
	}
	if summary.Sources[0].Fetched != 2 {
		t.Fatalf("fetched count must include stale items, got %d", summary.Sources[0].Fetched)
	}
}

func TestRunIsolatesFailingSource(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	sources := &memSourceRepo{sources: []domain.Source{
		{ID: 1, Name: "broken", FeedURL: "https://broken.example/rss", Active: true},
		{ID: 2, Name: "healthy", FeedURL: "https://healthy.example/rss", Active: true},
	}}
	fetcher := newScriptedFetcher()
	fetcher.fails["https://broken.example/rss"] = errors.New("connection refused")
	fetcher.byURL["https://healthy.example/rss"] = []domain.Article{
		feedItem("https://healthy.example/1", "ok", now.Add(-time.Hour)),
	}
	repo := &insertRecorder{memArticleRepo: *newMemArticleRepo()}

	summary := newTestIngestor(sources, repo, fetcher, nil).Run(context.Background(), now)

	if len(repo.inserted) != 1 {
		t.Fatalf("healthy source must still be harvested, got %d inserts", len(repo.inserted))
	}
	if len(summary.Errors) != 1 || !strings.Contains(summary.Errors[0], "broken") {
		t.Fatalf("failing source must be reported in the summary, got %v", summary.Errors)
	}
	// The failing fetch goes through the bounded retry wrapper.
	if got := fetcher.calls["https://broken.example/rss"]; got != retry.DefaultMaxRetries+1 {
		t.Fatalf("expected %d fetch attempts, got %d", retry.DefaultMaxRetries+1, got)
	}
	if got := fetcher.calls["https://healthy.example/rss"]; got != 1 {
		t.Fatalf("healthy source needs a single fetch, got %d", got)
	}
}

func TestRunSurvivesSourceListingFailure(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	sources := &memSourceRepo{err: errors.New("db down")}
	notifier := &memNotifier{}

	summary := newTestIngestor(sources, newMemArticleRepo(), newScriptedFetcher(), notifier).Run(context.Background(), now)

	if len(summary.Errors) != 1 {
		t.Fatalf("listing failure must be reported, got %v", summary.Errors)
	}
	if len(notifier.summaries) != 1 {
		t.Fatal("summary must still be published on early failure")
	}
}

func TestRunToleratesNotifierFailure(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	sources := &memSourceRepo{sources: []domain.Source{
		{ID: 1, Name: "alpha", FeedURL: "https://alpha.example/rss", Active: true},
	}}
	fetcher := newScriptedFetcher()
	notifier := &memNotifier{err: errors.New("chat unreachable")}
	repo := &insertRecorder{memArticleRepo: *newMemArticleRepo()}

	summary := newTestIngestor(sources, repo, fetcher, notifier).Run(context.Background(), now)

	if len(summary.Errors) != 0 {
		t.Fatalf("notifier failure must not surface as a run error, got %v", summary.Errors)
	}
}
