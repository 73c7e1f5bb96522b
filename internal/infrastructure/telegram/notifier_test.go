package telegram

import (
	"context"
	"strings"
	"testing"
	"time"

	"NewsHarvester/internal/domain"
)

func TestFormatSummary(t *testing.T) {
	t.Parallel()

	summary := domain.RunSummary{
		RunID:    "run-1",
		Duration: 1500 * time.Millisecond,
		Sources: []domain.SourceRunStats{
			{SourceID: 1, Name: "alpha", Fetched: 5, Created: 3, Skipped: 2},
			{SourceID: 2, Name: "beta", Error: "connection refused"},
		},
		Duplicates:     1,
		Analyzed:       2,
		AnalysisErrors: 1,
		Errors:         []string{"source beta: connection refused"},
	}

	text := formatSummary(summary)

	for _, want := range []string{
		"run-1",
		"alpha: 5 fetched, 3 new, 2 skipped",
		"beta: failed (connection refused)",
		"Created: 3, skipped: 2, duplicates: 1",
		"Analyzed: 2, analysis errors: 1",
		"Errors (1):",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("summary text missing %q:\n%s", want, text)
		}
	}
}

func TestPublishSummaryRequiresConfiguration(t *testing.T) {
	t.Parallel()

	n := NewNotifier("", "")
	if err := n.PublishSummary(context.Background(), domain.RunSummary{}); err == nil {
		t.Fatal("unconfigured notifier must refuse to send")
	}
}
