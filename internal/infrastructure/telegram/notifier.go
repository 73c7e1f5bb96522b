package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

// Notifier posts harvest run summaries to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// PublishSummary posts a formatted run summary message.
func (n *Notifier) PublishSummary(ctx context.Context, summary domain.RunSummary) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", formatSummary(summary))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

func formatSummary(summary domain.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Harvest run %s (%s)\n", summary.RunID, summary.Duration.Round(time.Millisecond))

	var created, skipped int
	for _, src := range summary.Sources {
		created += src.Created
		skipped += src.Skipped
		if src.Error != "" {
			fmt.Fprintf(&b, "- %s: failed (%s)\n", src.Name, src.Error)
			continue
		}
		fmt.Fprintf(&b, "- %s: %d fetched, %d new, %d skipped\n",
			src.Name, src.Fetched, src.Created, src.Skipped)
	}

	fmt.Fprintf(&b, "Created: %d, skipped: %d, duplicates: %d\n",
		created, skipped, summary.Duplicates)
	fmt.Fprintf(&b, "Analyzed: %d, analysis errors: %d\n",
		summary.Analyzed, summary.AnalysisErrors)

	if len(summary.Errors) > 0 {
		fmt.Fprintf(&b, "Errors (%d):\n", len(summary.Errors))
		for _, msg := range summary.Errors {
			fmt.Fprintf(&b, "  %s\n", msg)
		}
	}

	return b.String()
}
