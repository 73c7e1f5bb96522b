package feed

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

var whitespaceExpr = regexp.MustCompile(`\s+`)

// Fetcher pulls syndication feeds and normalizes their items into candidate
// articles. Network and parse failures are expected to be transient; the
// caller wraps Fetch in the retry mechanism.
type Fetcher struct {
	parser *gofeed.Parser
}

var _ ports.FeedFetcher = (*Fetcher)(nil)

// NewFetcher wires an HTTP client; a nil client gets a sane default timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = "NewsHarvester/1.0"
	return &Fetcher{parser: parser}
}

// Fetch parses the feed and returns normalized pending articles. Items
// missing a link or a title are dropped; an unparseable publish date falls
// back to now.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]domain.Article, error) {
	parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	articles := make([]domain.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil || item.Link == "" || strings.TrimSpace(item.Title) == "" {
			continue
		}

		publishedAt := time.Now().UTC()
		if item.PublishedParsed != nil {
			publishedAt = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			publishedAt = item.UpdatedParsed.UTC()
		}

		body := item.Content
		if strings.TrimSpace(body) == "" {
			body = item.Description
		}

		articles = append(articles, domain.Article{
			URL:         strings.TrimSpace(item.Link),
			Title:       normalizeTitle(item.Title),
			Body:        stripMarkup(body),
			PublishedAt: publishedAt,
			Status:      domain.StatusPending,
		})
	}

	return articles, nil
}

// Validate performs a single unretried fetch for fast-fail config checks.
func (f *Fetcher) Validate(ctx context.Context, feedURL string) (ports.FeedInfo, error) {
	parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return ports.FeedInfo{}, fmt.Errorf("validate feed %s: %w", feedURL, err)
	}
	return ports.FeedInfo{
		Title:     strings.TrimSpace(parsed.Title),
		ItemCount: len(parsed.Items),
	}, nil
}

// normalizeTitle strips leading decorative glyphs (bullets, emoji, dashes)
// and collapses runs of whitespace.
func normalizeTitle(title string) string {
	title = strings.TrimLeftFunc(title, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsSymbol(r) || isDecorative(r)
	})
	title = whitespaceExpr.ReplaceAllString(title, " ")
	return strings.TrimSpace(title)
}

func isDecorative(r rune) bool {
	switch r {
	case '•', '●', '■', '★', '☆', '–', '—', '*', '-', '|', '~', '#':
		return true
	}
	// Emoji and pictographs land in the supplementary symbol planes.
	return r >= 0x1F000 && r <= 0x1FAFF
}

// stripMarkup drops HTML tags from feed bodies, keeping visible text with
// whitespace collapsed.
func stripMarkup(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return whitespaceExpr.ReplaceAllString(body, " ")
	}
	text := doc.Text()
	return strings.TrimSpace(whitespaceExpr.ReplaceAllString(text, " "))
}
