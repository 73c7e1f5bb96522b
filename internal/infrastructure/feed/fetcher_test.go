package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>AI Wire</title>
  <item>
    <title>🚀 OpenAI releases GPT-5</title>
    <link>https://example.com/gpt-5</link>
    <description><![CDATA[<p>OpenAI <b>released</b> GPT-5 today.</p><p>Read more at <a href="https://example.com/gpt-5">the post</a>.</p>]]></description>
    <pubDate>Mon, 02 Mar 2026 09:30:00 GMT</pubDate>
  </item>
  <item>
    <title>• Weekly roundup</title>
    <link>https://example.com/roundup</link>
    <description>Plain text summary.</description>
  </item>
  <item>
    <title>No link here</title>
    <description>Dropped because the link is missing.</description>
  </item>
  <item>
    <title>   </title>
    <link>https://example.com/blank-title</link>
  </item>
</channel>
</rss>`

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchNormalizesItems(t *testing.T) {
	t.Parallel()

	server := serveFeed(t, testFeed)
	fetcher := NewFetcher(server.Client())

	before := time.Now().UTC()
	articles, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	after := time.Now().UTC()

	if len(articles) != 2 {
		t.Fatalf("expected 2 usable items, got %d", len(articles))
	}

	first := articles[0]
	if first.Title != "OpenAI releases GPT-5" {
		t.Fatalf("leading emoji must be stripped, got %q", first.Title)
	}
	if first.URL != "https://example.com/gpt-5" {
		t.Fatalf("unexpected url %q", first.URL)
	}
	if strings.Contains(first.Body, "<") {
		t.Fatalf("markup must be stripped from body, got %q", first.Body)
	}
	if !strings.Contains(first.Body, "OpenAI released GPT-5 today.") {
		t.Fatalf("visible text must survive stripping, got %q", first.Body)
	}
	wantDate := time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)
	if !first.PublishedAt.Equal(wantDate) {
		t.Fatalf("published at = %v, want %v", first.PublishedAt, wantDate)
	}

	second := articles[1]
	if second.Title != "Weekly roundup" {
		t.Fatalf("leading bullet must be stripped, got %q", second.Title)
	}
	// No pubDate: falls back to fetch time.
	if second.PublishedAt.Before(before) || second.PublishedAt.After(after) {
		t.Fatalf("missing pubDate must fall back to now, got %v", second.PublishedAt)
	}
}

func TestFetchRejectsBrokenFeed(t *testing.T) {
	t.Parallel()

	server := serveFeed(t, "this is not xml at all")
	fetcher := NewFetcher(server.Client())

	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("expected parse error for non-feed payload")
	}
}

func TestFetchPropagatesHTTPFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	fetcher := NewFetcher(server.Client())

	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestValidateReportsFeedInfo(t *testing.T) {
	t.Parallel()

	server := serveFeed(t, testFeed)
	fetcher := NewFetcher(server.Client())

	info, err := fetcher.Validate(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if info.Title != "AI Wire" {
		t.Fatalf("feed title = %q, want %q", info.Title, "AI Wire")
	}
	if info.ItemCount != 4 {
		t.Fatalf("item count = %d, want 4 (raw items, before filtering)", info.ItemCount)
	}
}

func TestNormalizeTitle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"🚀 Big launch", "Big launch"},
		{"•  Bulleted   headline", "Bulleted headline"},
		{"— Dashed headline", "Dashed headline"},
		{"Plain headline", "Plain headline"},
		{"Tabs\tand\nnewlines", "Tabs and newlines"},
	}
	for _, tc := range cases {
		if got := normalizeTitle(tc.in); got != tc.want {
			t.Fatalf("normalizeTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStripMarkup(t *testing.T) {
	t.Parallel()

	got := stripMarkup(`<div><h1>Title</h1><p>Body &amp; more.</p></div>`)
	if got != "TitleBody & more." && got != "Title Body & more." {
		t.Fatalf("unexpected stripped text: %q", got)
	}
	if stripMarkup("   ") != "" {
		t.Fatal("blank input must strip to empty")
	}
}
