package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

const (
	// maxPromptBody bounds how much article text goes into any prompt.
	maxPromptBody = 2000
	// maxCompareBody bounds each side of the semantic comparison prompt.
	maxCompareBody = 600

	defaultRationale = "no rationale provided"
)

var _ ports.Classifier = (*Client)(nil)

const screenSystemPrompt = `You screen technology news articles for a curated AI-history archive.
Respond with a single JSON object:
{"relevanceScore": <0..1>, "isMilestoneWorthy": <bool>, "rationale": <string>, "suggestedCategory": <string>, "hasNewTerminology": <bool>}`

// ScreenArticle runs the cheap first-stage classification. The response is
// untrusted free text, so every field is defaulted or clamped; an
// irrecoverable parse degrades to neutral defaults instead of failing.
func (c *Client) ScreenArticle(ctx context.Context, article domain.Article) (domain.ScreeningResult, error) {
	user := fmt.Sprintf("Title: %s\nPublished: %s\n\n%s",
		article.Title,
		article.PublishedAt.Format("2006-01-02"),
		truncate(article.Body, maxPromptBody))

	raw, err := c.complete(ctx, screenSystemPrompt, user)
	if err != nil {
		return domain.ScreeningResult{}, err
	}

	return parseScreening(raw), nil
}

// parseScreening decodes the screening verdict defensively.
func parseScreening(raw string) domain.ScreeningResult {
	result := domain.ScreeningResult{
		RelevanceScore: 0.5,
		Rationale:      defaultRationale,
	}

	fields := decodeObject(raw)
	if fields == nil {
		return result
	}

	if score, ok := coerceFloat(fields["relevanceScore"]); ok {
		result.RelevanceScore = clampFloat(score, 0, 1)
	}
	// Booleans default to false unless the model produced a real bool;
	// "yes"-style spellings are not trusted.
	result.MilestoneWorthy, _ = fields["isMilestoneWorthy"].(bool)
	result.HasNewTerminology, _ = fields["hasNewTerminology"].(bool)
	if s, ok := fields["rationale"].(string); ok && strings.TrimSpace(s) != "" {
		result.Rationale = strings.TrimSpace(s)
	}
	if s, ok := fields["suggestedCategory"].(string); ok {
		result.SuggestedCategory = strings.TrimSpace(s)
	}

	return result
}

const generateSystemPrompt = `You turn a milestone-worthy article into structured archive records.
Respond with a single JSON object:
{"milestone": {"title": <string>, "date": <YYYY-MM-DD>, "description": <string>, "category": <string>, "significance": <1..10>, "keyFigures": [<string>], "references": [<string>]} or null,
 "newsEvent": {"headline": <string>, "summary": <string>, "eventDate": <YYYY-MM-DD>, "significance": <1..10>, "topics": [<string>]}}`

// GenerateContent runs the expensive generation call for a milestone-worthy
// article. A response with no decodable JSON is an error: the retry wrapper
// owns that failure mode.
func (c *Client) GenerateContent(ctx context.Context, article domain.Article, screening domain.ScreeningResult) (domain.GeneratedContent, error) {
	user := fmt.Sprintf("Title: %s\nPublished: %s\nCategory hint: %s\n\n%s",
		article.Title,
		article.PublishedAt.Format("2006-01-02"),
		screening.SuggestedCategory,
		truncate(article.Body, maxPromptBody))

	raw, err := c.complete(ctx, generateSystemPrompt, user)
	if err != nil {
		return domain.GeneratedContent{}, err
	}

	return parseGenerated(raw)
}

func parseGenerated(raw string) (domain.GeneratedContent, error) {
	fields := decodeObject(raw)
	if fields == nil {
		return domain.GeneratedContent{}, fmt.Errorf("generation response has no decodable JSON")
	}

	var content domain.GeneratedContent
	if m, ok := fields["milestone"].(map[string]any); ok {
		milestone := domain.MilestonePayload{
			Title:        stringField(m, "title"),
			Date:         stringField(m, "date"),
			Description:  stringField(m, "description"),
			Category:     stringField(m, "category"),
			Significance: coerceSignificance(m["significance"]),
			KeyFigures:   stringSlice(m["keyFigures"]),
			References:   stringSlice(m["references"]),
		}
		content.Milestone = &milestone
	}

	event, _ := fields["newsEvent"].(map[string]any)
	content.NewsEvent = domain.NewsEventPayload{
		Headline:     stringField(event, "headline"),
		Summary:      stringField(event, "summary"),
		EventDate:    stringField(event, "eventDate"),
		Significance: coerceSignificance(event["significance"]),
		Topics:       stringSlice(event["topics"]),
	}

	return content, nil
}

const termsSystemPrompt = `You extract new technical terminology from an article for a glossary.
Respond with a single JSON array:
[{"term": <string>, "definition": <string>, "context": <string>}]
Return [] when nothing qualifies.`

// ExtractTerms runs the terminology extraction call. Unparseable output
// degrades to zero terms; the article still completes.
func (c *Client) ExtractTerms(ctx context.Context, article domain.Article) ([]domain.TermPayload, error) {
	user := fmt.Sprintf("Title: %s\n\n%s", article.Title, truncate(article.Body, maxPromptBody))

	raw, err := c.complete(ctx, termsSystemPrompt, user)
	if err != nil {
		return nil, err
	}

	return parseTerms(raw), nil
}

func parseTerms(raw string) []domain.TermPayload {
	fragment := extractJSON(raw)
	if fragment == "" {
		return nil
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(fragment), &items); err != nil {
		return nil
	}

	terms := make([]domain.TermPayload, 0, len(items))
	for _, item := range items {
		term := strings.TrimSpace(stringField(item, "term"))
		if term == "" {
			continue
		}
		terms = append(terms, domain.TermPayload{
			Term:       term,
			Definition: stringField(item, "definition"),
			Context:    stringField(item, "context"),
		})
	}
	return terms
}

const compareSystemPrompt = `You decide whether two news articles describe the same underlying event.
Respond with a single JSON object:
{"isSameEvent": <bool>, "confidence": <0..1>, "reason": <string>}`

// CompareEvents asks whether two articles cover the same event. Parse
// failure is an error; the duplicate detector degrades it locally.
func (c *Client) CompareEvents(ctx context.Context, a, b domain.Article) (domain.SameEventResult, error) {
	user := fmt.Sprintf("Article A:\nTitle: %s\nPublished: %s\n%s\n\nArticle B:\nTitle: %s\nPublished: %s\n%s",
		a.Title, a.PublishedAt.Format("2006-01-02"), truncate(a.Body, maxCompareBody),
		b.Title, b.PublishedAt.Format("2006-01-02"), truncate(b.Body, maxCompareBody))

	raw, err := c.complete(ctx, compareSystemPrompt, user)
	if err != nil {
		return domain.SameEventResult{}, err
	}

	fields := decodeObject(raw)
	if fields == nil {
		return domain.SameEventResult{}, fmt.Errorf("comparison response has no decodable JSON")
	}

	confidence, _ := coerceFloat(fields["confidence"])
	isSame, _ := fields["isSameEvent"].(bool)
	return domain.SameEventResult{
		IsSameEvent: isSame,
		Confidence:  clampFloat(confidence, 0, 1),
		Reason:      stringField(fields, "reason"),
	}, nil
}

// decodeObject extracts and decodes a JSON object from free text, returning
// nil when nothing decodable remains even after repair.
func decodeObject(raw string) map[string]any {
	fragment := extractJSON(raw)
	if fragment == "" {
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(fragment), &fields); err != nil {
		return nil
	}
	return fields
}

func stringField(fields map[string]any, key string) string {
	if fields == nil {
		return ""
	}
	s, _ := fields[key].(string)
	return s
}

func stringSlice(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func coerceFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// coerceSignificance rounds numeric input and clamps it to the valid range.
func coerceSignificance(value any) int {
	f, ok := coerceFloat(value)
	if !ok {
		return domain.SignificanceMin
	}
	n := int(math.Round(f))
	if n < domain.SignificanceMin {
		return domain.SignificanceMin
	}
	if n > domain.SignificanceMax {
		return domain.SignificanceMax
	}
	return n
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
