package llm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"NewsHarvester/internal/domain"
)

func TestParseScreeningClampsScore(t *testing.T) {
	t.Parallel()

	result := parseScreening(`{"relevanceScore": 1.4, "isMilestoneWorthy": true, "rationale": "big launch"}`)
	if result.RelevanceScore != 1.0 {
		t.Fatalf("score must clamp to 1.0, got %f", result.RelevanceScore)
	}
	if !result.MilestoneWorthy {
		t.Fatal("real bool true must be kept")
	}
	if result.Rationale != "big launch" {
		t.Fatalf("unexpected rationale %q", result.Rationale)
	}

	result = parseScreening(`{"relevanceScore": -0.3}`)
	if result.RelevanceScore != 0.0 {
		t.Fatalf("score must clamp to 0.0, got %f", result.RelevanceScore)
	}
}

func TestParseScreeningRejectsStringBooleans(t *testing.T) {
	t.Parallel()

	result := parseScreening(`{"isMilestoneWorthy": "yes", "hasNewTerminology": "true"}`)
	if result.MilestoneWorthy {
		t.Fatal(`"yes" is not a boolean and must default to false`)
	}
	if result.HasNewTerminology {
		t.Fatal(`"true" as a string must default to false`)
	}
}

func TestParseScreeningDefaultsOnGarbage(t *testing.T) {
	t.Parallel()

	result := parseScreening("the model rambled and produced no json")
	if result.RelevanceScore != 0.5 {
		t.Fatalf("score must default to 0.5, got %f", result.RelevanceScore)
	}
	if result.MilestoneWorthy || result.HasNewTerminology {
		t.Fatal("booleans must default to false")
	}
	if result.Rationale != defaultRationale {
		t.Fatalf("rationale must default, got %q", result.Rationale)
	}
}

func TestParseScreeningCoercesStringScore(t *testing.T) {
	t.Parallel()

	result := parseScreening(`{"relevanceScore": "0.7"}`)
	if result.RelevanceScore != 0.7 {
		t.Fatalf("numeric string must coerce, got %f", result.RelevanceScore)
	}
}

func TestParseGeneratedFullResponse(t *testing.T) {
	t.Parallel()

	raw := "```json\n" + `{
	  "milestone": {
	    "title": "GPT-5 released",
	    "date": "2026-03-01",
	    "description": "OpenAI shipped GPT-5.",
	    "category": "models",
	    "significance": 9.4,
	    "keyFigures": ["Sam Altman", "  "],
	    "references": ["https://example.com/gpt-5"]
	  },
	  "newsEvent": {
	    "headline": "GPT-5 is out",
	    "summary": "General availability announced.",
	    "eventDate": "2026-03-01",
	    "significance": 14,
	    "topics": ["llm"]
	  }
	}` + "\n```"

	content, err := parseGenerated(raw)
	if err != nil {
		t.Fatalf("parseGenerated error: %v", err)
	}
	if content.Milestone == nil {
		t.Fatal("milestone must be decoded")
	}
	if content.Milestone.Significance != 9 {
		t.Fatalf("9.4 must round to 9, got %d", content.Milestone.Significance)
	}
	if len(content.Milestone.KeyFigures) != 1 || content.Milestone.KeyFigures[0] != "Sam Altman" {
		t.Fatalf("blank entries must be dropped, got %v", content.Milestone.KeyFigures)
	}
	if content.NewsEvent.Significance != domain.SignificanceMax {
		t.Fatalf("14 must clamp to %d, got %d", domain.SignificanceMax, content.NewsEvent.Significance)
	}
}

func TestParseGeneratedNullMilestone(t *testing.T) {
	t.Parallel()

	content, err := parseGenerated(`{"milestone": null, "newsEvent": {"headline": "h", "summary": "s", "eventDate": "2026-03-01", "significance": 3}}`)
	if err != nil {
		t.Fatalf("parseGenerated error: %v", err)
	}
	if content.Milestone != nil {
		t.Fatal("null milestone must stay nil")
	}
	if content.NewsEvent.Headline != "h" {
		t.Fatalf("news event must decode, got %+v", content.NewsEvent)
	}
}

func TestParseGeneratedNoJSONIsError(t *testing.T) {
	t.Parallel()

	if _, err := parseGenerated("no structured output here"); err == nil {
		t.Fatal("undecodable generation response must be an error")
	}
}

func TestParseTerms(t *testing.T) {
	t.Parallel()

	terms := parseTerms(`[{"term": "RLHF", "definition": "d", "context": "c"}, {"term": "  ", "definition": "dropped"}]`)
	if len(terms) != 1 {
		t.Fatalf("expected 1 term, got %d", len(terms))
	}
	if terms[0].Term != "RLHF" {
		t.Fatalf("unexpected term %q", terms[0].Term)
	}
}

func TestParseTermsDegradesToNil(t *testing.T) {
	t.Parallel()

	if terms := parseTerms("nothing useful"); terms != nil {
		t.Fatalf("prose must degrade to nil, got %v", terms)
	}
	if terms := parseTerms(`{"not": "an array"}`); terms != nil {
		t.Fatalf("wrong shape must degrade to nil, got %v", terms)
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	t.Parallel()

	// Three-byte runes; any limit not divisible by three lands mid-rune.
	body := strings.Repeat("日本語", 100)
	for _, limit := range []int{10, 11, 50, 299} {
		got := truncate(body, limit)
		if len(got) > limit {
			t.Fatalf("truncate(%d) returned %d bytes", limit, len(got))
		}
		if !utf8.ValidString(got) {
			t.Fatalf("truncate(%d) produced invalid UTF-8: %q", limit, got)
		}
	}

	if got := truncate("short", 100); got != "short" {
		t.Fatalf("under-limit input must pass through, got %q", got)
	}
}

func TestCoerceSignificanceDefaults(t *testing.T) {
	t.Parallel()

	if got := coerceSignificance(nil); got != domain.SignificanceMin {
		t.Fatalf("missing significance must default to %d, got %d", domain.SignificanceMin, got)
	}
	if got := coerceSignificance("high"); got != domain.SignificanceMin {
		t.Fatalf("non-numeric significance must default, got %d", got)
	}
	if got := coerceSignificance(-2.0); got != domain.SignificanceMin {
		t.Fatalf("below-range significance must clamp, got %d", got)
	}
}
