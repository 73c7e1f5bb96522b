package storage

import (
	"encoding/json"
	"testing"

	"NewsHarvester/internal/domain"
)

func TestEncodePayloadMilestone(t *testing.T) {
	t.Parallel()

	raw, err := encodePayload(domain.MilestonePayload{
		Title:        "GPT-5 released",
		Date:         "2026-03-01",
		Description:  "OpenAI shipped GPT-5.",
		Category:     "models",
		Significance: 9,
		KeyFigures:   []string{"Sam Altman"},
	})
	if err != nil {
		t.Fatalf("encodePayload error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded["title"] != "GPT-5 released" {
		t.Fatalf("unexpected title %v", decoded["title"])
	}
	if decoded["event_date"] != nil {
		t.Fatal("milestone payload must not carry event fields")
	}
	// Nil slices encode as empty arrays, never null.
	refs, ok := decoded["references"].([]any)
	if !ok || len(refs) != 0 {
		t.Fatalf("nil references must encode as [], got %v", decoded["references"])
	}
}

func TestEncodePayloadNewsEvent(t *testing.T) {
	t.Parallel()

	raw, err := encodePayload(domain.NewsEventPayload{
		Headline:  "GPT-5 is out",
		Summary:   "General availability announced.",
		EventDate: "2026-03-01",
		Topics:    []string{"llm"},
	})
	if err != nil {
		t.Fatalf("encodePayload error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded["event_date"] != "2026-03-01" {
		t.Fatalf("unexpected event_date %v", decoded["event_date"])
	}
}

func TestEncodePayloadTerm(t *testing.T) {
	t.Parallel()

	raw, err := encodePayload(domain.TermPayload{Term: "RLHF", Definition: "d", Context: "c"})
	if err != nil {
		t.Fatalf("encodePayload error: %v", err)
	}

	var decoded termWire
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded.Term != "RLHF" {
		t.Fatalf("unexpected term %q", decoded.Term)
	}
}

func TestEncodePayloadRejectsUnknownType(t *testing.T) {
	t.Parallel()

	if _, err := encodePayload(42); err == nil {
		t.Fatal("unsupported payload type must be rejected")
	}
}
