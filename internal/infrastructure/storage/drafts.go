package storage

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"NewsHarvester/internal/domain"
)

// Draft payload wire shapes. The domain model holds typed structs; JSON
// encoding lives here and nowhere else.

type milestoneWire struct {
	Title        string   `json:"title"`
	Date         string   `json:"date"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Significance int      `json:"significance"`
	KeyFigures   []string `json:"key_figures"`
	References   []string `json:"references"`
}

type newsEventWire struct {
	Headline     string   `json:"headline"`
	Summary      string   `json:"summary"`
	EventDate    string   `json:"event_date"`
	Significance int      `json:"significance"`
	Topics       []string `json:"topics"`
}

type termWire struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
	Context    string `json:"context"`
}

// SaveDraft inserts a content draft in pending lifecycle status.
func (r *Repository) SaveDraft(ctx context.Context, draft domain.ContentDraft) error {
	payload, err := encodePayload(draft.Payload)
	if err != nil {
		return fmt.Errorf("encode draft payload: %w", err)
	}

	problems := draft.ValidationErrors
	if problems == nil {
		problems = []string{}
	}
	encodedProblems, err := json.Marshal(problems)
	if err != nil {
		return fmt.Errorf("encode validation errors: %w", err)
	}

	query, args, err := builder.
		Insert("content_drafts").
		Columns("article_id", "content_type", "payload", "valid", "validation_errors", "status").
		Values(
			draft.ArticleID,
			string(draft.Type),
			payload,
			draft.Valid,
			encodedProblems,
			string(domain.DraftPending),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build draft insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert draft: %w", err)
	}
	return nil
}

// ExistingTermNames lists glossary terms already drafted or published, for
// case-insensitive filtering of new candidates.
func (r *Repository) ExistingTermNames(ctx context.Context) ([]string, error) {
	query, args, err := builder.
		Select("DISTINCT payload->>'term'").
		From("content_drafts").
		Where(sq.Eq{"content_type": string(domain.ContentGlossaryTerm)}).
		Where(sq.NotEq{"status": string(domain.DraftRejected)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build terms query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query terms: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan term: %w", err)
		}
		if name != "" {
			names = append(names, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("terms iteration: %w", err)
	}

	return names, nil
}

func encodePayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case domain.MilestonePayload:
		return json.Marshal(milestoneWire{
			Title:        p.Title,
			Date:         p.Date,
			Description:  p.Description,
			Category:     p.Category,
			Significance: p.Significance,
			KeyFigures:   emptyIfNil(p.KeyFigures),
			References:   emptyIfNil(p.References),
		})
	case domain.NewsEventPayload:
		return json.Marshal(newsEventWire{
			Headline:     p.Headline,
			Summary:      p.Summary,
			EventDate:    p.EventDate,
			Significance: p.Significance,
			Topics:       emptyIfNil(p.Topics),
		})
	case domain.TermPayload:
		return json.Marshal(termWire{
			Term:       p.Term,
			Definition: p.Definition,
			Context:    p.Context,
		})
	default:
		return nil, fmt.Errorf("unsupported payload type %T", payload)
	}
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
