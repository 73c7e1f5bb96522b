package domain

import "time"

// ContentType identifies what kind of draft the analyzer produced.
type ContentType string

const (
	ContentMilestone    ContentType = "milestone"
	ContentNewsEvent    ContentType = "news_event"
	ContentGlossaryTerm ContentType = "glossary_term"
)

// DraftStatus is the human-review lifecycle of a content draft.
// The pipeline only ever creates drafts as pending; review moves them on.
type DraftStatus string

const (
	DraftPending   DraftStatus = "pending"
	DraftPublished DraftStatus = "published"
	DraftRejected  DraftStatus = "rejected"
)

// Significance bounds for milestone and news-event payloads.
const (
	SignificanceMin = 1
	SignificanceMax = 10
)

// MilestonePayload is a structured milestone candidate.
type MilestonePayload struct {
	Title        string
	Date         string
	Description  string
	Category     string
	Significance int
	KeyFigures   []string
	References   []string
}

// NewsEventPayload is a structured news-event record.
type NewsEventPayload struct {
	Headline     string
	Summary      string
	EventDate    string
	Significance int
	Topics       []string
}

// TermPayload is a glossary-term candidate extracted from an article.
type TermPayload struct {
	Term       string
	Definition string
	Context    string
}

// ContentDraft is an unpublished analyzer output awaiting human review.
// Validity is independent of Status: invalid drafts are still stored so a
// reviewer can correct them. Payload holds one of the typed payload structs;
// serialization is the storage adapter's concern.
type ContentDraft struct {
	ID               int64
	ArticleID        int64
	Type             ContentType
	Payload          any
	Valid            bool
	ValidationErrors []string
	Status           DraftStatus
	CreatedAt        time.Time
}
