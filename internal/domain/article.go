package domain

import "time"

// AnalysisStatus enumerates the analysis lifecycle of a candidate article.
type AnalysisStatus string

const (
	StatusPending    AnalysisStatus = "pending"
	StatusScreening  AnalysisStatus = "screening"
	StatusGenerating AnalysisStatus = "generating"
	StatusComplete   AnalysisStatus = "complete"
	StatusError      AnalysisStatus = "error"
)

// MatchReason explains why an article was flagged as a duplicate.
type MatchReason string

const (
	MatchTitle   MatchReason = "title_match"
	MatchURL     MatchReason = "url_match"
	MatchContent MatchReason = "content_match"
)

// Source is a configured syndication feed to harvest from.
type Source struct {
	ID        int64
	Name      string
	FeedURL   string
	Active    bool
	CreatedAt time.Time
}

// Article is a candidate item pulled from a feed. URL is the external
// unique key; Body holds normalized plain text with markup stripped.
type Article struct {
	ID              int64
	SourceID        int64
	URL             string
	Title           string
	Body            string
	PublishedAt     time.Time
	IngestedAt      time.Time
	Status          AnalysisStatus
	ErrorMessage    string
	AnalyzedAt      *time.Time
	IsDuplicate     bool
	DuplicateOfID   *int64
	DuplicateScore  float64
	DuplicateReason MatchReason
}

// DuplicateMatch records one detected cross-source duplicate pair.
// The primary is always the earlier-published article.
type DuplicateMatch struct {
	DuplicateID int64
	PrimaryID   int64
	Score       float64
	Reason      MatchReason
}
