package domain

import "time"

// SourceRunStats captures the per-source outcome of one harvest run.
type SourceRunStats struct {
	SourceID int64
	Name     string
	Fetched  int
	Created  int
	Skipped  int
	Error    string
}

// RunSummary is the structured result of one scheduled ingestion run.
// Partial failures never abort a run; they show up here as data.
type RunSummary struct {
	RunID          string
	StartedAt      time.Time
	Duration       time.Duration
	Sources        []SourceRunStats
	Duplicates     int
	Analyzed       int
	AnalysisErrors int
	Errors         []string
}
