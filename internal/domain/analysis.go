package domain

// ScreeningResult is the first-stage classification verdict for an article.
// Fields arriving malformed from the classifier are defensively defaulted
// before this struct is built, so consumers can trust the ranges.
type ScreeningResult struct {
	RelevanceScore    float64
	MilestoneWorthy   bool
	Rationale         string
	SuggestedCategory string
	HasNewTerminology bool
}

// GeneratedContent is the expensive-call output for a milestone-worthy
// article: at most one milestone plus one news event.
type GeneratedContent struct {
	Milestone *MilestonePayload
	NewsEvent NewsEventPayload
}

// SameEventResult is the semantic duplicate-comparison verdict.
type SameEventResult struct {
	IsSameEvent bool
	Confidence  float64
	Reason      string
}
