package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
	"NewsHarvester/internal/retry"
)

// Analyzer drives one article through the analysis state machine:
// pending -> screening -> {generating | complete} -> complete, with error
// reachable from any in-flight state when retries are exhausted.
type Analyzer struct {
	articles   ports.ArticleRepository
	drafts     ports.DraftRepository
	classifier ports.Classifier
	tracker    *retry.Tracker
	logger     *slog.Logger
}

// AnalyzerDeps wires the orchestration dependencies.
type AnalyzerDeps struct {
	Articles   ports.ArticleRepository
	Drafts     ports.DraftRepository
	Classifier ports.Classifier
	Tracker    *retry.Tracker
	Logger     *slog.Logger
}

// NewAnalyzer constructs the per-article orchestrator.
func NewAnalyzer(deps AnalyzerDeps) *Analyzer {
	return &Analyzer{
		articles:   deps.Articles,
		drafts:     deps.Drafts,
		classifier: deps.Classifier,
		tracker:    deps.Tracker,
		logger:     deps.Logger,
	}
}

// BatchResult aggregates the outcome of one analysis batch.
type BatchResult struct {
	Analyzed int
	Errors   int
	Failures []string
}

// ProcessBatch selects the limit oldest pending non-duplicate articles and
// analyzes them sequentially. Individual failures are collected, never
// propagated, so one bad article cannot sink the batch.
func (a *Analyzer) ProcessBatch(ctx context.Context, limit int) (BatchResult, error) {
	if a.classifier == nil {
		return BatchResult{}, fmt.Errorf("no classifier configured")
	}

	articles, err := a.articles.ListPendingNonDuplicates(ctx, limit)
	if err != nil {
		return BatchResult{}, fmt.Errorf("select analysis batch: %w", err)
	}

	var result BatchResult
	for _, article := range articles {
		if err := a.ProcessArticle(ctx, article); err != nil {
			result.Errors++
			result.Failures = append(result.Failures,
				fmt.Sprintf("article %d: %v", article.ID, err))
			continue
		}
		result.Analyzed++
	}

	a.debug("analysis batch done", "analyzed", result.Analyzed, "errors", result.Errors)
	return result, nil
}

// ProcessArticle runs screening, optional content generation, and optional
// terminology extraction for one article. Terminal failure marks the
// article errored and returns the failure to the caller.
func (a *Analyzer) ProcessArticle(ctx context.Context, article domain.Article) error {
	if a.classifier == nil {
		return fmt.Errorf("no classifier configured")
	}
	if article.IsDuplicate {
		return fmt.Errorf("article %d is flagged duplicate", article.ID)
	}

	if err := a.articles.UpdateStatus(ctx, article.ID, domain.StatusScreening, ""); err != nil {
		return fmt.Errorf("enter screening: %w", err)
	}

	screening, err := retry.Do(ctx, a.tracker, a.analysisKey(article.ID),
		func(ctx context.Context) (domain.ScreeningResult, error) {
			return a.classifier.ScreenArticle(ctx, article)
		})
	if err != nil {
		return a.fail(ctx, article.ID, fmt.Errorf("screening: %w", err))
	}

	a.debug("screening done",
		"article_id", article.ID,
		"relevance", screening.RelevanceScore,
		"milestone_worthy", screening.MilestoneWorthy,
		"new_terminology", screening.HasNewTerminology)

	if !screening.MilestoneWorthy {
		return a.complete(ctx, article.ID)
	}

	if err := a.articles.UpdateStatus(ctx, article.ID, domain.StatusGenerating, ""); err != nil {
		return a.fail(ctx, article.ID, fmt.Errorf("enter generating: %w", err))
	}

	if err := a.generateContent(ctx, article, screening); err != nil {
		return a.fail(ctx, article.ID, err)
	}

	if screening.HasNewTerminology {
		if err := a.extractTerminology(ctx, article); err != nil {
			return a.fail(ctx, article.ID, err)
		}
	}

	return a.complete(ctx, article.ID)
}

// generateContent runs the expensive generation call and persists both
// payloads, valid or not, as pending drafts for human review.
func (a *Analyzer) generateContent(ctx context.Context, article domain.Article, screening domain.ScreeningResult) error {
	content, err := retry.Do(ctx, a.tracker, a.analysisKey(article.ID),
		func(ctx context.Context) (domain.GeneratedContent, error) {
			return a.classifier.GenerateContent(ctx, article, screening)
		})
	if err != nil {
		return fmt.Errorf("content generation: %w", err)
	}

	if content.Milestone != nil {
		draft := buildDraft(article.ID, domain.ContentMilestone, *content.Milestone,
			validateMilestone(*content.Milestone))
		if err := a.drafts.SaveDraft(ctx, draft); err != nil {
			return fmt.Errorf("save milestone draft: %w", err)
		}
	}

	draft := buildDraft(article.ID, domain.ContentNewsEvent, content.NewsEvent,
		validateNewsEvent(content.NewsEvent))
	if err := a.drafts.SaveDraft(ctx, draft); err != nil {
		return fmt.Errorf("save news event draft: %w", err)
	}

	return nil
}

// extractTerminology pulls candidate terms, drops ones already in the
// glossary (case-insensitive), and persists each survivor as its own draft.
func (a *Analyzer) extractTerminology(ctx context.Context, article domain.Article) error {
	terms, err := retry.Do(ctx, a.tracker, a.analysisKey(article.ID),
		func(ctx context.Context) ([]domain.TermPayload, error) {
			return a.classifier.ExtractTerms(ctx, article)
		})
	if err != nil {
		return fmt.Errorf("terminology extraction: %w", err)
	}
	if len(terms) == 0 {
		return nil
	}

	existing, err := a.drafts.ExistingTermNames(ctx)
	if err != nil {
		return fmt.Errorf("load existing terms: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		known[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}

	for _, term := range terms {
		if _, ok := known[strings.ToLower(strings.TrimSpace(term.Term))]; ok {
			continue
		}
		draft := buildDraft(article.ID, domain.ContentGlossaryTerm, term, validateTerm(term))
		if err := a.drafts.SaveDraft(ctx, draft); err != nil {
			return fmt.Errorf("save term draft %q: %w", term.Term, err)
		}
	}

	return nil
}

// Reset returns an errored article to pending for reattempt. This is the
// externally triggered recovery path.
func (a *Analyzer) Reset(ctx context.Context, articleID int64) error {
	return a.articles.ResetToPending(ctx, articleID)
}

func (a *Analyzer) analysisKey(articleID int64) retry.Options {
	id := articleID
	return retry.Options{
		Type:      domain.ErrorAnalysis,
		ArticleID: &id,
	}
}

func (a *Analyzer) complete(ctx context.Context, articleID int64) error {
	if err := a.articles.UpdateStatus(ctx, articleID, domain.StatusComplete, ""); err != nil {
		return fmt.Errorf("mark complete: %w", err)
	}
	return nil
}

func (a *Analyzer) fail(ctx context.Context, articleID int64, cause error) error {
	if err := a.articles.UpdateStatus(ctx, articleID, domain.StatusError, cause.Error()); err != nil {
		a.debug("mark error failed", "article_id", articleID, "error", err)
	}
	return cause
}

func (a *Analyzer) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}

func buildDraft(articleID int64, contentType domain.ContentType, payload any, problems []string) domain.ContentDraft {
	return domain.ContentDraft{
		ArticleID:        articleID,
		Type:             contentType,
		Payload:          payload,
		Valid:            len(problems) == 0,
		ValidationErrors: problems,
		Status:           domain.DraftPending,
	}
}

// validateMilestone checks structural requirements; failures do not block
// persistence, they just mark the draft for human correction.
func validateMilestone(m domain.MilestonePayload) []string {
	var problems []string
	if strings.TrimSpace(m.Title) == "" {
		problems = append(problems, "title is required")
	}
	if strings.TrimSpace(m.Description) == "" {
		problems = append(problems, "description is required")
	}
	if !validDate(m.Date) {
		problems = append(problems, "date must be YYYY-MM-DD")
	}
	return problems
}

func validateNewsEvent(e domain.NewsEventPayload) []string {
	var problems []string
	if strings.TrimSpace(e.Headline) == "" {
		problems = append(problems, "headline is required")
	}
	if strings.TrimSpace(e.Summary) == "" {
		problems = append(problems, "summary is required")
	}
	if !validDate(e.EventDate) {
		problems = append(problems, "eventDate must be YYYY-MM-DD")
	}
	return problems
}

func validateTerm(t domain.TermPayload) []string {
	var problems []string
	if strings.TrimSpace(t.Definition) == "" {
		problems = append(problems, "definition is required")
	}
	return problems
}

func validDate(value string) bool {
	_, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	return err == nil
}
