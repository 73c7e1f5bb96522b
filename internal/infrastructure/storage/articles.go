package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsHarvester/internal/domain"
)

var articleColumns = []string{
	"id", "source_id", "url", "title", "body", "published_at", "ingested_at",
	"status", "error_message", "analyzed_at",
	"is_duplicate", "duplicate_of_id", "duplicate_score", "duplicate_reason",
}

// BulkInsert stores articles, skipping rows whose URL already exists.
func (r *Repository) BulkInsert(ctx context.Context, articles []domain.Article) (int, int, error) {
	if len(articles) == 0 {
		return 0, 0, nil
	}

	insert := builder.
		Insert("articles").
		Columns("source_id", "url", "title", "body", "published_at", "ingested_at", "status").
		Suffix("ON CONFLICT (url) DO NOTHING")

	for _, article := range articles {
		insert = insert.Values(
			article.SourceID,
			article.URL,
			article.Title,
			article.Body,
			article.PublishedAt,
			article.IngestedAt,
			string(domain.StatusPending),
		)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return 0, 0, fmt.Errorf("build bulk insert: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, 0, fmt.Errorf("bulk insert articles: %w", err)
	}

	created64, err := result.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("bulk insert rows affected: %w", err)
	}
	created := int(created64)

	return created, len(articles) - created, nil
}

// ListIngestedSince returns non-duplicate articles ingested at or after the
// given time, for a duplicate-detection pass.
func (r *Repository) ListIngestedSince(ctx context.Context, since time.Time) ([]domain.Article, error) {
	query, args, err := builder.
		Select(articleColumns...).
		From("articles").
		Where(sq.GtOrEq{"ingested_at": since}).
		Where(sq.Eq{"is_duplicate": false}).
		OrderBy("published_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build window query: %w", err)
	}

	return r.queryArticles(ctx, query, args)
}

// ListPendingNonDuplicates returns up to limit pending non-duplicate
// articles, oldest ingested first.
func (r *Repository) ListPendingNonDuplicates(ctx context.Context, limit int) ([]domain.Article, error) {
	query, args, err := builder.
		Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"status": string(domain.StatusPending)}).
		Where(sq.Eq{"is_duplicate": false}).
		OrderBy("ingested_at", "id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build pending query: %w", err)
	}

	return r.queryArticles(ctx, query, args)
}

// statusPredecessors restricts each transition to its legal source states,
// so two processes driving the same article cannot interleave updates.
var statusPredecessors = map[domain.AnalysisStatus][]string{
	domain.StatusScreening:  {string(domain.StatusPending)},
	domain.StatusGenerating: {string(domain.StatusScreening)},
	domain.StatusComplete:   {string(domain.StatusScreening), string(domain.StatusGenerating)},
	domain.StatusError:      {string(domain.StatusScreening), string(domain.StatusGenerating)},
}

// UpdateStatus moves an article through its analysis lifecycle. The update
// is a compare-and-set against the legal predecessor states; losing a race
// surfaces as an error. StatusComplete stamps analyzed_at.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status domain.AnalysisStatus, message string) error {
	from, ok := statusPredecessors[status]
	if !ok {
		return fmt.Errorf("status %s is not a valid transition target", status)
	}

	update := builder.
		Update("articles").
		Set("status", string(status)).
		Set("error_message", message).
		Where(sq.Eq{"id": id, "status": from, "is_duplicate": false})

	if status == domain.StatusComplete {
		update = update.Set("analyzed_at", sq.Expr("NOW()"))
	}

	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build status update: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update article %d status: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("status update rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("article %d is not eligible to enter %s", id, status)
	}
	return nil
}

// MarkDuplicate flags a match's duplicate article with its primary pointer,
// score, and reason.
func (r *Repository) MarkDuplicate(ctx context.Context, match domain.DuplicateMatch) error {
	query, args, err := builder.
		Update("articles").
		Set("is_duplicate", true).
		Set("duplicate_of_id", match.PrimaryID).
		Set("duplicate_score", match.Score).
		Set("duplicate_reason", string(match.Reason)).
		Where(sq.Eq{"id": match.DuplicateID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build duplicate update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark duplicate %d: %w", match.DuplicateID, err)
	}
	return nil
}

// ResetToPending returns an errored article to pending for reattempt.
func (r *Repository) ResetToPending(ctx context.Context, id int64) error {
	query, args, err := builder.
		Update("articles").
		Set("status", string(domain.StatusPending)).
		Set("error_message", "").
		Where(sq.Eq{"id": id, "status": string(domain.StatusError)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build reset update: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("reset article %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reset rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("article %d is not in error state", id)
	}
	return nil
}

func (r *Repository) queryArticles(ctx context.Context, query string, args []any) ([]domain.Article, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var (
			article    domain.Article
			errMsg     sql.NullString
			analyzedAt sql.NullTime
			dupOfID    sql.NullInt64
			dupScore   sql.NullFloat64
			dupReason  sql.NullString
		)
		err := rows.Scan(
			&article.ID,
			&article.SourceID,
			&article.URL,
			&article.Title,
			&article.Body,
			&article.PublishedAt,
			&article.IngestedAt,
			&article.Status,
			&errMsg,
			&analyzedAt,
			&article.IsDuplicate,
			&dupOfID,
			&dupScore,
			&dupReason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		article.ErrorMessage = errMsg.String
		article.AnalyzedAt = scanNullableTime(analyzedAt)
		article.DuplicateOfID = scanNullableID(dupOfID)
		article.DuplicateScore = dupScore.Float64
		article.DuplicateReason = domain.MatchReason(dupReason.String)
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("articles iteration: %w", err)
	}

	return articles, nil
}
