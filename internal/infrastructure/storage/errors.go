package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsHarvester/internal/domain"
)

var errorColumns = []string{
	"id", "error_type", "source_id", "article_id", "message",
	"retry_count", "max_retries", "resolved", "created_at", "updated_at",
}

// FindUnresolved returns the unresolved record for the exact (type, source,
// article) key, or nil when none exists.
func (r *Repository) FindUnresolved(ctx context.Context, errType domain.ErrorType, sourceID, articleID *int64) (*domain.ErrorRecord, error) {
	query, args, err := builder.
		Select(errorColumns...).
		From("error_records").
		Where(sq.Eq{"error_type": string(errType), "resolved": false}).
		Where(sq.Expr("source_id IS NOT DISTINCT FROM ?", nullableID(sourceID))).
		Where(sq.Expr("article_id IS NOT DISTINCT FROM ?", nullableID(articleID))).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build unresolved query: %w", err)
	}

	row := r.db.QueryRowContext(ctx, query, args...)
	record, err := scanErrorRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan unresolved record: %w", err)
	}
	return &record, nil
}

// Create inserts a fresh error record with a zero retry count.
func (r *Repository) Create(ctx context.Context, record domain.ErrorRecord) error {
	query, args, err := builder.
		Insert("error_records").
		Columns("error_type", "source_id", "article_id", "message", "retry_count", "max_retries", "resolved").
		Values(
			string(record.Type),
			nullableID(record.SourceID),
			nullableID(record.ArticleID),
			record.Message,
			record.RetryCount,
			record.MaxRetries,
			false,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build error insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert error record: %w", err)
	}
	return nil
}

// IncrementRetry bumps the retry count and refreshes the message.
func (r *Repository) IncrementRetry(ctx context.Context, id int64, message string) error {
	query, args, err := builder.
		Update("error_records").
		Set("retry_count", sq.Expr("retry_count + 1")).
		Set("message", message).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build retry update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("increment retry %d: %w", id, err)
	}
	return nil
}

// ResolveFor resolves every unresolved record for the entity pair, across
// error types.
func (r *Repository) ResolveFor(ctx context.Context, sourceID, articleID *int64) error {
	query, args, err := builder.
		Update("error_records").
		Set("resolved", true).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"resolved": false}).
		Where(sq.Expr("source_id IS NOT DISTINCT FROM ?", nullableID(sourceID))).
		Where(sq.Expr("article_id IS NOT DISTINCT FROM ?", nullableID(articleID))).
		ToSql()
	if err != nil {
		return fmt.Errorf("build resolve update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("resolve records: %w", err)
	}
	return nil
}

// ResolveAll marks every unresolved record resolved.
func (r *Repository) ResolveAll(ctx context.Context) error {
	query, args, err := builder.
		Update("error_records").
		Set("resolved", true).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"resolved": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build resolve-all update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("resolve all records: %w", err)
	}
	return nil
}

// DeleteResolvedOlderThan prunes resolved records older than the given age.
func (r *Repository) DeleteResolvedOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)
	query, args, err := builder.
		Delete("error_records").
		Where(sq.Eq{"resolved": true}).
		Where(sq.Lt{"updated_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build prune delete: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune resolved records: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return deleted, nil
}

// Stats aggregates totals, unresolved counts by type, and the most recent n.
func (r *Repository) Stats(ctx context.Context, recent int) (domain.ErrorStats, error) {
	stats := domain.ErrorStats{UnresolvedByType: map[domain.ErrorType]int{}}

	countQuery, countArgs, err := builder.
		Select("COUNT(*)", "COUNT(*) FILTER (WHERE NOT resolved)").
		From("error_records").
		ToSql()
	if err != nil {
		return stats, fmt.Errorf("build count query: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&stats.Total, &stats.Unresolved); err != nil {
		return stats, fmt.Errorf("count error records: %w", err)
	}

	byTypeQuery, byTypeArgs, err := builder.
		Select("error_type", "COUNT(*)").
		From("error_records").
		Where(sq.Eq{"resolved": false}).
		GroupBy("error_type").
		ToSql()
	if err != nil {
		return stats, fmt.Errorf("build group-by query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, byTypeQuery, byTypeArgs...)
	if err != nil {
		return stats, fmt.Errorf("group error records: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var errType string
		var count int
		if err := rows.Scan(&errType, &count); err != nil {
			return stats, fmt.Errorf("scan group row: %w", err)
		}
		stats.UnresolvedByType[domain.ErrorType(errType)] = count
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("group iteration: %w", err)
	}

	if recent <= 0 {
		return stats, nil
	}

	recentQuery, recentArgs, err := builder.
		Select(errorColumns...).
		From("error_records").
		OrderBy("updated_at DESC").
		Limit(uint64(recent)).
		ToSql()
	if err != nil {
		return stats, fmt.Errorf("build recent query: %w", err)
	}
	recentRows, err := r.db.QueryContext(ctx, recentQuery, recentArgs...)
	if err != nil {
		return stats, fmt.Errorf("query recent records: %w", err)
	}
	defer recentRows.Close()
	for recentRows.Next() {
		record, err := scanErrorRecord(recentRows)
		if err != nil {
			return stats, fmt.Errorf("scan recent record: %w", err)
		}
		stats.Recent = append(stats.Recent, record)
	}
	if err := recentRows.Err(); err != nil {
		return stats, fmt.Errorf("recent iteration: %w", err)
	}

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanErrorRecord(row rowScanner) (domain.ErrorRecord, error) {
	var (
		record    domain.ErrorRecord
		sourceID  sql.NullInt64
		articleID sql.NullInt64
	)
	err := row.Scan(
		&record.ID,
		&record.Type,
		&sourceID,
		&articleID,
		&record.Message,
		&record.RetryCount,
		&record.MaxRetries,
		&record.Resolved,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return domain.ErrorRecord{}, err
	}
	record.SourceID = scanNullableID(sourceID)
	record.ArticleID = scanNullableID(articleID)
	return record, nil
}
