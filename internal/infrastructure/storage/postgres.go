package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

// builder is the shared squirrel builder with Postgres placeholders.
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repository bundles all Postgres-backed persistence for the pipeline.
// All serialization of structured fields happens inside this package; the
// domain model never carries encoded strings.
type Repository struct {
	db *sql.DB
}

var (
	_ ports.SourceRepository  = (*Repository)(nil)
	_ ports.ArticleRepository = (*Repository)(nil)
	_ ports.DraftRepository   = (*Repository)(nil)
	_ ports.ErrorRepository   = (*Repository)(nil)
)

// NewRepository wires a sql.DB implementation.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListActive returns all sources enabled for harvesting.
func (r *Repository) ListActive(ctx context.Context) ([]domain.Source, error) {
	query, args, err := builder.
		Select("id", "name", "feed_url", "active", "created_at").
		From("sources").
		Where(sq.Eq{"active": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sources query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var src domain.Source
		if err := rows.Scan(&src.ID, &src.Name, &src.FeedURL, &src.Active, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sources iteration: %w", err)
	}

	return sources, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func scanNullableID(value sql.NullInt64) *int64 {
	if !value.Valid {
		return nil
	}
	v := value.Int64
	return &v
}

func scanNullableTime(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}
