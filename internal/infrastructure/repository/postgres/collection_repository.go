package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/advanced-rag/fusion-engine/internal/core/domain"
)

// CollectionRepository is the read side of the collection registry. Rows are
// written by the ingestion service that owns the collections; this service
// only resolves and validates them.
type CollectionRepository struct {
	db *sql.DB
}

func NewCollectionRepository(db *sql.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *CollectionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent api startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS collections (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	embedding_model TEXT NOT NULL,
	default_weight DOUBLE PRECISION NOT NULL DEFAULT 1,
	enabled BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_collections_enabled ON collections(enabled);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *CollectionRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Collection, error) {
	if len(ids) == 0 {
		return []domain.Collection{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
SELECT id, name, embedding_model, default_weight, enabled, created_at, updated_at
FROM collections
WHERE id IN (%s)
ORDER BY id
`, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get collections by ids: %w", err)
	}
	defer rows.Close()

	return scanCollections(rows)
}

func (r *CollectionRepository) List(ctx context.Context, enabledOnly bool) ([]domain.Collection, error) {
	query := `
SELECT id, name, embedding_model, default_weight, enabled, created_at, updated_at
FROM collections
`
	if enabledOnly {
		query += "WHERE enabled\n"
	}
	query += "ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	return scanCollections(rows)
}

func scanCollections(rows *sql.Rows) ([]domain.Collection, error) {
	out := make([]domain.Collection, 0)
	for rows.Next() {
		var c domain.Collection
		err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.EmbeddingModel,
			&c.DefaultWeight,
			&c.Enabled,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	return out, nil
}
