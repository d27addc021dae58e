package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps every collection in a single documents table with a
// jsonb payload, so the filtered/ordered query surface works uniformly
// across entity kinds.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, collection string, doc interface{}) (string, error) {
	id := uuid.New().String()
	raw, err := withID(doc, id)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, doc)
		VALUES ($1, $2, $3)
	`, collection, id, raw)
	if err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return id, nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := s.pool.QueryRow(ctx, `
		SELECT doc FROM documents WHERE collection = $1 AND id = $2
	`, collection, id).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return raw, nil
}

func (s *PostgresStore) Query(ctx context.Context, collection string, filters []Filter, order *Order) ([]json.RawMessage, error) {
	query := "SELECT doc FROM documents WHERE collection = $1"
	args := []interface{}{collection}

	// Filter fields are internal constants (courseId, sessionId, date,
	// createdAt), never user input.
	for _, f := range filters {
		op := "="
		if f.Op == OpGte {
			op = ">="
		}
		args = append(args, f.Value)
		query += fmt.Sprintf(" AND doc->>'%s' %s $%d", f.Field, op, len(args))
	}

	if order != nil {
		dir := "ASC"
		if order.Desc {
			dir = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY doc->>'%s' %s", order.Field, dir)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var raw json.RawMessage
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s document: %w", collection, err)
		}
		docs = append(docs, raw)
	}
	return docs, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, patch map[string]interface{}) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("failed to encode patch: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET doc = doc || $3::jsonb
		WHERE collection = $1 AND id = $2
	`, collection, id, raw)
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM documents WHERE collection = $1 AND id = $2
	`, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *PostgresStore) BatchDelete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		DELETE FROM documents WHERE collection = $1 AND id = ANY($2)
	`, collection, ids)
	if err != nil {
		return fmt.Errorf("failed to batch delete from %s: %w", collection, err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
