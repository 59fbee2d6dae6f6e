// Package pgvector implements the vector.Index contract on top of a
// Postgres table with a pgvector embedding column.
package pgvector

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/podlove/podlove-backend/internal/vector"
)

// metadata filter keys exposed to callers, mapped to table columns.
var filterColumns = map[string]string{
	"gender":          "gender",
	"age":             "age",
	"bodyType":        "body_type",
	"ethnicity":       "ethnicity",
	"isPodcastActive": "is_podcast_active",
	"name":            "name",
}

type Index struct {
	db        *sqlx.DB
	dimension int
}

func NewIndex(db *sqlx.DB, dimension int) *Index {
	return &Index{db: db, dimension: dimension}
}

func (i *Index) Upsert(ctx context.Context, rec vector.Record) error {
	if len(rec.Values) != i.dimension {
		return fmt.Errorf("embedding dimension %d does not match index dimension %d", len(rec.Values), i.dimension)
	}

	query := `
		INSERT INTO user_embeddings (
			user_id, embedding, name, gender, age, body_type, ethnicity,
			latitude, longitude, is_podcast_active, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			name = EXCLUDED.name,
			gender = EXCLUDED.gender,
			age = EXCLUDED.age,
			body_type = EXCLUDED.body_type,
			ethnicity = EXCLUDED.ethnicity,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			is_podcast_active = EXCLUDED.is_podcast_active,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := i.db.ExecContext(ctx, query,
		rec.ID, pgv.NewVector(rec.Values),
		rec.Metadata.Name, rec.Metadata.Gender, rec.Metadata.Age,
		rec.Metadata.BodyType, rec.Metadata.Ethnicity,
		rec.Metadata.Latitude, rec.Metadata.Longitude, rec.Metadata.IsPodcastActive,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

func (i *Index) Delete(ctx context.Context, id int) error {
	_, err := i.db.ExecContext(ctx, `DELETE FROM user_embeddings WHERE user_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete embedding: %w", err)
	}
	return nil
}

// SetActive rewrites the stored podcast flag in place. Updating a user
// who has no index row yet is a no-op; the flag lands with their next
// full sync.
func (i *Index) SetActive(ctx context.Context, id int, active bool) error {
	_, err := i.db.ExecContext(ctx,
		`UPDATE user_embeddings SET is_podcast_active = $2, updated_at = CURRENT_TIMESTAMP WHERE user_id = $1`,
		id, active)
	if err != nil {
		return fmt.Errorf("failed to update embedding flag: %w", err)
	}
	return nil
}

func (i *Index) Exists(ctx context.Context, id int) (bool, error) {
	var exists bool
	err := i.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM user_embeddings WHERE user_id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("failed to check embedding: %w", err)
	}
	return exists, nil
}

// Query runs a cosine nearest-neighbor search restricted by the metadata
// filter. Score is 1 - cosine distance, so higher is more similar.
func (i *Index) Query(ctx context.Context, values []float32, filter vector.Filter, topK int) ([]vector.Match, error) {
	if len(values) != i.dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(values), i.dimension)
	}

	query := `
		SELECT user_id, 1 - (embedding <=> $1) AS score,
		       name, gender, age, body_type, ethnicity,
		       latitude, longitude, is_podcast_active
		FROM user_embeddings
		WHERE 1=1
	`
	args := []interface{}{pgv.NewVector(values)}
	argCount := 2

	for key, val := range filter.Equals {
		col, ok := filterColumns[key]
		if !ok {
			return nil, fmt.Errorf("unknown metadata filter field %q", key)
		}
		query += fmt.Sprintf(" AND %s = $%d", col, argCount)
		args = append(args, val)
		argCount++
	}
	for key, vals := range filter.In {
		col, ok := filterColumns[key]
		if !ok {
			return nil, fmt.Errorf("unknown metadata filter field %q", key)
		}
		if len(vals) == 0 {
			continue
		}
		query += fmt.Sprintf(" AND %s = ANY($%d)", col, argCount)
		args = append(args, pq.Array(vals))
		argCount++
	}

	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", argCount)
	args = append(args, topK)

	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var matches []vector.Match
	for rows.Next() {
		var m vector.Match
		if err := rows.Scan(
			&m.ID, &m.Score,
			&m.Metadata.Name, &m.Metadata.Gender, &m.Metadata.Age,
			&m.Metadata.BodyType, &m.Metadata.Ethnicity,
			&m.Metadata.Latitude, &m.Metadata.Longitude, &m.Metadata.IsPodcastActive,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read matches: %w", err)
	}
	return matches, nil
}
