package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pagelens/pagelens/internal/models"
)

var ErrNotFound = errors.New("extraction not found")

// ExtractionSummary is the listing shape: metadata without the record set.
type ExtractionSummary struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExtractionStore persists extraction result sets. The scraping core never
// inspects persisted state; this is a collaborator behind the API layer.
type ExtractionStore struct {
	db    *DB
	cache *Cache
}

func NewExtractionStore(db *DB, cache *Cache) *ExtractionStore {
	return &ExtractionStore{db: db, cache: cache}
}

// Insert stores an extraction and returns its generated id.
func (s *ExtractionStore) Insert(ctx context.Context, e *models.Extraction) (string, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal records: %w", err)
	}

	e.ID = uuid.NewString()

	query := `
		INSERT INTO extractions (id, url, title, selectors, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err = s.db.pool.QueryRow(ctx, query,
		e.ID, e.URL, e.Title, e.Selectors, data,
	).Scan(&e.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert extraction: %w", err)
	}

	if s.cache != nil {
		s.cache.Put(ctx, e)
	}
	return e.ID, nil
}

// Get retrieves one extraction by id, consulting the read cache first.
func (s *ExtractionStore) Get(ctx context.Context, id string) (*models.Extraction, error) {
	if s.cache != nil {
		if e, ok := s.cache.Get(ctx, id); ok {
			return e, nil
		}
	}

	query := `
		SELECT id, url, title, selectors, data, created_at
		FROM extractions
		WHERE id = $1`

	e := &models.Extraction{}
	var data []byte
	err := s.db.pool.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.URL, &e.Title, &e.Selectors, &data, &e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get extraction: %w", err)
	}

	if err := json.Unmarshal(data, &e.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal records: %w", err)
	}

	if s.cache != nil {
		s.cache.Put(ctx, e)
	}
	return e, nil
}

// List returns a page of extraction summaries, newest first, plus the total.
func (s *ExtractionStore) List(ctx context.Context, page, limit int) ([]ExtractionSummary, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	query := `
		SELECT id, url, title, created_at
		FROM extractions
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2`

	rows, err := s.db.pool.Query(ctx, query, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list extractions: %w", err)
	}
	defer rows.Close()

	summaries := []ExtractionSummary{}
	for rows.Next() {
		var sum ExtractionSummary
		if err := rows.Scan(&sum.ID, &sum.URL, &sum.Title, &sum.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan extraction: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read extractions: %w", err)
	}

	var total int
	if err := s.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM extractions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count extractions: %w", err)
	}

	return summaries, total, nil
}

// Delete removes one extraction by id.
func (s *ExtractionStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM extractions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete extraction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
	return nil
}
