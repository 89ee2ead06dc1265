package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetPrompt returns the stored extraction template for a pair, or "" when
// none exists.
func (s *Store) GetPrompt(ctx context.Context, domain, category string) (string, error) {
	var prompt string
	err := s.pool.QueryRow(ctx, `
		SELECT prompt FROM prompts WHERE domain = $1 AND category = $2`,
		domain, category,
	).Scan(&prompt)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("fetch prompt: %w", err)
	}
	return prompt, nil
}

// FetchExamplePrompts returns the templates stored under the given ids.
// Missing ids are simply absent from the map.
func (s *Store) FetchExamplePrompts(ctx context.Context, ids []int) (map[int]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, prompt FROM prompts WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch example prompts: %w", err)
	}
	defer rows.Close()

	examples := make(map[int]string)
	for rows.Next() {
		var id int
		var prompt string
		if err := rows.Scan(&id, &prompt); err != nil {
			return nil, fmt.Errorf("scan example prompt: %w", err)
		}
		examples[id] = prompt
	}
	return examples, rows.Err()
}

// SavePrompt stores a synthesized template. The first write for a pair
// wins, so the async write-back can retry freely.
func (s *Store) SavePrompt(ctx context.Context, domain, category, prompt string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO prompts (domain, category, prompt, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (domain, category) DO NOTHING`,
		domain, category, prompt,
	)
	if err != nil {
		return fmt.Errorf("save prompt: %w", err)
	}
	return nil
}

// ListDomainCategories returns every (domain, category) pair that has a
// stored prompt, for the registry's startup merge.
func (s *Store) ListDomainCategories(ctx context.Context) (map[string][]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT domain, category FROM prompts`)
	if err != nil {
		return nil, fmt.Errorf("list domain categories: %w", err)
	}
	defer rows.Close()

	pairs := make(map[string][]string)
	for rows.Next() {
		var domain, category string
		if err := rows.Scan(&domain, &category); err != nil {
			return nil, fmt.Errorf("scan domain category: %w", err)
		}
		pairs[domain] = append(pairs[domain], category)
	}
	return pairs, rows.Err()
}
