package store

import (
	"context"
	"fmt"
)

// SaveTonal writes one tonal-analysis report keyed by file name.
func (s *Store) SaveTonal(ctx context.Context, fileName string, data []byte, inputTokens, outputTokens int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tonal_analysis (file_name, data, input_token, output_token, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		fileName, data, inputTokens, outputTokens,
	)
	if err != nil {
		return fmt.Errorf("save tonal analysis: %w", err)
	}
	return nil
}
