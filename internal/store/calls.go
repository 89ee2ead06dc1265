package store

import (
	"context"
	"fmt"
)

// GeneralRow is the flattened per-call record on the general table. Token
// counters are the request totals (transcription + extraction).
type GeneralRow struct {
	FileName        string
	Domain          string
	Category        string
	AgentName       string
	CustomerName    string
	CallDirection   string
	InteractionType string
	Sentiment       string
	Intent          string
	TokensInput     int
	TokensOutput    int
	TotalTokens     int
}

// SaveCall writes the general row and its domain-specific payload in one
// transaction. Returns the generated call id, which keys the
// domain_specific row.
func (s *Store) SaveCall(ctx context.Context, row GeneralRow, domainJSON []byte) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var callID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO general (file_name, domain, category, agent_name, customer_name, call_direction, interaction_type, sentiment, intent, tokens_input, tokens_output, total_tokens, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		RETURNING id`,
		row.FileName, row.Domain, row.Category, row.AgentName, row.CustomerName,
		row.CallDirection, row.InteractionType, row.Sentiment, row.Intent,
		row.TokensInput, row.TokensOutput, row.TotalTokens,
	).Scan(&callID)
	if err != nil {
		return 0, fmt.Errorf("insert general row: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO domain_specific (call_id, data)
		VALUES ($1, $2)`,
		callID, domainJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("insert domain_specific row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	return callID, nil
}

// CallDetail is one stored call: the general row plus its domain-specific
// payload (nil when the call has none).
type CallDetail struct {
	ID             int64
	General        GeneralRow
	DomainSpecific []byte
}

// GetCall fetches a stored call by id. Returns pgx.ErrNoRows when unknown.
func (s *Store) GetCall(ctx context.Context, id int64) (*CallDetail, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT g.id, g.file_name, g.domain, g.category, g.agent_name, g.customer_name,
		       g.call_direction, g.interaction_type, g.sentiment, g.intent,
		       g.tokens_input, g.tokens_output, g.total_tokens, d.data
		FROM general g
		LEFT JOIN domain_specific d ON d.call_id = g.id
		WHERE g.id = $1`, id)

	var c CallDetail
	err := row.Scan(
		&c.ID, &c.General.FileName, &c.General.Domain, &c.General.Category,
		&c.General.AgentName, &c.General.CustomerName, &c.General.CallDirection,
		&c.General.InteractionType, &c.General.Sentiment, &c.General.Intent,
		&c.General.TokensInput, &c.General.TokensOutput, &c.General.TotalTokens,
		&c.DomainSpecific,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

type Stats struct {
	TotalCalls            int64
	DomainSpecificRecords int64
	StoredPrompts         int64
}

// Stats counts the stored rows per table.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM general`).Scan(&st.TotalCalls); err != nil {
		return nil, fmt.Errorf("count general: %w", err)
	}
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM domain_specific`).Scan(&st.DomainSpecificRecords); err != nil {
		return nil, fmt.Errorf("count domain_specific: %w", err)
	}
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM prompts`).Scan(&st.StoredPrompts); err != nil {
		return nil, fmt.Errorf("count prompts: %w", err)
	}
	return &st, nil
}
