package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/marketgroups/internal/domain"
)

// OperatorSettingsStore implements domain.OperatorSettingsStore using
// PostgreSQL.
type OperatorSettingsStore struct {
	pool *pgxpool.Pool
}

// NewOperatorSettingsStore creates a new OperatorSettingsStore backed by the
// given connection pool.
func NewOperatorSettingsStore(pool *pgxpool.Pool) *OperatorSettingsStore {
	return &OperatorSettingsStore{pool: pool}
}

// Get retrieves the settings of one operator.
func (s *OperatorSettingsStore) Get(ctx context.Context, operator string) (domain.OperatorSettings, error) {
	const query = `
		SELECT operator, ungrouped_market_type_ids, updated_at
		FROM operator_settings
		WHERE operator = $1`

	var out domain.OperatorSettings
	err := s.pool.QueryRow(ctx, query, operator).Scan(
		&out.Operator, &out.UngroupedMarketTypeIDs, &out.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OperatorSettings{}, domain.ErrNotFound
		}
		return domain.OperatorSettings{}, fmt.Errorf("postgres: get operator settings %s: %w", operator, err)
	}
	return out, nil
}

// Upsert inserts or replaces the settings of one operator.
func (s *OperatorSettingsStore) Upsert(ctx context.Context, settings domain.OperatorSettings) error {
	ids := settings.UngroupedMarketTypeIDs
	if ids == nil {
		ids = []string{}
	}

	const query = `
		INSERT INTO operator_settings (operator, ungrouped_market_type_ids, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (operator) DO UPDATE SET
			ungrouped_market_type_ids = EXCLUDED.ungrouped_market_type_ids,
			updated_at                = NOW()`

	if _, err := s.pool.Exec(ctx, query, settings.Operator, ids); err != nil {
		return fmt.Errorf("postgres: upsert operator settings %s: %w", settings.Operator, err)
	}
	return nil
}

// List returns the settings of every operator, ordered by operator.
func (s *OperatorSettingsStore) List(ctx context.Context) ([]domain.OperatorSettings, error) {
	const query = `
		SELECT operator, ungrouped_market_type_ids, updated_at
		FROM operator_settings
		ORDER BY operator`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list operator settings: %w", err)
	}
	defer rows.Close()

	var out []domain.OperatorSettings
	for rows.Next() {
		var o domain.OperatorSettings
		if err := rows.Scan(&o.Operator, &o.UngroupedMarketTypeIDs, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan operator settings: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list operator settings rows: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.OperatorSettingsStore = (*OperatorSettingsStore)(nil)
