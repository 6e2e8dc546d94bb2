package domain

import (
	"context"
	"time"
)

// OperatorSettings is the per-operator grouping configuration.
type OperatorSettings struct {
	Operator               string
	UngroupedMarketTypeIDs []string
	UpdatedAt              time.Time
}

// OperatorSettingsStore reads operator grouping configuration.
type OperatorSettingsStore interface {
	Get(ctx context.Context, operator string) (OperatorSettings, error)
	Upsert(ctx context.Context, s OperatorSettings) error
	List(ctx context.Context) ([]OperatorSettings, error)
}
