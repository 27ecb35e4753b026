package source

import (
	"context"

	"hhspend/internal/core"
)

// Ports for the data sources the dashboard can be built from.
type (
	// ForestLoader builds the expenditure category forest.
	ForestLoader interface {
		LoadForest(ctx context.Context) (*core.Forest, error)
	}

	// MultiplierReader returns the estimator multiplier tables. A source
	// without multiplier data returns empty tables, not an error.
	MultiplierReader interface {
		ReadMultipliers(ctx context.Context) (core.Multipliers, error)
	}

	// Dataset is a source that provides both.
	Dataset interface {
		ForestLoader
		MultiplierReader
	}
)
