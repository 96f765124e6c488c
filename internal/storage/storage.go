// Package storage defines the persistence of verification runs and system facts.
package storage

//go:generate mockery --case underscore --output storagemock --outpkg storagemock --name Repository

import (
	"context"

	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

// Repository is the interface for verification runs and system facts persistence.
type Repository interface {
	CreateRun(ctx context.Context, r model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	// ListRuns returns the runs newest first.
	ListRuns(ctx context.Context, opts model.RunListOpts) ([]model.Run, error)
	// SaveFacts upserts facts by key.
	SaveFacts(ctx context.Context, facts []model.SystemFact) error
	// ListFacts returns the facts sorted by key.
	ListFacts(ctx context.Context) ([]model.SystemFact, error)
}
