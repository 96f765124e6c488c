package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/storage"
)

// DefaultLimit is the number of runs listed when no limit is requested.
const DefaultLimit = 20

// ServiceConfig is the configuration for the history service.
type ServiceConfig struct {
	Repository storage.Repository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service lists the stored verification runs.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new history service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the history request parameters.
type Request struct {
	ComponentID string
	Kind        model.VerificationKind
	// OnlyFailed filters out the passed runs.
	OnlyFailed bool
	// Limit of 0 uses DefaultLimit, negative lists all.
	Limit int
}

// Run lists the runs newest first.
func (s *Service) Run(ctx context.Context, req Request) ([]model.Run, error) {
	opts := model.RunListOpts{Limit: req.Limit}
	if req.ComponentID != "" {
		id := strings.ToUpper(req.ComponentID)
		opts.ComponentID = &id
	}
	if req.Kind != "" {
		opts.Kind = &req.Kind
	}
	if opts.Limit == 0 {
		opts.Limit = DefaultLimit
	}
	// The failed filter is applied after listing, so the limit can't be pushed down.
	if req.OnlyFailed {
		opts.Limit = 0
	}

	s.logger.Debugf("listing runs with options: %+v", req)
	runs, err := s.repo.ListRuns(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("could not list runs: %w", err)
	}

	if req.OnlyFailed {
		failed := make([]model.Run, 0, len(runs))
		for _, r := range runs {
			if !r.Report.OverallPassed {
				failed = append(failed, r)
			}
		}
		runs = failed

		limit := req.Limit
		if limit == 0 {
			limit = DefaultLimit
		}
		if limit > 0 && len(runs) > limit {
			runs = runs[:limit]
		}
	}

	return runs, nil
}
