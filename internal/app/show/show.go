package show

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/storage"
)

// LatestRunID selects the newest stored run.
const LatestRunID = "latest"

// ServiceConfig is the configuration for the show service.
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

// Service retrieves a stored verification run.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new show service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the show request parameters.
type Request struct {
	// RunID is the run ID or LatestRunID.
	RunID string
}

// Run retrieves a run by ID. IDs are ULIDs so the lookup is case insensitive.
func (s *Service) Run(ctx context.Context, req Request) (*model.Run, error) {
	id := strings.TrimSpace(req.RunID)
	if id == "" {
		return nil, fmt.Errorf("run id is required: %w", model.ErrNotValid)
	}

	if strings.EqualFold(id, LatestRunID) {
		runs, err := s.repo.ListRuns(ctx, model.RunListOpts{Limit: 1})
		if err != nil {
			return nil, fmt.Errorf("could not list runs: %w", err)
		}
		if len(runs) == 0 {
			return nil, fmt.Errorf("no runs stored: %w", model.ErrNotFound)
		}
		return &runs[0], nil
	}

	s.logger.Debugf("getting run: %s", id)
	run, err := s.repo.GetRun(ctx, strings.ToUpper(id))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("run not found: %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get run: %w", err)
	}

	return run, nil
}
