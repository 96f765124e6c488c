package facts

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/zhoujuxi2028/consoleqa/internal/conventions"
	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/storage"
)

// Collector captures the appliance facts.
type Collector interface {
	SystemInfo(ctx context.Context) ([]model.SystemFact, error)
	ComponentVersions(ctx context.Context, cs []model.Component) ([]model.SystemFact, error)
	ServiceState(ctx context.Context, service string) (model.SystemFact, error)
}

// ServiceConfig is the configuration for the facts service.
type ServiceConfig struct {
	// Collector is optional, without it only the stored facts are available.
	Collector  Collector
	Repository storage.Repository
	Components []model.Component
	Now        func() time.Time
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Components == nil {
		c.Components = conventions.Components()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Facts"})
	return nil
}

// Service returns the appliance facts, using the stored ones while they are fresh.
type Service struct {
	collector  Collector
	repo       storage.Repository
	components []model.Component
	now        func() time.Time
	logger     log.Logger
}

// NewService creates a new facts service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		collector:  cfg.Collector,
		repo:       cfg.Repository,
		components: cfg.Components,
		now:        cfg.Now,
		logger:     cfg.Logger,
	}, nil
}

// Request represents the facts request parameters.
type Request struct {
	// Refresh collects the facts even if the stored ones are fresh.
	Refresh bool
	// MaxAge is the age after which a stored fact is stale, zero never considers them stale.
	MaxAge time.Duration
}

// Result is the facts and where they come from.
type Result struct {
	Facts     []model.SystemFact
	Refreshed bool
}

// Run returns the facts sorted by key. The facts are collected and stored when requested,
// when there are none stored or when any of them is stale.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	stored, err := s.repo.ListFacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list stored facts: %w", err)
	}

	if !s.needsRefresh(stored, req) {
		s.logger.Debugf("Using %d stored facts", len(stored))
		return &Result{Facts: stored}, nil
	}

	if s.collector == nil {
		if req.Refresh || len(stored) == 0 {
			return nil, fmt.Errorf("appliance access is required to collect facts: %w", model.ErrNotValid)
		}
		s.logger.Warningf("Stored facts are stale and the appliance can't be reached")
		return &Result{Facts: stored}, nil
	}

	collected, err := s.collect(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveFacts(ctx, collected); err != nil {
		return nil, fmt.Errorf("could not store facts: %w", err)
	}
	s.logger.Infof("Collected %d facts", len(collected))

	// Stored facts that were not collected again are kept (e.g. removed components).
	byKey := map[string]model.SystemFact{}
	for _, f := range stored {
		byKey[f.Key] = f
	}
	for _, f := range collected {
		byKey[f.Key] = f
	}
	facts := make([]model.SystemFact, 0, len(byKey))
	for _, f := range byKey {
		facts = append(facts, f)
	}
	slices.SortFunc(facts, func(a, b model.SystemFact) int { return strings.Compare(a.Key, b.Key) })

	return &Result{Facts: facts, Refreshed: true}, nil
}

func (s *Service) needsRefresh(stored []model.SystemFact, req Request) bool {
	if req.Refresh || len(stored) == 0 {
		return true
	}
	now := s.now()
	return slices.ContainsFunc(stored, func(f model.SystemFact) bool { return f.IsStale(now, req.MaxAge) })
}

func (s *Service) collect(ctx context.Context) ([]model.SystemFact, error) {
	info, err := s.collector.SystemInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not collect system info: %w", err)
	}

	versions, err := s.collector.ComponentVersions(ctx, s.components)
	if err != nil {
		return nil, fmt.Errorf("could not collect component versions: %w", err)
	}

	service, err := s.collector.ServiceState(ctx, conventions.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("could not collect service state: %w", err)
	}

	facts := slices.Concat(info, versions, []model.SystemFact{service})
	return facts, nil
}
