package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/zhoujuxi2028/consoleqa/internal/conventions"
	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/navigator"
	"github.com/zhoujuxi2028/consoleqa/internal/progress"
)

// Source is where the progress is read from.
type Source string

const (
	// SourceUI reads the progress shown in the console system updates page.
	SourceUI Source = "ui"
	// SourceLockFile reads the progress from the component lock file of the appliance.
	SourceLockFile Source = "lock"
)

// Navigator is the console navigation the monitor needs.
type Navigator interface {
	Run(ctx context.Context, recipe model.NavigationRecipe) error
	ExtractText(ctx context.Context, contextName string) (string, error)
}

// ServiceConfig is the configuration for the monitor service.
type ServiceConfig struct {
	// Navigator is required to trigger operations and to read the UI progress.
	Navigator Navigator
	// LockChecker is required to read the lock file progress.
	LockChecker  progress.LockChecker
	Components   func(id string) (model.Component, error)
	PollInterval time.Duration
	LogInterval  time.Duration
	Logger       log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Navigator == nil && c.LockChecker == nil {
		return fmt.Errorf("navigator or lock checker is required")
	}
	if c.Components == nil {
		c.Components = conventions.Component
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Monitor"})
	return nil
}

// Service triggers and monitors component updates and rollbacks.
type Service struct {
	nav          Navigator
	locks        progress.LockChecker
	components   func(id string) (model.Component, error)
	monitor      *progress.Monitor
	pollInterval time.Duration
	logInterval  time.Duration
	logger       log.Logger
}

// NewService creates a new monitor service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		nav:          cfg.Navigator,
		locks:        cfg.LockChecker,
		components:   cfg.Components,
		monitor:      progress.NewMonitor(cfg.Logger),
		pollInterval: cfg.PollInterval,
		logInterval:  cfg.LogInterval,
		logger:       cfg.Logger,
	}, nil
}

// Request represents the monitor request parameters.
type Request struct {
	ComponentID string
	Rollback    bool
	// Trigger starts the operation from the console before monitoring it.
	Trigger bool
	Source  Source
	// Timeout overrides the component operation timeout.
	Timeout  time.Duration
	OnChange func(model.ProgressState)
}

// Run monitors the component operation until it finishes. Failed and timed out
// operations return their terminal state and the monitor error.
func (s *Service) Run(ctx context.Context, req Request) (model.ProgressState, error) {
	idle := model.ProgressState{Phase: model.ProgressPhaseIdle}

	c, err := s.components(req.ComponentID)
	if err != nil {
		return idle, fmt.Errorf("could not get component: %w", err)
	}
	if req.Rollback && !c.RollbackSupported {
		return idle, fmt.Errorf("component %s does not support rollback: %w", c.ID, model.ErrNotValid)
	}

	timeout := c.UpdateTimeout
	if req.Rollback {
		timeout = c.RollbackTimeout
	}
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	reader, err := s.reader(ctx, c, req)
	if err != nil {
		return idle, err
	}

	op := "update"
	if req.Rollback {
		op = "rollback"
	}
	s.logger.Infof("Monitoring %s %s from %s (timeout %s)", c.ID, op, req.Source, timeout)

	state, err := s.monitor.Monitor(ctx, reader, progress.Options{
		Timeout:      timeout,
		PollInterval: s.pollInterval,
		LogInterval:  s.logInterval,
		OnChange:     req.OnChange,
	})
	if err != nil {
		return state, fmt.Errorf("%s %s did not complete: %w", c.ID, op, err)
	}

	s.logger.Infof("%s %s completed", c.ID, op)
	return state, nil
}

func (s *Service) reader(ctx context.Context, c model.Component, req Request) (progress.Reader, error) {
	switch req.Source {
	case SourceUI:
	case SourceLockFile:
		if s.locks == nil {
			return nil, fmt.Errorf("appliance access is required: %w", model.ErrNotValid)
		}
	default:
		return nil, fmt.Errorf("unknown progress source %q: %w", req.Source, model.ErrNotValid)
	}

	needsUI := req.Trigger || req.Source == SourceUI
	if needsUI && s.nav == nil {
		return nil, fmt.Errorf("console navigation is required: %w", model.ErrNotValid)
	}

	if needsUI {
		if err := s.nav.Run(ctx, navigator.SystemUpdatesRecipe()); err != nil {
			return nil, fmt.Errorf("could not open system updates: %w", err)
		}
	}

	if req.Trigger {
		recipe := navigator.TriggerUpdateRecipe()
		if req.Rollback {
			recipe = navigator.TriggerRollbackRecipe()
		}
		if err := s.nav.Run(ctx, recipe); err != nil {
			return nil, fmt.Errorf("could not trigger %s: %w", recipe.Name(), err)
		}
	}

	if req.Source == SourceLockFile {
		return progress.NewLockFileReader(s.locks, c), nil
	}
	return progress.NewUIReader(s.nav, conventions.FrameRight, nil, nil), nil
}
