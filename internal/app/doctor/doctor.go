package doctor

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/zhoujuxi2028/consoleqa/internal/conventions"
	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/navigator"
	"github.com/zhoujuxi2028/consoleqa/internal/probe"
)

// Check IDs.
const (
	CheckConsoleLogin      = "console_login"
	CheckFrameStructure    = "frame_structure"
	CheckSystemUpdatesPage = "system_updates_page"
	CheckUIKernelVersion   = "ui_kernel_version"
	CheckSSH               = "ssh"
	CheckINIFile           = "ini_file"
	CheckService           = "service"
)

// Console is the console access the checks need.
type Console interface {
	FrameStructure(ctx context.Context) ([]string, error)
	Run(ctx context.Context, recipe model.NavigationRecipe) error
	ExtractText(ctx context.Context, contextName string) (string, error)
}

// ServiceConfig is the configuration for the doctor service.
type ServiceConfig struct {
	// Console and Connect are optional, console checks are skipped without them.
	Console Console
	// Connect opens the console session (e.g. logs in).
	Connect func(ctx context.Context) error
	// Probe is optional, appliance checks report a warning without it.
	Probe  probe.Probe
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Console == nil && c.Probe == nil {
		return fmt.Errorf("console or probe is required")
	}
	if c.Connect == nil {
		c.Connect = func(context.Context) error { return nil }
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Doctor"})
	return nil
}

// Service runs the preflight checks of the console and the appliance.
type Service struct {
	console Console
	connect func(ctx context.Context) error
	probe   probe.Probe
	facts   *probe.Facts
	logger  log.Logger
}

// NewService creates a new doctor service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Service{
		console: cfg.Console,
		connect: cfg.Connect,
		probe:   cfg.Probe,
		logger:  cfg.Logger,
	}
	if cfg.Probe != nil {
		s.facts = probe.NewFacts(cfg.Probe, cfg.Logger)
	}
	return s, nil
}

// Run runs all the checks, a failed check never stops the rest.
func (s *Service) Run(ctx context.Context) []model.CheckResult {
	var results []model.CheckResult
	results = append(results, s.consoleChecks(ctx)...)
	results = append(results, s.applianceChecks(ctx)...)

	ok, warnings, errs := model.CountByStatus(results)
	s.logger.Infof("Doctor checks: %d ok, %d warnings, %d errors", ok, warnings, errs)
	return results
}

func (s *Service) consoleChecks(ctx context.Context) []model.CheckResult {
	if s.console == nil {
		return []model.CheckResult{warning(CheckConsoleLogin, "console not configured")}
	}

	if err := s.connect(ctx); err != nil {
		return []model.CheckResult{failed(CheckConsoleLogin, err)}
	}
	results := []model.CheckResult{ok(CheckConsoleLogin, "console session opened")}

	frames, err := s.console.FrameStructure(ctx)
	switch {
	case err != nil:
		results = append(results, failed(CheckFrameStructure, err))
	default:
		var missing []string
		for _, f := range conventions.Frames() {
			if !slices.Contains(frames, f) {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			results = append(results, model.CheckResult{
				ID:      CheckFrameStructure,
				Status:  model.CheckStatusError,
				Message: fmt.Sprintf("missing frames %s (found %s)", strings.Join(missing, ", "), strings.Join(frames, ", ")),
			})
		} else {
			results = append(results, ok(CheckFrameStructure, "frames "+strings.Join(frames, ", ")))
		}
	}

	if err := s.console.Run(ctx, navigator.SystemUpdatesRecipe()); err != nil {
		return append(results, failed(CheckSystemUpdatesPage, err))
	}
	results = append(results, ok(CheckSystemUpdatesPage, "system updates page loaded"))

	text, err := s.console.ExtractText(ctx, conventions.FrameRight)
	if err != nil {
		return append(results, failed(CheckUIKernelVersion, err))
	}
	if kernel := conventions.KernelVersionRegexp.FindString(text); kernel != "" {
		results = append(results, ok(CheckUIKernelVersion, kernel))
	} else {
		results = append(results, warning(CheckUIKernelVersion, "kernel version not shown in system updates page"))
	}

	return results
}

func (s *Service) applianceChecks(ctx context.Context) []model.CheckResult {
	if s.probe == nil {
		return []model.CheckResult{warning(CheckSSH, "appliance access not configured")}
	}

	if err := probe.Ping(ctx, s.probe); err != nil {
		return []model.CheckResult{failed(CheckSSH, err)}
	}
	results := []model.CheckResult{ok(CheckSSH, "appliance answers commands")}

	values, err := s.facts.INIValues(ctx)
	if err != nil {
		results = append(results, failed(CheckINIFile, err))
	} else {
		results = append(results, ok(CheckINIFile, fmt.Sprintf("%s readable (%d keys)", conventions.INIFile, len(values))))
	}

	state, err := s.facts.ServiceState(ctx, conventions.ServiceName)
	switch {
	case err != nil:
		results = append(results, failed(CheckService, err))
	case state.Value != "active":
		results = append(results, model.CheckResult{
			ID:      CheckService,
			Status:  model.CheckStatusError,
			Message: fmt.Sprintf("%s service is %q", conventions.ServiceName, state.Value),
		})
	default:
		results = append(results, ok(CheckService, conventions.ServiceName+" service active"))
	}

	return results
}

func ok(id, msg string) model.CheckResult {
	return model.CheckResult{ID: id, Status: model.CheckStatusOK, Message: msg}
}

func warning(id, msg string) model.CheckResult {
	return model.CheckResult{ID: id, Status: model.CheckStatusWarning, Message: msg}
}

func failed(id string, err error) model.CheckResult {
	return model.CheckResult{ID: id, Status: model.CheckStatusError, Message: err.Error()}
}
