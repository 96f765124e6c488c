package verify

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/zhoujuxi2028/consoleqa/internal/conventions"
	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/probe"
)

// DefaultLogTailLines is the number of update log lines the log level inspects.
const DefaultLogTailLines = 200

// LevelConfig is the check set of a verification level.
type LevelConfig struct {
	Level   model.Level
	Enabled bool
	// Prepare runs before the level checks (e.g: navigating to the page the checks read),
	// when it fails the level is reported as a single failed check.
	Prepare func(ctx context.Context) error
	Checks  []Check
}

// Navigator is the console navigation the UI checks need.
type Navigator interface {
	Run(ctx context.Context, recipe model.NavigationRecipe) error
	ExtractText(ctx context.Context, contextName string) (string, error)
}

// Config is the aggregator configuration.
type Config struct {
	// Navigator reads the console, UI checks are not available without it.
	Navigator Navigator
	// Probe reads the appliance, backend, log and business checks are not available without it.
	Probe probe.Probe
	// Reach, when set, runs before any level. If the system can't be reached the
	// verification fails instead of returning a report.
	Reach func(ctx context.Context) error
	// Components resolves the component catalog entries, defaults to the built-in catalog.
	Components func(id string) (model.Component, error)
	// Levels are the levels the composite verifications run, defaults to all.
	Levels       []model.Level
	LogTailLines int
	Logger       log.Logger
}

func (c *Config) defaults() error {
	if c.Components == nil {
		c.Components = conventions.Component
	}
	if len(c.Levels) == 0 {
		c.Levels = model.Levels()
	}
	for _, l := range c.Levels {
		if !l.Valid() {
			return fmt.Errorf("unknown level %q: %w", l, model.ErrNotValid)
		}
	}
	if c.LogTailLines <= 0 {
		c.LogTailLines = DefaultLogTailLines
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "verify.Aggregator"})

	return nil
}

// Aggregator runs verification levels and builds their report.
type Aggregator struct {
	nav          Navigator
	facts        *probe.Facts
	reach        func(ctx context.Context) error
	components   func(id string) (model.Component, error)
	levels       []model.Level
	logTailLines int
	logger       log.Logger
	now          func() time.Time
}

// NewAggregator returns a new aggregator.
func NewAggregator(cfg Config) (*Aggregator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &Aggregator{
		nav:          cfg.Navigator,
		reach:        cfg.Reach,
		components:   cfg.Components,
		levels:       cfg.Levels,
		logTailLines: cfg.LogTailLines,
		logger:       cfg.Logger,
		now:          time.Now,
	}
	if cfg.Probe != nil {
		a.facts = probe.NewFacts(cfg.Probe, cfg.Logger)
	}

	return a, nil
}

// Verify runs the enabled levels in UI, backend, log, business order and returns a
// report with one result per enabled level. Failed checks never stop the verification,
// only an unreachable system does.
func (a *Aggregator) Verify(ctx context.Context, levels []LevelConfig) (*model.VerificationReport, error) {
	var enabled []LevelConfig
	seen := map[model.Level]bool{}
	for _, l := range levels {
		if !l.Enabled {
			continue
		}
		if !l.Level.Valid() {
			return nil, fmt.Errorf("unknown level %q: %w", l.Level, model.ErrNotValid)
		}
		if seen[l.Level] {
			return nil, fmt.Errorf("level %q configured more than once: %w", l.Level, model.ErrNotValid)
		}
		seen[l.Level] = true
		enabled = append(enabled, l)
	}
	slices.SortStableFunc(enabled, func(x, y LevelConfig) int { return x.Level.Order() - y.Level.Order() })

	started := a.now()
	if err := a.checkReach(ctx); err != nil {
		return nil, err
	}

	report := a.run(ctx, enabled)
	report.StartedAt = started
	return report, nil
}

func (a *Aggregator) checkReach(ctx context.Context) error {
	if a.reach == nil {
		return nil
	}

	err := a.reach(ctx)
	if err == nil {
		return nil
	}
	var unreachable *model.UnreachableError
	if errors.As(err, &unreachable) {
		return err
	}
	return &model.UnreachableError{Target: "system under test", Err: err}
}

// run runs already validated and sorted levels.
func (a *Aggregator) run(ctx context.Context, enabled []LevelConfig) *model.VerificationReport {
	started := a.now()
	results := make([]model.VerificationResult, 0, len(enabled))
	for _, l := range enabled {
		res := a.runLevel(ctx, l)
		if !res.Passed {
			a.logger.Warningf("Level %s failed %d checks", l.Level, len(res.Failed()))
		} else {
			a.logger.Debugf("Level %s passed", l.Level)
		}
		results = append(results, res)
	}

	report := model.NewVerificationReport(results)
	report.Kind = model.VerificationKindCustom
	report.StartedAt = started
	report.FinishedAt = a.now()

	return &report
}

func (a *Aggregator) runLevel(ctx context.Context, l LevelConfig) model.VerificationResult {
	if l.Prepare != nil {
		if err := l.Prepare(ctx); err != nil {
			a.logger.Warningf("Level %s could not be reached: %s", l.Level, err)
			return model.NewVerificationResult(l.Level, []model.CheckOutcome{{
				Name:     fmt.Sprintf("%s level reachable", l.Level),
				Level:    l.Level,
				Expected: "reachable",
				Actual:   errorValue(err),
			}})
		}
	}

	outcomes := make([]model.CheckOutcome, 0, len(l.Checks))
	for _, c := range l.Checks {
		out := c.run(ctx, l.Level)
		if !out.Passed {
			a.logger.Debugf("Check %q failed: expected %q, got %q", c.Name, out.Expected, out.Actual)
		}
		outcomes = append(outcomes, out)
	}

	return model.NewVerificationResult(l.Level, outcomes)
}

func (a *Aggregator) levelEnabled(l model.Level) bool {
	return slices.Contains(a.levels, l)
}
