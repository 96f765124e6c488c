package navigator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zhoujuxi2028/consoleqa/internal/browser"
	"github.com/zhoujuxi2028/consoleqa/internal/locator"
	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/synchronizer"
)

// Phase is the phase of a recipe run.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseStepping   Phase = "stepping"
	PhaseFailed     Phase = "failed"
	PhaseDone       Phase = "done"
)

// RunState is the state of the last recipe run.
type RunState struct {
	Recipe string
	Phase  Phase
	Step   int
}

// Config is the navigator configuration.
type Config struct {
	Driver browser.Driver
	// StepTimeout is the timeout of every wait, zero uses the synchronizer default.
	StepTimeout  time.Duration
	PollInterval time.Duration
	Logger       log.Logger
}

func (c *Config) defaults() error {
	if c.Driver == nil {
		return fmt.Errorf("driver is required")
	}
	if c.StepTimeout <= 0 {
		c.StepTimeout = synchronizer.DefaultTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = synchronizer.DefaultPollInterval
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "navigator.Navigator"})

	return nil
}

// Navigator runs navigation recipes over a frameset console.
type Navigator struct {
	driver  browser.Driver
	sync    *synchronizer.Synchronizer
	locator *locator.Locator
	stack   *Stack
	logger  log.Logger

	mu      sync.Mutex
	lastRun RunState
}

// New returns a new navigator.
func New(cfg Config) (*Navigator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s, err := synchronizer.New(synchronizer.Config{
		Driver:              cfg.Driver,
		DefaultTimeout:      cfg.StepTimeout,
		DefaultPollInterval: cfg.PollInterval,
		Logger:              cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create synchronizer: %w", err)
	}

	return &Navigator{
		driver:  cfg.Driver,
		sync:    s,
		locator: locator.New(cfg.Logger),
		stack:   &Stack{},
		logger:  cfg.Logger,
		lastRun: RunState{Phase: PhaseNotStarted},
	}, nil
}

// Run executes the recipe steps in order. A failed step stops the run, the error is
// annotated with the recipe name and step index.
func (n *Navigator) Run(ctx context.Context, recipe model.NavigationRecipe) error {
	if err := recipe.Validate(); err != nil {
		return fmt.Errorf("invalid recipe: %w", err)
	}

	logger := n.logger.WithValues(log.Kv{"recipe": recipe.Name()})
	n.setState(RunState{Recipe: recipe.Name(), Phase: PhaseNotStarted})

	for i, step := range recipe.Steps() {
		n.setState(RunState{Recipe: recipe.Name(), Phase: PhaseStepping, Step: i})
		logger.Debugf("Running step %d (context %q, click %q)", i, step.Context, step.Click)

		if err := n.runStep(ctx, step); err != nil {
			n.setState(RunState{Recipe: recipe.Name(), Phase: PhaseFailed, Step: i})
			logger.Warningf("Step %d failed: %s", i, err)
			return &model.NavigationError{Recipe: recipe.Name(), Step: i, Err: err}
		}
	}

	n.setState(RunState{Recipe: recipe.Name(), Phase: PhaseDone, Step: len(recipe.Steps())})
	logger.Debugf("Recipe done")

	return nil
}

func (n *Navigator) runStep(ctx context.Context, step model.NavigationStep) error {
	if step.Context != "" {
		leave := n.stack.Enter(step.Context)
		defer leave()
	}

	if step.Click != "" {
		current := n.stack.Current()

		// Menus are populated asynchronously, wait for the text before locating it.
		_, err := n.sync.WaitForContent(ctx, current, synchronizer.WaitOptions{
			Condition: textPresent(step.Click, step.CaseSensitive),
		})
		if err != nil {
			return err
		}

		frame, err := n.driver.Context(ctx, current)
		if err != nil {
			return fmt.Errorf("could not resolve context %q: %w", current, err)
		}

		if err := n.locator.ClickByText(ctx, frame, step.Click, locator.OptionsFromStep(step)); err != nil {
			return err
		}
	}

	if step.WaitContext != "" {
		cond, err := synchronizer.FromCondition(step.WaitFor)
		if err != nil {
			return err
		}

		if _, err := n.sync.WaitForContent(ctx, step.WaitContext, synchronizer.WaitOptions{Condition: cond}); err != nil {
			return err
		}
	}

	return nil
}

// ExtractText returns the text of a context once it has content, without navigating.
func (n *Navigator) ExtractText(ctx context.Context, contextName string) (string, error) {
	return n.sync.WaitForContent(ctx, contextName, synchronizer.WaitOptions{})
}

// WaitForText waits until a context text satisfies a condition and returns it.
func (n *Navigator) WaitForText(ctx context.Context, contextName string, cond model.TextCondition, timeout time.Duration) (string, error) {
	pred, err := synchronizer.FromCondition(cond)
	if err != nil {
		return "", err
	}
	return n.sync.WaitForContent(ctx, contextName, synchronizer.WaitOptions{Condition: pred, Timeout: timeout})
}

// Enter makes name the active browsing context until leave is called.
func (n *Navigator) Enter(name string) (leave func()) { return n.stack.Enter(name) }

// CurrentContext returns the active browsing context.
func (n *Navigator) CurrentContext() string { return n.stack.Current() }

// LastRun returns the state of the last recipe run.
func (n *Navigator) LastRun() RunState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastRun
}

// Driver returns the browser driver used by the navigator.
func (n *Navigator) Driver() browser.Driver { return n.driver }

func (n *Navigator) setState(s RunState) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lastRun = s
}

func textPresent(text string, caseSensitive bool) synchronizer.Predicate {
	want := locator.Normalize(text)
	if !caseSensitive {
		want = strings.ToLower(want)
	}
	return func(got string) bool {
		got = locator.Normalize(got)
		if !caseSensitive {
			got = strings.ToLower(got)
		}
		return strings.Contains(got, want)
	}
}
