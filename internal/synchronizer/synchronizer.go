package synchronizer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/zhoujuxi2028/consoleqa/internal/browser"
	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
)

// Predicate tells if a browsing context text is the expected one.
type Predicate func(text string) bool

// NonEmpty is satisfied by any non blank text.
func NonEmpty(text string) bool { return strings.TrimSpace(text) != "" }

// Contains returns a predicate satisfied when the text contains s.
func Contains(s string, caseSensitive bool) Predicate {
	if !caseSensitive {
		s = strings.ToLower(s)
	}
	return func(text string) bool {
		if !caseSensitive {
			text = strings.ToLower(text)
		}
		return strings.Contains(text, s)
	}
}

// MatchesRegexp returns a predicate satisfied when the text matches re.
func MatchesRegexp(re *regexp.Regexp) Predicate {
	return func(text string) bool { return re.MatchString(text) }
}

// FromCondition returns the predicate of a text condition.
func FromCondition(c model.TextCondition) (Predicate, error) {
	p, err := c.Predicate()
	if err != nil {
		return nil, err
	}
	return Predicate(p), nil
}

// WaitOptions are the options of a single wait. Zero values use the synchronizer defaults.
type WaitOptions struct {
	Condition    Predicate
	Timeout      time.Duration
	PollInterval time.Duration
}

// Config is the synchronizer configuration.
type Config struct {
	Driver              browser.Driver
	DefaultTimeout      time.Duration
	DefaultPollInterval time.Duration
	Logger              log.Logger
}

func (c *Config) defaults() error {
	if c.Driver == nil {
		return fmt.Errorf("driver is required")
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = DefaultTimeout
	}
	if c.DefaultPollInterval <= 0 {
		c.DefaultPollInterval = DefaultPollInterval
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "synchronizer.Synchronizer"})

	return nil
}

// Synchronizer waits for browsing contexts content.
type Synchronizer struct {
	driver       browser.Driver
	timeout      time.Duration
	pollInterval time.Duration
	logger       log.Logger
}

// New returns a new synchronizer.
func New(cfg Config) (*Synchronizer, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Synchronizer{
		driver:       cfg.Driver,
		timeout:      cfg.DefaultTimeout,
		pollInterval: cfg.DefaultPollInterval,
		logger:       cfg.Logger,
	}, nil
}

// WaitForContent polls the named context until it resolves and its text satisfies the
// condition, returning that text. The context is resolved again on every poll because
// navigations replace the underlying documents. It only times out once the whole timeout
// has elapsed.
func (s *Synchronizer) WaitForContent(ctx context.Context, contextName string, opts WaitOptions) (string, error) {
	if opts.Condition == nil {
		opts.Condition = NonEmpty
	}
	if opts.Timeout <= 0 {
		opts.Timeout = s.timeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = s.pollInterval
	}

	deadline := time.Now().Add(opts.Timeout)
	lastSeen := ""
	polls := 0
	for {
		polls++
		text, err := s.read(ctx, contextName, max(time.Until(deadline), opts.PollInterval))
		switch {
		case err == nil:
			lastSeen = text
			if NonEmpty(text) && opts.Condition(text) {
				s.logger.Debugf("Context %q ready after %d polls", contextName, polls)
				return text, nil
			}
		case ctx.Err() != nil:
			return "", fmt.Errorf("waiting for context %q: %w", contextName, ctx.Err())
		default:
			// Missing, detached or reloading contexts are retried on the next poll.
			s.logger.Debugf("Context %q not ready: %s", contextName, err)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", &model.ContentTimeoutError{Context: contextName, LastSeenText: lastSeen, Timeout: opts.Timeout}
		}

		timer := time.NewTimer(min(opts.PollInterval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", fmt.Errorf("waiting for context %q: %w", contextName, ctx.Err())
		case <-timer.C:
		}
	}
}

func (s *Synchronizer) read(ctx context.Context, contextName string, budget time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	f, err := s.driver.Context(ctx, contextName)
	if err != nil {
		return "", err
	}

	return f.Text(ctx)
}
