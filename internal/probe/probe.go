package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

// Probe runs commands and reads files on the system under test.
type Probe interface {
	// Execute runs a command and returns its stdout. Non zero exits return a *model.CommandError.
	Execute(ctx context.Context, command string) (string, error)
	// ReadFile returns a remote file content. Missing files return model.ErrNotFound and
	// unreadable ones model.ErrRefused.
	ReadFile(ctx context.Context, path string) (string, error)
}

// RetryConfig is the configuration of the retrying probe.
type RetryConfig struct {
	// Attempts is the maximum number of tries of each operation.
	Attempts int
	// Limiter spaces the retries, the first attempt never waits. Defaults to one retry per
	// second with a burst of one.
	Limiter *rate.Limiter
	Logger  log.Logger
}

func (c *RetryConfig) defaults() error {
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.Limiter == nil {
		c.Limiter = rate.NewLimiter(rate.Every(time.Second), 1)
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "probe.Retrying"})

	return nil
}

// Retrying is a probe that retries transport failures. Answers of the remote system, like
// command failures or missing files, are never retried.
type Retrying struct {
	next     Probe
	attempts int
	limiter  *rate.Limiter
	logger   log.Logger
}

// NewRetrying wraps a probe with retries.
func NewRetrying(next Probe, cfg RetryConfig) (*Retrying, error) {
	if next == nil {
		return nil, fmt.Errorf("probe is required")
	}
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Retrying{
		next:     next,
		attempts: cfg.Attempts,
		limiter:  cfg.Limiter,
		logger:   cfg.Logger,
	}, nil
}

func (r *Retrying) Execute(ctx context.Context, command string) (string, error) {
	return r.do(ctx, "execute "+command, func() (string, error) { return r.next.Execute(ctx, command) })
}

func (r *Retrying) ReadFile(ctx context.Context, path string) (string, error) {
	return r.do(ctx, "read "+path, func() (string, error) { return r.next.ReadFile(ctx, path) })
}

func (r *Retrying) do(ctx context.Context, op string, f func() (string, error)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("could not %s: %w", op, err)
	}

	var err error
	for i := range r.attempts {
		if i > 0 {
			if werr := r.limiter.Wait(ctx); werr != nil {
				return "", fmt.Errorf("could not %s: %w", op, werr)
			}
		}

		var out string
		out, err = f()
		if err == nil || !retryable(err) {
			return out, err
		}
		r.logger.Warningf("Attempt %d/%d to %s failed: %s", i+1, r.attempts, op, err)
	}

	return "", err
}

func retryable(err error) bool {
	var cmdErr *model.CommandError
	switch {
	case errors.As(err, &cmdErr):
		return false
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrRefused):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
