package lib

import (
	"context"
	"fmt"

	"github.com/zhoujuxi2028/consoleqa/internal/app/facts"
	"github.com/zhoujuxi2028/consoleqa/internal/app/history"
	"github.com/zhoujuxi2028/consoleqa/internal/app/show"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/probe"
)

// ListRuns returns the stored runs, newest first. Pass nil opts for the latest 20.
func (c *Client) ListRuns(ctx context.Context, opts *ListRunsOpts) ([]Run, error) {
	svc, err := history.NewService(history.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	req := history.Request{}
	if opts != nil {
		req = history.Request{
			ComponentID: opts.ComponentID,
			Kind:        model.VerificationKind(opts.Kind),
			OnlyFailed:  opts.OnlyFailed,
			Limit:       opts.Limit,
		}
	}

	runs, err := svc.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return fromInternalRunList(runs), nil
}

// GetRun returns a stored run, "latest" returns the newest one.
//
// Returns [ErrNotFound] if the run does not exist.
func (c *Client) GetRun(ctx context.Context, id string) (*Run, error) {
	svc, err := show.NewService(show.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	run, err := svc.Run(ctx, show.Request{RunID: id})
	if err != nil {
		return nil, err
	}

	r := fromInternalRun(*run)
	return &r, nil
}

// Facts returns the appliance facts, collecting them when stale or requested. Without
// appliance access the stored facts are returned.
func (c *Client) Facts(ctx context.Context, opts *FactsOpts) ([]Fact, error) {
	cfg := facts.ServiceConfig{
		Repository: c.repo,
		Logger:     c.logger,
	}
	if c.probe != nil {
		cfg.Collector = probe.NewFacts(c.probe, c.logger)
	}

	svc, err := facts.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	req := facts.Request{}
	if opts != nil {
		req = facts.Request{Refresh: opts.Refresh, MaxAge: opts.MaxAge}
	}

	res, err := svc.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return fromInternalFacts(res.Facts), nil
}
