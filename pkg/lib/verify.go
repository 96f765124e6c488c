package lib

import (
	"context"
	"fmt"

	"github.com/zhoujuxi2028/consoleqa/internal/app/verify"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/probe"
	iverify "github.com/zhoujuxi2028/consoleqa/internal/verify"
)

func (c *Client) verifyService() (*verify.Service, error) {
	if err := c.requireProbe(); err != nil {
		return nil, err
	}

	aggregator, err := iverify.NewAggregator(iverify.Config{
		Probe:  c.probe,
		Reach:  func(ctx context.Context) error { return probe.Ping(ctx, c.probe) },
		Levels: []model.Level{model.LevelBackend, model.LevelLog, model.LevelBusiness},
		Logger: c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create aggregator: %w", err)
	}

	svc, err := verify.NewService(verify.ServiceConfig{
		Verifier:   aggregator,
		Repository: c.repo,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}
	return svc, nil
}

func (c *Client) verify(ctx context.Context, req verify.Request) ([]Run, error) {
	svc, err := c.verifyService()
	if err != nil {
		return nil, err
	}

	runs, err := svc.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return fromInternalRunList(runs), nil
}

func (c *Client) verifyOne(ctx context.Context, req verify.Request) (*Run, error) {
	runs, err := c.verify(ctx, req)
	if err != nil {
		return nil, err
	}
	return &runs[0], nil
}

// VerifyUpdate verifies a component update installed the expected version and stores
// the run. A failed verification is not an error, check [Report].Passed.
// An appliance that can't be reached returns an error and stores nothing.
func (c *Client) VerifyUpdate(ctx context.Context, componentID, expectedVersion string) (*Run, error) {
	return c.verifyOne(ctx, verify.Request{
		Kind:            model.VerificationKindUpdate,
		ComponentID:     componentID,
		ExpectedVersion: expectedVersion,
	})
}

// VerifyRollback verifies a component rollback restored the expected version.
//
// Returns [ErrNotValid] for components without rollback.
func (c *Client) VerifyRollback(ctx context.Context, componentID, expectedVersion string) (*Run, error) {
	return c.verifyOne(ctx, verify.Request{
		Kind:            model.VerificationKindRollback,
		ComponentID:     componentID,
		ExpectedVersion: expectedVersion,
	})
}

// VerifyHealth verifies the appliance is healthy.
func (c *Client) VerifyHealth(ctx context.Context) (*Run, error) {
	return c.verifyOne(ctx, verify.Request{Kind: model.VerificationKindHealth})
}

// VerifyBatch verifies the updates of many components, expected versions by
// component ID, and returns one run per component.
func (c *Client) VerifyBatch(ctx context.Context, expected map[string]string) ([]Run, error) {
	if len(expected) == 0 {
		return nil, fmt.Errorf("expected versions are required: %w", ErrNotValid)
	}
	return c.verify(ctx, verify.Request{Kind: model.VerificationKindUpdate, Expected: expected})
}
