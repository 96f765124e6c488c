package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/storage"
)

// Verifier runs the composite verifications.
type Verifier interface {
	VerifyUpdateCompletion(ctx context.Context, componentID, expectedVersion string) (*model.VerificationReport, error)
	VerifyRollbackCompletion(ctx context.Context, componentID, expectedVersion string) (*model.VerificationReport, error)
	VerifyHealth(ctx context.Context) (*model.VerificationReport, error)
	VerifyBatch(ctx context.Context, expected map[string]string) ([]*model.VerificationReport, error)
}

// ServiceConfig is the configuration for the verify service.
type ServiceConfig struct {
	Verifier   Verifier
	Repository storage.Repository
	// IDGen generates the run IDs, defaults to ULIDs.
	IDGen  func() string
	Now    func() time.Time
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Verifier == nil {
		return fmt.Errorf("verifier is required")
	}
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.IDGen == nil {
		c.IDGen = func() string { return ulid.Make().String() }
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Verify"})
	return nil
}

// Service runs verifications and stores them as runs.
type Service struct {
	verifier Verifier
	repo     storage.Repository
	idGen    func() string
	now      func() time.Time
	logger   log.Logger
}

// NewService creates a new verify service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		verifier: cfg.Verifier,
		repo:     cfg.Repository,
		idGen:    cfg.IDGen,
		now:      cfg.Now,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the verify request parameters.
type Request struct {
	Kind model.VerificationKind
	// ComponentID and ExpectedVersion are used by update and rollback verifications.
	ComponentID     string
	ExpectedVersion string
	// Expected are the expected versions by component of a batch verification. A batch is
	// requested with the update kind and more than one expected version.
	Expected map[string]string
}

func (r Request) validate() error {
	switch r.Kind {
	case model.VerificationKindUpdate, model.VerificationKindRollback:
		if len(r.Expected) > 0 {
			if r.Kind == model.VerificationKindRollback {
				return fmt.Errorf("batch verification is only available for updates: %w", model.ErrNotValid)
			}
			return nil
		}
		if r.ComponentID == "" {
			return fmt.Errorf("component is required: %w", model.ErrNotValid)
		}
		if r.ExpectedVersion == "" {
			return fmt.Errorf("expected version is required: %w", model.ErrNotValid)
		}
	case model.VerificationKindHealth:
	default:
		return fmt.Errorf("unknown verification kind %q: %w", r.Kind, model.ErrNotValid)
	}
	return nil
}

// Run runs the requested verification and stores one run per produced report. Failed
// verifications are stored too, only verifications that could not run return an error.
func (s *Service) Run(ctx context.Context, req Request) ([]model.Run, error) {
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	reports, err := s.verify(ctx, req)
	if err != nil {
		return nil, err
	}

	runs := make([]model.Run, 0, len(reports))
	for _, report := range reports {
		run := model.Run{
			ID:        s.idGen(),
			Report:    *report,
			CreatedAt: s.now().UTC(),
		}
		if err := s.repo.CreateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("could not store run: %w", err)
		}

		s.logger.Infof("Verification %s of %q stored as run %s (passed: %t)", report.Kind, report.ComponentID, run.ID, report.OverallPassed)
		runs = append(runs, run)
	}

	return runs, nil
}

func (s *Service) verify(ctx context.Context, req Request) ([]*model.VerificationReport, error) {
	var (
		report *model.VerificationReport
		err    error
	)
	switch {
	case len(req.Expected) > 0:
		reports, err := s.verifier.VerifyBatch(ctx, req.Expected)
		if err != nil {
			return nil, fmt.Errorf("could not verify batch: %w", err)
		}
		return reports, nil
	case req.Kind == model.VerificationKindUpdate:
		report, err = s.verifier.VerifyUpdateCompletion(ctx, req.ComponentID, req.ExpectedVersion)
	case req.Kind == model.VerificationKindRollback:
		report, err = s.verifier.VerifyRollbackCompletion(ctx, req.ComponentID, req.ExpectedVersion)
	default:
		report, err = s.verifier.VerifyHealth(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("could not verify %s: %w", req.Kind, err)
	}

	return []*model.VerificationReport{report}, nil
}
