package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.Repository.
type Repository struct {
	runs   map[string]model.Run
	facts  map[string]model.SystemFact
	mu     sync.RWMutex
	logger log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		runs:   make(map[string]model.Run),
		facts:  make(map[string]model.SystemFact),
		logger: cfg.Logger,
	}, nil
}

// CreateRun stores a new verification run.
func (r *Repository) CreateRun(ctx context.Context, run model.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; ok {
		return fmt.Errorf("run with id %s: %w", run.ID, model.ErrAlreadyExists)
	}

	r.runs[run.ID] = copyRun(run)
	r.logger.Debugf("Created run in repository: %s", run.ID)

	return nil
}

// GetRun retrieves a run by ID.
func (r *Repository) GetRun(ctx context.Context, id string) (*model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, model.ErrNotFound)
	}

	runCopy := copyRun(run)
	return &runCopy, nil
}

// ListRuns returns the matching runs, newest first.
func (r *Repository) ListRuns(ctx context.Context, opts model.RunListOpts) ([]model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]model.Run, 0, len(r.runs))
	for _, run := range r.runs {
		if opts.Match(run) {
			runs = append(runs, copyRun(run))
		}
	}

	slices.SortFunc(runs, func(a, b model.Run) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	if opts.Limit > 0 && len(runs) > opts.Limit {
		runs = runs[:opts.Limit]
	}

	return runs, nil
}

// SaveFacts upserts the facts by key.
func (r *Repository) SaveFacts(ctx context.Context, facts []model.SystemFact) error {
	for _, f := range facts {
		if f.Key == "" {
			return fmt.Errorf("fact key is required: %w", model.ErrNotValid)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range facts {
		r.facts[f.Key] = f
	}
	r.logger.Debugf("Saved %d facts in repository", len(facts))

	return nil
}

// ListFacts returns all the facts sorted by key.
func (r *Repository) ListFacts(ctx context.Context) ([]model.SystemFact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	facts := make([]model.SystemFact, 0, len(r.facts))
	for _, f := range r.facts {
		facts = append(facts, f)
	}
	slices.SortFunc(facts, func(a, b model.SystemFact) int { return strings.Compare(a.Key, b.Key) })

	return facts, nil
}

func copyRun(r model.Run) model.Run {
	results := make([]model.VerificationResult, 0, len(r.Report.Results))
	for _, res := range r.Report.Results {
		res.Checks = slices.Clone(res.Checks)
		results = append(results, res)
	}
	r.Report.Results = results
	return r
}
