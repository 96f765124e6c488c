package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository, the schema is migrated on creation.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	version, err := migrator.Up(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s (schema version %d)", cfg.DBPath, version)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

// CreateRun stores a new verification run.
func (r *Repository) CreateRun(ctx context.Context, run model.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}

	report, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("could not marshal report: %w", err)
	}

	query := `
		INSERT INTO runs (
			id, kind, component_id, expected_version,
			overall_passed, report, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(
		ctx,
		query,
		run.ID,
		run.Report.Kind,
		run.Report.ComponentID,
		run.Report.ExpectedVersion,
		run.Report.OverallPassed,
		string(report),
		run.CreatedAt.UnixNano(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: runs.") {
			return fmt.Errorf("run already exists: %w", model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert run: %w", err)
	}

	r.logger.Debugf("Created run in repository: %s", run.ID)
	return nil
}

// GetRun retrieves a run by ID.
func (r *Repository) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, report, created_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query run: %w", err)
	}

	return &run, nil
}

// ListRuns returns the matching runs, newest first.
func (r *Repository) ListRuns(ctx context.Context, opts model.RunListOpts) ([]model.Run, error) {
	var (
		where []string
		args  []any
	)
	if opts.ComponentID != nil {
		where = append(where, "component_id = ?")
		args = append(args, *opts.ComponentID)
	}
	if opts.Kind != nil {
		where = append(where, "kind = ?")
		args = append(args, *opts.Kind)
	}

	query := `SELECT id, report, created_at FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query runs: %w", err)
	}
	defer rows.Close()

	runs := []model.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return runs, nil
}

// SaveFacts upserts the facts by key in a single transaction.
func (r *Repository) SaveFacts(ctx context.Context, facts []model.SystemFact) error {
	for _, f := range facts {
		if f.Key == "" {
			return fmt.Errorf("fact key is required: %w", model.ErrNotValid)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `
		INSERT INTO facts (key, value, captured_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			captured_at = excluded.captured_at
	`
	for _, f := range facts {
		if _, err := tx.ExecContext(ctx, query, f.Key, f.Value, f.CapturedAt.UnixNano()); err != nil {
			return fmt.Errorf("could not upsert fact %q: %w", f.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit facts: %w", err)
	}

	r.logger.Debugf("Saved %d facts in repository", len(facts))
	return nil
}

// ListFacts returns all the facts sorted by key.
func (r *Repository) ListFacts(ctx context.Context) ([]model.SystemFact, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value, captured_at FROM facts ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("could not query facts: %w", err)
	}
	defer rows.Close()

	facts := []model.SystemFact{}
	for rows.Next() {
		var (
			f          model.SystemFact
			capturedAt int64
		)
		if err := rows.Scan(&f.Key, &f.Value, &capturedAt); err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		f.CapturedAt = time.Unix(0, capturedAt).UTC()
		facts = append(facts, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return facts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (model.Run, error) {
	var (
		run       model.Run
		report    string
		createdAt int64
	)
	if err := s.Scan(&run.ID, &report, &createdAt); err != nil {
		return model.Run{}, err
	}

	if err := json.Unmarshal([]byte(report), &run.Report); err != nil {
		return model.Run{}, fmt.Errorf("could not unmarshal report of run %s: %w", run.ID, err)
	}
	run.CreatedAt = time.Unix(0, createdAt).UTC()

	return run, nil
}
