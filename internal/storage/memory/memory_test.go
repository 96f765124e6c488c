package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/storage/memory"
)

var t0 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newRun(id, componentID string, kind model.VerificationKind, createdAt time.Time) model.Run {
	report := model.NewVerificationReport([]model.VerificationResult{
		model.NewVerificationResult(model.LevelBackend, []model.CheckOutcome{
			{Name: "backend version", Level: model.LevelBackend, Expected: "6.600.00", Actual: "6.600.00", Passed: true},
		}),
	})
	report.Kind = kind
	report.ComponentID = componentID
	report.ExpectedVersion = "6.600.00"

	return model.Run{ID: id, Report: report, CreatedAt: createdAt}
}

func ptr[T any](v T) *T { return &v }

func TestRepositoryRuns(t *testing.T) {
	tests := map[string]struct {
		actions func(ctx context.Context, t *testing.T, repo *memory.Repository) error
		expErr  error
	}{
		"Creating a run should be retrievable.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateRun(ctx, newRun("r1", "PTN", model.VerificationKindUpdate, t0)))

				got, err := repo.GetRun(ctx, "r1")
				require.NoError(t, err)
				assert.Equal(t, newRun("r1", "PTN", model.VerificationKindUpdate, t0), *got)
				return nil
			},
		},

		"Creating a duplicated run should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateRun(ctx, newRun("r1", "PTN", model.VerificationKindUpdate, t0)))
				return repo.CreateRun(ctx, newRun("r1", "ENG", model.VerificationKindUpdate, t0))
			},
			expErr: model.ErrAlreadyExists,
		},

		"Creating an invalid run should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				return repo.CreateRun(ctx, newRun("", "PTN", model.VerificationKindUpdate, t0))
			},
			expErr: model.ErrNotValid,
		},

		"Getting a missing run should fail.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				_, err := repo.GetRun(ctx, "missing")
				return err
			},
			expErr: model.ErrNotFound,
		},

		"Mutating a retrieved run should not change the stored one.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateRun(ctx, newRun("r1", "PTN", model.VerificationKindUpdate, t0)))

				got, err := repo.GetRun(ctx, "r1")
				require.NoError(t, err)
				got.Report.Results[0].Checks[0].Actual = "changed"

				got, err = repo.GetRun(ctx, "r1")
				require.NoError(t, err)
				assert.Equal(t, "6.600.00", got.Report.Results[0].Checks[0].Actual)
				return nil
			},
		},

		"Listing runs should return them newest first with filters and limit.": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateRun(ctx, newRun("r1", "PTN", model.VerificationKindUpdate, t0)))
				require.NoError(t, repo.CreateRun(ctx, newRun("r2", "ENG", model.VerificationKindUpdate, t0.Add(time.Minute))))
				require.NoError(t, repo.CreateRun(ctx, newRun("r3", "PTN", model.VerificationKindRollback, t0.Add(2*time.Minute))))
				require.NoError(t, repo.CreateRun(ctx, newRun("r4", "PTN", model.VerificationKindUpdate, t0.Add(3*time.Minute))))

				ids := func(runs []model.Run) []string {
					var ids []string
					for _, r := range runs {
						ids = append(ids, r.ID)
					}
					return ids
				}

				runs, err := repo.ListRuns(ctx, model.RunListOpts{})
				require.NoError(t, err)
				assert.Equal(t, []string{"r4", "r3", "r2", "r1"}, ids(runs))

				runs, err = repo.ListRuns(ctx, model.RunListOpts{ComponentID: ptr("PTN")})
				require.NoError(t, err)
				assert.Equal(t, []string{"r4", "r3", "r1"}, ids(runs))

				runs, err = repo.ListRuns(ctx, model.RunListOpts{ComponentID: ptr("PTN"), Kind: ptr(model.VerificationKindUpdate)})
				require.NoError(t, err)
				assert.Equal(t, []string{"r4", "r1"}, ids(runs))

				runs, err = repo.ListRuns(ctx, model.RunListOpts{Limit: 2})
				require.NoError(t, err)
				assert.Equal(t, []string{"r4", "r3"}, ids(runs))
				return nil
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: log.Noop})
			require.NoError(t, err)

			err = test.actions(context.Background(), t, repo)
			if test.expErr != nil {
				assert.ErrorIs(t, err, test.expErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRepositoryFacts(t *testing.T) {
	tests := map[string]struct {
		save     [][]model.SystemFact
		expFacts []model.SystemFact
		expErr   bool
	}{
		"No facts should return an empty list.": {
			expFacts: []model.SystemFact{},
		},

		"Saved facts should be listed sorted by key.": {
			save: [][]model.SystemFact{{
				{Key: "ptn_version", Value: "6.600.00", CapturedAt: t0},
				{Key: "kernel_version", Value: "5.14.0-427.24.1.el9_4.x86_64", CapturedAt: t0},
			}},
			expFacts: []model.SystemFact{
				{Key: "kernel_version", Value: "5.14.0-427.24.1.el9_4.x86_64", CapturedAt: t0},
				{Key: "ptn_version", Value: "6.600.00", CapturedAt: t0},
			},
		},

		"Saving an existing fact should replace it.": {
			save: [][]model.SystemFact{
				{{Key: "ptn_version", Value: "6.500.00", CapturedAt: t0}},
				{{Key: "ptn_version", Value: "6.600.00", CapturedAt: t0.Add(time.Hour)}},
			},
			expFacts: []model.SystemFact{
				{Key: "ptn_version", Value: "6.600.00", CapturedAt: t0.Add(time.Hour)},
			},
		},

		"A fact without key should fail.": {
			save:   [][]model.SystemFact{{{Value: "x", CapturedAt: t0}}},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			ctx := context.Background()

			repo, err := memory.NewRepository(memory.RepositoryConfig{})
			require.NoError(err)

			for _, facts := range test.save {
				err = repo.SaveFacts(ctx, facts)
			}
			if test.expErr {
				require.Error(err)
				return
			}
			require.NoError(err)

			facts, err := repo.ListFacts(ctx)
			require.NoError(err)
			require.Equal(test.expFacts, facts)
		})
	}
}
