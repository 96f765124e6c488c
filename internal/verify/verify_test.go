package verify_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bfake "github.com/zhoujuxi2028/consoleqa/internal/browser/fake"
	"github.com/zhoujuxi2028/consoleqa/internal/conventions"
	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/navigator"
	pfake "github.com/zhoujuxi2028/consoleqa/internal/probe/fake"
	"github.com/zhoujuxi2028/consoleqa/internal/verify"
)

const (
	testKernel     = "5.14.0-427.24.1.el9_4.x86_64"
	serviceCommand = "systemctl is-active 'iwss' || true"
	updateLog      = `2026-10-16 10:00:01 PTN update started
2026-10-16 10:01:30 Version changed from 6.500.00 to 6.600.00
2026-10-16 10:02:00 PTN update success
`
)

func systemUpdatesPage(ptnVersion, kernel string) string {
	return fmt.Sprintf("System Update\nComponent\tCurrent Version\nVirus Pattern\t%s\nVirus Scan Engine\t23.600.1001\nOS kernel: %s", ptnVersion, kernel)
}

// newAppliance returns a probe of an appliance where PTN was updated to 6.600.00.
func newAppliance() *pfake.Probe {
	return pfake.NewProbe().
		SetFile(conventions.INIFile, "[Pattern]\nPTNVersion=6.600.00\n[Engine]\nEngineVersion=23.600.1001\n").
		SetFile(conventions.UpdateLogFile, updateLog).
		SetOutput(serviceCommand, "active\n").
		SetOutput("uname -r", testKernel+"\n")
}

func newNavigator(t *testing.T, d *bfake.Driver) *navigator.Navigator {
	t.Helper()
	n, err := navigator.New(navigator.Config{
		Driver:       d,
		StepTimeout:  150 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	return n
}

func newAggregator(t *testing.T, d *bfake.Driver, p *pfake.Probe, levels ...model.Level) *verify.Aggregator {
	t.Helper()
	cfg := verify.Config{Levels: levels, Logger: log.Noop}
	if d != nil {
		cfg.Navigator = newNavigator(t, d)
	}
	if p != nil {
		cfg.Probe = p
	}
	a, err := verify.NewAggregator(cfg)
	require.NoError(t, err)
	return a
}

func failedChecks(r *model.VerificationReport) []string {
	var names []string
	for _, res := range r.Results {
		for _, c := range res.Failed() {
			names = append(names, c.Name)
		}
	}
	return names
}

func levelsOf(r *model.VerificationReport) []model.Level {
	var ls []model.Level
	for _, res := range r.Results {
		ls = append(ls, res.Level)
	}
	return ls
}

func TestVerifyUpdateCompletion(t *testing.T) {
	tests := map[string]struct {
		driver       func() *bfake.Driver
		appliance    func(p *pfake.Probe)
		expPassed    bool
		expUIPassed  bool
		expFailed    []string
		expWarnCheck string
	}{
		"An updated system should pass every level.": {
			driver:      func() *bfake.Driver { return bfake.NewConsole(systemUpdatesPage("6.600.00", testKernel)) },
			appliance:   func(p *pfake.Probe) {},
			expPassed:   true,
			expUIPassed: true,
		},

		"A different backend version should fail the backend while the UI passes.": {
			driver: func() *bfake.Driver { return bfake.NewConsole(systemUpdatesPage("6.600.00", testKernel)) },
			appliance: func(p *pfake.Probe) {
				p.SetFile(conventions.INIFile, "PTNVersion=6.500.00\n")
			},
			expUIPassed: true,
			expFailed:   []string{verify.CheckBackendVersion, verify.CheckUIBackendVersion},
		},

		"A stale UI should fail the UI and the cross level check.": {
			driver:    func() *bfake.Driver { return bfake.NewConsole(systemUpdatesPage("6.500.00", testKernel)) },
			appliance: func(p *pfake.Probe) {},
			expFailed: []string{verify.CheckUIVersion, verify.CheckUIBackendVersion},
		},

		"A remaining lock file should fail the backend.": {
			driver: func() *bfake.Driver { return bfake.NewConsole(systemUpdatesPage("6.600.00", testKernel)) },
			appliance: func(p *pfake.Probe) {
				p.SetFile(conventions.LockFilePath("ptn"), "")
			},
			expUIPassed: true,
			expFailed:   []string{verify.CheckLockFileAbsent},
		},

		"Component errors in the log should fail the log level.": {
			driver: func() *bfake.Driver { return bfake.NewConsole(systemUpdatesPage("6.600.00", testKernel)) },
			appliance: func(p *pfake.Probe) {
				p.SetFile(conventions.UpdateLogFile, updateLog+"2026-10-16 10:02:01 PTN post update check failed\n")
			},
			expUIPassed: true,
			expFailed:   []string{verify.CheckLogComponentErrors},
		},

		"A missing success entry should fail the log level.": {
			driver: func() *bfake.Driver { return bfake.NewConsole(systemUpdatesPage("6.600.00", testKernel)) },
			appliance: func(p *pfake.Probe) {
				p.SetFile(conventions.UpdateLogFile, "2026-10-16 10:00:01 PTN update started\n")
			},
			expUIPassed: true,
			expFailed:   []string{verify.CheckLogSuccessEntry},
		},

		"Log warnings should be informational.": {
			driver: func() *bfake.Driver { return bfake.NewConsole(systemUpdatesPage("6.600.00", testKernel)) },
			appliance: func(p *pfake.Probe) {
				p.SetFile(conventions.UpdateLogFile, updateLog+"2026-10-16 10:02:02 WARN slow mirror\n")
			},
			expPassed:    true,
			expUIPassed:  true,
			expWarnCheck: verify.CheckLogWarnings,
		},

		"A stopped service should fail the business level.": {
			driver: func() *bfake.Driver { return bfake.NewConsole(systemUpdatesPage("6.600.00", testKernel)) },
			appliance: func(p *pfake.Probe) {
				p.SetOutput(serviceCommand, "inactive\n")
			},
			expUIPassed: true,
			expFailed:   []string{verify.CheckServiceActive},
		},

		"A console page that never loads should fail the UI level only as unreachable.": {
			driver: func() *bfake.Driver {
				d := bfake.NewDriver()
				d.SetPage("left", bfake.Page{Elements: []bfake.Element{{Text: "Administration"}}})
				return d
			},
			appliance: func(p *pfake.Probe) {},
			expFailed: []string{"ui level reachable", verify.CheckUIBackendVersion},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			p := newAppliance()
			test.appliance(p)
			a := newAggregator(t, test.driver(), p)

			r, err := a.VerifyUpdateCompletion(context.Background(), "PTN", "6.600.00")
			require.NoError(err)

			assert.Equal(model.VerificationKindUpdate, r.Kind)
			assert.Equal("PTN", r.ComponentID)
			assert.Equal("6.600.00", r.ExpectedVersion)
			assert.Equal(model.Levels(), levelsOf(r))
			assert.Equal(test.expPassed, r.OverallPassed)
			assert.Equal(test.expFailed, failedChecks(r))

			ui, ok := r.Result(model.LevelUI)
			require.True(ok)
			assert.Equal(test.expUIPassed, ui.Passed)

			if test.expWarnCheck != "" {
				c, ok := r.Check(test.expWarnCheck)
				require.True(ok)
				assert.False(c.Passed)
				assert.True(c.Informational)
			}
		})
	}
}

func TestVerifyUpdateCompletionComponentFiles(t *testing.T) {
	const (
		patternFile = "/etc/iscan/lpt$vpn.660"
		backupFile  = "/etc/iscan/lpt$vpn.650"
	)

	tests := map[string]struct {
		files            []string
		appliance        func(p *pfake.Probe)
		expPassed        bool
		expInformational bool
		expActual        string
	}{
		"Present component files should pass.": {
			files: []string{patternFile, backupFile},
			appliance: func(p *pfake.Probe) {
				p.SetFile(patternFile, "").SetFile(backupFile, "")
			},
			expPassed: true,
			expActual: "all present",
		},

		"A missing component file should fail with the missing path.": {
			files: []string{patternFile, backupFile},
			appliance: func(p *pfake.Probe) {
				p.SetFile(patternFile, "")
			},
			expActual: "missing: " + backupFile,
		},

		"A component without files should only inform.": {
			appliance:        func(p *pfake.Probe) {},
			expPassed:        true,
			expInformational: true,
			expActual:        "no files configured",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			p := newAppliance()
			test.appliance(p)
			a, err := verify.NewAggregator(verify.Config{
				Probe:  p,
				Levels: []model.Level{model.LevelBackend},
				Components: func(id string) (model.Component, error) {
					c, err := conventions.Component(id)
					c.Files = test.files
					return c, err
				},
			})
			require.NoError(err)

			r, err := a.VerifyUpdateCompletion(context.Background(), "PTN", "6.600.00")
			require.NoError(err)

			c, ok := r.Check(verify.CheckFilesPresent)
			require.True(ok)
			assert.Equal(model.LevelBackend, c.Level)
			assert.Equal(test.expPassed, c.Passed)
			assert.Equal(test.expInformational, c.Informational)
			assert.Equal(test.expActual, c.Actual)
			assert.Equal(test.expPassed, r.OverallPassed)
		})
	}
}

func TestVerifyUpdateCompletionCrossLevelValues(t *testing.T) {
	p := newAppliance().SetFile(conventions.INIFile, "PTNVersion=6.500.00\n")
	a := newAggregator(t, bfake.NewConsole(systemUpdatesPage("6.600.00", testKernel)), p)

	r, err := a.VerifyUpdateCompletion(context.Background(), "PTN", "6.600.00")
	require.NoError(t, err)

	c, ok := r.Check(verify.CheckUIBackendVersion)
	require.True(t, ok)
	assert.Equal(t, model.LevelBackend, c.Level)
	assert.Equal(t, "6.600.00", c.Expected)
	assert.Equal(t, "6.500.00", c.Actual)
	assert.False(t, c.Passed)
}

func TestVerifyUpdateCompletionIsIdempotent(t *testing.T) {
	p := newAppliance().SetFile(conventions.LockFilePath("ptn"), "")
	a := newAggregator(t, bfake.NewConsole(systemUpdatesPage("6.600.00", testKernel)), p)

	passed := func(r *model.VerificationReport) map[string]bool {
		m := map[string]bool{}
		for _, res := range r.Results {
			for _, c := range res.Checks {
				m[c.Name] = c.Passed
			}
		}
		return m
	}

	r1, err := a.VerifyUpdateCompletion(context.Background(), "PTN", "6.600.00")
	require.NoError(t, err)
	r2, err := a.VerifyUpdateCompletion(context.Background(), "PTN", "6.600.00")
	require.NoError(t, err)

	assert.Equal(t, passed(r1), passed(r2))
	assert.Equal(t, r1.OverallPassed, r2.OverallPassed)
}

func TestVerifyUpdateCompletionSelectedLevels(t *testing.T) {
	d := bfake.NewConsole(systemUpdatesPage("6.600.00", testKernel))
	a := newAggregator(t, d, newAppliance(), model.LevelBusiness, model.LevelBackend)

	r, err := a.VerifyUpdateCompletion(context.Background(), "PTN", "6.600.00")
	require.NoError(t, err)

	assert.Equal(t, []model.Level{model.LevelBackend, model.LevelBusiness}, levelsOf(r))
	assert.True(t, r.OverallPassed)
	assert.Nil(t, d.Clicks())
	_, ok := r.Check(verify.CheckUIBackendVersion)
	assert.False(t, ok)
}

func TestVerifyUpdateCompletionWithoutProbe(t *testing.T) {
	a := newAggregator(t, bfake.NewConsole(systemUpdatesPage("6.600.00", testKernel)), nil)

	r, err := a.VerifyUpdateCompletion(context.Background(), "PTN", "6.600.00")
	require.NoError(t, err)

	assert.Len(t, r.Results, 4)
	assert.False(t, r.OverallPassed)
	ui, _ := r.Result(model.LevelUI)
	assert.True(t, ui.Passed)
	backend, _ := r.Result(model.LevelBackend)
	require.Len(t, backend.Checks, 1)
	assert.Equal(t, "backend level reachable", backend.Checks[0].Name)
}

func TestVerifyUpdateCompletionInvalid(t *testing.T) {
	tests := map[string]struct {
		id      string
		version string
		expErr  error
	}{
		"An unknown component should fail.": {
			id: "NOPE", version: "1.0", expErr: model.ErrNotFound,
		},
		"A missing version should fail.": {
			id: "PTN", version: " ", expErr: model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			a := newAggregator(t, nil, newAppliance())
			_, err := a.VerifyUpdateCompletion(context.Background(), test.id, test.version)
			assert.ErrorIs(t, err, test.expErr)
		})
	}
}

func TestVerifyUnreachableFailsFast(t *testing.T) {
	p := newAppliance()
	a, err := verify.NewAggregator(verify.Config{
		Probe: p,
		Reach: func(context.Context) error { return fmt.Errorf("login page not reachable") },
	})
	require.NoError(t, err)

	r, err := a.VerifyUpdateCompletion(context.Background(), "PTN", "6.600.00")
	assert.Nil(t, r)
	var unreachable *model.UnreachableError
	assert.ErrorAs(t, err, &unreachable)
	assert.Empty(t, p.Calls())
}

func TestVerifyRollbackCompletion(t *testing.T) {
	rollbackLog := "2026-10-16 11:00:00 PTN rollback started\n2026-10-16 11:00:30 PTN rollback complete\n"

	tests := map[string]struct {
		id        string
		appliance func(p *pfake.Probe)
		expPassed bool
		expFailed []string
		expErr    error
	}{
		"A rolled back component with a backup should pass.": {
			id: "PTN",
			appliance: func(p *pfake.Probe) {
				p.SetFile(conventions.BackupPath("PTN"), "").SetFile(conventions.UpdateLogFile, rollbackLog)
			},
			expPassed: true,
		},

		"A missing backup should fail.": {
			id: "PTN",
			appliance: func(p *pfake.Probe) {
				p.SetFile(conventions.UpdateLogFile, rollbackLog)
			},
			expFailed: []string{verify.CheckBackupExists},
		},

		"An update log entry is not a rollback entry.": {
			id: "PTN",
			appliance: func(p *pfake.Probe) {
				p.SetFile(conventions.BackupPath("PTN"), "")
			},
			expFailed: []string{verify.CheckLogSuccessEntry},
		},

		"Components without rollback support should be rejected.": {
			id:        "TMUFEENG",
			appliance: func(p *pfake.Probe) {},
			expErr:    model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			p := newAppliance()
			test.appliance(p)
			a := newAggregator(t, bfake.NewConsole(systemUpdatesPage("6.600.00", testKernel)), p)

			r, err := a.VerifyRollbackCompletion(context.Background(), test.id, "6.600.00")
			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}
			require.NoError(err)
			assert.Equal(model.VerificationKindRollback, r.Kind)
			assert.Equal(test.expPassed, r.OverallPassed)
			assert.Equal(test.expFailed, failedChecks(r))
		})
	}
}

func TestVerifyHealth(t *testing.T) {
	tests := map[string]struct {
		uiKernel      string
		backendKernel string
		expPassed     bool
		expFailed     []string
	}{
		"Same kernel in the UI and the backend should pass.": {
			uiKernel:      testKernel,
			backendKernel: testKernel,
			expPassed:     true,
		},

		"A one character kernel difference should fail the cross level check.": {
			uiKernel:      testKernel,
			backendKernel: "5.14.0-427.24.2.el9_4.x86_64",
			expFailed:     []string{verify.CheckUIBackendKernel},
		},

		"A one character UI kernel difference should fail the cross level check.": {
			uiKernel:      "5.14.0-427.24.1.el9_5.x86_64",
			backendKernel: testKernel,
			expFailed:     []string{verify.CheckUIBackendKernel},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			p := newAppliance().SetOutput("uname -r", test.backendKernel+"\n")
			a := newAggregator(t, bfake.NewConsole(systemUpdatesPage("6.600.00", test.uiKernel)), p)

			r, err := a.VerifyHealth(context.Background())
			require.NoError(err)

			assert.Equal(model.VerificationKindHealth, r.Kind)
			assert.Equal(model.Levels(), levelsOf(r))
			assert.Equal(test.expPassed, r.OverallPassed)
			assert.Equal(test.expFailed, failedChecks(r))

			c, ok := r.Check(verify.CheckUIBackendKernel)
			require.True(ok)
			assert.Equal(test.uiKernel, c.Expected)
			assert.Equal(test.backendKernel, c.Actual)
		})
	}
}

func TestVerifyBatch(t *testing.T) {
	p := newAppliance()
	d := bfake.NewConsole(systemUpdatesPage("6.600.00", testKernel))
	a := newAggregator(t, d, p)

	reports, err := a.VerifyBatch(context.Background(), map[string]string{
		"PTN": "6.600.00",
		"ENG": "23.600.1000",
	})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, "ENG", reports[0].ComponentID)
	assert.False(t, reports[0].OverallPassed)
	assert.Equal(t, []string{verify.CheckBackendVersion}, failedChecks(reports[0]))

	assert.Equal(t, "PTN", reports[1].ComponentID)
	assert.True(t, reports[1].OverallPassed)

	for _, r := range reports {
		assert.Equal(t, []model.Level{model.LevelBackend}, levelsOf(r))
	}
	assert.Nil(t, d.Clicks())
}

func TestVerifyBatchInvalid(t *testing.T) {
	a := newAggregator(t, nil, newAppliance())

	_, err := a.VerifyBatch(context.Background(), nil)
	assert.ErrorIs(t, err, model.ErrNotValid)

	_, err = a.VerifyBatch(context.Background(), map[string]string{"PTN": "6.600.00", "NOPE": "1"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}
