package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

func TestParseLevels(t *testing.T) {
	tests := map[string]struct {
		values    []string
		expLevels []model.Level
		expErr    bool
	}{
		"no values should return no levels": {},
		"comma separated levels should parse": {
			values:    []string{"ui,Backend"},
			expLevels: []model.Level{model.LevelUI, model.LevelBackend},
		},
		"repeated levels should parse": {
			values:    []string{"log", " business "},
			expLevels: []model.Level{model.LevelLog, model.LevelBusiness},
		},
		"an unknown level should fail": {
			values: []string{"ui,network"},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			levels, err := parseLevels(test.values)
			if test.expErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expLevels, levels)
		})
	}
}

func TestVerifyCommandRequest(t *testing.T) {
	suite := model.Suite{ExpectedVersions: map[string]string{"PTN": "6.600.00"}}

	tests := map[string]struct {
		cmd            VerifyCommand
		suite          model.Suite
		expComponentID string
		expVersion     string
		expExpected    map[string]string
		expErr         bool
	}{
		"an update should default to the suite expected version": {
			cmd:            VerifyCommand{kind: model.VerificationKindUpdate, componentID: "ptn"},
			suite:          suite,
			expComponentID: "PTN",
			expVersion:     "6.600.00",
		},
		"an explicit version should win": {
			cmd:            VerifyCommand{kind: model.VerificationKindUpdate, componentID: "PTN", expectedVersion: "6.601.00"},
			suite:          suite,
			expComponentID: "PTN",
			expVersion:     "6.601.00",
		},
		"an update without version should fail": {
			cmd:    VerifyCommand{kind: model.VerificationKindUpdate, componentID: "ENG"},
			suite:  suite,
			expErr: true,
		},
		"a batch should merge the suite and flag versions": {
			cmd:         VerifyCommand{kind: model.VerificationKindUpdate, batch: true, expected: map[string]string{"eng": "23.600.1001"}},
			suite:       suite,
			expExpected: map[string]string{"PTN": "6.600.00", "ENG": "23.600.1001"},
		},
		"a batch without versions should fail": {
			cmd:    VerifyCommand{kind: model.VerificationKindUpdate, batch: true},
			expErr: true,
		},
		"a health verification needs nothing": {
			cmd: VerifyCommand{kind: model.VerificationKindHealth},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			req, err := test.cmd.request(test.suite)
			if test.expErr {
				assert.ErrorIs(t, err, model.ErrNotValid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.cmd.kind, req.Kind)
			assert.Equal(t, test.expComponentID, req.ComponentID)
			assert.Equal(t, test.expVersion, req.ExpectedVersion)
			assert.Equal(t, test.expExpected, req.Expected)
		})
	}
}

func TestRootCommandLoadSuite(t *testing.T) {
	dir := t.TempDir()
	suitePath := filepath.Join(dir, "suite.yaml")
	err := os.WriteFile(suitePath, []byte("name: nightly\nexpected_versions:\n  ptn: 6.600.00\n"), 0o600)
	require.NoError(t, err)

	tests := map[string]struct {
		path       string
		expName    string
		expVersion string
		expErr     bool
	}{
		"without suite the built-in catalog should be used": {
			expName: "default",
		},
		"a suite file should be loaded": {
			path:       suitePath,
			expName:    "nightly",
			expVersion: "6.600.00",
		},
		"a missing suite file should fail": {
			path:   filepath.Join(dir, "missing.yaml"),
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			r := &RootCommand{SuitePath: test.path, Logger: log.Noop}

			suite, err := r.loadSuite(context.Background())
			if test.expErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expName, suite.Name)
			assert.Equal(t, test.expVersion, suite.ExpectedVersions["PTN"])
			_, err = suite.Component("PTN")
			assert.NoError(t, err)
		})
	}
}
