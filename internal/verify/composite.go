package verify

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/zhoujuxi2028/consoleqa/internal/conventions"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/navigator"
	"github.com/zhoujuxi2028/consoleqa/internal/probe"
)

// Check names of the composite verifications.
const (
	CheckUIPageLoaded       = "ui page loaded"
	CheckUIVersion          = "ui version"
	CheckUIKernelVersion    = "ui kernel version"
	CheckBackendVersion     = "backend version"
	CheckLockFileAbsent     = "lock file absent"
	CheckFilesPresent       = "component files present"
	CheckUIBackendVersion   = "ui vs backend version"
	CheckBackupExists       = "backup exists"
	CheckLogSuccessEntry    = "log success entry"
	CheckLogComponentErrors = "log component errors"
	CheckLogWarnings        = "log warnings"
	CheckServiceActive      = "service active"
	CheckKernelVersion      = "kernel version"
	CheckUIBackendKernel    = "ui vs backend kernel"
	CheckLogRecentErrors    = "log recent errors"
)

const allFilesPresent = "all present"

// VerifyUpdateCompletion verifies a component was updated to the expected version.
func (a *Aggregator) VerifyUpdateCompletion(ctx context.Context, componentID, expectedVersion string) (*model.VerificationReport, error) {
	c, err := a.component(componentID, expectedVersion)
	if err != nil {
		return nil, err
	}

	return a.verifyComponent(ctx, model.VerificationKindUpdate, c, expectedVersion)
}

// VerifyRollbackCompletion verifies a component was rolled back to the expected version.
func (a *Aggregator) VerifyRollbackCompletion(ctx context.Context, componentID, expectedVersion string) (*model.VerificationReport, error) {
	c, err := a.component(componentID, expectedVersion)
	if err != nil {
		return nil, err
	}
	if !c.RollbackSupported {
		return nil, fmt.Errorf("component %s does not support rollback: %w", c.ID, model.ErrNotValid)
	}

	return a.verifyComponent(ctx, model.VerificationKindRollback, c, expectedVersion)
}

// VerifyBatch verifies the backend state of several components, it returns one report
// per component sorted by component ID.
func (a *Aggregator) VerifyBatch(ctx context.Context, expected map[string]string) ([]*model.VerificationReport, error) {
	if len(expected) == 0 {
		return nil, fmt.Errorf("at least one component is required: %w", model.ErrNotValid)
	}

	ids := make([]string, 0, len(expected))
	for id := range expected {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	components := make([]model.Component, 0, len(ids))
	for _, id := range ids {
		c, err := a.component(id, expected[id])
		if err != nil {
			return nil, err
		}
		components = append(components, c)
	}

	if err := a.checkReach(ctx); err != nil {
		return nil, err
	}

	reports := make([]*model.VerificationReport, 0, len(components))
	for _, c := range components {
		v := expected[c.ID]
		r := a.run(ctx, []LevelConfig{{
			Level:   model.LevelBackend,
			Enabled: true,
			Prepare: a.requireProbe,
			Checks:  a.backendChecks(c, v, false),
		}})
		r.Kind = model.VerificationKindUpdate
		r.ComponentID = c.ID
		r.ExpectedVersion = v
		reports = append(reports, r)
	}

	return reports, nil
}

// VerifyHealth verifies the general appliance health: kernel, service and update log.
func (a *Aggregator) VerifyHealth(ctx context.Context) (*model.VerificationReport, error) {
	page := a.systemUpdatesPage()
	uiKernel := func(ctx context.Context) (string, error) {
		text, err := page(ctx)
		if err != nil {
			return "", err
		}
		return findKernelVersion(text)
	}
	backendKernel := Memo(a.factValue(func(ctx context.Context) (model.SystemFact, error) { return a.facts.KernelVersion(ctx) }))
	logTail := Memo(a.logTail)

	backendChecks := []Check{{
		Name:     CheckKernelVersion,
		Expected: conventions.KernelVersionRegexp.String(),
		Actual:   backendKernel,
		Compare:  Matches(conventions.KernelVersionRegexp),
	}}
	if a.uiAvailable() {
		backendChecks = append(backendChecks, Check{
			Name:         CheckUIBackendKernel,
			ExpectedFrom: uiKernel,
			Actual:       backendKernel,
		})
	}

	levels := []LevelConfig{
		{
			Level:   model.LevelUI,
			Enabled: a.levelEnabled(model.LevelUI),
			Prepare: prepareFrom(page),
			Checks: []Check{
				a.pageLoadedCheck(page),
				{
					Name:     CheckUIKernelVersion,
					Expected: conventions.KernelVersionRegexp.String(),
					Actual:   uiKernel,
					Compare:  Matches(conventions.KernelVersionRegexp),
				},
			},
		},
		{
			Level:   model.LevelBackend,
			Enabled: a.levelEnabled(model.LevelBackend),
			Prepare: a.requireProbe,
			Checks:  backendChecks,
		},
		{
			Level:   model.LevelLog,
			Enabled: a.levelEnabled(model.LevelLog),
			Prepare: prepareFrom(logTail),
			Checks: []Check{{
				Name:          CheckLogRecentErrors,
				Informational: true,
				Expected:      "0",
				Actual: func(ctx context.Context) (string, error) {
					tail, err := logTail(ctx)
					if err != nil {
						return "", err
					}
					return strconv.Itoa(probe.SummarizeLog(tail).ErrorCount), nil
				},
			}},
		},
		{
			Level:   model.LevelBusiness,
			Enabled: a.levelEnabled(model.LevelBusiness),
			Prepare: a.requireProbe,
			Checks:  []Check{a.serviceActiveCheck()},
		},
	}

	r, err := a.Verify(ctx, levels)
	if err != nil {
		return nil, err
	}
	r.Kind = model.VerificationKindHealth
	return r, nil
}

func (a *Aggregator) component(id, expectedVersion string) (model.Component, error) {
	if strings.TrimSpace(expectedVersion) == "" {
		return model.Component{}, fmt.Errorf("expected version of %s is required: %w", id, model.ErrNotValid)
	}
	c, err := a.components(id)
	if err != nil {
		return model.Component{}, fmt.Errorf("could not get component: %w", err)
	}
	return c, nil
}

func (a *Aggregator) verifyComponent(ctx context.Context, kind model.VerificationKind, c model.Component, expectedVersion string) (*model.VerificationReport, error) {
	rollback := kind == model.VerificationKindRollback
	page := a.systemUpdatesPage()
	logTail := Memo(a.logTail)
	uiVersion := func(ctx context.Context) (string, error) {
		text, err := page(ctx)
		if err != nil {
			return "", err
		}
		return findComponentVersion(text, c)
	}

	backendChecks := a.backendChecks(c, expectedVersion, rollback)
	if a.uiAvailable() {
		backendChecks = append(backendChecks, Check{
			Name:         CheckUIBackendVersion,
			ExpectedFrom: uiVersion,
			Actual:       Memo(a.componentVersion(c)),
		})
	}

	levels := []LevelConfig{
		{
			Level:   model.LevelUI,
			Enabled: a.levelEnabled(model.LevelUI),
			Prepare: prepareFrom(page),
			Checks: []Check{
				a.pageLoadedCheck(page),
				{Name: CheckUIVersion, Expected: expectedVersion, Actual: uiVersion},
				{
					Name:          CheckUIKernelVersion,
					Informational: true,
					Expected:      conventions.KernelVersionRegexp.String(),
					Actual: func(ctx context.Context) (string, error) {
						text, err := page(ctx)
						if err != nil {
							return "", err
						}
						return findKernelVersion(text)
					},
					Compare: Matches(conventions.KernelVersionRegexp),
				},
			},
		},
		{
			Level:   model.LevelBackend,
			Enabled: a.levelEnabled(model.LevelBackend),
			Prepare: a.requireProbe,
			Checks:  backendChecks,
		},
		{
			Level:   model.LevelLog,
			Enabled: a.levelEnabled(model.LevelLog),
			Prepare: prepareFrom(logTail),
			Checks:  a.logChecks(c, rollback, logTail),
		},
		{
			Level:   model.LevelBusiness,
			Enabled: a.levelEnabled(model.LevelBusiness),
			Prepare: a.requireProbe,
			Checks:  []Check{a.serviceActiveCheck()},
		},
	}

	r, err := a.Verify(ctx, levels)
	if err != nil {
		return nil, err
	}
	r.Kind = kind
	r.ComponentID = c.ID
	r.ExpectedVersion = expectedVersion
	return r, nil
}

func (a *Aggregator) backendChecks(c model.Component, expectedVersion string, rollback bool) []Check {
	checks := []Check{
		{Name: CheckBackendVersion, Expected: expectedVersion, Actual: a.componentVersion(c)},
		{
			Name:     CheckLockFileAbsent,
			Expected: "absent",
			Actual: func(ctx context.Context) (string, error) {
				fact, _, err := a.facts.LockFilePresent(ctx, c)
				return fact.Value, err
			},
		},
		a.filesPresentCheck(c),
	}

	if rollback {
		checks = append(checks, Check{
			Name:     CheckBackupExists,
			Expected: "present",
			Actual: func(ctx context.Context) (string, error) {
				return a.presence(ctx, conventions.BackupPath(c.ID))
			},
		})
	}

	return checks
}

func (a *Aggregator) filesPresentCheck(c model.Component) Check {
	if len(c.Files) == 0 {
		return Check{
			Name:          CheckFilesPresent,
			Informational: true,
			Expected:      allFilesPresent,
			Actual:        func(context.Context) (string, error) { return "no files configured", nil },
			Compare:       func(string, string) bool { return true },
		}
	}

	return Check{
		Name:     CheckFilesPresent,
		Expected: allFilesPresent,
		Actual: func(ctx context.Context) (string, error) {
			var missing []string
			for _, f := range c.Files {
				ok, err := a.facts.PathExists(ctx, f)
				if err != nil {
					return "", err
				}
				if !ok {
					missing = append(missing, f)
				}
			}
			if len(missing) > 0 {
				return "missing: " + strings.Join(missing, ", "), nil
			}
			return allFilesPresent, nil
		},
	}
}

func (a *Aggregator) logChecks(c model.Component, rollback bool, logTail ValueFunc) []Check {
	pattern := c.SuccessPattern
	if rollback {
		pattern = c.RollbackPattern
	}

	return []Check{
		{
			Name:     CheckLogSuccessEntry,
			Expected: pattern,
			Actual: func(ctx context.Context) (string, error) {
				re, err := regexp.Compile("(?i)" + pattern)
				if err != nil {
					return "", fmt.Errorf("invalid log pattern: %w", err)
				}
				tail, err := logTail(ctx)
				if err != nil {
					return "", err
				}
				lines := probe.MatchingLines(tail, re)
				if len(lines) == 0 {
					return "", nil
				}
				return lines[len(lines)-1], nil
			},
			Compare: NotEmpty,
		},
		{
			Name:     CheckLogComponentErrors,
			Expected: "0",
			Actual: func(ctx context.Context) (string, error) {
				tail, err := logTail(ctx)
				if err != nil {
					return "", err
				}
				return strconv.Itoa(len(probe.MatchingLines(tail, conventions.ComponentErrorRegexp(c.ID)))), nil
			},
		},
		{
			Name:          CheckLogWarnings,
			Informational: true,
			Expected:      "0",
			Actual: func(ctx context.Context) (string, error) {
				tail, err := logTail(ctx)
				if err != nil {
					return "", err
				}
				return strconv.Itoa(probe.SummarizeLog(tail).WarningCount), nil
			},
		},
	}
}

func (a *Aggregator) pageLoadedCheck(page ValueFunc) Check {
	return Check{
		Name:     CheckUIPageLoaded,
		Expected: navigator.SystemUpdatesPageMarker,
		Actual: func(ctx context.Context) (string, error) {
			text, err := page(ctx)
			if err != nil {
				return "", err
			}
			if strings.Contains(strings.ToLower(text), strings.ToLower(navigator.SystemUpdatesPageMarker)) {
				return navigator.SystemUpdatesPageMarker, nil
			}
			return "marker missing", nil
		},
	}
}

func (a *Aggregator) serviceActiveCheck() Check {
	return Check{
		Name:     CheckServiceActive,
		Expected: "active",
		Actual: a.factValue(func(ctx context.Context) (model.SystemFact, error) {
			return a.facts.ServiceState(ctx, conventions.ServiceName)
		}),
	}
}

// systemUpdatesPage returns the system updates page text, the console is navigated
// once per verification.
func (a *Aggregator) systemUpdatesPage() ValueFunc {
	return Memo(func(ctx context.Context) (string, error) {
		if a.nav == nil {
			return "", fmt.Errorf("console navigation is not configured")
		}
		if err := a.nav.Run(ctx, navigator.SystemUpdatesRecipe()); err != nil {
			return "", err
		}
		return a.nav.ExtractText(ctx, conventions.FrameRight)
	})
}

func (a *Aggregator) uiAvailable() bool {
	return a.nav != nil && a.levelEnabled(model.LevelUI)
}

func (a *Aggregator) requireProbe(context.Context) error {
	if a.facts == nil {
		return fmt.Errorf("appliance probe is not configured")
	}
	return nil
}

func (a *Aggregator) componentVersion(c model.Component) ValueFunc {
	return a.factValue(func(ctx context.Context) (model.SystemFact, error) { return a.facts.ComponentVersion(ctx, c) })
}

func (a *Aggregator) factValue(f func(ctx context.Context) (model.SystemFact, error)) ValueFunc {
	return func(ctx context.Context) (string, error) {
		if err := a.requireProbe(ctx); err != nil {
			return "", err
		}
		fact, err := f(ctx)
		if err != nil {
			return "", err
		}
		return fact.Value, nil
	}
}

func (a *Aggregator) logTail(ctx context.Context) (string, error) {
	if err := a.requireProbe(ctx); err != nil {
		return "", err
	}
	return a.facts.LogTail(ctx, conventions.UpdateLogFile, a.logTailLines)
}

func (a *Aggregator) presence(ctx context.Context, path string) (string, error) {
	if err := a.requireProbe(ctx); err != nil {
		return "", err
	}
	ok, err := a.facts.PathExists(ctx, path)
	if err != nil {
		return "", err
	}
	if ok {
		return "present", nil
	}
	return "absent", nil
}

func prepareFrom(f ValueFunc) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := f(ctx)
		return err
	}
}

// findComponentVersion returns the version shown in the component row of the system
// updates page.
func findComponentVersion(text string, c model.Component) (string, error) {
	label := strings.ToLower(c.UILabel)
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(strings.ToLower(line), label) {
			continue
		}
		if v := conventions.VersionRegexp.FindString(line); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%s version not shown: %w", c.UILabel, model.ErrNotFound)
}

func findKernelVersion(text string) (string, error) {
	v := conventions.KernelVersionRegexp.FindString(text)
	if v == "" {
		return "", fmt.Errorf("kernel version not shown: %w", model.ErrNotFound)
	}
	return v, nil
}
