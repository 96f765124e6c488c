package lib

import (
	"time"

	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

// Errors returned by the client, inspect them with [errors.Is]. They are the same
// values the internal packages wrap, so a [Probe] implementation can return them.
var (
	ErrNotFound      = model.ErrNotFound
	ErrAlreadyExists = model.ErrAlreadyExists
	ErrNotValid      = model.ErrNotValid
	ErrRefused       = model.ErrRefused
)

// Level is a verification level.
type Level string

const (
	// LevelUI checks the admin console pages.
	LevelUI Level = "ui"
	// LevelBackend checks the appliance INI file, kernel and files.
	LevelBackend Level = "backend"
	// LevelLog checks the appliance update log.
	LevelLog Level = "log"
	// LevelBusiness checks the appliance keeps serving.
	LevelBusiness Level = "business"
)

// Kind is what a verification certifies.
type Kind string

const (
	KindUpdate   Kind = "update"
	KindRollback Kind = "rollback"
	KindHealth   Kind = "health"
)

// Check is the outcome of a single verification check.
type Check struct {
	Name     string
	Expected string
	Actual   string
	Passed   bool
	// Informational checks never fail a level.
	Informational bool
}

// LevelResult groups the checks of a level.
type LevelResult struct {
	Level  Level
	Passed bool
	Checks []Check
}

// Report is a verification report, levels are ordered UI, backend, log, business.
type Report struct {
	Kind            Kind
	ComponentID     string
	ExpectedVersion string
	Passed          bool
	Levels          []LevelResult
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Run is a stored verification.
type Run struct {
	ID        string
	Report    Report
	CreatedAt time.Time
}

// ListRunsOpts filters the listed runs.
type ListRunsOpts struct {
	// ComponentID filters by component, case insensitive.
	ComponentID string
	// Kind filters by verification kind.
	Kind Kind
	// OnlyFailed drops the passed runs.
	OnlyFailed bool
	// Limit of 0 lists 20 runs, negative lists all.
	Limit int
}

// Fact is a datum captured from the appliance.
type Fact struct {
	Key        string
	Value      string
	CapturedAt time.Time
}

// FactsOpts configures how facts are obtained.
type FactsOpts struct {
	// Refresh collects the facts from the appliance even when the stored ones are fresh.
	Refresh bool
	// MaxAge is the age after which stored facts are collected again, zero never does.
	MaxAge time.Duration
}

// CheckStatus represents the status of a preflight check.
type CheckStatus string

const (
	// CheckStatusOK indicates the check passed.
	CheckStatusOK CheckStatus = "ok"
	// CheckStatusWarning indicates the check passed with a warning.
	CheckStatusWarning CheckStatus = "warning"
	// CheckStatusError indicates the check failed.
	CheckStatusError CheckStatus = "error"
)

// CheckResult represents the result of a single preflight check.
type CheckResult struct {
	// ID is a unique identifier for the check (e.g. "ini_file").
	ID string
	// Message is a human-readable description of the result.
	Message string
	// Status is the check status.
	Status CheckStatus
}

// --- Internal conversion helpers ---

func fromInternalReport(r model.VerificationReport) Report {
	out := Report{
		Kind:            Kind(r.Kind),
		ComponentID:     r.ComponentID,
		ExpectedVersion: r.ExpectedVersion,
		Passed:          r.OverallPassed,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
	}
	for _, res := range r.Results {
		lr := LevelResult{Level: Level(res.Level), Passed: res.Passed}
		for _, c := range res.Checks {
			lr.Checks = append(lr.Checks, Check{
				Name:          c.Name,
				Expected:      c.Expected,
				Actual:        c.Actual,
				Passed:        c.Passed,
				Informational: c.Informational,
			})
		}
		out.Levels = append(out.Levels, lr)
	}
	return out
}

func fromInternalRun(r model.Run) Run {
	return Run{
		ID:        r.ID,
		Report:    fromInternalReport(r.Report),
		CreatedAt: r.CreatedAt,
	}
}

func fromInternalRunList(rs []model.Run) []Run {
	out := make([]Run, len(rs))
	for i, r := range rs {
		out[i] = fromInternalRun(r)
	}
	return out
}

func fromInternalFacts(fs []model.SystemFact) []Fact {
	out := make([]Fact, len(fs))
	for i, f := range fs {
		out[i] = Fact{Key: f.Key, Value: f.Value, CapturedAt: f.CapturedAt}
	}
	return out
}

func fromInternalCheckResults(results []model.CheckResult) []CheckResult {
	out := make([]CheckResult, len(results))
	for i, r := range results {
		out[i] = CheckResult{
			ID:      r.ID,
			Message: r.Message,
			Status:  CheckStatus(r.Status),
		}
	}
	return out
}
