package model

import (
	"slices"
	"time"
)

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

// CheckResult represents the result of a single preflight (doctor) check.
type CheckResult struct {
	ID      string      // Unique identifier for the check (e.g., "frame_structure").
	Message string      // Human-readable description of the result.
	Status  CheckStatus // Status of the check.
}

// HasErrors returns true if any check result has an error status.
func HasErrors(results []CheckResult) bool {
	for _, r := range results {
		if r.Status == CheckStatusError {
			return true
		}
	}
	return false
}

// CountByStatus counts check results by status.
func CountByStatus(results []CheckResult) (ok, warnings, errors int) {
	for _, r := range results {
		switch r.Status {
		case CheckStatusOK:
			ok++
		case CheckStatusWarning:
			warnings++
		case CheckStatusError:
			errors++
		}
	}
	return
}

// Level is a verification evidence source.
type Level string

const (
	LevelUI       Level = "ui"
	LevelBackend  Level = "backend"
	LevelLog      Level = "log"
	LevelBusiness Level = "business"
)

// Levels returns all the verification levels in execution order.
func Levels() []Level {
	return []Level{LevelUI, LevelBackend, LevelLog, LevelBusiness}
}

// Order returns the execution position of the level, unknown levels go last.
func (l Level) Order() int {
	i := slices.Index(Levels(), l)
	if i < 0 {
		return len(Levels())
	}
	return i
}

// Valid returns true if the level is a known one.
func (l Level) Valid() bool {
	return slices.Contains(Levels(), l)
}

// CheckOutcome is the recorded result of a single verification check.
type CheckOutcome struct {
	Name          string
	Level         Level
	Expected      string
	Actual        string
	Passed        bool
	Informational bool
}

// VerificationResult groups the check outcomes of a single level.
type VerificationResult struct {
	Level  Level
	Checks []CheckOutcome
	Passed bool
}

// NewVerificationResult computes the level verdict from its outcomes. Informational
// outcomes never affect it.
func NewVerificationResult(level Level, checks []CheckOutcome) VerificationResult {
	passed := true
	for _, c := range checks {
		if !c.Informational && !c.Passed {
			passed = false
		}
	}

	return VerificationResult{
		Level:  level,
		Checks: slices.Clone(checks),
		Passed: passed,
	}
}

// Failed returns the non informational failed outcomes.
func (r VerificationResult) Failed() []CheckOutcome {
	var failed []CheckOutcome
	for _, c := range r.Checks {
		if !c.Informational && !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

// VerificationKind is what a verification report certifies.
type VerificationKind string

const (
	VerificationKindUpdate   VerificationKind = "update"
	VerificationKindRollback VerificationKind = "rollback"
	VerificationKindHealth   VerificationKind = "health"
	VerificationKindCustom   VerificationKind = "custom"
)

// VerificationReport is the ordered set of level results of a verification.
type VerificationReport struct {
	Kind            VerificationKind
	ComponentID     string
	ExpectedVersion string
	Results         []VerificationResult
	OverallPassed   bool
	StartedAt       time.Time
	FinishedAt      time.Time
}

// NewVerificationReport builds a report computing the overall verdict.
func NewVerificationReport(results []VerificationResult) VerificationReport {
	passed := true
	for _, r := range results {
		if !r.Passed {
			passed = false
		}
	}

	return VerificationReport{
		Results:       slices.Clone(results),
		OverallPassed: passed,
	}
}

// Result returns the result of a level.
func (r VerificationReport) Result(level Level) (VerificationResult, bool) {
	for _, res := range r.Results {
		if res.Level == level {
			return res, true
		}
	}
	return VerificationResult{}, false
}

// Check returns the outcome of a check by name.
func (r VerificationReport) Check(name string) (CheckOutcome, bool) {
	for _, res := range r.Results {
		for _, c := range res.Checks {
			if c.Name == name {
				return c, true
			}
		}
	}
	return CheckOutcome{}, false
}
