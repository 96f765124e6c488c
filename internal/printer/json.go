package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

// JSONPrinter prints verification information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

type reportOutput struct {
	Kind            string         `json:"kind"`
	ComponentID     string         `json:"component_id,omitempty"`
	ExpectedVersion string         `json:"expected_version,omitempty"`
	OverallPassed   bool           `json:"overall_passed"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	FinishedAt      *time.Time     `json:"finished_at,omitempty"`
	Results         []resultOutput `json:"results"`
}

type resultOutput struct {
	Level  string        `json:"level"`
	Passed bool          `json:"passed"`
	Checks []checkOutput `json:"checks"`
}

type checkOutput struct {
	Name          string `json:"name"`
	Expected      string `json:"expected"`
	Actual        string `json:"actual"`
	Passed        bool   `json:"passed"`
	Informational bool   `json:"informational,omitempty"`
}

type runOutput struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Report    reportOutput `json:"report"`
}

type runListItem struct {
	ID              string    `json:"id"`
	Kind            string    `json:"kind"`
	ComponentID     string    `json:"component_id,omitempty"`
	ExpectedVersion string    `json:"expected_version,omitempty"`
	OverallPassed   bool      `json:"overall_passed"`
	CreatedAt       time.Time `json:"created_at"`
}

type factOutput struct {
	Key        string    `json:"key"`
	Value      string    `json:"value"`
	CapturedAt time.Time `json:"captured_at"`
	Stale      bool      `json:"stale"`
}

type checkResultOutput struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type progressOutput struct {
	Phase   string `json:"phase"`
	Percent int    `json:"percent"`
	Reason  string `json:"reason,omitempty"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintReport prints a verification report in JSON format.
func (j *JSONPrinter) PrintReport(report model.VerificationReport) error {
	return j.encode(toReportOutput(report))
}

// PrintRun prints a stored run in JSON format.
func (j *JSONPrinter) PrintRun(run model.Run) error {
	return j.encode(runOutput{
		ID:        run.ID,
		CreatedAt: run.CreatedAt.UTC(),
		Report:    toReportOutput(run.Report),
	})
}

// PrintRunList prints stored runs in JSON format without the check details.
func (j *JSONPrinter) PrintRunList(runs []model.Run) error {
	items := make([]runListItem, len(runs))
	for i, r := range runs {
		items[i] = runListItem{
			ID:              r.ID,
			Kind:            string(r.Report.Kind),
			ComponentID:     r.Report.ComponentID,
			ExpectedVersion: r.Report.ExpectedVersion,
			OverallPassed:   r.Report.OverallPassed,
			CreatedAt:       r.CreatedAt.UTC(),
		}
	}
	return j.encode(items)
}

// PrintFacts prints system facts in JSON format.
func (j *JSONPrinter) PrintFacts(facts []model.SystemFact, maxAge time.Duration) error {
	now := time.Now()
	items := make([]factOutput, len(facts))
	for i, f := range facts {
		items[i] = factOutput{
			Key:        f.Key,
			Value:      f.Value,
			CapturedAt: f.CapturedAt.UTC(),
			Stale:      f.IsStale(now, maxAge),
		}
	}
	return j.encode(items)
}

// PrintChecks prints preflight check results in JSON format.
func (j *JSONPrinter) PrintChecks(results []model.CheckResult) error {
	items := make([]checkResultOutput, len(results))
	for i, r := range results {
		items[i] = checkResultOutput{ID: r.ID, Status: string(r.Status), Message: r.Message}
	}
	return j.encode(items)
}

// PrintProgress prints the final state of a monitored operation in JSON format.
func (j *JSONPrinter) PrintProgress(state model.ProgressState) error {
	return j.encode(progressOutput{Phase: string(state.Phase), Percent: state.Percent, Reason: state.Reason})
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func toReportOutput(report model.VerificationReport) reportOutput {
	out := reportOutput{
		Kind:            string(report.Kind),
		ComponentID:     report.ComponentID,
		ExpectedVersion: report.ExpectedVersion,
		OverallPassed:   report.OverallPassed,
		Results:         make([]resultOutput, 0, len(report.Results)),
	}
	if !report.StartedAt.IsZero() {
		t := report.StartedAt.UTC()
		out.StartedAt = &t
	}
	if !report.FinishedAt.IsZero() {
		t := report.FinishedAt.UTC()
		out.FinishedAt = &t
	}

	for _, res := range report.Results {
		r := resultOutput{Level: string(res.Level), Passed: res.Passed, Checks: make([]checkOutput, 0, len(res.Checks))}
		for _, c := range res.Checks {
			r.Checks = append(r.Checks, checkOutput{
				Name:          c.Name,
				Expected:      c.Expected,
				Actual:        c.Actual,
				Passed:        c.Passed,
				Informational: c.Informational,
			})
		}
		out.Results = append(out.Results, r)
	}

	return out
}
