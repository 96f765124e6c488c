package printer

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

// TablePrinter prints verification information in a table format.
type TablePrinter struct {
	writer io.Writer
	now    func() time.Time
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w, now: time.Now}
}

// PrintReport prints a verification report, one table per level.
func (t *TablePrinter) PrintReport(report model.VerificationReport) error {
	fmt.Fprintf(t.writer, "Kind:       %s\n", report.Kind)
	if report.ComponentID != "" {
		fmt.Fprintf(t.writer, "Component:  %s\n", report.ComponentID)
	}
	if report.ExpectedVersion != "" {
		fmt.Fprintf(t.writer, "Expected:   %s\n", report.ExpectedVersion)
	}
	if !report.StartedAt.IsZero() && !report.FinishedAt.IsZero() {
		fmt.Fprintf(t.writer, "Duration:   %s\n", FormatDuration(report.FinishedAt.Sub(report.StartedAt)))
	}
	fmt.Fprintf(t.writer, "Result:     %s\n", verdict(report.OverallPassed))

	for _, res := range report.Results {
		fmt.Fprintf(t.writer, "\n[%s] %s\n", res.Level, verdict(res.Passed))

		tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  CHECK\tEXPECTED\tACTUAL\tRESULT")
		for _, c := range res.Checks {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", c.Name, orDash(c.Expected), orDash(c.Actual), outcome(c))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	return nil
}

// PrintRun prints a stored run.
func (t *TablePrinter) PrintRun(run model.Run) error {
	fmt.Fprintf(t.writer, "Run:        %s\n", run.ID)
	fmt.Fprintf(t.writer, "Created:    %s\n", FormatTimestamp(run.CreatedAt))
	return t.PrintReport(run.Report)
}

// PrintRunList prints stored runs in a table format.
func (t *TablePrinter) PrintRunList(runs []model.Run) error {
	if len(runs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tKIND\tCOMPONENT\tEXPECTED\tRESULT\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Report.Kind,
			orDash(r.Report.ComponentID),
			orDash(r.Report.ExpectedVersion),
			verdict(r.Report.OverallPassed),
			TimeAgo(r.CreatedAt, t.now()),
		)
	}

	return nil
}

// PrintFacts prints system facts in a table format.
func (t *TablePrinter) PrintFacts(facts []model.SystemFact, maxAge time.Duration) error {
	if len(facts) == 0 {
		return nil
	}

	now := time.Now()
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "KEY\tVALUE\tCAPTURED\tSTALE")
	for _, f := range facts {
		stale := "no"
		if f.IsStale(now, maxAge) {
			stale = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Key, orDash(f.Value), TimeAgo(f.CapturedAt, t.now()), stale)
	}

	return nil
}

// PrintChecks prints preflight check results.
func (t *TablePrinter) PrintChecks(results []model.CheckResult) error {
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", checkIcon(r.Status), r.ID, r.Message)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	ok, warnings, errs := model.CountByStatus(results)
	fmt.Fprintf(t.writer, "\n%d ok, %d warnings, %d errors\n", ok, warnings, errs)
	return nil
}

// PrintProgress prints the final state of a monitored operation.
func (t *TablePrinter) PrintProgress(state model.ProgressState) error {
	fmt.Fprintf(t.writer, "Progress:   %s\n", state)
	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func verdict(passed bool) string {
	if passed {
		return "PASSED"
	}
	return "FAILED"
}

func outcome(c model.CheckOutcome) string {
	switch {
	case c.Informational:
		return "info"
	case c.Passed:
		return "ok"
	default:
		return "fail"
	}
}

func checkIcon(s model.CheckStatus) string {
	switch s {
	case model.CheckStatusOK:
		return "[ok]"
	case model.CheckStatusWarning:
		return "[warn]"
	default:
		return "[error]"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
