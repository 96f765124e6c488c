package printer

import (
	"time"

	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

// Printer knows how to print verification information in different formats.
type Printer interface {
	PrintReport(report model.VerificationReport) error
	PrintRun(run model.Run) error
	PrintRunList(runs []model.Run) error
	// PrintFacts prints the facts marking the ones older than maxAge as stale.
	PrintFacts(facts []model.SystemFact, maxAge time.Duration) error
	PrintChecks(results []model.CheckResult) error
	PrintProgress(state model.ProgressState) error
	PrintMessage(msg string) error
}
