package conventions

import (
	"fmt"
	"regexp"
)

const logErrorExpr = `ERROR|FAIL|Exception|failed|error`

var (
	// KernelVersionRegexp matches the appliance kernel release (e.g: 5.14.0-427.24.1.el9_4.x86_64).
	KernelVersionRegexp = regexp.MustCompile(`(\d+\.\d+\.\d+-\d+\.\d+\.\d+\.el\d+[._]\d+\.x86_64)`)
	// VersionRegexp matches a dotted component version (e.g: 6.600.00).
	VersionRegexp = regexp.MustCompile(`\d+(?:\.\d+)+`)
	// LogErrorRegexp matches update log error lines.
	LogErrorRegexp = regexp.MustCompile(`(?i)` + logErrorExpr)
	// LogWarningRegexp matches update log warning lines.
	LogWarningRegexp = regexp.MustCompile(`(?i)WARNING|WARN|warn`)
	// LogVersionChangeRegexp matches update log version change lines.
	LogVersionChangeRegexp = regexp.MustCompile(`(?i)Version changed from ([\d.]+) to ([\d.]+)`)
)

// ComponentErrorRegexp returns the regexp that matches error lines of a component.
func ComponentErrorRegexp(componentID string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`(?i)%s.*(%s)`, regexp.QuoteMeta(componentID), logErrorExpr))
}
