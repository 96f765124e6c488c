package probe

import (
	"regexp"
	"strings"

	"github.com/zhoujuxi2028/consoleqa/internal/conventions"
)

const maxSummaryLines = 10

// VersionChange is a component version change found in the update log.
type VersionChange struct {
	From string
	To   string
	Line string
}

// LogSummary is the summary of an update log excerpt.
type LogSummary struct {
	TotalLines     int
	ErrorCount     int
	WarningCount   int
	Errors         []string // First error lines.
	Warnings       []string // First warning lines.
	VersionChanges []VersionChange
}

// SummarizeLog counts the error and warning lines of an update log excerpt.
func SummarizeLog(content string) LogSummary {
	lines := logLines(content)
	s := LogSummary{TotalLines: len(lines)}

	for _, l := range lines {
		if conventions.LogErrorRegexp.MatchString(l) {
			s.ErrorCount++
			if len(s.Errors) < maxSummaryLines {
				s.Errors = append(s.Errors, l)
			}
		}
		if conventions.LogWarningRegexp.MatchString(l) {
			s.WarningCount++
			if len(s.Warnings) < maxSummaryLines {
				s.Warnings = append(s.Warnings, l)
			}
		}
		if m := conventions.LogVersionChangeRegexp.FindStringSubmatch(l); m != nil {
			s.VersionChanges = append(s.VersionChanges, VersionChange{From: m[1], To: m[2], Line: l})
		}
	}

	return s
}

// MatchingLines returns the log lines matching re.
func MatchingLines(content string, re *regexp.Regexp) []string {
	var res []string
	for _, l := range logLines(content) {
		if re.MatchString(l) {
			res = append(res, l)
		}
	}
	return res
}

func logLines(content string) []string {
	var lines []string
	for _, l := range strings.Split(content, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
