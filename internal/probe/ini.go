package probe

import (
	"bufio"
	"strings"
)

// ParseINI parses key=value lines. Comments (# and ;), blank lines and section headers
// are skipped, the last value of a repeated key wins.
func ParseINI(content string) map[string]string {
	values := map[string]string{}

	s := bufio.NewScanner(strings.NewReader(content))
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#"), strings.HasPrefix(line, ";"):
			continue
		case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
			continue
		}

		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		values[k] = strings.TrimSpace(v)
	}

	return values
}
