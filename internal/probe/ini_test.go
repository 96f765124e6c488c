package probe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhoujuxi2028/consoleqa/internal/probe"
)

func TestParseINI(t *testing.T) {
	tests := map[string]struct {
		content string
		exp     map[string]string
	}{
		"An empty file should be empty.": {
			content: "",
			exp:     map[string]string{},
		},

		"Sections, comments and blank lines should be ignored.": {
			content: `
# Pattern versions
[Pattern]
PTNVersion = 6.600.00
; old
SpywareVersion=2.519.00

[Engine]
EngineVersion=23.600.1001
`,
			exp: map[string]string{
				"PTNVersion":     "6.600.00",
				"SpywareVersion": "2.519.00",
				"EngineVersion":  "23.600.1001",
			},
		},

		"Lines without a key should be ignored and the last repeated key should win.": {
			content: "garbage\n=value\nPTNVersion=6.500.00\nPTNVersion=6.600.00\n",
			exp:     map[string]string{"PTNVersion": "6.600.00"},
		},

		"Values with equal signs should be kept whole.": {
			content: "URL=http://host/?a=b\n",
			exp:     map[string]string{"URL": "http://host/?a=b"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, probe.ParseINI(test.content))
		})
	}
}
