package chromedp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithFrame(t *testing.T) {
	tests := map[string]struct {
		name     string
		body     string
		contains []string
	}{
		"The frame name should be quoted.": {
			name:     `ri"ght`,
			body:     `return 1;`,
			contains: []string{`find(window.top, "ri\"ght")`, `return 1;`},
		},

		"The top document should be addressed with an empty name.": {
			name:     "",
			body:     `return w.document.title;`,
			contains: []string{`find(window.top, "")`, `if (name === "") return win;`},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := withFrame(test.name, test.body, "null")
			for _, c := range test.contains {
				assert.Contains(t, got, c)
			}
		})
	}
}

func TestJSString(t *testing.T) {
	assert.Equal(t, `"input[name=\"userid\"]"`, jsString(`input[name="userid"]`))
	assert.Equal(t, `"\u003cscript\u003e"`, jsString(`<script>`))
}
