package locator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhoujuxi2028/consoleqa/internal/browser/fake"
	"github.com/zhoujuxi2028/consoleqa/internal/locator"
	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

func TestLocatorClickByText(t *testing.T) {
	menu := []fake.Element{
		{Text: "Summary"},
		{Text: "  System   Updates  "},
		{Text: "Administration"},
		{Text: "System Updates Schedule"},
		{Tag: "button", Text: "Update"},
	}

	tests := map[string]struct {
		text      string
		opts      locator.Options
		expClicks []string
		expErr    bool
	}{
		"Contains match should click the first document order match.": {
			text:      "system updates",
			expClicks: []string{"  System   Updates  "},
		},

		"Exact match should skip partial matches.": {
			text:      "System Updates Schedule",
			opts:      locator.Options{Mode: model.MatchModeExact},
			expClicks: []string{"System Updates Schedule"},
		},

		"Exact match should normalize whitespace.": {
			text:      "System Updates",
			opts:      locator.Options{Mode: model.MatchModeExact, CaseSensitive: true},
			expClicks: []string{"  System   Updates  "},
		},

		"Case sensitive match should fail on a different case.": {
			text:   "administration",
			opts:   locator.Options{CaseSensitive: true},
			expErr: true,
		},

		"Buttons should be clickable by default.": {
			text:      "update",
			opts:      locator.Options{Mode: model.MatchModeExact},
			expClicks: []string{"Update"},
		},

		"Selector should restrict the candidates.": {
			text:   "update",
			opts:   locator.Options{Mode: model.MatchModeExact, Selector: "a"},
			expErr: true,
		},

		"A custom matcher should be used.": {
			text: "anything",
			opts: locator.Options{Matcher: func(s string) bool {
				return s == "Administration"
			}},
			expClicks: []string{"Administration"},
		},

		"Missing text should fail.": {
			text:   "Logout",
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			d := fake.NewDriver()
			d.SetPage("left", fake.Page{Elements: menu})
			f, err := d.Context(context.Background(), "left")
			require.NoError(err)

			l := locator.New(log.Noop)
			err = l.ClickByText(context.Background(), f, test.text, test.opts)
			if test.expErr {
				var nfErr *model.ElementNotFoundError
				require.ErrorAs(err, &nfErr)
				assert.Equal("left", nfErr.Context)
				assert.Equal(test.text, nfErr.Text)
				assert.Empty(d.Clicks())
				return
			}

			require.NoError(err)
			assert.Equal(test.expClicks, d.Clicks())
		})
	}
}
