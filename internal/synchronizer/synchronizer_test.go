package synchronizer_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zhoujuxi2028/consoleqa/internal/browser/fake"
	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/synchronizer"
)

func TestSynchronizerWaitForContent(t *testing.T) {
	tests := map[string]struct {
		setup       func(d *fake.Driver)
		opts        synchronizer.WaitOptions
		expText     string
		expLastSeen string
		expErr      bool
	}{
		"A ready context should return its text.": {
			setup: func(d *fake.Driver) {
				d.SetPage("right", fake.Page{Text: "System Update"})
			},
			expText: "System Update",
		},

		"A context that appears later should be waited.": {
			setup: func(d *fake.Driver) {
				d.SetPage("right", fake.Page{Text: "System Update", HiddenFor: 3})
			},
			expText: "System Update",
		},

		"An empty context should not satisfy the default condition.": {
			setup: func(d *fake.Driver) {
				d.SetPage("right", fake.Page{Text: "   "})
			},
			expErr: true,
		},

		"A missing context should time out without last seen text.": {
			setup:       func(d *fake.Driver) {},
			expErr:      true,
			expLastSeen: "",
		},

		"A context that never satisfies the condition should time out with the last seen text.": {
			setup: func(d *fake.Driver) {
				d.SetPage("right", fake.Page{Text: "Loading..."})
			},
			opts:        synchronizer.WaitOptions{Condition: synchronizer.Contains("System Update", false)},
			expErr:      true,
			expLastSeen: "Loading...",
		},

		"A regexp condition should be used.": {
			setup: func(d *fake.Driver) {
				d.SetPage("right", fake.Page{Text: "Updating 45%"})
			},
			opts:    synchronizer.WaitOptions{Condition: synchronizer.MatchesRegexp(regexp.MustCompile(`\d+%`))},
			expText: "Updating 45%",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			d := fake.NewDriver()
			test.setup(d)

			s, err := synchronizer.New(synchronizer.Config{
				Driver:              d,
				DefaultTimeout:      100 * time.Millisecond,
				DefaultPollInterval: 5 * time.Millisecond,
				Logger:              log.Noop,
			})
			require.NoError(err)

			text, err := s.WaitForContent(context.Background(), "right", test.opts)
			if test.expErr {
				var tErr *model.ContentTimeoutError
				require.ErrorAs(err, &tErr)
				assert.Equal("right", tErr.Context)
				assert.Equal(test.expLastSeen, tErr.LastSeenText)
				return
			}

			require.NoError(err)
			assert.Equal(test.expText, text)
		})
	}
}

func TestSynchronizerReResolvesReplacedContexts(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	d := fake.NewDriver()
	d.SetPage("right", fake.Page{Text: "Loading..."})

	s, err := synchronizer.New(synchronizer.Config{Driver: d, DefaultPollInterval: 5 * time.Millisecond})
	require.NoError(err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		d.SetPage("right", fake.Page{Text: "System Update"})
	}()

	text, err := s.WaitForContent(context.Background(), "right", synchronizer.WaitOptions{
		Condition: synchronizer.Contains("system update", false),
		Timeout:   2 * time.Second,
	})
	require.NoError(err)
	assert.Equal("System Update", text)
	assert.Greater(d.Resolutions("right"), 1)
}

func TestSynchronizerCancellation(t *testing.T) {
	d := fake.NewDriver()
	s, err := synchronizer.New(synchronizer.Config{Driver: d})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.WaitForContent(ctx, "right", synchronizer.WaitOptions{Timeout: time.Minute})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSynchronizerTimeoutFloor(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		timeout := time.Duration(rapid.IntRange(1, 40).Draw(t, "timeoutMs")) * time.Millisecond
		poll := time.Duration(rapid.IntRange(1, 15).Draw(t, "pollMs")) * time.Millisecond
		present := rapid.Bool().Draw(t, "contextPresent")

		d := fake.NewDriver()
		if present {
			d.SetPage("right", fake.Page{Text: rapid.StringMatching(`[a-z ]{0,20}`).Draw(t, "text")})
		}

		s, err := synchronizer.New(synchronizer.Config{Driver: d})
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		start := time.Now()
		_, err = s.WaitForContent(context.Background(), "right", synchronizer.WaitOptions{
			Condition:    func(string) bool { return false },
			Timeout:      timeout,
			PollInterval: poll,
		})
		elapsed := time.Since(start)

		var tErr *model.ContentTimeoutError
		if !assert.ErrorAs(t, err, &tErr) {
			t.FailNow()
		}
		if elapsed < timeout {
			t.Fatalf("timed out after %s, before the %s timeout", elapsed, timeout)
		}
		if elapsed > timeout+poll+time.Second {
			t.Fatalf("timed out after %s, too late for the %s timeout", elapsed, timeout)
		}
	})
}
