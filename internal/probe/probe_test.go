package probe_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/probe"
	"github.com/zhoujuxi2028/consoleqa/internal/probe/fake"
)

func TestRetrying(t *testing.T) {
	tests := map[string]struct {
		mock     func(p *fake.Probe)
		command  string
		expOut   string
		expErr   bool
		expCalls int
	}{
		"A successful command should be executed once.": {
			mock:     func(p *fake.Probe) { p.SetOutput("hostname", "iwsva01\n") },
			command:  "hostname",
			expOut:   "iwsva01\n",
			expCalls: 1,
		},

		"Transport failures should be retried.": {
			mock: func(p *fake.Probe) {
				p.SetOutput("hostname", "iwsva01\n").FailNext(2)
			},
			command:  "hostname",
			expOut:   "iwsva01\n",
			expCalls: 3,
		},

		"Transport failures should stop after the max attempts.": {
			mock: func(p *fake.Probe) {
				p.SetOutput("hostname", "iwsva01\n").FailNext(5)
			},
			command:  "hostname",
			expErr:   true,
			expCalls: 3,
		},

		"Command failures should not be retried.": {
			mock: func(p *fake.Probe) {
				p.SetCommand("systemctl restart iwss", fake.Result{ExitCode: 1, Stderr: "denied"})
			},
			command:  "systemctl restart iwss",
			expErr:   true,
			expCalls: 1,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			fp := fake.NewProbe()
			test.mock(fp)

			p, err := probe.NewRetrying(fp, probe.RetryConfig{Limiter: rate.NewLimiter(rate.Inf, 1)})
			require.NoError(err)

			out, err := p.Execute(context.Background(), test.command)
			if test.expErr {
				assert.Error(err)
			} else if assert.NoError(err) {
				assert.Equal(test.expOut, out)
			}
			assert.Len(fp.Calls(), test.expCalls)
		})
	}
}

func TestRetryingReadFileNotFound(t *testing.T) {
	fp := fake.NewProbe()
	p, err := probe.NewRetrying(fp, probe.RetryConfig{Limiter: rate.NewLimiter(rate.Inf, 1)})
	require.NoError(t, err)

	_, err = p.ReadFile(context.Background(), "/etc/iscan/intscan.ini")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Len(t, fp.Calls(), 1)
}

func TestRetryingReadFileRefused(t *testing.T) {
	fp := fake.NewProbe().SetFile("/etc/shadow", "root:x").DenyFile("/etc/shadow")
	p, err := probe.NewRetrying(fp, probe.RetryConfig{Limiter: rate.NewLimiter(rate.Inf, 1)})
	require.NoError(t, err)

	_, err = p.ReadFile(context.Background(), "/etc/shadow")
	assert.ErrorIs(t, err, model.ErrRefused)
	assert.Len(t, fp.Calls(), 1)
}

func TestRetryingDoesNotDelayFirstAttempts(t *testing.T) {
	require := require.New(t)

	fp := fake.NewProbe().SetOutput("hostname", "iwsva01\n")
	// A limiter that would hold every call for a long time.
	p, err := probe.NewRetrying(fp, probe.RetryConfig{Limiter: rate.NewLimiter(rate.Every(time.Hour), 1)})
	require.NoError(err)

	start := time.Now()
	for range 5 {
		_, err := p.Execute(context.Background(), "hostname")
		require.NoError(err)
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, fp.Calls(), 5)
}

func TestRetryingSpacesRetries(t *testing.T) {
	require := require.New(t)

	fp := fake.NewProbe().SetOutput("hostname", "iwsva01\n").FailNext(1)
	limiter := rate.NewLimiter(rate.Every(50*time.Millisecond), 1)
	require.True(limiter.Allow())
	p, err := probe.NewRetrying(fp, probe.RetryConfig{Limiter: limiter})
	require.NoError(err)

	start := time.Now()
	_, err = p.Execute(context.Background(), "hostname")
	require.NoError(err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Len(t, fp.Calls(), 2)
}

func TestRetryingCancel(t *testing.T) {
	fp := fake.NewProbe().SetUnreachable(fmt.Errorf("no route to host"))
	p, err := probe.NewRetrying(fp, probe.RetryConfig{Attempts: 10, Limiter: rate.NewLimiter(rate.Inf, 1)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = p.Execute(ctx, "uname -r")
	assert.Error(t, err)
	assert.Empty(t, fp.Calls())
}

func TestNewRetryingRequiresProbe(t *testing.T) {
	_, err := probe.NewRetrying(nil, probe.RetryConfig{})
	assert.Error(t, err)
}
