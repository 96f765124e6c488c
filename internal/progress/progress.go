package progress

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

const (
	DefaultTimeout      = 5 * time.Minute
	DefaultPollInterval = 2 * time.Second
	DefaultLogInterval  = 10 * time.Second

	// ReasonRegressed is the failure reason when the progress goes backwards.
	ReasonRegressed = "progress regressed"
)

var (
	// DefaultCompletionMarker matches the status of a finished operation.
	DefaultCompletionMarker = regexp.MustCompile(`(?i)completed successfully|update complete|rollback complete|up to date`)
	// DefaultErrorMarker matches the status of a failed operation.
	DefaultErrorMarker = regexp.MustCompile(`(?i)\berror\b|\bfailed\b|\bfailure\b`)
)

// Reading is a single progress observation.
type Reading struct {
	Percent    int
	StatusText string
}

// Reader reads the progress of an operation.
type Reader interface {
	Read(ctx context.Context) (Reading, error)
}

// ReaderFunc is a helper to implement Reader with a function.
type ReaderFunc func(ctx context.Context) (Reading, error)

func (r ReaderFunc) Read(ctx context.Context) (Reading, error) { return r(ctx) }

// Options are the monitoring options.
type Options struct {
	Timeout          time.Duration
	PollInterval     time.Duration
	LogInterval      time.Duration
	CompletionMarker *regexp.Regexp
	ErrorMarker      *regexp.Regexp
	// OnChange is called on every state change (optional).
	OnChange func(model.ProgressState)
}

func (o *Options) defaults() {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.LogInterval <= 0 {
		o.LogInterval = DefaultLogInterval
	}
	if o.CompletionMarker == nil {
		o.CompletionMarker = DefaultCompletionMarker
	}
	if o.ErrorMarker == nil {
		o.ErrorMarker = DefaultErrorMarker
	}
	if o.OnChange == nil {
		o.OnChange = func(model.ProgressState) {}
	}
}

// Monitor tracks long running operations until they reach a terminal state.
type Monitor struct {
	logger log.Logger
}

// NewMonitor returns a new progress monitor.
func NewMonitor(logger log.Logger) *Monitor {
	if logger == nil {
		logger = log.Noop
	}
	return &Monitor{logger: logger.WithValues(log.Kv{"svc": "progress.Monitor"})}
}

// Monitor polls the reader until the operation completes, fails or the timeout is reached.
// Failed and timed out operations return the terminal state along with a
// *model.ProgressFailedError or *model.ProgressTimeoutError.
func (m *Monitor) Monitor(ctx context.Context, r Reader, opts Options) (model.ProgressState, error) {
	opts.defaults()

	start := time.Now()
	deadline := start.Add(opts.Timeout)
	lastLog := start
	state := model.ProgressState{Phase: model.ProgressPhaseIdle}
	reads := 0

	transition := func(s model.ProgressState) {
		if s != state {
			m.logger.Debugf("Progress %s -> %s", state, s)
			state = s
			opts.OnChange(s)
		}
	}

	for {
		reading, err := r.Read(ctx)
		switch {
		case ctx.Err() != nil:
			return state, fmt.Errorf("monitoring cancelled at %s: %w", state, ctx.Err())
		case err != nil:
			m.logger.Warningf("Could not read progress: %s", err)
		case reading.Percent < 0 || reading.Percent > 100:
			m.logger.Warningf("Ignoring invalid progress %d%%", reading.Percent)
		default:
			reads++
			status := strings.TrimSpace(reading.StatusText)
			prev := state
			if prev.Phase == model.ProgressPhaseIdle {
				transition(model.ProgressState{Phase: model.ProgressPhasePolling, Percent: reading.Percent})
			}

			switch {
			case opts.ErrorMarker.MatchString(status):
				transition(model.ProgressState{Phase: model.ProgressPhaseFailed, Percent: reading.Percent, Reason: status})
			case prev.Phase == model.ProgressPhasePolling && reading.Percent < prev.Percent:
				transition(model.ProgressState{Phase: model.ProgressPhaseFailed, Percent: prev.Percent, Reason: ReasonRegressed})
			case reading.Percent == 100 && opts.CompletionMarker.MatchString(status):
				transition(model.ProgressState{Phase: model.ProgressPhaseCompleted, Percent: 100})
			default:
				transition(model.ProgressState{Phase: model.ProgressPhasePolling, Percent: reading.Percent})
			}
		}

		switch state.Phase {
		case model.ProgressPhaseCompleted:
			m.logger.Infof("Operation completed after %s (%d reads)", time.Since(start).Round(time.Second), reads)
			return state, nil
		case model.ProgressPhaseFailed:
			m.logger.Errorf("Operation failed at %d%%: %s", state.Percent, state.Reason)
			return state, &model.ProgressFailedError{Reason: state.Reason, LastPercent: state.Percent}
		}

		now := time.Now()
		if now.Sub(lastLog) >= opts.LogInterval {
			m.logger.Infof("[%s] Still monitoring (%s, %d reads)", now.Sub(start).Round(time.Second), state, reads)
			lastLog = now
		}

		remaining := deadline.Sub(now)
		if remaining <= 0 {
			last := state.Percent
			transition(model.ProgressState{Phase: model.ProgressPhaseTimedOut, Percent: last})
			m.logger.Errorf("Operation not finished after %s (last progress %d%%)", opts.Timeout, last)
			return state, &model.ProgressTimeoutError{LastPercent: last, Timeout: opts.Timeout}
		}

		timer := time.NewTimer(min(opts.PollInterval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return state, fmt.Errorf("monitoring cancelled at %s: %w", state, ctx.Err())
		case <-timer.C:
		}
	}
}
