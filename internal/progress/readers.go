package progress

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

var percentRegexp = regexp.MustCompile(`(\d{1,3})\s*%`)

// TextExtractor extracts the text of a browsing context.
type TextExtractor interface {
	ExtractText(ctx context.Context, contextName string) (string, error)
}

// UIReader reads the progress shown in a console frame.
type UIReader struct {
	extractor        TextExtractor
	contextName      string
	completionMarker *regexp.Regexp
	errorMarker      *regexp.Regexp

	mu   sync.Mutex
	last int
}

// NewUIReader returns a reader of the progress shown in a console frame. Nil markers use
// the monitor defaults.
func NewUIReader(extractor TextExtractor, contextName string, completionMarker, errorMarker *regexp.Regexp) *UIReader {
	if completionMarker == nil {
		completionMarker = DefaultCompletionMarker
	}
	if errorMarker == nil {
		errorMarker = DefaultErrorMarker
	}
	return &UIReader{
		extractor:        extractor,
		contextName:      contextName,
		completionMarker: completionMarker,
		errorMarker:      errorMarker,
	}
}

// Read returns the first percentage of the frame and the frame text as status. Pages
// without a percentage are only valid when they show a terminal status.
func (r *UIReader) Read(ctx context.Context) (Reading, error) {
	text, err := r.extractor.ExtractText(ctx, r.contextName)
	if err != nil {
		return Reading{}, fmt.Errorf("could not read progress page: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m := percentRegexp.FindStringSubmatch(text)
	switch {
	case m != nil:
		p, err := strconv.Atoi(m[1])
		if err != nil {
			return Reading{}, fmt.Errorf("invalid progress %q: %w", m[1], err)
		}
		r.last = p
	case r.errorMarker.MatchString(text):
	case r.completionMarker.MatchString(text):
		r.last = 100
	default:
		return Reading{}, fmt.Errorf("no progress indicator in %q context", r.contextName)
	}

	return Reading{Percent: r.last, StatusText: strings.TrimSpace(text)}, nil
}

// LockChecker tells if a component update lock is present.
type LockChecker interface {
	LockFilePresent(ctx context.Context, c model.Component) (model.SystemFact, bool, error)
}

// LockFileReader reads the progress of a component update from its appliance lock file.
// The lock is present while the update runs.
type LockFileReader struct {
	checker   LockChecker
	component model.Component
}

// NewLockFileReader returns a new lock file reader.
func NewLockFileReader(checker LockChecker, component model.Component) *LockFileReader {
	return &LockFileReader{checker: checker, component: component}
}

func (r *LockFileReader) Read(ctx context.Context) (Reading, error) {
	_, present, err := r.checker.LockFilePresent(ctx, r.component)
	if err != nil {
		return Reading{}, fmt.Errorf("could not check %s lock file: %w", r.component.ID, err)
	}

	if present {
		return Reading{Percent: 0, StatusText: r.component.ID + " update in progress"}, nil
	}
	return Reading{Percent: 100, StatusText: r.component.ID + " update complete"}, nil
}
