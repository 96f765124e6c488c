package locator

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhoujuxi2028/consoleqa/internal/browser"
	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

// DefaultSelector selects the clickable elements of a document.
const DefaultSelector = "a,button,input[type=button],input[type=submit]"

// Matcher tells if a normalized element text matches.
type Matcher func(normalized string) bool

// Options are the text matching options.
type Options struct {
	Mode          model.MatchMode
	CaseSensitive bool
	// Selector restricts the candidate elements, defaults to DefaultSelector.
	Selector string
	// Matcher overrides the match built from Mode and CaseSensitive.
	Matcher Matcher
}

func (o *Options) defaults(text string) {
	if o.Mode == "" {
		o.Mode = model.MatchModeContains
	}
	if o.Selector == "" {
		o.Selector = DefaultSelector
	}
	if o.Matcher == nil {
		o.Matcher = NewMatcher(text, o.Mode, o.CaseSensitive)
	}
}

// OptionsFromStep returns the matching options of a navigation step.
func OptionsFromStep(s model.NavigationStep) Options {
	return Options{Mode: s.MatchMode, CaseSensitive: s.CaseSensitive}
}

// Normalize collapses whitespace runs and trims the text.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// NewMatcher returns a matcher for the searched text.
func NewMatcher(text string, mode model.MatchMode, caseSensitive bool) Matcher {
	want := Normalize(text)
	if !caseSensitive {
		want = strings.ToLower(want)
	}

	return func(normalized string) bool {
		if !caseSensitive {
			normalized = strings.ToLower(normalized)
		}
		if mode == model.MatchModeExact {
			return normalized == want
		}
		return strings.Contains(normalized, want)
	}
}

// Locator finds elements by their text content.
type Locator struct {
	logger log.Logger
}

// New returns a new locator.
func New(logger log.Logger) *Locator {
	if logger == nil {
		logger = log.Noop
	}
	return &Locator{logger: logger.WithValues(log.Kv{"svc": "locator.Locator"})}
}

// FindByText returns the first element in document order whose text matches.
func (l *Locator) FindByText(ctx context.Context, frame browser.Frame, text string, opts Options) (browser.Element, error) {
	opts.defaults(text)

	elements, err := frame.Elements(ctx, opts.Selector)
	if err != nil {
		return nil, fmt.Errorf("could not list elements of context %q: %w", frame.Name(), err)
	}

	for _, e := range elements {
		et, err := e.Text(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not get element text in context %q: %w", frame.Name(), err)
		}
		if opts.Matcher(Normalize(et)) {
			return e, nil
		}
	}

	return nil, &model.ElementNotFoundError{Context: frame.Name(), Text: text}
}

// ClickByText finds an element by its text and clicks it.
func (l *Locator) ClickByText(ctx context.Context, frame browser.Frame, text string, opts Options) error {
	e, err := l.FindByText(ctx, frame, text, opts)
	if err != nil {
		return err
	}

	l.logger.Debugf("Clicking %q in context %q", text, frame.Name())
	if err := e.Click(ctx); err != nil {
		return fmt.Errorf("could not click %q in context %q: %w", text, frame.Name(), err)
	}

	return nil
}
