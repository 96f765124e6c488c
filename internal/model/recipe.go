package model

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// TextCondition describes the text a browsing context must show. An empty condition
// is satisfied by any non empty text.
type TextCondition struct {
	Contains      string
	Pattern       string
	CaseSensitive bool
}

// Predicate returns the condition as a text predicate.
func (c TextCondition) Predicate() (func(text string) bool, error) {
	var re *regexp.Regexp
	if c.Pattern != "" {
		expr := c.Pattern
		if !c.CaseSensitive {
			expr = "(?i)" + expr
		}
		var err error
		re, err = regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", c.Pattern, ErrNotValid)
		}
	}

	contains := c.Contains
	if !c.CaseSensitive {
		contains = strings.ToLower(contains)
	}

	return func(text string) bool {
		if strings.TrimSpace(text) == "" {
			return false
		}
		if contains != "" {
			t := text
			if !c.CaseSensitive {
				t = strings.ToLower(t)
			}
			if !strings.Contains(t, contains) {
				return false
			}
		}
		if re != nil && !re.MatchString(text) {
			return false
		}
		return true
	}, nil
}

// MatchMode is how an element text is compared against the searched text.
type MatchMode string

const (
	MatchModeContains MatchMode = "contains"
	MatchModeExact    MatchMode = "exact"
)

// NavigationStep is an atomic navigation instruction: act on Context, click the element
// whose text matches Click (if any) and wait for WaitFor on WaitContext (if any).
type NavigationStep struct {
	Context       string
	Click         string
	MatchMode     MatchMode
	CaseSensitive bool
	// WaitContext is the context that must satisfy WaitFor once the step is done.
	WaitContext string
	WaitFor     TextCondition
}

// NavigationRecipe is an immutable ordered sequence of navigation steps.
type NavigationRecipe struct {
	name  string
	steps []NavigationStep
}

// NewNavigationRecipe returns a new recipe, the steps are copied.
func NewNavigationRecipe(name string, steps ...NavigationStep) NavigationRecipe {
	return NavigationRecipe{
		name:  name,
		steps: slices.Clone(steps),
	}
}

// Name returns the recipe name.
func (r NavigationRecipe) Name() string { return r.name }

// Steps returns a copy of the recipe steps.
func (r NavigationRecipe) Steps() []NavigationStep { return slices.Clone(r.steps) }

// Validate validates the recipe.
func (r NavigationRecipe) Validate() error {
	if r.name == "" {
		return fmt.Errorf("recipe name is required: %w", ErrNotValid)
	}
	if len(r.steps) == 0 {
		return fmt.Errorf("recipe %q has no steps: %w", r.name, ErrNotValid)
	}

	for i, s := range r.steps {
		if s.Context == "" && s.WaitContext == "" {
			return fmt.Errorf("recipe %q step %d has no context: %w", r.name, i, ErrNotValid)
		}
		if s.Click != "" && s.Context == "" {
			return fmt.Errorf("recipe %q step %d clicks without context: %w", r.name, i, ErrNotValid)
		}
		switch s.MatchMode {
		case "", MatchModeContains, MatchModeExact:
		default:
			return fmt.Errorf("recipe %q step %d has unknown match mode %q: %w", r.name, i, s.MatchMode, ErrNotValid)
		}
		if _, err := s.WaitFor.Predicate(); err != nil {
			return fmt.Errorf("recipe %q step %d: %w", r.name, i, err)
		}
	}

	return nil
}
