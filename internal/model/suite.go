package model

import (
	"fmt"
	"slices"
	"time"
)

// Suite is a loaded verification suite: the component catalog, the expected versions and
// the extra navigation recipes to use against an appliance.
type Suite struct {
	Name string
	// ExpectedVersions by component ID.
	ExpectedVersions map[string]string
	Components       []Component
	Recipes          []NavigationRecipe
	// Levels enabled by default, empty means all.
	Levels       []Level
	WaitTimeout  time.Duration
	PollInterval time.Duration
}

// Component returns a suite component by ID.
func (s Suite) Component(id string) (Component, error) {
	i := slices.IndexFunc(s.Components, func(c Component) bool { return c.ID == id })
	if i < 0 {
		return Component{}, fmt.Errorf("unknown component %q: %w", id, ErrNotFound)
	}
	c := s.Components[i]
	c.Files = slices.Clone(c.Files)
	return c, nil
}

// Validate validates the suite.
func (s Suite) Validate() error {
	seen := map[string]bool{}
	for _, c := range s.Components {
		if seen[c.ID] {
			return fmt.Errorf("duplicated component %q: %w", c.ID, ErrNotValid)
		}
		seen[c.ID] = true
		if err := c.Validate(); err != nil {
			return fmt.Errorf("component %q: %w", c.ID, err)
		}
	}

	for id, v := range s.ExpectedVersions {
		if !seen[id] {
			return fmt.Errorf("expected version for unknown component %q: %w", id, ErrNotValid)
		}
		if v == "" {
			return fmt.Errorf("expected version for component %q is empty: %w", id, ErrNotValid)
		}
	}

	names := map[string]bool{}
	for _, r := range s.Recipes {
		if names[r.Name()] {
			return fmt.Errorf("duplicated recipe %q: %w", r.Name(), ErrNotValid)
		}
		names[r.Name()] = true
		if err := r.Validate(); err != nil {
			return err
		}
	}

	for _, l := range s.Levels {
		if !l.Valid() {
			return fmt.Errorf("unknown level %q: %w", l, ErrNotValid)
		}
	}

	if s.WaitTimeout < 0 || s.PollInterval < 0 {
		return fmt.Errorf("timeouts can't be negative: %w", ErrNotValid)
	}

	return nil
}
