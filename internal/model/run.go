package model

import (
	"fmt"
	"time"
)

// Run is a stored verification execution.
type Run struct {
	ID        string
	Report    VerificationReport
	CreatedAt time.Time
}

// Validate validates the run.
func (r Run) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("run id is required: %w", ErrNotValid)
	}
	if r.Report.Kind == "" {
		return fmt.Errorf("run report kind is required: %w", ErrNotValid)
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("run creation time is required: %w", ErrNotValid)
	}
	return nil
}

// RunListOpts filters the listed runs.
type RunListOpts struct {
	ComponentID *string
	Kind        *VerificationKind
	// Limit of 0 or less returns all the matching runs.
	Limit int
}

// Match returns true if the run satisfies the filters, limit is ignored.
func (o RunListOpts) Match(r Run) bool {
	if o.ComponentID != nil && *o.ComponentID != r.Report.ComponentID {
		return false
	}
	if o.Kind != nil && *o.Kind != r.Report.Kind {
		return false
	}
	return true
}
