package model

import (
	"fmt"
	"regexp"
	"time"
)

// Component is an updatable security component of the appliance (pattern files, engines...).
type Component struct {
	ID   string // E.g: PTN.
	Name string
	// UILabel is the text that identifies the component row in the system updates page.
	UILabel string
	// INIKey is the key of the component version in the appliance INI file.
	INIKey string
	// LockFile is present on the appliance while the component is being updated.
	LockFile string
	// SuccessPattern matches the update log lines that report a successful update.
	SuccessPattern string
	// RollbackPattern matches the update log lines that report a successful rollback.
	RollbackPattern   string
	UpdateTimeout     time.Duration
	RollbackTimeout   time.Duration
	RollbackSupported bool
	// Files are the appliance paths that must exist once the component is installed.
	Files []string
}

// Validate validates the component.
func (c Component) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("id is required: %w", ErrNotValid)
	}
	if c.INIKey == "" {
		return fmt.Errorf("ini key is required: %w", ErrNotValid)
	}
	if c.UILabel == "" {
		return fmt.Errorf("ui label is required: %w", ErrNotValid)
	}
	if c.UpdateTimeout <= 0 {
		return fmt.Errorf("update timeout must be positive: %w", ErrNotValid)
	}
	if c.RollbackSupported && c.RollbackTimeout <= 0 {
		return fmt.Errorf("rollback timeout must be positive when rollback is supported: %w", ErrNotValid)
	}
	for _, p := range []string{c.SuccessPattern, c.RollbackPattern} {
		if p == "" {
			continue
		}
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid log pattern %q: %w", p, ErrNotValid)
		}
	}

	return nil
}
