package io

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/zhoujuxi2028/consoleqa/internal/conventions"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

// SuiteRepository loads verification suites from YAML or TOML files, the format is
// selected by the file extension.
type SuiteRepository struct {
	fs fs.FS
}

// NewSuiteRepository creates a new suite file repository.
func NewSuiteRepository(filesystem fs.FS) *SuiteRepository {
	return &SuiteRepository{fs: filesystem}
}

// GetSuite loads a suite file and returns a validated domain model. The suite components
// are the default catalog with the file overrides applied.
func (r *SuiteRepository) GetSuite(ctx context.Context, filePath string) (model.Suite, error) {
	data, err := fs.ReadFile(r.fs, filePath)
	if err != nil {
		return model.Suite{}, fmt.Errorf("reading suite file: %w", err)
	}

	if ctx.Err() != nil {
		return model.Suite{}, ctx.Err()
	}

	var cfg SuiteConfig
	switch ext := strings.ToLower(path.Ext(filePath)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return model.Suite{}, fmt.Errorf("parsing YAML: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return model.Suite{}, fmt.Errorf("parsing TOML: %w", err)
		}
	default:
		return model.Suite{}, fmt.Errorf("unsupported suite file extension %q: %w", ext, model.ErrNotValid)
	}

	suite, err := cfg.toModel()
	if err != nil {
		return model.Suite{}, fmt.Errorf("invalid suite: %w", err)
	}

	if err := suite.Validate(); err != nil {
		return model.Suite{}, fmt.Errorf("invalid suite: %w", err)
	}

	return suite, nil
}

// SuiteConfig represents the suite file structure.
type SuiteConfig struct {
	Name             string            `yaml:"name" toml:"name"`
	Levels           []string          `yaml:"levels" toml:"levels"`
	Wait             WaitConfig        `yaml:"wait" toml:"wait"`
	ExpectedVersions map[string]string `yaml:"expected_versions" toml:"expected_versions"`
	Components       []ComponentConfig `yaml:"components" toml:"components"`
	Recipes          []RecipeConfig    `yaml:"recipes" toml:"recipes"`
}

// WaitConfig represents the polling wait settings, durations use Go duration format.
type WaitConfig struct {
	Timeout      string `yaml:"timeout" toml:"timeout"`
	PollInterval string `yaml:"poll_interval" toml:"poll_interval"`
}

// ComponentConfig overrides a catalog component, or declares a new one when the ID is unknown.
type ComponentConfig struct {
	ID                string   `yaml:"id" toml:"id"`
	Name              string   `yaml:"name" toml:"name"`
	UILabel           string   `yaml:"ui_label" toml:"ui_label"`
	INIKey            string   `yaml:"ini_key" toml:"ini_key"`
	LockFile          string   `yaml:"lock_file" toml:"lock_file"`
	SuccessPattern    string   `yaml:"success_pattern" toml:"success_pattern"`
	RollbackPattern   string   `yaml:"rollback_pattern" toml:"rollback_pattern"`
	UpdateTimeout     string   `yaml:"update_timeout" toml:"update_timeout"`
	RollbackTimeout   string   `yaml:"rollback_timeout" toml:"rollback_timeout"`
	RollbackSupported *bool    `yaml:"rollback_supported" toml:"rollback_supported"`
	Files             []string `yaml:"files" toml:"files"`
}

// RecipeConfig represents a navigation recipe.
type RecipeConfig struct {
	Name  string       `yaml:"name" toml:"name"`
	Steps []StepConfig `yaml:"steps" toml:"steps"`
}

// StepConfig represents a navigation step.
type StepConfig struct {
	Context       string          `yaml:"context" toml:"context"`
	Click         string          `yaml:"click" toml:"click"`
	Match         string          `yaml:"match" toml:"match"`
	CaseSensitive bool            `yaml:"case_sensitive" toml:"case_sensitive"`
	WaitContext   string          `yaml:"wait_context" toml:"wait_context"`
	WaitFor       ConditionConfig `yaml:"wait_for" toml:"wait_for"`
}

// ConditionConfig represents a text condition.
type ConditionConfig struct {
	Contains      string `yaml:"contains" toml:"contains"`
	Pattern       string `yaml:"pattern" toml:"pattern"`
	CaseSensitive bool   `yaml:"case_sensitive" toml:"case_sensitive"`
}

func (c SuiteConfig) toModel() (model.Suite, error) {
	suite := model.Suite{
		Name:             c.Name,
		ExpectedVersions: map[string]string{},
	}

	var err error
	if suite.WaitTimeout, err = parseDuration(c.Wait.Timeout); err != nil {
		return model.Suite{}, fmt.Errorf("wait timeout: %w", err)
	}
	if suite.PollInterval, err = parseDuration(c.Wait.PollInterval); err != nil {
		return model.Suite{}, fmt.Errorf("wait poll interval: %w", err)
	}

	for _, l := range c.Levels {
		suite.Levels = append(suite.Levels, model.Level(strings.ToLower(strings.TrimSpace(l))))
	}

	for id, v := range c.ExpectedVersions {
		suite.ExpectedVersions[strings.ToUpper(id)] = strings.TrimSpace(v)
	}

	suite.Components = conventions.Components()
	for _, cc := range c.Components {
		if cc.ID == "" {
			return model.Suite{}, fmt.Errorf("component id is required: %w", model.ErrNotValid)
		}
		id := strings.ToUpper(cc.ID)

		idx := -1
		for i, comp := range suite.Components {
			if comp.ID == id {
				idx = i
				break
			}
		}

		comp := model.Component{ID: id, LockFile: conventions.LockFilePath(strings.ToLower(id))}
		if idx >= 0 {
			comp = suite.Components[idx]
		}
		if err := cc.apply(&comp); err != nil {
			return model.Suite{}, fmt.Errorf("component %q: %w", id, err)
		}

		if idx >= 0 {
			suite.Components[idx] = comp
		} else {
			suite.Components = append(suite.Components, comp)
		}
	}

	for _, rc := range c.Recipes {
		steps := make([]model.NavigationStep, 0, len(rc.Steps))
		for _, s := range rc.Steps {
			steps = append(steps, model.NavigationStep{
				Context:       s.Context,
				Click:         s.Click,
				MatchMode:     model.MatchMode(s.Match),
				CaseSensitive: s.CaseSensitive,
				WaitContext:   s.WaitContext,
				WaitFor: model.TextCondition{
					Contains:      s.WaitFor.Contains,
					Pattern:       s.WaitFor.Pattern,
					CaseSensitive: s.WaitFor.CaseSensitive,
				},
			})
		}
		suite.Recipes = append(suite.Recipes, model.NewNavigationRecipe(rc.Name, steps...))
	}

	return suite, nil
}

func (c ComponentConfig) apply(comp *model.Component) error {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&comp.Name, c.Name)
	set(&comp.UILabel, c.UILabel)
	set(&comp.INIKey, c.INIKey)
	set(&comp.LockFile, c.LockFile)
	set(&comp.SuccessPattern, c.SuccessPattern)
	set(&comp.RollbackPattern, c.RollbackPattern)

	if c.UpdateTimeout != "" {
		d, err := parseDuration(c.UpdateTimeout)
		if err != nil {
			return fmt.Errorf("update timeout: %w", err)
		}
		comp.UpdateTimeout = d
	}
	if c.RollbackTimeout != "" {
		d, err := parseDuration(c.RollbackTimeout)
		if err != nil {
			return fmt.Errorf("rollback timeout: %w", err)
		}
		comp.RollbackTimeout = d
	}
	if c.RollbackSupported != nil {
		comp.RollbackSupported = *c.RollbackSupported
	}
	if c.Files != nil {
		comp.Files = append([]string{}, c.Files...)
	}
	if comp.Name == "" {
		comp.Name = comp.ID
	}

	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, model.ErrNotValid)
	}
	return d, nil
}
