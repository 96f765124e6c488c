package navigate

import (
	"context"
	"fmt"

	"github.com/zhoujuxi2028/consoleqa/internal/conventions"
	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/navigator"
)

// Navigator runs recipes and reads contexts.
type Navigator interface {
	Run(ctx context.Context, recipe model.NavigationRecipe) error
	ExtractText(ctx context.Context, contextName string) (string, error)
}

// ServiceConfig is the configuration for the navigate service.
type ServiceConfig struct {
	Navigator Navigator
	// Recipes defaults to the built-in recipes.
	Recipes navigator.Recipes
	Logger  log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Navigator == nil {
		return fmt.Errorf("navigator is required")
	}
	if c.Recipes == nil {
		c.Recipes = navigator.DefaultRecipes()
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Navigate"})
	return nil
}

// Service runs navigation recipes and returns the resulting page text.
type Service struct {
	nav     Navigator
	recipes navigator.Recipes
	logger  log.Logger
}

// NewService creates a new navigate service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		nav:     cfg.Navigator,
		recipes: cfg.Recipes,
		logger:  cfg.Logger,
	}, nil
}

// Request represents the navigate request parameters.
type Request struct {
	Recipe string
	// Context is the context whose text is returned, defaults to the right frame.
	Context string
}

// Run runs the recipe and returns the text of the requested context.
func (s *Service) Run(ctx context.Context, req Request) (string, error) {
	recipe, err := s.recipes.Get(req.Recipe)
	if err != nil {
		return "", fmt.Errorf("unknown recipe, available: %v: %w", s.recipes.Names(), err)
	}

	contextName := req.Context
	if contextName == "" {
		contextName = conventions.FrameRight
	}

	if err := s.nav.Run(ctx, recipe); err != nil {
		return "", fmt.Errorf("could not run recipe: %w", err)
	}
	s.logger.Infof("Recipe %q completed", recipe.Name())

	text, err := s.nav.ExtractText(ctx, contextName)
	if err != nil {
		return "", fmt.Errorf("could not read %q context: %w", contextName, err)
	}

	return text, nil
}
