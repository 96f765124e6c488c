package navigator

import (
	"fmt"
	"slices"

	"github.com/zhoujuxi2028/consoleqa/internal/conventions"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

const (
	RecipeSystemUpdates   = "system-updates"
	RecipeTriggerUpdate   = "trigger-update"
	RecipeTriggerRollback = "trigger-rollback"
)

// SystemUpdatesPageMarker is present in the system updates page.
const SystemUpdatesPageMarker = "System Update"

var progressStarted = model.TextCondition{Pattern: `\d{1,3}\s*%|in progress|completed|failed`}

// SystemUpdatesRecipe opens the system updates page from the left menu.
func SystemUpdatesRecipe() model.NavigationRecipe {
	return model.NewNavigationRecipe(RecipeSystemUpdates,
		model.NavigationStep{
			Context:     conventions.FrameLeft,
			Click:       "Administration",
			WaitContext: conventions.FrameLeft,
			WaitFor:     model.TextCondition{Contains: "System Updates"},
		},
		model.NavigationStep{
			Context:     conventions.FrameLeft,
			Click:       "System Updates",
			WaitContext: conventions.FrameRight,
			WaitFor:     model.TextCondition{Contains: SystemUpdatesPageMarker},
		},
	)
}

// TriggerUpdateRecipe starts the update of the selected components from the system
// updates page.
func TriggerUpdateRecipe() model.NavigationRecipe {
	return model.NewNavigationRecipe(RecipeTriggerUpdate,
		model.NavigationStep{
			Context:     conventions.FrameRight,
			Click:       "Update",
			MatchMode:   model.MatchModeExact,
			WaitContext: conventions.FrameRight,
			WaitFor:     progressStarted,
		},
	)
}

// TriggerRollbackRecipe starts the rollback of the selected components.
func TriggerRollbackRecipe() model.NavigationRecipe {
	return model.NewNavigationRecipe(RecipeTriggerRollback,
		model.NavigationStep{
			Context:     conventions.FrameRight,
			Click:       "Rollback",
			MatchMode:   model.MatchModeExact,
			WaitContext: conventions.FrameRight,
			WaitFor:     progressStarted,
		},
	)
}

// Recipes is a named recipe catalog.
type Recipes map[string]model.NavigationRecipe

// DefaultRecipes returns the built-in recipes.
func DefaultRecipes() Recipes {
	return Recipes{
		RecipeSystemUpdates:   SystemUpdatesRecipe(),
		RecipeTriggerUpdate:   TriggerUpdateRecipe(),
		RecipeTriggerRollback: TriggerRollbackRecipe(),
	}
}

// With returns a new catalog with the extra recipes, they replace the ones with the same name.
func (r Recipes) With(extra ...model.NavigationRecipe) Recipes {
	res := Recipes{}
	for k, v := range r {
		res[k] = v
	}
	for _, e := range extra {
		res[e.Name()] = e
	}
	return res
}

// Get returns a recipe by name.
func (r Recipes) Get(name string) (model.NavigationRecipe, error) {
	rc, ok := r[name]
	if !ok {
		return model.NavigationRecipe{}, fmt.Errorf("recipe %q: %w", name, model.ErrNotFound)
	}
	return rc, nil
}

// Names returns the sorted recipe names.
func (r Recipes) Names() []string {
	names := make([]string, 0, len(r))
	for k := range r {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}
