package navigate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhoujuxi2028/consoleqa/internal/app/navigate"
	bfake "github.com/zhoujuxi2028/consoleqa/internal/browser/fake"
	"github.com/zhoujuxi2028/consoleqa/internal/conventions"
	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/navigator"
)

func TestService_Run(t *testing.T) {
	summaryRecipe := model.NewNavigationRecipe("summary", model.NavigationStep{
		Context:     conventions.FrameLeft,
		Click:       "Summary",
		WaitContext: conventions.FrameRight,
		WaitFor:     model.TextCondition{Contains: "Summary"},
	})

	tests := map[string]struct {
		req     navigate.Request
		expText string
		expErr  error
	}{
		"the system updates recipe should return the right frame text": {
			req:     navigate.Request{Recipe: navigator.RecipeSystemUpdates},
			expText: "System Update\nVirus Pattern\t6.600.00",
		},
		"an extra recipe should be available": {
			req:     navigate.Request{Recipe: "summary"},
			expText: "Summary",
		},
		"another context can be read": {
			req:     navigate.Request{Recipe: navigator.RecipeSystemUpdates, Context: conventions.FrameTopHead},
			expText: "InterScan Web Security Virtual Appliance\nLog Off",
		},
		"an unknown recipe should fail": {
			req:    navigate.Request{Recipe: "nope"},
			expErr: model.ErrNotFound,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			nav, err := navigator.New(navigator.Config{
				Driver:       bfake.NewConsole("System Update\nVirus Pattern\t6.600.00"),
				StepTimeout:  150 * time.Millisecond,
				PollInterval: 5 * time.Millisecond,
			})
			require.NoError(err)

			svc, err := navigate.NewService(navigate.ServiceConfig{
				Navigator: nav,
				Recipes:   navigator.DefaultRecipes().With(summaryRecipe),
				Logger:    log.Noop,
			})
			require.NoError(err)

			text, err := svc.Run(context.Background(), test.req)
			if test.expErr != nil {
				assert.True(t, errors.Is(err, test.expErr))
				return
			}
			require.NoError(err)
			assert.Equal(t, test.expText, text)
		})
	}
}
