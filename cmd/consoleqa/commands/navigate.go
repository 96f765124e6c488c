package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/zhoujuxi2028/consoleqa/internal/app/navigate"
	"github.com/zhoujuxi2028/consoleqa/internal/conventions"
	"github.com/zhoujuxi2028/consoleqa/internal/navigator"
)

type NavigateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	recipe  string
	context string
	list    bool
	format  string
}

// NewNavigateCommand returns the navigate command.
func NewNavigateCommand(rootCmd *RootCommand, app *kingpin.Application) *NavigateCommand {
	c := &NavigateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("navigate", "Run a navigation recipe and print the text of a console frame.")
	c.Cmd.Flag("recipe", "Recipe name, built-in or declared in the suite.").Default(navigator.RecipeSystemUpdates).StringVar(&c.recipe)
	c.Cmd.Flag("context", "Frame whose text is printed.").Default(conventions.FrameRight).StringVar(&c.context)
	c.Cmd.Flag("list", "List the available recipes.").BoolVar(&c.list)
	c.Cmd.Flag("format", "Output format (table, json).").Default(FormatTable).EnumVar(&c.format, FormatTable, FormatJSON)

	return c
}

func (c NavigateCommand) Name() string { return c.Cmd.FullCommand() }

func (c NavigateCommand) Run(ctx context.Context) error {
	out := newPrinter(c.format, c.rootCmd)

	suite, err := c.rootCmd.loadSuite(ctx)
	if err != nil {
		return err
	}
	recipes := navigator.DefaultRecipes().With(suite.Recipes...)

	if c.list {
		return out.PrintMessage(strings.Join(recipes.Names(), "\n"))
	}

	if c.rootCmd.Console.URL == "" {
		return fmt.Errorf("console URL is required to navigate")
	}
	console, err := c.rootCmd.openConsole(ctx, suite)
	if err != nil {
		return err
	}
	defer console.closer()

	svc, err := navigate.NewService(navigate.ServiceConfig{
		Navigator: console.nav,
		Recipes:   recipes,
		Logger:    c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	text, err := svc.Run(ctx, navigate.Request{Recipe: c.recipe, Context: c.context})
	if err != nil {
		return fmt.Errorf("could not navigate: %w", err)
	}

	return out.PrintMessage(text)
}
