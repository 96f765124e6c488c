package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/zhoujuxi2028/consoleqa/internal/app/history"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

type HistoryCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	componentID string
	kind        string
	onlyFailed  bool
	limit       int
	format      string
}

// NewHistoryCommand returns the history command.
func NewHistoryCommand(rootCmd *RootCommand, app *kingpin.Application) *HistoryCommand {
	c := &HistoryCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("history", "List the stored verification runs, newest first.")
	c.Cmd.Flag("component", "Filter by component ID.").StringVar(&c.componentID)
	c.Cmd.Flag("kind", "Filter by verification kind (update, rollback, health).").StringVar(&c.kind)
	c.Cmd.Flag("failed", "Only list failed runs.").BoolVar(&c.onlyFailed)
	c.Cmd.Flag("limit", "Maximum runs listed, negative lists all.").Default(fmt.Sprint(history.DefaultLimit)).IntVar(&c.limit)
	c.Cmd.Flag("format", "Output format (table, json).").Default(FormatTable).EnumVar(&c.format, FormatTable, FormatJSON)

	return c
}

func (c HistoryCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryCommand) Run(ctx context.Context) error {
	var kind model.VerificationKind
	if c.kind != "" {
		kind = model.VerificationKind(strings.ToLower(c.kind))
		switch kind {
		case model.VerificationKindUpdate, model.VerificationKindRollback, model.VerificationKindHealth:
		default:
			return fmt.Errorf("invalid kind filter: %s (must be: update, rollback, health)", c.kind)
		}
	}

	repo, err := c.rootCmd.newRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc, err := history.NewService(history.ServiceConfig{
		Repository: repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	runs, err := svc.Run(ctx, history.Request{
		ComponentID: c.componentID,
		Kind:        kind,
		OnlyFailed:  c.onlyFailed,
		Limit:       c.limit,
	})
	if err != nil {
		return fmt.Errorf("could not list runs: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd).PrintRunList(runs); err != nil {
		return fmt.Errorf("could not print runs: %w", err)
	}

	return nil
}
