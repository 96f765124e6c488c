package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/zhoujuxi2028/consoleqa/internal/app/facts"
	"github.com/zhoujuxi2028/consoleqa/internal/probe"
)

type FactsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	refresh bool
	maxAge  time.Duration
	format  string
}

// NewFactsCommand returns the facts command.
func NewFactsCommand(rootCmd *RootCommand, app *kingpin.Application) *FactsCommand {
	c := &FactsCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("facts", "Show the appliance system facts, collecting them when stale.")
	c.Cmd.Flag("refresh", "Collect the facts even if the stored ones are fresh.").BoolVar(&c.refresh)
	c.Cmd.Flag("max-age", "Age after which a stored fact is stale.").Default("10m").DurationVar(&c.maxAge)
	c.Cmd.Flag("format", "Output format (table, json).").Default(FormatTable).EnumVar(&c.format, FormatTable, FormatJSON)

	return c
}

func (c FactsCommand) Name() string { return c.Cmd.FullCommand() }

func (c FactsCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	suite, err := c.rootCmd.loadSuite(ctx)
	if err != nil {
		return err
	}

	repo, err := c.rootCmd.newRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	cfg := facts.ServiceConfig{
		Repository: repo,
		Components: suite.Components,
		Logger:     logger,
	}

	p, closeProbe, err := c.rootCmd.newProbe()
	if err != nil {
		return err
	}
	defer closeProbe()
	if p != nil {
		cfg.Collector = probe.NewFacts(p, logger)
	} else if c.refresh {
		return fmt.Errorf("ssh host is required to refresh the facts")
	}

	svc, err := facts.NewService(cfg)
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, facts.Request{Refresh: c.refresh, MaxAge: c.maxAge})
	if err != nil {
		return fmt.Errorf("could not get facts: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd).PrintFacts(res.Facts, c.maxAge); err != nil {
		return fmt.Errorf("could not print facts: %w", err)
	}

	return nil
}
