package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/zhoujuxi2028/consoleqa/internal/app/verify"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/probe"
	iverify "github.com/zhoujuxi2028/consoleqa/internal/verify"
)

// verifyFlags are the flags shared by the verify subcommands.
type verifyFlags struct {
	levels []string
	format string
}

func (f *verifyFlags) register(cmd *kingpin.CmdClause) {
	cmd.Flag("level", "Verification levels to run (ui, backend, log, business), comma separated or repeated.").StringsVar(&f.levels)
	cmd.Flag("format", "Output format (table, json).").Default(FormatTable).EnumVar(&f.format, FormatTable, FormatJSON)
}

// VerifyCommand runs a composite verification, stores and prints its report.
type VerifyCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
	kind    model.VerificationKind
	flags   verifyFlags

	batch           bool
	componentID     string
	expectedVersion string
	expected        map[string]string
}

// NewVerifyUpdateCommand returns the verify update command.
func NewVerifyUpdateCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *VerifyCommand {
	c := &VerifyCommand{rootCmd: rootCmd, kind: model.VerificationKindUpdate}

	c.Cmd = parent.Command("update", "Verify a component update completed on every level.")
	c.Cmd.Flag("component", "Component ID (e.g. PTN).").Required().StringVar(&c.componentID)
	c.Cmd.Flag("version", "Expected version, defaults to the suite expected version.").StringVar(&c.expectedVersion)
	c.flags.register(c.Cmd)

	return c
}

// NewVerifyRollbackCommand returns the verify rollback command.
func NewVerifyRollbackCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *VerifyCommand {
	c := &VerifyCommand{rootCmd: rootCmd, kind: model.VerificationKindRollback}

	c.Cmd = parent.Command("rollback", "Verify a component rollback completed on every level.")
	c.Cmd.Flag("component", "Component ID (e.g. PTN).").Required().StringVar(&c.componentID)
	c.Cmd.Flag("version", "Expected version after the rollback.").Required().StringVar(&c.expectedVersion)
	c.flags.register(c.Cmd)

	return c
}

// NewVerifyHealthCommand returns the verify health command.
func NewVerifyHealthCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *VerifyCommand {
	c := &VerifyCommand{rootCmd: rootCmd, kind: model.VerificationKindHealth}

	c.Cmd = parent.Command("health", "Verify the console and the appliance are healthy.")
	c.flags.register(c.Cmd)

	return c
}

// NewVerifyBatchCommand returns the verify batch command.
func NewVerifyBatchCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *VerifyCommand {
	c := &VerifyCommand{rootCmd: rootCmd, kind: model.VerificationKindUpdate, batch: true}

	c.Cmd = parent.Command("batch", "Verify the update of many components, one report each.")
	c.Cmd.Flag("expect", "Expected component version as ID=VERSION, defaults to the suite expected versions.").StringMapVar(&c.expected)
	c.flags.register(c.Cmd)

	return c
}

func (c VerifyCommand) Name() string { return c.Cmd.FullCommand() }

func (c VerifyCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	suite, err := c.rootCmd.loadSuite(ctx)
	if err != nil {
		return err
	}

	req, err := c.request(suite)
	if err != nil {
		return err
	}

	levels, err := parseLevels(c.flags.levels)
	if err != nil {
		return err
	}
	if len(levels) == 0 {
		levels = suite.Levels
	}

	repo, err := c.rootCmd.newRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	cfg := iverify.Config{
		Components: suite.Component,
		Levels:     levels,
		Logger:     logger,
	}

	p, closeProbe, err := c.rootCmd.newProbe()
	if err != nil {
		return err
	}
	defer closeProbe()
	if p != nil {
		cfg.Probe = p
		cfg.Reach = func(ctx context.Context) error { return probe.Ping(ctx, p) }
	}

	console, err := c.rootCmd.openConsole(ctx, suite)
	if err != nil {
		return err
	}
	if console != nil {
		defer console.closer()
		cfg.Navigator = console.nav
	}

	aggregator, err := iverify.NewAggregator(cfg)
	if err != nil {
		return fmt.Errorf("could not create aggregator: %w", err)
	}

	svc, err := verify.NewService(verify.ServiceConfig{
		Verifier:   aggregator,
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	runs, err := svc.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("could not verify: %w", err)
	}

	out := newPrinter(c.flags.format, c.rootCmd)
	failed := 0
	for _, run := range runs {
		if err := out.PrintRun(run); err != nil {
			return fmt.Errorf("could not print run: %w", err)
		}
		if !run.Report.OverallPassed {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d verifications failed", failed, len(runs))
	}
	return nil
}

func (c VerifyCommand) request(suite model.Suite) (verify.Request, error) {
	req := verify.Request{Kind: c.kind}

	switch {
	case c.kind == model.VerificationKindHealth:
	case c.batch:
		req.Expected = map[string]string{}
		for id, v := range suite.ExpectedVersions {
			req.Expected[id] = v
		}
		for id, v := range c.expected {
			req.Expected[strings.ToUpper(id)] = v
		}
		if len(req.Expected) == 0 {
			return req, fmt.Errorf("no expected versions, use --expect or a suite: %w", model.ErrNotValid)
		}
	default:
		req.ComponentID = strings.ToUpper(c.componentID)
		req.ExpectedVersion = c.expectedVersion
		if req.ExpectedVersion == "" {
			req.ExpectedVersion = suite.ExpectedVersions[req.ComponentID]
		}
		if req.ExpectedVersion == "" {
			return req, fmt.Errorf("no expected version for %s, use --version or a suite: %w", req.ComponentID, model.ErrNotValid)
		}
	}

	return req, nil
}
