package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/zhoujuxi2028/consoleqa/internal/app/monitor"
	"github.com/zhoujuxi2028/consoleqa/internal/app/verify"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/probe"
	iverify "github.com/zhoujuxi2028/consoleqa/internal/verify"
)

type MonitorCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	componentID     string
	rollback        bool
	trigger         bool
	source          string
	timeout         time.Duration
	logInterval     time.Duration
	verify          bool
	expectedVersion string
	format          string
}

// NewMonitorCommand returns the monitor command.
func NewMonitorCommand(rootCmd *RootCommand, app *kingpin.Application) *MonitorCommand {
	c := &MonitorCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("monitor", "Monitor a component update or rollback until it completes.")
	c.Cmd.Flag("component", "Component ID (e.g. PTN).").Required().StringVar(&c.componentID)
	c.Cmd.Flag("rollback", "Monitor a rollback instead of an update.").BoolVar(&c.rollback)
	c.Cmd.Flag("trigger", "Start the operation from the console before monitoring it.").BoolVar(&c.trigger)
	c.Cmd.Flag("source", "Progress source (ui, lock).").Default(string(monitor.SourceUI)).EnumVar(&c.source, string(monitor.SourceUI), string(monitor.SourceLockFile))
	c.Cmd.Flag("timeout", "Operation timeout, defaults to the component timeout.").DurationVar(&c.timeout)
	c.Cmd.Flag("log-interval", "Interval of the progress log lines.").Default("30s").DurationVar(&c.logInterval)
	c.Cmd.Flag("verify", "Verify the operation once it completes.").BoolVar(&c.verify)
	c.Cmd.Flag("version", "Expected version for the verification, defaults to the suite expected version.").StringVar(&c.expectedVersion)
	c.Cmd.Flag("format", "Output format (table, json).").Default(FormatTable).EnumVar(&c.format, FormatTable, FormatJSON)

	return c
}

func (c MonitorCommand) Name() string { return c.Cmd.FullCommand() }

func (c MonitorCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger
	out := newPrinter(c.format, c.rootCmd)
	componentID := strings.ToUpper(c.componentID)

	suite, err := c.rootCmd.loadSuite(ctx)
	if err != nil {
		return err
	}

	cfg := monitor.ServiceConfig{
		Components:   suite.Component,
		PollInterval: suite.PollInterval,
		LogInterval:  c.logInterval,
		Logger:       logger,
	}

	p, closeProbe, err := c.rootCmd.newProbe()
	if err != nil {
		return err
	}
	defer closeProbe()
	if p != nil {
		cfg.LockChecker = probe.NewFacts(p, logger)
	}

	console, err := c.rootCmd.openConsole(ctx, suite)
	if err != nil {
		return err
	}
	if console != nil {
		defer console.closer()
		cfg.Navigator = console.nav
	}

	svc, err := monitor.NewService(cfg)
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	req := monitor.Request{
		ComponentID: componentID,
		Rollback:    c.rollback,
		Trigger:     c.trigger,
		Source:      monitor.Source(c.source),
		Timeout:     c.timeout,
	}
	if c.format == FormatTable {
		req.OnChange = func(s model.ProgressState) { _ = out.PrintProgress(s) }
	}

	state, err := svc.Run(ctx, req)
	if c.format == FormatJSON {
		if perr := out.PrintProgress(state); perr != nil {
			return fmt.Errorf("could not print progress: %w", perr)
		}
	}
	if err != nil {
		return fmt.Errorf("could not monitor %s: %w", componentID, err)
	}

	if !c.verify {
		return nil
	}

	// Verification after the operation.
	kind := model.VerificationKindUpdate
	if c.rollback {
		kind = model.VerificationKindRollback
	}
	version := c.expectedVersion
	if version == "" {
		version = suite.ExpectedVersions[componentID]
	}

	vcfg := iverify.Config{Components: suite.Component, Levels: suite.Levels, Logger: logger}
	if p != nil {
		vcfg.Probe = p
		vcfg.Reach = func(ctx context.Context) error { return probe.Ping(ctx, p) }
	}
	if console != nil {
		vcfg.Navigator = console.nav
	}
	aggregator, err := iverify.NewAggregator(vcfg)
	if err != nil {
		return fmt.Errorf("could not create aggregator: %w", err)
	}

	repo, err := c.rootCmd.newRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	vsvc, err := verify.NewService(verify.ServiceConfig{Verifier: aggregator, Repository: repo, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	runs, err := vsvc.Run(ctx, verify.Request{Kind: kind, ComponentID: componentID, ExpectedVersion: version})
	if err != nil {
		return fmt.Errorf("could not verify: %w", err)
	}
	for _, run := range runs {
		if err := out.PrintRun(run); err != nil {
			return fmt.Errorf("could not print run: %w", err)
		}
		if !run.Report.OverallPassed {
			return fmt.Errorf("%s %s verification failed", componentID, kind)
		}
	}

	return nil
}
