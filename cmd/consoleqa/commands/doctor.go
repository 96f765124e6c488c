package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/zhoujuxi2028/consoleqa/internal/app/doctor"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

type DoctorCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewDoctorCommand returns the doctor command.
func NewDoctorCommand(rootCmd *RootCommand, app *kingpin.Application) *DoctorCommand {
	c := &DoctorCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("doctor", "Run preflight checks of the console and the appliance access.")
	c.Cmd.Flag("format", "Output format (table, json).").Default(FormatTable).EnumVar(&c.format, FormatTable, FormatJSON)

	return c
}

func (c DoctorCommand) Name() string { return c.Cmd.FullCommand() }

func (c DoctorCommand) Run(ctx context.Context) error {
	suite, err := c.rootCmd.loadSuite(ctx)
	if err != nil {
		return err
	}

	cfg := doctor.ServiceConfig{Logger: c.rootCmd.Logger}

	p, closeProbe, err := c.rootCmd.newProbe()
	if err != nil {
		return err
	}
	defer closeProbe()
	if p != nil {
		cfg.Probe = p
	}

	// The login is a check, the console is not opened here.
	console, err := c.rootCmd.newConsole(ctx, suite)
	if err != nil {
		return err
	}
	if console != nil {
		defer console.closer()
		cfg.Console = console.nav
		cfg.Connect = console.login
	}

	svc, err := doctor.NewService(cfg)
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	results := svc.Run(ctx)
	if err := newPrinter(c.format, c.rootCmd).PrintChecks(results); err != nil {
		return fmt.Errorf("could not print checks: %w", err)
	}

	if _, _, errs := model.CountByStatus(results); errs > 0 {
		return fmt.Errorf("preflight checks failed with %d error(s)", errs)
	}
	return nil
}
