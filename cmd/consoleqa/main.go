package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/zhoujuxi2028/consoleqa/cmd/consoleqa/commands"
	"github.com/zhoujuxi2028/consoleqa/internal/log"
	loglogrus "github.com/zhoujuxi2028/consoleqa/internal/log/logrus"
)

const (
	// Version is the application version (set via ldflags).
	Version = "dev"
)

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	app := kingpin.New("consoleqa", "IWSVA admin console update verification tool.")
	app.DefaultEnvars()
	rootCmd := commands.NewRootCommand(app)

	// Setup commands (registers flags).
	monitorCmd := commands.NewMonitorCommand(rootCmd, app)
	navigateCmd := commands.NewNavigateCommand(rootCmd, app)
	factsCmd := commands.NewFactsCommand(rootCmd, app)
	historyCmd := commands.NewHistoryCommand(rootCmd, app)
	showCmd := commands.NewShowCommand(rootCmd, app)
	doctorCmd := commands.NewDoctorCommand(rootCmd, app)

	// Verify subcommands share a parent command.
	verifyCmd := app.Command("verify", "Run multi-level verifications.")
	verifyUpdateCmd := commands.NewVerifyUpdateCommand(rootCmd, verifyCmd)
	verifyRollbackCmd := commands.NewVerifyRollbackCommand(rootCmd, verifyCmd)
	verifyHealthCmd := commands.NewVerifyHealthCommand(rootCmd, verifyCmd)
	verifyBatchCmd := commands.NewVerifyBatchCommand(rootCmd, verifyCmd)

	cmds := map[string]commands.Command{
		monitorCmd.Name():        monitorCmd,
		navigateCmd.Name():       navigateCmd,
		factsCmd.Name():          factsCmd,
		historyCmd.Name():        historyCmd,
		showCmd.Name():           showCmd,
		doctorCmd.Name():         doctorCmd,
		verifyUpdateCmd.Name():   verifyUpdateCmd,
		verifyRollbackCmd.Name(): verifyRollbackCmd,
		verifyHealthCmd.Name():   verifyHealthCmd,
		verifyBatchCmd.Name():    verifyBatchCmd,
	}

	// Parse command.
	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	// Set standard input/output.
	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr

	// Commands printing stored data don't log unless debugging.
	printerCommands := map[string]bool{
		"history": true,
		"show":    true,
	}
	if printerCommands[cmdName] && !rootCmd.Debug {
		rootCmd.NoLog = true
	}

	// Set logger.
	rootCmd.Logger = getLogger(*rootCmd)

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				rootCmd.Logger.Debugf("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Execute command.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				err := cmds[cmdName].Run(ctx)
				if err != nil {
					return fmt.Errorf("%q command failed: %w", cmdName, err)
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

// getLogger returns the application logger.
func getLogger(config commands.RootCommand) log.Logger {
	if config.NoLog {
		return log.Noop
	}

	logrusLog := logrus.New()
	logrusLog.Out = config.Stderr // Stdout is kept for the printers.
	logrusLogEntry := logrus.NewEntry(logrusLog)

	if config.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	switch config.LoggerType {
	case commands.LoggerTypeDefault:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !config.NoColor,
			DisableColors: config.NoColor,
		})
	case commands.LoggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger := loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": Version,
	})

	logger.Debugf("Debug level is enabled")

	return logger
}

func main() {
	ctx := context.Background()
	err := Run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
