package commands

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/zhoujuxi2028/consoleqa/internal/conventions"
	"github.com/zhoujuxi2028/consoleqa/internal/log"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// Browser drivers.
const (
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
	DriverStatic     = "static"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// ConsoleConfig is the admin console access configuration.
type ConsoleConfig struct {
	URL              string
	Username         string
	Password         string
	Driver           string
	Headless         bool
	BrowserPath      string
	InstallDriver    bool
	IgnoreCertErrors bool
	// NoLogin opens an already authenticated console, e.g. a browser profile with a session.
	NoLogin bool
}

// SSHConfig is the appliance SSH access configuration.
type SSHConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	KeyPath        string
	ConnectTimeout time.Duration
	Retries        int
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	DBPath     string
	SuitePath  string
	Console    ConsoleConfig
	SSH        SSHConfig

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	defaultDBPath := conventions.DBPath(filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir))
	app.Flag("db-path", "Path to the SQLite database file.").Default(defaultDBPath).StringVar(&c.DBPath)
	app.Flag("suite", "Suite file (YAML or TOML) with expected versions, component overrides and recipes.").StringVar(&c.SuitePath)

	app.Flag("console-url", "Admin console base URL (e.g. https://iwsva:8443).").StringVar(&c.Console.URL)
	app.Flag("username", "Admin console user.").Default("admin").StringVar(&c.Console.Username)
	app.Flag("password", "Admin console password.").StringVar(&c.Console.Password)
	app.Flag("no-login", "Open the console frameset directly, the browser session is already authenticated.").BoolVar(&c.Console.NoLogin)
	app.Flag("driver", "Browser driver.").Default(DriverChromedp).EnumVar(&c.Console.Driver, DriverChromedp, DriverPlaywright, DriverStatic)
	app.Flag("headless", "Run the browser headless.").Default("true").BoolVar(&c.Console.Headless)
	app.Flag("browser-path", "Browser binary used by the chromedp driver.").StringVar(&c.Console.BrowserPath)
	app.Flag("install-driver", "Install the playwright driver when missing.").BoolVar(&c.Console.InstallDriver)
	app.Flag("insecure", "Accept the console self signed certificate.").Default("true").BoolVar(&c.Console.IgnoreCertErrors)

	app.Flag("ssh-host", "Appliance SSH host, backend checks are disabled without it.").StringVar(&c.SSH.Host)
	app.Flag("ssh-port", "Appliance SSH port.").Default("22").IntVar(&c.SSH.Port)
	app.Flag("ssh-user", "Appliance SSH user.").Default("root").StringVar(&c.SSH.User)
	app.Flag("ssh-password", "Appliance SSH password.").StringVar(&c.SSH.Password)
	app.Flag("ssh-key", "Appliance SSH private key path.").StringVar(&c.SSH.KeyPath)
	app.Flag("ssh-timeout", "Appliance SSH connection timeout.").Default("10s").DurationVar(&c.SSH.ConnectTimeout)
	app.Flag("ssh-retries", "Attempts of every appliance operation on transport failures.").Default("3").IntVar(&c.SSH.Retries)

	return c
}
