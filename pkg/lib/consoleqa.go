package lib

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"k8s.io/client-go/util/homedir"

	"github.com/zhoujuxi2028/consoleqa/internal/app/doctor"
	"github.com/zhoujuxi2028/consoleqa/internal/conventions"
	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/probe"
	probessh "github.com/zhoujuxi2028/consoleqa/internal/probe/ssh"
	"github.com/zhoujuxi2028/consoleqa/internal/ssh"
	"github.com/zhoujuxi2028/consoleqa/internal/storage"
	"github.com/zhoujuxi2028/consoleqa/internal/storage/sqlite"
)

// Probe runs commands and reads files on the appliance.
//
// Execute returns the command stdout, reads of missing files must return an
// error wrapping [ErrNotFound] and unreadable files one wrapping [ErrRefused]. Any
// other error is taken as a transport failure and retried.
type Probe interface {
	Execute(ctx context.Context, command string) (string, error)
	ReadFile(ctx context.Context, path string) (string, error)
}

// SSHConfig is the appliance SSH access.
type SSHConfig struct {
	Host string
	// Port defaults to 22.
	Port int
	User string
	// Password or PrivateKeyPath authenticate the user.
	Password       string
	PrivateKeyPath string
	// ConnectTimeout defaults to 10s.
	ConnectTimeout time.Duration
}

// Config configures the SDK client.
//
// An empty Config{} uses ~/.consoleqa/consoleqa.db for the history and has no
// appliance access, only the history methods work then.
type Config struct {
	// DBPath is the SQLite database path.
	// Default: ~/.consoleqa/consoleqa.db.
	DBPath string

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger

	// Probe is the appliance access, it has precedence over SSH.
	Probe Probe

	// SSH connects to the appliance when Probe is not set.
	SSH *SSHConfig

	// Retries is the number of attempts of every appliance operation on
	// transport failures. Default: 3.
	Retries int
}

func (c *Config) defaults() error {
	if c.DBPath == "" {
		c.DBPath = conventions.DBPath(filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir))
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	if c.SSH != nil && c.SSH.Host == "" {
		return fmt.Errorf("ssh host is required")
	}

	return nil
}

// Client is the main SDK entry point.
//
// Create a Client with [New] and release its resources with [Client.Close].
type Client struct {
	repo    storage.Repository
	probe   probe.Probe
	logger  log.Logger
	closeFn []func() error
}

// New creates a new SDK client backed by a SQLite database.
//
// The caller must call [Client.Close] when done to release the database and
// appliance connections.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	c := &Client{
		repo:    repo,
		logger:  cfg.Logger,
		closeFn: []func() error{repo.Close},
	}

	var p probe.Probe
	switch {
	case cfg.Probe != nil:
		p = cfg.Probe
	case cfg.SSH != nil:
		sp, err := newSSHProbe(*cfg.SSH, cfg.Logger)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.closeFn = append(c.closeFn, sp.Close)
		p = sp
	}

	if p != nil {
		c.probe, err = probe.NewRetrying(p, probe.RetryConfig{Attempts: cfg.Retries, Logger: cfg.Logger})
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("could not create retrying probe: %w", err)
		}
	}

	return c, nil
}

func newSSHProbe(cfg SSHConfig, logger log.Logger) (*probessh.Probe, error) {
	ccfg := ssh.ClientConfig{
		Host:           cfg.Host,
		Port:           cfg.Port,
		User:           cfg.User,
		Password:       cfg.Password,
		ConnectTimeout: cfg.ConnectTimeout,
		Logger:         logger,
	}
	if cfg.PrivateKeyPath != "" {
		key, err := ssh.LoadPrivateKey(cfg.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		ccfg.PrivateKey = key
	}

	p, err := probessh.New(ccfg)
	if err != nil {
		return nil, fmt.Errorf("could not create ssh probe: %w", err)
	}
	return p, nil
}

// Close releases resources held by the client. After Close returns, the client
// must not be used.
func (c *Client) Close() error {
	var firstErr error
	for i := len(c.closeFn) - 1; i >= 0; i-- {
		if err := c.closeFn[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Client) requireProbe() error {
	if c.probe == nil {
		return fmt.Errorf("appliance access is not configured: %w", ErrNotValid)
	}
	return nil
}

// Doctor runs the appliance preflight checks (SSH, INI file and service state).
func (c *Client) Doctor(ctx context.Context) ([]CheckResult, error) {
	if err := c.requireProbe(); err != nil {
		return nil, err
	}

	svc, err := doctor.NewService(doctor.ServiceConfig{
		Probe:  c.probe,
		Logger: c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	results := svc.Run(ctx)

	// Console checks need a browser, the SDK has none.
	var appliance []model.CheckResult
	for _, r := range results {
		if r.ID != doctor.CheckConsoleLogin {
			appliance = append(appliance, r)
		}
	}
	return fromInternalCheckResults(appliance), nil
}
