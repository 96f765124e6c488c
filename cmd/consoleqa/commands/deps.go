package commands

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"

	"github.com/zhoujuxi2028/consoleqa/internal/browser"
	"github.com/zhoujuxi2028/consoleqa/internal/browser/chromedp"
	"github.com/zhoujuxi2028/consoleqa/internal/browser/playwright"
	"github.com/zhoujuxi2028/consoleqa/internal/browser/static"
	"github.com/zhoujuxi2028/consoleqa/internal/conventions"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/navigator"
	"github.com/zhoujuxi2028/consoleqa/internal/printer"
	"github.com/zhoujuxi2028/consoleqa/internal/probe"
	probessh "github.com/zhoujuxi2028/consoleqa/internal/probe/ssh"
	"github.com/zhoujuxi2028/consoleqa/internal/ssh"
	storageio "github.com/zhoujuxi2028/consoleqa/internal/storage/io"
	"github.com/zhoujuxi2028/consoleqa/internal/storage/sqlite"
)

func noop() {}

// loadSuite loads the suite file, without one the built-in component catalog is used.
func (r *RootCommand) loadSuite(ctx context.Context) (model.Suite, error) {
	if r.SuitePath == "" {
		return model.Suite{Name: "default", Components: conventions.Components()}, nil
	}

	abs, err := filepath.Abs(r.SuitePath)
	if err != nil {
		return model.Suite{}, fmt.Errorf("could not resolve suite path: %w", err)
	}

	repo := storageio.NewSuiteRepository(os.DirFS(filepath.Dir(abs)))
	suite, err := repo.GetSuite(ctx, filepath.Base(abs))
	if err != nil {
		return model.Suite{}, fmt.Errorf("could not load suite %s: %w", r.SuitePath, err)
	}
	r.Logger.Debugf("Suite %q loaded with %d components", suite.Name, len(suite.Components))

	return suite, nil
}

func (r *RootCommand) newRepository(ctx context.Context) (*sqlite.Repository, error) {
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: r.DBPath,
		Logger: r.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}
	return repo, nil
}

// newProbe returns the appliance probe, nil when SSH access is not configured.
func (r *RootCommand) newProbe() (probe.Probe, func(), error) {
	if r.SSH.Host == "" {
		return nil, noop, nil
	}

	cfg := ssh.ClientConfig{
		Host:           r.SSH.Host,
		Port:           r.SSH.Port,
		User:           r.SSH.User,
		Password:       r.SSH.Password,
		ConnectTimeout: r.SSH.ConnectTimeout,
		Logger:         r.Logger,
	}
	if r.SSH.KeyPath != "" {
		key, err := ssh.LoadPrivateKey(r.SSH.KeyPath)
		if err != nil {
			return nil, noop, err
		}
		cfg.PrivateKey = key
	}

	p, err := probessh.New(cfg)
	if err != nil {
		return nil, noop, fmt.Errorf("could not create ssh probe: %w", err)
	}
	closer := func() {
		if err := p.Close(); err != nil {
			r.Logger.Warningf("Could not close ssh connection: %s", err)
		}
	}

	retrying, err := probe.NewRetrying(p, probe.RetryConfig{
		Attempts: r.SSH.Retries,
		Logger:   r.Logger,
	})
	if err != nil {
		closer()
		return nil, noop, fmt.Errorf("could not create retrying probe: %w", err)
	}

	return retrying, closer, nil
}

func (r *RootCommand) newDriver(ctx context.Context) (browser.Driver, error) {
	switch r.Console.Driver {
	case DriverPlaywright:
		return playwright.New(playwright.Config{
			Headless:         r.Console.Headless,
			IgnoreCertErrors: r.Console.IgnoreCertErrors,
			InstallDriver:    r.Console.InstallDriver,
			Logger:           r.Logger,
		})
	case DriverStatic:
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("could not create cookie jar: %w", err)
		}
		client := &http.Client{Jar: jar}
		if r.Console.IgnoreCertErrors {
			client.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec
		}
		return static.New(static.Config{HTTPClient: client, Logger: r.Logger})
	default:
		return chromedp.New(ctx, chromedp.Config{
			Headless:         r.Console.Headless,
			ExecPath:         r.Console.BrowserPath,
			IgnoreCertErrors: r.Console.IgnoreCertErrors,
			Logger:           r.Logger,
		})
	}
}

// console is an admin console navigator that has not logged in yet.
type console struct {
	nav    *navigator.Navigator
	login  func(ctx context.Context) error
	closer func()
}

// newConsole returns the console navigator, nil when the console URL is not configured.
func (r *RootCommand) newConsole(ctx context.Context, suite model.Suite) (*console, error) {
	if r.Console.URL == "" {
		return nil, nil
	}

	d, err := r.newDriver(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not create %s browser driver: %w", r.Console.Driver, err)
	}
	closer := noop
	if c, ok := d.(browser.Closer); ok {
		closer = func() {
			if err := c.Close(); err != nil {
				r.Logger.Warningf("Could not close browser: %s", err)
			}
		}
	}

	nav, err := navigator.New(navigator.Config{
		Driver:       d,
		StepTimeout:  suite.WaitTimeout,
		PollInterval: suite.PollInterval,
		Logger:       r.Logger,
	})
	if err != nil {
		closer()
		return nil, fmt.Errorf("could not create navigator: %w", err)
	}

	login := func(ctx context.Context) error { return nav.OpenConsole(ctx, r.Console.URL) }
	if !r.Console.NoLogin {
		creds := navigator.Credentials{Username: r.Console.Username, Password: r.Console.Password}
		login = func(ctx context.Context) error { return nav.Login(ctx, r.Console.URL, creds) }
	}

	return &console{
		nav:    nav,
		login:  login,
		closer: closer,
	}, nil
}

// openConsole returns a logged in console navigator, nil when the console is not configured.
func (r *RootCommand) openConsole(ctx context.Context, suite model.Suite) (*console, error) {
	c, err := r.newConsole(ctx, suite)
	if err != nil || c == nil {
		return nil, err
	}

	if err := c.login(ctx); err != nil {
		c.closer()
		return nil, fmt.Errorf("could not log in the console: %w", err)
	}
	r.Logger.Infof("Logged in the console at %s", r.Console.URL)

	return c, nil
}

func newPrinter(format string, r *RootCommand) printer.Printer {
	if format == FormatJSON {
		return printer.NewJSONPrinter(r.Stdout)
	}
	return printer.NewTablePrinter(r.Stdout)
}

// parseLevels parses comma separated or repeated level names.
func parseLevels(values []string) ([]model.Level, error) {
	var levels []model.Level
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			l := model.Level(strings.ToLower(name))
			if !l.Valid() {
				return nil, fmt.Errorf("unknown level %q: %w", name, model.ErrNotValid)
			}
			levels = append(levels, l)
		}
	}
	return levels, nil
}
