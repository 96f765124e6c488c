package consoleqa

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/zhoujuxi2028/consoleqa/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary     string
	ConsoleURL string
	Password   string
	SSHHost    string
	SSHKey     string
	// Component and Version are an update already installed on the appliance.
	Component string
	Version   string
}

func (c *Config) defaults() error {
	if c.Binary == "" {
		c.Binary = "consoleqa"
	}
	// go test changes the CWD to the test package directory.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("CONSOLEQA_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("consoleqa binary not found at %q: %w", c.Binary, err)
	}

	if c.ConsoleURL == "" {
		return fmt.Errorf("console URL is required (CONSOLEQA_CONSOLE_URL)")
	}
	if c.SSHHost == "" {
		return fmt.Errorf("ssh host is required (CONSOLEQA_SSH_HOST)")
	}
	if c.Component == "" {
		c.Component = "PTN"
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "CONSOLEQA_INTEGRATION"
		envBinary     = "CONSOLEQA_INTEGRATION_BINARY"
		envComponent  = "CONSOLEQA_INTEGRATION_COMPONENT"
		envVersion    = "CONSOLEQA_INTEGRATION_VERSION"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		Binary:     os.Getenv(envBinary),
		ConsoleURL: os.Getenv("CONSOLEQA_CONSOLE_URL"),
		Password:   os.Getenv("CONSOLEQA_PASSWORD"),
		SSHHost:    os.Getenv("CONSOLEQA_SSH_HOST"),
		SSHKey:     os.Getenv("CONSOLEQA_SSH_KEY"),
		Component:  os.Getenv(envComponent),
		Version:    os.Getenv(envVersion),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// Run runs a consoleqa command against an isolated database. The console and SSH
// access are read by the binary from the CONSOLEQA_* environment.
func Run(ctx context.Context, config Config, dbPath, cmdArgs string) (stdout, stderr []byte, err error) {
	return testutils.RunConsoleQA(ctx, nil, config.Binary, fmt.Sprintf("--db-path %s --no-log %s", dbPath, cmdArgs), false)
}
