// Package ssh is a probe over an SSH connection to the appliance.
package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/probe"
	issh "github.com/zhoujuxi2028/consoleqa/internal/ssh"
)

// Probe connects lazily and reconnects after transport failures.
type Probe struct {
	cfg    issh.ClientConfig
	target string
	logger log.Logger

	mu     sync.Mutex
	client *issh.Client
}

var _ probe.Probe = &Probe{}

// New returns a new SSH probe, no connection is made until the first operation.
func New(cfg issh.ClientConfig) (*Probe, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Noop
	}
	port := cfg.Port
	if port == 0 {
		port = issh.DefaultSSHPort
	}

	return &Probe{
		cfg:    cfg,
		target: net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		logger: cfg.Logger.WithValues(log.Kv{"svc": "probe.SSH"}),
	}, nil
}

func (p *Probe) connect(ctx context.Context) (*issh.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	c, err := issh.NewClient(ctx, p.cfg)
	if err != nil {
		return nil, &model.UnreachableError{Target: p.target, Err: err}
	}
	p.client = c
	return c, nil
}

func (p *Probe) reset(c *issh.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == c {
		_ = c.Close()
		p.client = nil
	}
}

// Execute runs a command and returns its stdout.
func (p *Probe) Execute(ctx context.Context, command string) (string, error) {
	c, err := p.connect(ctx)
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	code, err := c.Exec(ctx, command, issh.ExecOpts{Stdout: &stdout, Stderr: &stderr})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		p.reset(c)
		return "", &model.UnreachableError{Target: p.target, Err: err}
	}
	p.logger.Debugf("Executed %q (exit %d)", command, code)

	if code != 0 {
		return stdout.String(), &model.CommandError{Command: command, ExitCode: code, Stderr: strings.TrimSpace(stderr.String())}
	}
	return stdout.String(), nil
}

// ReadFile returns the content of a remote file. Server answers keep the connection, any
// other failure drops it and is returned as unreachable.
func (p *Probe) ReadFile(ctx context.Context, path string) (string, error) {
	c, err := p.connect(ctx)
	if err != nil {
		return "", err
	}

	data, err := c.ReadFile(ctx, path)
	switch {
	case err == nil:
		return string(data), nil
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrRefused):
		return "", err
	case ctx.Err() != nil:
		return "", ctx.Err()
	}

	p.reset(c)
	return "", &model.UnreachableError{Target: p.target, Err: err}
}

// Close closes the underlying connection if any.
func (p *Probe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}
