package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

const (
	// DefaultConnectTimeout is the default SSH connection timeout.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultSSHPort is the default SSH port.
	DefaultSSHPort = 22
	// maxReadFileSize caps remote file reads.
	maxReadFileSize = 16 * 1024 * 1024
)

// ClientConfig holds the configuration for creating an SSH connection.
type ClientConfig struct {
	// Host is the IP address or hostname of the appliance.
	Host string
	// Port is the SSH port (default: 22).
	Port int
	// User is the SSH user (e.g., "root").
	User string
	// Password authenticates the user when set.
	Password string
	// PrivateKey is the PEM-encoded private key bytes, used when set.
	PrivateKey []byte
	// ConnectTimeout is the SSH connection timeout (default: 10s).
	ConnectTimeout time.Duration
	// Logger for logging (optional).
	Logger log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	if len(c.PrivateKey) == 0 && c.Password == "" {
		return fmt.Errorf("password or private key is required")
	}
	if c.Port == 0 {
		c.Port = DefaultSSHPort
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "ssh.Client", "host": c.Host})
	return nil
}

func (c ClientConfig) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if len(c.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(c.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("could not parse private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if c.Password != "" {
		methods = append(methods, ssh.Password(c.Password))
	}
	return methods, nil
}

// Client wraps an SSH connection with high-level operations.
type Client struct {
	conn   *ssh.Client
	logger log.Logger
}

// NewClient dials the SSH server and returns a connected client.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid ssh client config: %w", err)
	}

	auth, err := cfg.authMethods()
	if err != nil {
		return nil, err
	}

	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         cfg.ConnectTimeout,
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	var d net.Dialer
	netConn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", addr, err)
	}

	// Handshakes can hang on half open appliances.
	_ = netConn.SetDeadline(time.Now().Add(cfg.ConnectTimeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, sshCfg)
	if err != nil {
		netConn.Close()
		return nil, fmt.Errorf("ssh handshake failed with %s: %w", addr, err)
	}
	_ = netConn.SetDeadline(time.Time{})

	cfg.Logger.Debugf("Connected to %s", addr)

	return &Client{
		conn:   ssh.NewClient(sshConn, chans, reqs),
		logger: cfg.Logger,
	}, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// ExecOpts are options for command execution (non-TTY only).
type ExecOpts struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Exec runs a command on the remote host and returns the exit code.
func (c *Client) Exec(ctx context.Context, command string, opts ExecOpts) (int, error) {
	session, err := c.conn.NewSession()
	if err != nil {
		return -1, fmt.Errorf("could not create ssh session: %w", err)
	}
	defer session.Close()

	if opts.Stdin != nil {
		session.Stdin = opts.Stdin
	}
	if opts.Stdout != nil {
		session.Stdout = opts.Stdout
	}
	if opts.Stderr != nil {
		session.Stderr = opts.Stderr
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		return -1, ctx.Err()
	case err := <-done:
		if err != nil {
			var exitErr *ssh.ExitError
			if errors.As(err, &exitErr) {
				return exitErr.ExitStatus(), nil
			}
			return -1, fmt.Errorf("command execution failed: %w", err)
		}
		return 0, nil
	}
}

// ReadFile returns the content of a remote file using SFTP. Missing files return
// model.ErrNotFound, files the server refuses to serve return model.ErrRefused.
func (c *Client) ReadFile(ctx context.Context, path string) ([]byte, error) {
	sftpClient, err := sftp.NewClient(c.conn)
	if err != nil {
		return nil, fmt.Errorf("could not create sftp client: %w", err)
	}
	defer sftpClient.Close()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		f, err := sftpClient.Open(path)
		if err != nil {
			done <- result{err: remoteFileError(path, err)}
			return
		}
		defer f.Close()

		data, err := io.ReadAll(io.LimitReader(f, maxReadFileSize))
		if err != nil {
			err = remoteFileError(path, err)
		}
		done <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		_ = sftpClient.Close()
		return nil, ctx.Err()
	case res := <-done:
		return res.data, res.err
	}
}

// remoteFileError maps the SFTP server status answers to model errors. Anything else is
// a connection problem.
func remoteFileError(path string, err error) error {
	var status *sftp.StatusError
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("remote file %s: %w: %w", path, err, model.ErrNotFound)
	case errors.Is(err, os.ErrPermission), errors.As(err, &status):
		return fmt.Errorf("remote file %s: %w: %w", path, err, model.ErrRefused)
	}
	return fmt.Errorf("could not read remote file %s: %w", path, err)
}
