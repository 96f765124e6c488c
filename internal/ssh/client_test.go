package ssh

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

const testPassword = "s3cret"

// testSSHServer is an in-process SSH server with exec and sftp support.
type testSSHServer struct {
	listener net.Listener
	config   *ssh.ServerConfig
	addr     string
	wg       sync.WaitGroup
}

func newTestSSHServer(t *testing.T, hostKey []byte) *testSSHServer {
	t.Helper()

	config := &ssh.ServerConfig{
		PublicKeyCallback: func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			return nil, nil
		},
		PasswordCallback: func(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if string(password) != testPassword {
				return nil, fmt.Errorf("wrong password")
			}
			return nil, nil
		},
	}

	signer, err := ssh.ParsePrivateKey(hostKey)
	require.NoError(t, err)
	config.AddHostKey(signer)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &testSSHServer{
		listener: listener,
		config:   config,
		addr:     listener.Addr().String(),
	}

	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.close)

	return s
}

func (s *testSSHServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *testSSHServer) handleConn(netConn net.Conn) {
	sshConn, chans, reqs, err := ssh.NewServerConn(netConn, s.config)
	if err != nil {
		return
	}
	defer sshConn.Close()

	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		go s.handleSession(newChannel)
	}
}

func payloadString(p []byte) (string, bool) {
	if len(p) < 4 {
		return "", false
	}
	n := int(binary.BigEndian.Uint32(p))
	if len(p) < 4+n {
		return "", false
	}
	return string(p[4 : 4+n]), true
}

func (s *testSSHServer) handleSession(newChannel ssh.NewChannel) {
	channel, requests, err := newChannel.Accept()
	if err != nil {
		return
	}
	defer channel.Close()

	for req := range requests {
		arg, ok := payloadString(req.Payload)
		switch {
		case req.Type == "exec" && ok:
			if req.WantReply {
				_ = req.Reply(true, nil)
			}

			cmd := exec.Command("sh", "-c", arg)
			cmd.Stdin = channel
			cmd.Stdout = channel
			cmd.Stderr = channel.Stderr()

			exitCode := 0
			if err := cmd.Run(); err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					exitCode = exitErr.ExitCode()
				} else {
					exitCode = 1
				}
			}

			status := make([]byte, 4)
			binary.BigEndian.PutUint32(status, uint32(exitCode))
			_, _ = channel.SendRequest("exit-status", false, status)
			return

		case req.Type == "subsystem" && ok && arg == "sftp":
			if req.WantReply {
				_ = req.Reply(true, nil)
			}
			server, err := sftp.NewServer(channel)
			if err != nil {
				return
			}
			_ = server.Serve()
			return

		default:
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
		}
	}
}

func (s *testSSHServer) close() {
	s.listener.Close()
	s.wg.Wait()
}

func testParseHostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

// generateTestKeyPair returns a PEM encoded Ed25519 private key.
func generateTestKeyPair(t *testing.T) []byte {
	t.Helper()

	_, privKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	pemBlock, err := ssh.MarshalPrivateKey(privKey, "test-key")
	require.NoError(t, err)

	return pem.EncodeToMemory(pemBlock)
}

func TestClientNewClient(t *testing.T) {
	privKey := generateTestKeyPair(t)
	server := newTestSSHServer(t, privKey)
	host, port := testParseHostPort(t, server.addr)

	tests := map[string]struct {
		cfg    ClientConfig
		expErr bool
	}{
		"Key auth should connect.": {
			cfg: ClientConfig{Host: host, Port: port, User: "root", PrivateKey: privKey, Logger: log.Noop},
		},

		"Password auth should connect.": {
			cfg: ClientConfig{Host: host, Port: port, User: "root", Password: testPassword},
		},

		"A wrong password should fail.": {
			cfg:    ClientConfig{Host: host, Port: port, User: "root", Password: "nope"},
			expErr: true,
		},

		"Missing host should fail.": {
			cfg:    ClientConfig{User: "root", PrivateKey: privKey},
			expErr: true,
		},

		"Missing user should fail.": {
			cfg:    ClientConfig{Host: host, Port: port, PrivateKey: privKey},
			expErr: true,
		},

		"Missing credentials should fail.": {
			cfg:    ClientConfig{Host: host, Port: port, User: "root"},
			expErr: true,
		},

		"Invalid private key should fail.": {
			cfg:    ClientConfig{Host: host, Port: port, User: "root", PrivateKey: []byte("not-a-key")},
			expErr: true,
		},

		"Connection to non-existent host should fail.": {
			cfg: ClientConfig{
				Host:           "192.0.2.1", // RFC 5737 TEST-NET.
				User:           "root",
				Password:       testPassword,
				ConnectTimeout: 500 * time.Millisecond,
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			client, err := NewClient(ctx, test.cfg)
			if test.expErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.NoError(t, client.Close())
		})
	}
}

func TestClientExec(t *testing.T) {
	privKey := generateTestKeyPair(t)
	server := newTestSSHServer(t, privKey)
	host, port := testParseHostPort(t, server.addr)

	tests := map[string]struct {
		command     string
		expExitCode int
		expStdout   string
		expStderr   string
	}{
		"Simple echo should return exit code 0 and output.": {
			command:   "echo 5.14.0-427.24.1.el9_4.x86_64",
			expStdout: "5.14.0-427.24.1.el9_4.x86_64\n",
		},

		"Failed command should return non-zero exit code.": {
			command:     "exit 3",
			expExitCode: 3,
		},

		"Command with stderr should capture stderr.": {
			command:   "echo oops >&2",
			expStderr: "oops\n",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			client, err := NewClient(ctx, ClientConfig{Host: host, Port: port, User: "root", PrivateKey: privKey})
			require.NoError(err)
			defer client.Close()

			var stdout, stderr bytes.Buffer
			code, err := client.Exec(ctx, test.command, ExecOpts{Stdout: &stdout, Stderr: &stderr})
			require.NoError(err)
			assert.Equal(test.expExitCode, code)
			assert.Equal(test.expStdout, stdout.String())
			assert.Equal(test.expStderr, stderr.String())
		})
	}
}

func TestClientExecCancel(t *testing.T) {
	privKey := generateTestKeyPair(t)
	server := newTestSSHServer(t, privKey)
	host, port := testParseHostPort(t, server.addr)

	client, err := NewClient(context.Background(), ClientConfig{Host: host, Port: port, User: "root", PrivateKey: privKey})
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err = client.Exec(ctx, "sleep 10", ExecOpts{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientReadFile(t *testing.T) {
	privKey := generateTestKeyPair(t)
	server := newTestSSHServer(t, privKey)
	host, port := testParseHostPort(t, server.addr)

	dir := t.TempDir()
	iniPath := filepath.Join(dir, "intscan.ini")
	require.NoError(t, os.WriteFile(iniPath, []byte("[Pattern]\nvirus_pattern_ver=6.600.00\n"), 0644))

	tests := map[string]struct {
		path       string
		expContent string
		expErr     error
	}{
		"An existing file should be read.": {
			path:       iniPath,
			expContent: "[Pattern]\nvirus_pattern_ver=6.600.00\n",
		},

		"A missing file should return not found.": {
			path:   filepath.Join(dir, "missing.ini"),
			expErr: model.ErrNotFound,
		},

		"A path the server can't read should be refused.": {
			path:   dir,
			expErr: model.ErrRefused,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			client, err := NewClient(ctx, ClientConfig{Host: host, Port: port, User: "root", Password: testPassword})
			require.NoError(err)
			defer client.Close()

			got, err := client.ReadFile(ctx, test.path)
			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}
			require.NoError(err)
			assert.Equal(test.expContent, string(got))
		})
	}
}

func TestRemoteFileError(t *testing.T) {
	tests := map[string]struct {
		err         error
		expRefusal  bool
		expNotFound bool
	}{
		"A missing file answer should be not found.": {
			err:         os.ErrNotExist,
			expNotFound: true,
		},

		"A permission denied answer should be a refusal.": {
			err:        os.ErrPermission,
			expRefusal: true,
		},

		"Other server status answers should be a refusal.": {
			err:        &sftp.StatusError{Code: uint32(sftp.ErrSSHFxFailure)},
			expRefusal: true,
		},

		"A lost connection should not be a refusal.": {
			err: sftp.ErrSSHFxConnectionLost,
		},

		"Any other error should not be a refusal.": {
			err: errors.New("EOF"),
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			err := remoteFileError("/etc/iscan/intscan.ini", test.err)
			assert.ErrorIs(err, test.err)
			assert.Equal(test.expRefusal, errors.Is(err, model.ErrRefused))
			assert.Equal(test.expNotFound, errors.Is(err, model.ErrNotFound))
		})
	}
}
