// Package fake is an in-memory appliance probe for tests.
package fake

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/probe"
)

// Result is a scripted command result.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

var (
	testExistsRe = regexp.MustCompile(`^test -e '(.*)' && echo present \|\| echo missing$`)
	tailRe       = regexp.MustCompile(`^tail -n (\d+) '(.*)'$`)
)

// Probe emulates the appliance with a file map and a command table. Path checks and
// log tails are answered from the file map.
type Probe struct {
	mu          sync.Mutex
	files       map[string]string
	denied      map[string]bool
	commands    map[string]Result
	unreachable error
	failures    int
	calls       []string
}

var _ probe.Probe = &Probe{}

// NewProbe returns an empty fake probe.
func NewProbe() *Probe {
	return &Probe{
		files:    map[string]string{},
		denied:   map[string]bool{},
		commands: map[string]Result{},
	}
}

// SetFile creates or replaces a file.
func (p *Probe) SetFile(path, content string) *Probe {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files[path] = content
	return p
}

// RemoveFile removes a file.
func (p *Probe) RemoveFile(path string) *Probe {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.files, path)
	return p
}

// DenyFile makes reading a file fail as a permission denied answer.
func (p *Probe) DenyFile(path string) *Probe {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.denied[path] = true
	return p
}

// SetCommand scripts the result of a command.
func (p *Probe) SetCommand(command string, r Result) *Probe {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands[command] = r
	return p
}

// SetOutput scripts a successful command output.
func (p *Probe) SetOutput(command, stdout string) *Probe {
	return p.SetCommand(command, Result{Stdout: stdout})
}

// SetUnreachable makes every operation fail as if the appliance was down, nil restores it.
func (p *Probe) SetUnreachable(err error) *Probe {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unreachable = err
	return p
}

// FailNext makes the next n operations fail with a transport error.
func (p *Probe) FailNext(n int) *Probe {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = n
	return p
}

// Calls returns the executed commands and read paths, in order.
func (p *Probe) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *Probe) begin(ctx context.Context, call string) error {
	p.calls = append(p.calls, call)

	if err := ctx.Err(); err != nil {
		return err
	}
	if p.unreachable != nil {
		return &model.UnreachableError{Target: "fake", Err: p.unreachable}
	}
	if p.failures > 0 {
		p.failures--
		return &model.UnreachableError{Target: "fake", Err: fmt.Errorf("connection reset")}
	}
	return nil
}

func (p *Probe) Execute(ctx context.Context, command string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.begin(ctx, command); err != nil {
		return "", err
	}

	if r, ok := p.commands[command]; ok {
		if r.ExitCode != 0 {
			return r.Stdout, &model.CommandError{Command: command, ExitCode: r.ExitCode, Stderr: r.Stderr}
		}
		return r.Stdout, nil
	}

	if m := testExistsRe.FindStringSubmatch(command); m != nil {
		if _, ok := p.files[m[1]]; ok {
			return "present\n", nil
		}
		return "missing\n", nil
	}

	if m := tailRe.FindStringSubmatch(command); m != nil {
		content, ok := p.files[m[2]]
		if !ok {
			return "", &model.CommandError{Command: command, ExitCode: 1, Stderr: "No such file or directory"}
		}
		n, _ := strconv.Atoi(m[1])
		return tail(content, n), nil
	}

	return "", &model.CommandError{Command: command, ExitCode: 127, Stderr: "command not found"}
}

func (p *Probe) ReadFile(ctx context.Context, path string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.begin(ctx, "read "+path); err != nil {
		return "", err
	}

	if p.denied[path] {
		return "", fmt.Errorf("%s: permission denied: %w", path, model.ErrRefused)
	}
	content, ok := p.files[path]
	if !ok {
		return "", fmt.Errorf("%s: %w", path, model.ErrNotFound)
	}
	return content, nil
}

func tail(content string, n int) string {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n") + "\n"
}
