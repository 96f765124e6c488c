package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zhoujuxi2028/consoleqa/internal/conventions"
	"github.com/zhoujuxi2028/consoleqa/internal/log"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
)

// Fact keys.
const (
	FactKernelVersion = "kernel_version"
	FactOSRelease     = "os_release"
	FactHostname      = "hostname"
	FactUptime        = "uptime"
	FactRemoteTime    = "remote_time"
	FactServiceState  = "service_state"
)

// ComponentVersionKey returns the fact key of a component version.
func ComponentVersionKey(componentID string) string {
	return strings.ToLower(componentID) + "_version"
}

// ComponentLockKey returns the fact key of a component lock.
func ComponentLockKey(componentID string) string {
	return strings.ToLower(componentID) + "_lock"
}

// Facts captures system facts using a probe.
type Facts struct {
	probe   Probe
	iniPath string
	now     func() time.Time
	logger  log.Logger
}

// NewFacts returns a new fact collector.
func NewFacts(p Probe, logger log.Logger) *Facts {
	if logger == nil {
		logger = log.Noop
	}
	return &Facts{
		probe:   p,
		iniPath: conventions.INIFile,
		now:     time.Now,
		logger:  logger.WithValues(log.Kv{"svc": "probe.Facts"}),
	}
}

func (f *Facts) fact(key, value string) model.SystemFact {
	return model.SystemFact{Key: key, Value: value, CapturedAt: f.now()}
}

func (f *Facts) output(ctx context.Context, key, command string) (model.SystemFact, error) {
	out, err := f.probe.Execute(ctx, command)
	if err != nil {
		return model.SystemFact{}, fmt.Errorf("could not get %s: %w", key, err)
	}
	return f.fact(key, strings.TrimSpace(out)), nil
}

// KernelVersion returns the running kernel release.
func (f *Facts) KernelVersion(ctx context.Context) (model.SystemFact, error) {
	return f.output(ctx, FactKernelVersion, "uname -r")
}

// INIValues returns the appliance INI file values.
func (f *Facts) INIValues(ctx context.Context) (map[string]string, error) {
	content, err := f.probe.ReadFile(ctx, f.iniPath)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", f.iniPath, err)
	}
	return ParseINI(content), nil
}

// ComponentVersion returns the installed version of a component from the INI file.
func (f *Facts) ComponentVersion(ctx context.Context, c model.Component) (model.SystemFact, error) {
	values, err := f.INIValues(ctx)
	if err != nil {
		return model.SystemFact{}, err
	}

	v, ok := values[c.INIKey]
	if !ok || v == "" {
		return model.SystemFact{}, fmt.Errorf("%s version (%s key): %w", c.ID, c.INIKey, model.ErrNotFound)
	}
	f.logger.Debugf("%s version from INI: %s", c.ID, v)

	return f.fact(ComponentVersionKey(c.ID), v), nil
}

// ComponentVersions returns the installed versions of the components with a single INI
// read, components missing in the INI file are skipped.
func (f *Facts) ComponentVersions(ctx context.Context, cs []model.Component) ([]model.SystemFact, error) {
	values, err := f.INIValues(ctx)
	if err != nil {
		return nil, err
	}

	var facts []model.SystemFact
	for _, c := range cs {
		if v, ok := values[c.INIKey]; ok && v != "" {
			facts = append(facts, f.fact(ComponentVersionKey(c.ID), v))
		}
	}
	return facts, nil
}

// PathExists tells if a remote path exists.
func (f *Facts) PathExists(ctx context.Context, path string) (bool, error) {
	out, err := f.probe.Execute(ctx, fmt.Sprintf("test -e %s && echo present || echo missing", shellQuote(path)))
	if err != nil {
		return false, fmt.Errorf("could not check %s: %w", path, err)
	}

	switch strings.TrimSpace(out) {
	case "present":
		return true, nil
	case "missing":
		return false, nil
	}
	return false, fmt.Errorf("unexpected path check output %q", out)
}

// LockFilePresent tells if the update lock file of a component is present.
func (f *Facts) LockFilePresent(ctx context.Context, c model.Component) (model.SystemFact, bool, error) {
	ok, err := f.PathExists(ctx, c.LockFile)
	if err != nil {
		return model.SystemFact{}, false, err
	}

	v := "absent"
	if ok {
		v = "present"
	}
	return f.fact(ComponentLockKey(c.ID), v), ok, nil
}

// ServiceState returns the systemd state of a service (e.g: active, inactive, failed).
func (f *Facts) ServiceState(ctx context.Context, service string) (model.SystemFact, error) {
	// is-active exits non zero for non active services, the state is on stdout anyway.
	return f.output(ctx, FactServiceState, fmt.Sprintf("systemctl is-active %s || true", shellQuote(service)))
}

// LogTail returns the last lines of a remote log.
func (f *Facts) LogTail(ctx context.Context, path string, lines int) (string, error) {
	out, err := f.probe.Execute(ctx, fmt.Sprintf("tail -n %d %s", lines, shellQuote(path)))
	if err != nil {
		return "", fmt.Errorf("could not read %s tail: %w", path, err)
	}
	return out, nil
}

// Ping checks the appliance answers commands. A command failure still means the
// appliance is reachable.
func Ping(ctx context.Context, p Probe) error {
	_, err := p.Execute(ctx, "echo ok")
	var cmdErr *model.CommandError
	if err != nil && !errors.As(err, &cmdErr) {
		return err
	}
	return nil
}

// SystemInfo returns the general system facts, they are captured concurrently.
func (f *Facts) SystemInfo(ctx context.Context) ([]model.SystemFact, error) {
	commands := []struct{ key, command string }{
		{FactKernelVersion, "uname -r"},
		{FactHostname, "hostname"},
		{FactUptime, "uptime -p"},
		{FactRemoteTime, "date"},
	}

	var (
		mu    sync.Mutex
		facts = map[string]model.SystemFact{}
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range commands {
		g.Go(func() error {
			fact, err := f.output(gctx, c.key, c.command)
			if err != nil {
				return err
			}
			mu.Lock()
			facts[c.key] = fact
			mu.Unlock()
			return nil
		})
	}
	g.Go(func() error {
		content, err := f.probe.ReadFile(gctx, conventions.OSReleaseFile)
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not read os release: %w", err)
		}
		mu.Lock()
		facts[FactOSRelease] = f.fact(FactOSRelease, strings.TrimSpace(content))
		mu.Unlock()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := make([]model.SystemFact, 0, len(facts))
	for _, key := range []string{FactKernelVersion, FactOSRelease, FactHostname, FactUptime, FactRemoteTime} {
		if fact, ok := facts[key]; ok {
			res = append(res, fact)
		}
	}
	return res, nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
