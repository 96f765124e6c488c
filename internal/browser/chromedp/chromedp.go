// Package chromedp is a Chrome DevTools browser driver. Frames are reached through the
// window.frames tree, the console frameset is same origin.
package chromedp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/zhoujuxi2028/consoleqa/internal/browser"
	"github.com/zhoujuxi2028/consoleqa/internal/log"
)

// Config is the chromedp driver configuration.
type Config struct {
	Headless bool
	// ExecPath is the browser binary, empty uses the chromedp lookup.
	ExecPath string
	// IgnoreCertErrors accepts the appliance self signed certificate.
	IgnoreCertErrors bool
	WindowWidth      int
	WindowHeight     int
	Logger           log.Logger
}

func (c *Config) defaults() {
	if c.WindowWidth <= 0 {
		c.WindowWidth = 1920
	}
	if c.WindowHeight <= 0 {
		c.WindowHeight = 1080
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "browser.Chromedp"})
}

// Driver drives a Chrome tab.
type Driver struct {
	ctx    context.Context
	cancel func()
	logger log.Logger
}

var (
	_ browser.Driver  = &Driver{}
	_ browser.Session = &Driver{}
	_ browser.Closer  = &Driver{}
)

// New starts a browser and returns a driver over its first tab.
func New(ctx context.Context, cfg Config) (*Driver, error) {
	cfg.defaults()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("ignore-certificate-errors", cfg.IgnoreCertErrors),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(cfg.Logger.Debugf))

	// Starts the browser.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("could not start browser: %w", err)
	}

	return &Driver{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		logger: cfg.Logger,
	}, nil
}

// Close stops the browser.
func (d *Driver) Close() error {
	d.cancel()
	return nil
}

// run runs actions on the tab bounded by the caller context.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var dcancel func()
		runCtx, dcancel = context.WithDeadline(runCtx, deadline)
		defer dcancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (d *Driver) eval(ctx context.Context, expr string, res any, opts ...chromedp.EvaluateOption) error {
	return d.run(ctx, chromedp.Evaluate(expr, res, opts...))
}

func (d *Driver) Open(ctx context.Context, url string) error {
	d.logger.Debugf("Opening %s", url)
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	var u string
	if err := d.run(ctx, chromedp.Location(&u)); err != nil {
		return "", fmt.Errorf("could not get location: %w", err)
	}
	return u, nil
}

func (d *Driver) Context(ctx context.Context, name string) (browser.Frame, error) {
	var res struct {
		Found  bool   `json:"found"`
		Parent string `json:"parent"`
	}
	expr := withFrame(name, `return {found: true, parent: w === window.top ? "" : w.parent.name};`, `{found: false, parent: ""}`)
	if err := d.eval(ctx, expr, &res); err != nil {
		return nil, fmt.Errorf("could not resolve %q: %w", name, err)
	}
	if !res.Found {
		return nil, fmt.Errorf("%q: %w", name, browser.ErrContextNotFound)
	}

	return &frame{driver: d, name: name, parent: res.Parent}, nil
}

func (d *Driver) Fill(ctx context.Context, contextName, selector, value string) error {
	var ok bool
	expr := withFrame(contextName, fmt.Sprintf(`
const el = w.document.querySelector(%s);
if (!el) return false;
el.value = %s;
el.dispatchEvent(new Event("input", {bubbles: true}));
el.dispatchEvent(new Event("change", {bubbles: true}));
return true;`, jsString(selector), jsString(value)), `false`)
	if err := d.eval(ctx, expr, &ok); err != nil {
		return fmt.Errorf("could not fill %q: %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("no element matches %q in %q", selector, contextName)
	}
	return nil
}

type frame struct {
	driver *Driver
	name   string
	parent string
}

func (f *frame) Name() string   { return f.name }
func (f *frame) Parent() string { return f.parent }

func (f *frame) Text(ctx context.Context) (string, error) {
	expr := withFrame(f.name, `return w.document.body ? w.document.body.innerText : "";`, `null`)
	var res *string
	if err := f.driver.eval(ctx, expr, &res); err != nil {
		return "", fmt.Errorf("could not read %q text: %w", f.name, err)
	}
	if res == nil {
		return "", fmt.Errorf("%q: %w", f.name, browser.ErrContextNotFound)
	}
	return *res, nil
}

func (f *frame) Elements(ctx context.Context, selector string) ([]browser.Element, error) {
	var n int
	expr := withFrame(f.name, fmt.Sprintf(`return w.document.querySelectorAll(%s).length;`, jsString(selector)), `-1`)
	if err := f.driver.eval(ctx, expr, &n); err != nil {
		return nil, fmt.Errorf("could not find %q: %w", selector, err)
	}
	if n < 0 {
		return nil, fmt.Errorf("%q: %w", f.name, browser.ErrContextNotFound)
	}

	es := make([]browser.Element, 0, n)
	for i := range n {
		es = append(es, &element{frame: f, selector: selector, index: i})
	}
	return es, nil
}

func (f *frame) Children(ctx context.Context) ([]string, error) {
	var names []string
	expr := withFrame(f.name, `
const names = [];
for (let i = 0; i < w.frames.length; i++) {
  try { names.push(w.frames[i].name); } catch (e) {}
}
return names.sort();`, `null`)
	if err := f.driver.eval(ctx, expr, &names); err != nil {
		return nil, fmt.Errorf("could not list %q frames: %w", f.name, err)
	}
	return names, nil
}

// element addresses the nth match of a selector, it goes stale if the document changes.
type element struct {
	frame    *frame
	selector string
	index    int
}

func (e *element) script(body string) string {
	return withFrame(e.frame.name, fmt.Sprintf(`
const el = w.document.querySelectorAll(%s)[%d];
if (!el) return null;
%s`, jsString(e.selector), e.index, body), `null`)
}

func (e *element) Text(ctx context.Context) (string, error) {
	var res *string
	expr := e.script(`return el.tagName === "INPUT" ? el.value : el.innerText;`)
	if err := e.frame.driver.eval(ctx, expr, &res); err != nil {
		return "", fmt.Errorf("could not read element text: %w", err)
	}
	if res == nil {
		return "", fmt.Errorf("element %q[%d] is gone", e.selector, e.index)
	}
	return *res, nil
}

func (e *element) Click(ctx context.Context) error {
	var res *bool
	expr := e.script(`el.click(); return true;`)
	userGesture := func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithUserGesture(true)
	}
	if err := e.frame.driver.eval(ctx, expr, &res, userGesture); err != nil {
		return fmt.Errorf("could not click element: %w", err)
	}
	if res == nil {
		return fmt.Errorf("element %q[%d] is gone", e.selector, e.index)
	}
	return nil
}

// withFrame wraps a script body that runs with w bound to the named frame window,
// notFound is returned when the frame doesn't exist.
func withFrame(name, body, notFound string) string {
	return fmt.Sprintf(`(() => {
const find = (win, name) => {
  if (name === "") return win;
  for (let i = 0; i < win.frames.length; i++) {
    try {
      const f = win.frames[i];
      if (f.name === name) return f;
      const r = find(f, name);
      if (r) return r;
    } catch (e) {}
  }
  return null;
};
const w = find(window.top, %s);
if (!w || !w.document) return %s;
%s
})()`, jsString(name), notFound, body)
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
