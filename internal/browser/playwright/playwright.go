// Package playwright is a Playwright browser driver.
package playwright

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/zhoujuxi2028/consoleqa/internal/browser"
	"github.com/zhoujuxi2028/consoleqa/internal/log"
)

const defaultActionTimeout = 10 * time.Second

// Config is the playwright driver configuration.
type Config struct {
	Headless bool
	// IgnoreCertErrors accepts the appliance self signed certificate.
	IgnoreCertErrors bool
	// InstallDriver installs the playwright driver and chromium when missing.
	InstallDriver bool
	Logger        log.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "browser.Playwright"})
}

// Driver drives a Playwright chromium page.
type Driver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	logger  log.Logger
}

var (
	_ browser.Driver  = &Driver{}
	_ browser.Session = &Driver{}
	_ browser.Closer  = &Driver{}
)

// New launches chromium and opens a page.
func New(cfg Config) (*Driver, error) {
	cfg.defaults()

	if cfg.InstallDriver {
		err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}, Verbose: false})
		if err != nil {
			return nil, fmt.Errorf("could not install playwright: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not launch chromium: %w", err)
	}

	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(cfg.IgnoreCertErrors),
	})
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("could not create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("could not create page: %w", err)
	}

	return &Driver{pw: pw, browser: b, page: page, logger: cfg.Logger}, nil
}

// Close closes the browser and stops playwright.
func (d *Driver) Close() error {
	return errors.Join(d.browser.Close(), d.pw.Stop())
}

// timeoutMS returns the playwright timeout for the caller context deadline.
func timeoutMS(ctx context.Context) *float64 {
	timeout := defaultActionTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = max(time.Until(deadline), time.Millisecond)
	}
	return playwright.Float(float64(timeout.Milliseconds()))
}

func (d *Driver) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.logger.Debugf("Opening %s", url)

	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   timeoutMS(ctx),
	})
	if err != nil {
		return fmt.Errorf("could not open %s: %w", url, err)
	}
	return nil
}

func (d *Driver) CurrentURL(_ context.Context) (string, error) {
	return d.page.URL(), nil
}

func (d *Driver) frame(name string) (playwright.Frame, error) {
	var f playwright.Frame
	if name == browser.TopContext {
		f = d.page.MainFrame()
	} else {
		f = d.page.Frame(playwright.PageFrameOptions{Name: playwright.String(name)})
	}
	if f == nil || f.IsDetached() {
		return nil, fmt.Errorf("%q: %w", name, browser.ErrContextNotFound)
	}
	return f, nil
}

func (d *Driver) Context(ctx context.Context, name string) (browser.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := d.frame(name)
	if err != nil {
		return nil, err
	}

	parent := browser.TopContext
	if p := f.ParentFrame(); p != nil && p != d.page.MainFrame() {
		parent = p.Name()
	}
	return &frame{f: f, name: name, parent: parent}, nil
}

func (d *Driver) Fill(ctx context.Context, contextName, selector, value string) error {
	f, err := d.frame(contextName)
	if err != nil {
		return err
	}
	err = f.Locator(selector).First().Fill(value, playwright.LocatorFillOptions{Timeout: timeoutMS(ctx)})
	if err != nil {
		return fmt.Errorf("could not fill %q: %w", selector, err)
	}
	return nil
}

type frame struct {
	f      playwright.Frame
	name   string
	parent string
}

func (f *frame) Name() string   { return f.name }
func (f *frame) Parent() string { return f.parent }

func (f *frame) Text(ctx context.Context) (string, error) {
	if f.f.IsDetached() {
		return "", fmt.Errorf("%q: %w", f.name, browser.ErrContextNotFound)
	}

	body := f.f.Locator("body")
	n, err := body.Count()
	if err != nil {
		return "", fmt.Errorf("could not read %q: %w", f.name, err)
	}
	if n == 0 {
		return "", nil
	}

	text, err := body.First().InnerText(playwright.LocatorInnerTextOptions{Timeout: timeoutMS(ctx)})
	if err != nil {
		return "", fmt.Errorf("could not read %q text: %w", f.name, err)
	}
	return text, nil
}

func (f *frame) Elements(_ context.Context, selector string) ([]browser.Element, error) {
	loc := f.f.Locator(selector)
	n, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("could not find %q: %w", selector, err)
	}

	es := make([]browser.Element, 0, n)
	for i := range n {
		es = append(es, &element{loc: loc.Nth(i)})
	}
	return es, nil
}

func (f *frame) Children(_ context.Context) ([]string, error) {
	var names []string
	for _, c := range f.f.ChildFrames() {
		names = append(names, c.Name())
	}
	sort.Strings(names)
	return names, nil
}

type element struct {
	loc playwright.Locator
}

func (e *element) Text(ctx context.Context) (string, error) {
	v, err := e.loc.Evaluate(`el => el.tagName === "INPUT" ? el.value : el.innerText`, nil,
		playwright.LocatorEvaluateOptions{Timeout: timeoutMS(ctx)})
	if err != nil {
		return "", fmt.Errorf("could not read element text: %w", err)
	}
	s, _ := v.(string)
	return s, nil
}

func (e *element) Click(ctx context.Context) error {
	if err := e.loc.Click(playwright.LocatorClickOptions{Timeout: timeoutMS(ctx)}); err != nil {
		return fmt.Errorf("could not click element: %w", err)
	}
	return nil
}
