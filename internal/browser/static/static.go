// Package static is a browser driver without script support. It fetches the documents
// over HTTP, loads framesets and follows links and form submissions into their target
// frame, enough for server rendered consoles and for tests.
package static

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/zhoujuxi2028/consoleqa/internal/browser"
	"github.com/zhoujuxi2028/consoleqa/internal/log"
)

const maxFrameDepth = 5

// Config is the static driver configuration.
type Config struct {
	// HTTPClient defaults to a client with a cookie jar.
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     log.Logger
}

func (c *Config) defaults() error {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.HTTPClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return fmt.Errorf("could not create cookie jar: %w", err)
		}
		c.HTTPClient = &http.Client{Jar: jar, Timeout: c.Timeout}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "browser.Static"})

	return nil
}

type document struct {
	name     string
	parent   string
	url      *url.URL
	doc      *goquery.Document
	children []string
}

// Driver is a static HTML browser driver.
type Driver struct {
	client *http.Client
	logger log.Logger

	mu   sync.Mutex
	docs map[string]*document
}

var (
	_ browser.Driver  = &Driver{}
	_ browser.Session = &Driver{}
)

// New returns a new static driver.
func New(cfg Config) (*Driver, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Driver{
		client: cfg.HTTPClient,
		logger: cfg.Logger,
		docs:   map[string]*document{},
	}, nil
}

// Open loads a URL as the top level document.
func (d *Driver) Open(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	return d.load(ctx, browser.TopContext, http.MethodGet, u, nil)
}

func (d *Driver) Context(_ context.Context, name string) (browser.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc, ok := d.docs[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, browser.ErrContextNotFound)
	}
	return &frame{driver: d, doc: doc}, nil
}

func (d *Driver) CurrentURL(_ context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	top, ok := d.docs[browser.TopContext]
	if !ok {
		return "", fmt.Errorf("no document loaded: %w", browser.ErrContextNotFound)
	}
	return top.url.String(), nil
}

// Fill sets the value of the inputs matching the selector.
func (d *Driver) Fill(_ context.Context, contextName, selector, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	doc, ok := d.docs[contextName]
	if !ok {
		return fmt.Errorf("%q: %w", contextName, browser.ErrContextNotFound)
	}
	sel := doc.doc.Find(selector)
	if sel.Length() == 0 {
		return fmt.Errorf("no element matches %q in %q", selector, contextName)
	}
	sel.SetAttr("value", value)

	return nil
}

// load fetches a document into a context, replacing it and its descendant frames.
func (d *Driver) load(ctx context.Context, name, method string, u *url.URL, form url.Values) error {
	d.mu.Lock()
	parent := ""
	if old, ok := d.docs[name]; ok {
		parent = old.parent
		d.dropLocked(name)
	}
	d.mu.Unlock()

	return d.loadTree(ctx, name, parent, method, u, form, 0)
}

func (d *Driver) loadTree(ctx context.Context, name, parent, method string, u *url.URL, form url.Values, depth int) error {
	if depth > maxFrameDepth {
		return fmt.Errorf("frames nested deeper than %d levels", maxFrameDepth)
	}

	doc, finalURL, err := d.fetch(ctx, method, u, form)
	if err != nil {
		return err
	}

	current := &document{name: name, parent: parent, url: finalURL, doc: doc}

	type child struct {
		name string
		url  *url.URL
	}
	var children []child
	doc.Find("frame[name], iframe[name]").Each(func(_ int, s *goquery.Selection) {
		childName, _ := s.Attr("name")
		src, _ := s.Attr("src")
		if childName == "" || src == "" {
			return
		}
		cu, err := finalURL.Parse(src)
		if err != nil {
			d.logger.Warningf("Ignoring frame %q with invalid source %q", childName, src)
			return
		}
		children = append(children, child{name: childName, url: cu})
		current.children = append(current.children, childName)
	})
	sort.Strings(current.children)

	d.mu.Lock()
	d.docs[name] = current
	d.mu.Unlock()
	d.logger.Debugf("Loaded %q from %s", name, finalURL)

	for _, c := range children {
		if err := d.loadTree(ctx, c.name, name, http.MethodGet, c.url, nil, depth+1); err != nil {
			return fmt.Errorf("could not load frame %q: %w", c.name, err)
		}
	}

	return nil
}

func (d *Driver) fetch(ctx context.Context, method string, u *url.URL, form url.Values) (*goquery.Document, *url.URL, error) {
	var body io.Reader
	target := *u
	if form != nil {
		if method == http.MethodPost {
			body = strings.NewReader(form.Encode())
		} else {
			target.RawQuery = form.Encode()
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("could not get %s: %w", target.String(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, nil, fmt.Errorf("could not get %s: status %d", target.String(), resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("could not parse %s: %w", target.String(), err)
	}

	return doc, resp.Request.URL, nil
}

func (d *Driver) dropLocked(name string) {
	doc, ok := d.docs[name]
	if !ok {
		return
	}
	for _, c := range doc.children {
		d.dropLocked(c)
	}
	delete(d.docs, name)
}

// targetContext resolves an HTML target attribute from a context.
func (d *Driver) targetContext(from *document, target string) string {
	switch target {
	case "", "_self":
		return from.name
	case "_top":
		return browser.TopContext
	case "_parent":
		return from.parent
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.docs[target]; ok {
		return target
	}
	// Unknown targets open a new window, the closest thing is the top document.
	return browser.TopContext
}

type frame struct {
	driver *Driver
	doc    *document
}

func (f *frame) Name() string   { return f.doc.name }
func (f *frame) Parent() string { return f.doc.parent }

func (f *frame) Text(_ context.Context) (string, error) {
	f.driver.mu.Lock()
	defer f.driver.mu.Unlock()

	body := f.doc.doc.Find("body")
	if body.Length() == 0 {
		return "", nil
	}

	var b strings.Builder
	renderText(body, &b)

	var lines []string
	for _, l := range strings.Split(b.String(), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n"), nil
}

var blockElements = map[string]bool{
	"address": true, "blockquote": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "form": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "hr": true, "li": true, "ol": true, "p": true, "pre": true,
	"table": true, "tr": true, "ul": true,
}

// renderText approximates the rendered text: blocks and rows on their own lines and
// table cells separated by tabs.
func renderText(s *goquery.Selection, b *strings.Builder) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch name := goquery.NodeName(c); {
		case name == "#text":
			b.WriteString(collapseSpaces(c.Text()))
		case name == "script", name == "style", name == "#comment":
		case name == "br":
			b.WriteString("\n")
		case name == "td", name == "th":
			renderText(c, b)
			b.WriteString("\t")
		case blockElements[name]:
			b.WriteString("\n")
			renderText(c, b)
			b.WriteString("\n")
		default:
			renderText(c, b)
		}
	})
}

func collapseSpaces(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			return " "
		}
		return ""
	}

	out := strings.Join(fields, " ")
	if strings.TrimLeft(s, " \t\r\n") != s {
		out = " " + out
	}
	if strings.TrimRight(s, " \t\r\n") != s {
		out += " "
	}
	return out
}

func (f *frame) Elements(_ context.Context, selector string) ([]browser.Element, error) {
	f.driver.mu.Lock()
	defer f.driver.mu.Unlock()

	var es []browser.Element
	f.doc.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		es = append(es, &element{frame: f, sel: s})
	})
	return es, nil
}

func (f *frame) Children(_ context.Context) ([]string, error) {
	f.driver.mu.Lock()
	defer f.driver.mu.Unlock()

	return append([]string(nil), f.doc.children...), nil
}

type element struct {
	frame *frame
	sel   *goquery.Selection
}

func (e *element) Text(_ context.Context) (string, error) {
	e.frame.driver.mu.Lock()
	defer e.frame.driver.mu.Unlock()

	if goquery.NodeName(e.sel) == "input" {
		v, _ := e.sel.Attr("value")
		return v, nil
	}
	return strings.TrimSpace(e.sel.Text()), nil
}

func (e *element) Click(ctx context.Context) error {
	d := e.frame.driver
	from := e.frame.doc

	switch goquery.NodeName(e.sel) {
	case "a":
		href, _ := e.sel.Attr("href")
		if href == "" || href == "#" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return fmt.Errorf("link %q needs scripts", strings.TrimSpace(e.sel.Text()))
		}
		u, err := from.url.Parse(href)
		if err != nil {
			return fmt.Errorf("invalid link %q: %w", href, err)
		}
		target, _ := e.sel.Attr("target")
		return d.load(ctx, d.targetContext(from, target), http.MethodGet, u, nil)

	case "input", "button":
		if typ := strings.ToLower(e.sel.AttrOr("type", "submit")); typ != "submit" {
			return fmt.Errorf("%s of type %q needs scripts", goquery.NodeName(e.sel), typ)
		}
		return e.submit(ctx)
	}

	return fmt.Errorf("%s elements need scripts to be clicked", goquery.NodeName(e.sel))
}

func (e *element) submit(ctx context.Context) error {
	d := e.frame.driver
	from := e.frame.doc

	d.mu.Lock()
	form := e.sel.Closest("form")
	if form.Length() == 0 {
		d.mu.Unlock()
		return fmt.Errorf("submit button outside of a form")
	}

	values := url.Values{}
	form.Find("input[name], textarea[name], select[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		switch goquery.NodeName(s) {
		case "textarea":
			values.Add(name, s.Text())
		case "select":
			opt := s.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = s.Find("option").First()
			}
			values.Add(name, opt.AttrOr("value", strings.TrimSpace(opt.Text())))
		default:
			switch strings.ToLower(s.AttrOr("type", "text")) {
			case "submit", "button", "image", "reset":
				return
			case "checkbox", "radio":
				if _, ok := s.Attr("checked"); !ok {
					return
				}
			}
			values.Add(name, s.AttrOr("value", ""))
		}
	})
	if name, ok := e.sel.Attr("name"); ok && name != "" {
		values.Add(name, e.sel.AttrOr("value", ""))
	}

	method := strings.ToUpper(form.AttrOr("method", http.MethodGet))
	action := form.AttrOr("action", "")
	target := form.AttrOr("target", "")
	d.mu.Unlock()

	u, err := from.url.Parse(action)
	if err != nil {
		return fmt.Errorf("invalid form action %q: %w", action, err)
	}
	if method != http.MethodPost {
		method = http.MethodGet
	}

	return d.load(ctx, d.targetContext(from, target), method, u, values)
}
