package fake

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/zhoujuxi2028/consoleqa/internal/browser"
)

// ErrStaleFrame is returned when a frame handle is used after its document was replaced.
var ErrStaleFrame = errors.New("stale frame handle")

// Element is a fake DOM element.
type Element struct {
	Tag     string // Defaults to "a".
	Text    string
	OnClick func()
}

// Page is the document loaded in a fake frame.
type Page struct {
	Parent   string
	Text     string
	Elements []Element
	// HiddenFor makes the frame unresolvable for the first N resolutions.
	HiddenFor int
}

type frameState struct {
	page        Page
	generation  int
	resolutions int
}

// Driver is an in-memory browser driver for tests. Clicks run the element callbacks
// synchronously, callbacks usually replace frames with SetPage.
type Driver struct {
	mu     sync.Mutex
	url    string
	frames map[string]*frameState
	clicks []string
	fills  map[string]string
	opened []string
}

// NewDriver returns a new fake driver.
func NewDriver() *Driver {
	return &Driver{
		frames: map[string]*frameState{},
		fills:  map[string]string{},
	}
}

// SetPage loads a document in a named frame, replacing the previous one.
func (d *Driver) SetPage(name string, p Page) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.frames[name]
	if !ok {
		st = &frameState{}
		d.frames[name] = st
	}
	st.page = p
	st.generation++
}

// RemovePage removes a frame.
func (d *Driver) RemovePage(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.frames, name)
}

// SetURL sets the top level URL.
func (d *Driver) SetURL(u string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = u
}

// Clicks returns the clicked element texts in order.
func (d *Driver) Clicks() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.clicks)
}

// Resolutions returns how many times a frame has been resolved.
func (d *Driver) Resolutions(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.frames[name]
	if !ok {
		return 0
	}
	return st.resolutions
}

// Filled returns the value filled in a selector of a context.
func (d *Driver) Filled(contextName, selector string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fills[contextName+" "+selector]
}

// Opened returns the opened URLs.
func (d *Driver) Opened() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.opened)
}

func (d *Driver) Context(_ context.Context, name string) (browser.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.frames[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, browser.ErrContextNotFound)
	}
	st.resolutions++
	if st.resolutions <= st.page.HiddenFor {
		return nil, fmt.Errorf("%q: %w", name, browser.ErrContextNotFound)
	}

	return &frame{d: d, name: name, parent: st.page.Parent, generation: st.generation}, nil
}

func (d *Driver) CurrentURL(_ context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, nil
}

func (d *Driver) Open(_ context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = append(d.opened, url)
	d.url = url
	return nil
}

func (d *Driver) Fill(_ context.Context, contextName, selector, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.frames[contextName]; !ok {
		return fmt.Errorf("%q: %w", contextName, browser.ErrContextNotFound)
	}
	d.fills[contextName+" "+selector] = value
	return nil
}

type frame struct {
	d          *Driver
	name       string
	parent     string
	generation int
}

func (f *frame) page() (Page, error) {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()

	st, ok := f.d.frames[f.name]
	if !ok || st.generation != f.generation {
		return Page{}, ErrStaleFrame
	}
	return st.page, nil
}

func (f *frame) Name() string   { return f.name }
func (f *frame) Parent() string { return f.parent }

func (f *frame) Text(_ context.Context) (string, error) {
	p, err := f.page()
	if err != nil {
		return "", err
	}

	parts := []string{p.Text}
	for _, e := range p.Elements {
		parts = append(parts, e.Text)
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

func (f *frame) Elements(_ context.Context, selector string) ([]browser.Element, error) {
	p, err := f.page()
	if err != nil {
		return nil, err
	}

	tags := map[string]bool{}
	for _, s := range strings.Split(selector, ",") {
		s = strings.TrimSpace(s)
		if i := strings.IndexAny(s, "[.#:"); i >= 0 {
			s = s[:i]
		}
		tags[s] = true
	}

	var es []browser.Element
	for _, e := range p.Elements {
		tag := e.Tag
		if tag == "" {
			tag = "a"
		}
		if tags["*"] || tags[tag] {
			es = append(es, &element{f: f, e: e})
		}
	}
	return es, nil
}

func (f *frame) Children(_ context.Context) ([]string, error) {
	if _, err := f.page(); err != nil {
		return nil, err
	}

	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	var names []string
	for name, st := range f.d.frames {
		if name != f.name && st.page.Parent == f.name {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

type element struct {
	f *frame
	e Element
}

func (e *element) Text(_ context.Context) (string, error) {
	if _, err := e.f.page(); err != nil {
		return "", err
	}
	return e.e.Text, nil
}

func (e *element) Click(_ context.Context) error {
	if _, err := e.f.page(); err != nil {
		return err
	}

	e.f.d.mu.Lock()
	e.f.d.clicks = append(e.f.d.clicks, e.e.Text)
	e.f.d.mu.Unlock()

	if e.e.OnClick != nil {
		e.e.OnClick()
	}
	return nil
}

var (
	_ browser.Driver  = &Driver{}
	_ browser.Session = &Driver{}
)
