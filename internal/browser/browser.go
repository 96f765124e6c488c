package browser

import (
	"context"
	"errors"
)

// ErrContextNotFound is returned when a named browsing context doesn't exist (yet).
var ErrContextNotFound = errors.New("browsing context not found")

// TopContext is the name used to address the top level document.
const TopContext = ""

// Driver is the browser automation primitives the navigation engine needs.
type Driver interface {
	// Context resolves a named browsing context (frame). Resolution happens on each call,
	// handles must not be cached across navigations.
	Context(ctx context.Context, name string) (Frame, error)
	// CurrentURL returns the top level document URL.
	CurrentURL(ctx context.Context) (string, error)
}

// Frame is a resolved browsing context.
type Frame interface {
	Name() string
	// Parent returns the parent context name, TopContext for top level frames.
	Parent() string
	// Text returns the rendered body text, empty when the document is not attached yet.
	Text(ctx context.Context) (string, error)
	// Elements returns the elements matching a CSS selector in document order.
	Elements(ctx context.Context, selector string) ([]Element, error)
	// Children returns the names of the child browsing contexts.
	Children(ctx context.Context) ([]string, error)
}

// Element is a DOM element handle.
type Element interface {
	// Text returns the element text (value for inputs).
	Text(ctx context.Context) (string, error)
	Click(ctx context.Context) error
}

// Session is implemented by drivers that can start a console session.
type Session interface {
	Open(ctx context.Context, url string) error
	Fill(ctx context.Context, contextName, selector, value string) error
}

// Closer is implemented by drivers that hold browser resources.
type Closer interface {
	Close() error
}
