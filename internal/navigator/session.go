package navigator

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhoujuxi2028/consoleqa/internal/browser"
	"github.com/zhoujuxi2028/consoleqa/internal/conventions"
	"github.com/zhoujuxi2028/consoleqa/internal/locator"
	"github.com/zhoujuxi2028/consoleqa/internal/model"
	"github.com/zhoujuxi2028/consoleqa/internal/synchronizer"
)

// submitSelector selects the login form submit controls.
const submitSelector = "input[name=submit],input[type=submit],button[type=submit],button"

// Credentials are the console login credentials.
type Credentials struct {
	Username string
	Password string
}

// Login opens the console login page, submits the credentials and waits for the
// frameset. Any failure means the console is unreachable.
func (n *Navigator) Login(ctx context.Context, baseURL string, creds Credentials) error {
	loginURL := strings.TrimRight(baseURL, "/") + conventions.LoginPath
	unreachable := func(err error) error {
		return &model.UnreachableError{Target: loginURL, Err: err}
	}

	session, ok := n.driver.(browser.Session)
	if !ok {
		return unreachable(fmt.Errorf("driver can't open sessions"))
	}

	n.logger.Infof("Logging in %s as %s", loginURL, creds.Username)
	if err := session.Open(ctx, loginURL); err != nil {
		return unreachable(fmt.Errorf("could not open login page: %w", err))
	}

	top := browser.TopContext
	if _, err := n.sync.WaitForContent(ctx, top, synchronizer.WaitOptions{}); err != nil {
		return unreachable(err)
	}

	fields := []struct{ name, value string }{
		{conventions.LoginUserField, creds.Username},
		{conventions.LoginPasswordField, creds.Password},
	}
	for _, f := range fields {
		if err := session.Fill(ctx, top, fmt.Sprintf("input[name=%s]", f.name), f.value); err != nil {
			return unreachable(fmt.Errorf("could not fill %s: %w", f.name, err))
		}
	}

	frame, err := n.driver.Context(ctx, top)
	if err != nil {
		return unreachable(err)
	}
	err = n.locator.ClickByText(ctx, frame, "submit", locator.Options{
		Selector: submitSelector,
		Matcher:  func(string) bool { return true },
	})
	if err != nil {
		return unreachable(err)
	}

	// The frameset is ready once the menu frame has content.
	if _, err := n.sync.WaitForContent(ctx, conventions.FrameLeft, synchronizer.WaitOptions{}); err != nil {
		return unreachable(fmt.Errorf("console frameset not loaded after login: %w", err))
	}

	n.logger.Infof("Logged in")
	return nil
}

// OpenConsole opens an already authenticated console and waits for the frameset.
func (n *Navigator) OpenConsole(ctx context.Context, consoleURL string) error {
	session, ok := n.driver.(browser.Session)
	if !ok {
		return &model.UnreachableError{Target: consoleURL, Err: fmt.Errorf("driver can't open sessions")}
	}
	if err := session.Open(ctx, consoleURL); err != nil {
		return &model.UnreachableError{Target: consoleURL, Err: err}
	}
	if _, err := n.sync.WaitForContent(ctx, conventions.FrameLeft, synchronizer.WaitOptions{}); err != nil {
		return &model.UnreachableError{Target: consoleURL, Err: err}
	}
	return nil
}

// FrameStructure returns the names of the top document frames.
func (n *Navigator) FrameStructure(ctx context.Context) ([]string, error) {
	top, err := n.driver.Context(ctx, browser.TopContext)
	if err != nil {
		return nil, fmt.Errorf("could not resolve top document: %w", err)
	}

	names, err := top.Children(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list frames: %w", err)
	}

	return names, nil
}
