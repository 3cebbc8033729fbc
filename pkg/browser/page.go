// Package browser provides the page capabilities the agent needs and two
// drivers implementing them: Playwright and the Chrome DevTools Protocol.
package browser

import (
	"context"
	_ "embed"
	"errors"
	"time"
)

// ErrPageClosed is returned by operations on a page that has been closed.
var ErrPageClosed = errors.New("browser: page closed")

// LoadState names a document readiness milestone.
type LoadState string

const (
	LoadStateDOMContentLoaded LoadState = "domcontentloaded"
	LoadStateLoad             LoadState = "load"
)

// MarkScript defines window.markPage and window.unmarkPage. markPage
// outlines interactable elements with numbered labels and returns their
// centers as [{x, y, type, text, ariaLabel}]; unmarkPage removes the labels.
//
//go:embed mark_page.js
var MarkScript string

// Page is the minimal set of operations the agent performs on a live page.
// Coordinates are CSS pixels relative to the viewport. Key names follow the
// Playwright convention ("Enter", "Backspace", "Control+A").
type Page interface {
	Goto(ctx context.Context, url string, timeout time.Duration) error
	URL() string
	Title(ctx context.Context) (string, error)
	Click(ctx context.Context, x, y float64) error
	MoveMouse(ctx context.Context, x, y float64) error
	Wheel(ctx context.Context, dx, dy float64) error
	Type(ctx context.Context, text string) error
	Press(ctx context.Context, key string) error
	GoBack(ctx context.Context) error
	Screenshot(ctx context.Context) ([]byte, error)
	// Evaluate runs a JavaScript expression and returns its JSON value.
	Evaluate(ctx context.Context, expression string) (interface{}, error)
	WaitForLoad(ctx context.Context, state LoadState) error
	InnerText(ctx context.Context, selector string) (string, error)
	Close() error
}

// SessionProvider opens a fresh page owned exclusively by the caller, who
// must Close it.
type SessionProvider interface {
	Open(ctx context.Context) (Page, error)
}

// Driver launches browsers for a Manager.
type Driver interface {
	Open(ctx context.Context, opts Options) (Page, error)
	Shutdown() error
}

// Options configures each browser a driver launches.
type Options struct {
	Headless bool
	// Browser selects the engine for drivers that support several.
	Browser  string
	Viewport Viewport
	// Timeout is the default per-operation timeout of the driver.
	Timeout time.Duration
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 1080
	DefaultTimeout        = 30 * time.Second
	DefaultMaxSessions    = 5
)

// withDefaults fills zero fields of opts.
func (o Options) withDefaults() Options {
	if o.Viewport.Width == 0 || o.Viewport.Height == 0 {
		o.Viewport = Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Browser == "" {
		o.Browser = "chromium"
	}
	return o
}

// do runs fn and returns early with ctx's error when ctx ends first. The
// driver call keeps running in the background until it returns on its own.
func do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// openPage runs open and returns early with ctx's error when ctx ends first.
// A page that open produces after that is closed once it arrives.
func openPage(ctx context.Context, open func() (Page, error)) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	type opened struct {
		page Page
		err  error
	}
	done := make(chan opened, 1)
	go func() {
		page, err := open()
		done <- opened{page: page, err: err}
	}()
	select {
	case r := <-done:
		return r.page, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.err == nil && r.page != nil {
				_ = r.page.Close()
			}
		}()
		return nil, ctx.Err()
	}
}
