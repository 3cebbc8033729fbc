package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightDriver launches Chromium or Firefox through Playwright.
type PlaywrightDriver struct {
	mu          sync.Mutex
	pw          *playwright.Playwright
	install     bool
	initialized bool
}

// NewPlaywrightDriver creates a driver. When install is true the browser
// binaries are downloaded on first use.
func NewPlaywrightDriver(install bool) *PlaywrightDriver {
	return &PlaywrightDriver{install: install}
}

// initialize starts the Playwright server once.
func (d *PlaywrightDriver) initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil
	}

	// discard driver output so it does not interleave with the CLI view
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if d.install {
		if err := playwright.Install(opts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	d.pw = pw
	d.initialized = true
	return nil
}

// Open launches a browser with a single page.
func (d *PlaywrightDriver) Open(ctx context.Context, opts Options) (Page, error) {
	if err := d.initialize(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	browserType := d.pw.Chromium
	if opts.Browser == "firefox" {
		browserType = d.pw.Firefox
	}

	return openPage(ctx, func() (Page, error) {
		browser, err := browserType.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: &opts.Headless,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}

		bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
			Viewport: &playwright.Size{Width: opts.Viewport.Width, Height: opts.Viewport.Height},
		})
		if err != nil {
			_ = browser.Close()
			return nil, fmt.Errorf("failed to create context: %w", err)
		}

		page, err := bctx.NewPage()
		if err != nil {
			_ = bctx.Close()
			_ = browser.Close()
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
		page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

		return &playwrightPage{browser: browser, context: bctx, page: page}, nil
	})
}

// Shutdown stops the Playwright server.
func (d *PlaywrightDriver) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized && d.pw != nil {
		if err := d.pw.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		d.initialized = false
	}
	return nil
}

type playwrightPage struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

func (p *playwrightPage) live() error {
	if p.page.IsClosed() {
		return ErrPageClosed
	}
	return nil
}

func (p *playwrightPage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	if err := p.live(); err != nil {
		return err
	}
	waitUntil := playwright.WaitUntilState(LoadStateDOMContentLoaded)
	opts := playwright.PageGotoOptions{WaitUntil: &waitUntil}
	if timeout > 0 {
		ms := float64(timeout.Milliseconds())
		opts.Timeout = &ms
	}
	return do(ctx, func() error {
		if _, err := p.page.Goto(url, opts); err != nil {
			return fmt.Errorf("navigation failed: %w", err)
		}
		return nil
	})
}

func (p *playwrightPage) URL() string {
	if p.page.IsClosed() {
		return ""
	}
	return p.page.URL()
}

func (p *playwrightPage) Title(ctx context.Context) (string, error) {
	var title string
	err := do(ctx, func() error {
		var err error
		title, err = p.page.Title()
		return err
	})
	return title, err
}

func (p *playwrightPage) Click(ctx context.Context, x, y float64) error {
	if err := p.live(); err != nil {
		return err
	}
	return do(ctx, func() error { return p.page.Mouse().Click(x, y) })
}

func (p *playwrightPage) MoveMouse(ctx context.Context, x, y float64) error {
	if err := p.live(); err != nil {
		return err
	}
	return do(ctx, func() error { return p.page.Mouse().Move(x, y) })
}

func (p *playwrightPage) Wheel(ctx context.Context, dx, dy float64) error {
	if err := p.live(); err != nil {
		return err
	}
	return do(ctx, func() error { return p.page.Mouse().Wheel(dx, dy) })
}

func (p *playwrightPage) Type(ctx context.Context, text string) error {
	if err := p.live(); err != nil {
		return err
	}
	return do(ctx, func() error { return p.page.Keyboard().Type(text) })
}

func (p *playwrightPage) Press(ctx context.Context, key string) error {
	if err := p.live(); err != nil {
		return err
	}
	return do(ctx, func() error { return p.page.Keyboard().Press(key) })
}

func (p *playwrightPage) GoBack(ctx context.Context) error {
	if err := p.live(); err != nil {
		return err
	}
	return do(ctx, func() error {
		_, err := p.page.GoBack()
		return err
	})
}

func (p *playwrightPage) Screenshot(ctx context.Context) ([]byte, error) {
	if err := p.live(); err != nil {
		return nil, err
	}
	var buf []byte
	err := do(ctx, func() error {
		var err error
		buf, err = p.page.Screenshot()
		return err
	})
	return buf, err
}

func (p *playwrightPage) Evaluate(ctx context.Context, expression string) (interface{}, error) {
	if err := p.live(); err != nil {
		return nil, err
	}
	var res interface{}
	err := do(ctx, func() error {
		var err error
		res, err = p.page.Evaluate(expression)
		return err
	})
	return res, err
}

func (p *playwrightPage) WaitForLoad(ctx context.Context, state LoadState) error {
	if err := p.live(); err != nil {
		return err
	}
	st := playwright.LoadState(state)
	return do(ctx, func() error {
		return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{State: &st})
	})
}

func (p *playwrightPage) InnerText(ctx context.Context, selector string) (string, error) {
	if err := p.live(); err != nil {
		return "", err
	}
	var text string
	err := do(ctx, func() error {
		var err error
		text, err = p.page.InnerText(selector)
		return err
	})
	return text, err
}

// Close releases the page, its context and the browser process.
func (p *playwrightPage) Close() error {
	var errs []error
	if !p.page.IsClosed() {
		if err := p.page.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.context.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := p.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
