package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// CDPDriver drives a local Chrome over the DevTools Protocol. Each Open
// starts its own browser process.
type CDPDriver struct {
	// ExecPath overrides the Chrome binary lookup when set.
	ExecPath string
}

// NewCDPDriver creates a chromedp-backed driver.
func NewCDPDriver() *CDPDriver {
	return &CDPDriver{}
}

func (d *CDPDriver) allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	out := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(opts.Viewport.Width, opts.Viewport.Height),
	)
	if d.ExecPath != "" {
		out = append(out, chromedp.ExecPath(d.ExecPath))
	}
	return out
}

// Open starts Chrome and returns its first tab.
func (d *CDPDriver) Open(ctx context.Context, opts Options) (Page, error) {
	opts = opts.withDefaults()

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), d.allocatorOptions(opts)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	p := &cdpPage{
		ctx:        tabCtx,
		cancel:     func() { tabCancel(); allocCancel() },
		timeout:    opts.Timeout,
		lastMouseX: float64(opts.Viewport.Width) / 2,
		lastMouseY: float64(opts.Viewport.Height) / 2,
	}

	// the first Run launches the browser
	if err := p.run(ctx, chromedp.Navigate("about:blank")); err != nil {
		p.cancel()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}
	return p, nil
}

// Shutdown is a no-op; browsers are owned by their pages.
func (d *CDPDriver) Shutdown() error { return nil }

type cdpPage struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration

	mu         sync.Mutex
	lastURL    string
	lastMouseX float64
	lastMouseY float64
	closed     bool
}

// opContext derives a context that carries the tab's CDP target and ends
// when either the tab or ctx ends. Calls without a deadline get the page
// timeout.
func (p *cdpPage) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(p.ctx)
	stop := context.AfterFunc(ctx, cancel)
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(p.timeout)
	}
	opCtx, dcancel := context.WithDeadline(opCtx, deadline)
	return opCtx, func() { dcancel(); stop(); cancel() }
}

func (p *cdpPage) run(ctx context.Context, actions ...chromedp.Action) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	opCtx, cancel := p.opContext(ctx)
	defer cancel()
	if err := chromedp.Run(opCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (p *cdpPage) refreshURL(ctx context.Context) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err == nil {
		p.mu.Lock()
		p.lastURL = loc
		p.mu.Unlock()
	}
}

func (p *cdpPage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	p.refreshURL(ctx)
	return nil
}

func (p *cdpPage) URL() string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	p.refreshURL(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastURL
}

func (p *cdpPage) Title(ctx context.Context) (string, error) {
	var title string
	err := p.run(ctx, chromedp.Title(&title))
	return title, err
}

func (p *cdpPage) setMouse(x, y float64) {
	p.mu.Lock()
	p.lastMouseX, p.lastMouseY = x, y
	p.mu.Unlock()
}

func (p *cdpPage) Click(ctx context.Context, x, y float64) error {
	if err := p.run(ctx, chromedp.MouseClickXY(x, y)); err != nil {
		return err
	}
	p.setMouse(x, y)
	return nil
}

func (p *cdpPage) MoveMouse(ctx context.Context, x, y float64) error {
	if err := p.run(ctx, chromedp.MouseEvent(input.MouseMoved, x, y)); err != nil {
		return err
	}
	p.setMouse(x, y)
	return nil
}

func (p *cdpPage) Wheel(ctx context.Context, dx, dy float64) error {
	p.mu.Lock()
	x, y := p.lastMouseX, p.lastMouseY
	p.mu.Unlock()
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseWheel, x, y).
			WithDeltaX(dx).
			WithDeltaY(dy).
			Do(ctx)
	}))
}

func (p *cdpPage) Type(ctx context.Context, text string) error {
	return p.run(ctx, chromedp.KeyEvent(text))
}

func (p *cdpPage) Press(ctx context.Context, key string) error {
	keys, mods, err := parseKeyCombo(key)
	if err != nil {
		return err
	}
	var opts []chromedp.KeyOption
	if len(mods) > 0 {
		opts = append(opts, chromedp.KeyModifiers(mods...))
	}
	return p.run(ctx, chromedp.KeyEvent(keys, opts...))
}

func (p *cdpPage) GoBack(ctx context.Context) error {
	if err := p.run(ctx, chromedp.NavigateBack()); err != nil {
		return err
	}
	p.refreshURL(ctx)
	return nil
}

func (p *cdpPage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, chromedp.CaptureScreenshot(&buf))
	return buf, err
}

func (p *cdpPage) Evaluate(ctx context.Context, expression string) (interface{}, error) {
	var res interface{}
	err := p.run(ctx, chromedp.Evaluate(expression, &res, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithAwaitPromise(true)
	}))
	if err != nil {
		return nil, fmt.Errorf("evaluate failed: %w", err)
	}
	return res, nil
}

func (p *cdpPage) WaitForLoad(ctx context.Context, _ LoadState) error {
	return p.run(ctx, chromedp.WaitReady("body", chromedp.ByQuery))
}

// InnerText renders the element's HTML to plain text.
func (p *cdpPage) InnerText(ctx context.Context, selector string) (string, error) {
	var raw string
	if err := p.run(ctx, chromedp.OuterHTML(selector, &raw, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return HTMLToText(raw)
}

func (p *cdpPage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.cancel()
	return nil
}

// parseKeyCombo converts a Playwright style key name such as "Enter" or
// "Control+A" into chromedp key input and modifiers.
func parseKeyCombo(combo string) (string, []input.Modifier, error) {
	if combo == "" {
		return "", nil, fmt.Errorf("empty key")
	}
	parts := strings.Split(combo, "+")
	key := parts[len(parts)-1]

	var mods []input.Modifier
	for _, m := range parts[:len(parts)-1] {
		switch strings.ToLower(m) {
		case "control", "ctrl":
			mods = append(mods, input.ModifierCtrl)
		case "meta", "command", "cmd":
			mods = append(mods, input.ModifierMeta)
		case "shift":
			mods = append(mods, input.ModifierShift)
		case "alt":
			mods = append(mods, input.ModifierAlt)
		default:
			return "", nil, fmt.Errorf("unknown modifier %q in %q", m, combo)
		}
	}

	switch key {
	case "Enter":
		key = kb.Enter
	case "Backspace":
		key = kb.Backspace
	case "Tab":
		key = kb.Tab
	case "Escape":
		key = kb.Escape
	case "Delete":
		key = kb.Delete
	case "ArrowDown":
		key = kb.ArrowDown
	case "ArrowUp":
		key = kb.ArrowUp
	default:
		if len([]rune(key)) != 1 {
			return "", nil, fmt.Errorf("unsupported key %q", key)
		}
		// shortcuts are matched on the lower case character
		if len(mods) > 0 {
			key = strings.ToLower(key)
		}
	}
	return key, mods, nil
}
