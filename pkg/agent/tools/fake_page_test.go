package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Suryanshpandey5492/WebVision/pkg/browser"
)

// fakePage records every call. Methods listed in block wait for the context
// to end; methods listed in fail return an error.
type fakePage struct {
	mu    sync.Mutex
	calls []string
	url   string
	block map[string]bool
	fail  map[string]error
}

func newFakePage() *fakePage {
	return &fakePage{url: "about:blank", block: map[string]bool{}, fail: map[string]error{}}
}

func (p *fakePage) record(ctx context.Context, name string, format string, args ...interface{}) error {
	p.mu.Lock()
	p.calls = append(p.calls, name+fmt.Sprintf(format, args...))
	blocked := p.block[name]
	err := p.fail[name]
	p.mu.Unlock()
	if blocked {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (p *fakePage) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	if err := p.record(ctx, "Goto", "(%s)", url); err != nil {
		return err
	}
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
	return nil
}

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *fakePage) Title(ctx context.Context) (string, error) { return "title", nil }

func (p *fakePage) Click(ctx context.Context, x, y float64) error {
	return p.record(ctx, "Click", "(%v,%v)", x, y)
}

func (p *fakePage) MoveMouse(ctx context.Context, x, y float64) error {
	return p.record(ctx, "MoveMouse", "(%v,%v)", x, y)
}

func (p *fakePage) Wheel(ctx context.Context, dx, dy float64) error {
	return p.record(ctx, "Wheel", "(%v,%v)", dx, dy)
}

func (p *fakePage) Type(ctx context.Context, text string) error {
	return p.record(ctx, "Type", "(%s)", text)
}

func (p *fakePage) Press(ctx context.Context, key string) error {
	return p.record(ctx, "Press", "(%s)", key)
}

func (p *fakePage) GoBack(ctx context.Context) error {
	if err := p.record(ctx, "GoBack", ""); err != nil {
		return err
	}
	p.mu.Lock()
	p.url = "https://previous.example/"
	p.mu.Unlock()
	return nil
}

func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte("png"), p.record(ctx, "Screenshot", "")
}

func (p *fakePage) Evaluate(ctx context.Context, expression string) (interface{}, error) {
	return nil, p.record(ctx, "Evaluate", "(%s)", expression)
}

func (p *fakePage) WaitForLoad(ctx context.Context, state browser.LoadState) error {
	return p.record(ctx, "WaitForLoad", "(%s)", state)
}

func (p *fakePage) InnerText(ctx context.Context, selector string) (string, error) {
	return "", p.record(ctx, "InnerText", "(%s)", selector)
}

func (p *fakePage) Close() error { return nil }
