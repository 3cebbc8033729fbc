package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent/tools"
	"github.com/Suryanshpandey5492/WebVision/pkg/browser"
	"github.com/Suryanshpandey5492/WebVision/pkg/llm"
	"github.com/Suryanshpandey5492/WebVision/pkg/llm/tokenizer"
	"github.com/Suryanshpandey5492/WebVision/pkg/types"
)

// fakeProvider answers from scripted queues. Planning and bookkeeping calls
// are told apart by the tools offered.
type fakeProvider struct {
	mu sync.Mutex

	plans    []*llm.Completion
	insights []string
	books    []*llm.Completion
	final    string

	planErr  error
	insErr   error
	finalErr error

	planCalls  int
	insCalls   int
	bookCalls  int
	finalCalls int
	lastPlan   []types.Message
	lastFinal  []types.Message
}

func isPlanning(specs []llm.ToolSpec) bool {
	for _, s := range specs {
		if s.Name == tools.ClickName {
			return true
		}
	}
	return false
}

func (f *fakeProvider) Complete(ctx context.Context, _ []types.Message) (*types.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insCalls++
	if f.insErr != nil {
		return nil, f.insErr
	}
	content := "nothing relevant"
	if len(f.insights) > 0 {
		content, f.insights = f.insights[0], f.insights[1:]
	}
	msg := types.NewAssistantMessage(content)
	return &msg, nil
}

func (f *fakeProvider) CompleteWithTools(ctx context.Context, msgs []types.Message, specs []llm.ToolSpec) (*llm.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if isPlanning(specs) {
		f.planCalls++
		f.lastPlan = msgs
		if f.planErr != nil {
			return nil, f.planErr
		}
		if len(f.plans) == 0 {
			return &llm.Completion{Content: "Waiting for the page."}, nil
		}
		next := f.plans[0]
		f.plans = f.plans[1:]
		return next, nil
	}
	f.bookCalls++
	if len(f.books) == 0 {
		return &llm.Completion{}, nil
	}
	next := f.books[0]
	f.books = f.books[1:]
	return next, nil
}

func (f *fakeProvider) CompleteStructured(ctx context.Context, msgs []types.Message, format llm.ResponseFormat) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalCalls++
	f.lastFinal = msgs
	if f.finalErr != nil {
		return "", f.finalErr
	}
	return f.final, nil
}

func (f *fakeProvider) GetModelInfo() *types.ModelInfo { return &types.ModelInfo{Name: "fake"} }
func (f *fakeProvider) GetModel() string               { return "fake" }

func (f *fakeProvider) counts() (plan, insight, book, final int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.planCalls, f.insCalls, f.bookCalls, f.finalCalls
}

// blockingProvider waits for ctx on every planning call.
type blockingProvider struct{ fakeProvider }

func (b *blockingProvider) CompleteWithTools(ctx context.Context, _ []types.Message, _ []llm.ToolSpec) (*llm.Completion, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func plan(content string, calls ...llm.ToolCall) *llm.Completion {
	return &llm.Completion{Content: content, ToolCalls: calls}
}

func toolCall(name, args string) llm.ToolCall {
	return llm.ToolCall{ID: "call_" + name, Name: name, Arguments: args}
}

var twoElements = []interface{}{
	map[string]interface{}{"x": 10.5, "y": 20.0, "type": "input", "text": "", "ariaLabel": "Search"},
	map[string]interface{}{"x": 40.0, "y": 60.0, "type": "a", "text": "Paris", "ariaLabel": ""},
}

// fakePage is a scripted browser.Page.
type fakePage struct {
	mu sync.Mutex

	url         string
	marks       []interface{}
	emptyMarks  int
	markErr     error
	shotErr     error
	unmarkErr   error
	bodyText    string
	innerErr    error
	gotoErr     error
	calls       []string
	closeCount  int
	closeErr    error
	markCalls   int
	unmarkCalls int
}

func newFakePage() *fakePage {
	return &fakePage{url: "about:blank", marks: twoElements, bodyText: "Paris is the capital of France."}
}

func (p *fakePage) log(call string) {
	p.calls = append(p.calls, call)
}

func (p *fakePage) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePage) Goto(_ context.Context, url string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log("Goto " + url)
	if p.gotoErr != nil {
		return p.gotoErr
	}
	p.url = url
	return nil
}

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *fakePage) Title(context.Context) (string, error) { return "Title", nil }

func (p *fakePage) Click(_ context.Context, x, y float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log(fmt.Sprintf("Click %v,%v", x, y))
	return nil
}

func (p *fakePage) MoveMouse(context.Context, float64, float64) error { return nil }
func (p *fakePage) Wheel(context.Context, float64, float64) error     { return nil }

func (p *fakePage) Type(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log("Type " + text)
	return nil
}

func (p *fakePage) Press(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log("Press " + key)
	return nil
}

func (p *fakePage) GoBack(context.Context) error { return nil }

func (p *fakePage) Screenshot(context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shotErr != nil {
		return nil, p.shotErr
	}
	return []byte("png"), nil
}

func (p *fakePage) Evaluate(ctx context.Context, expr string) (interface{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case expr == browser.MarkScript:
		return nil, nil
	case expr == markExpression:
		p.markCalls++
		if p.markErr != nil {
			return nil, p.markErr
		}
		if p.emptyMarks > 0 {
			p.emptyMarks--
			return []interface{}{}, nil
		}
		return p.marks, nil
	case strings.Contains(expr, "unmarkPage"):
		p.unmarkCalls++
		return nil, p.unmarkErr
	}
	p.log("Evaluate " + expr)
	return nil, nil
}

func (p *fakePage) WaitForLoad(context.Context, browser.LoadState) error { return nil }

func (p *fakePage) InnerText(context.Context, string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bodyText, p.innerErr
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCount++
	return p.closeErr
}

func (p *fakePage) closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeCount
}

// fakeSessions hands out one page, or fails.
type fakeSessions struct {
	page *fakePage
	err  error
}

func (s *fakeSessions) Open(context.Context) (browser.Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.page, nil
}

var errBoom = errors.New("boom")

func fastObserver() *Observer {
	o := NewObserver(nil)
	o.Attempts = 2
	o.Backoff = time.Millisecond
	return o
}

func fastRegistry() *tools.Registry {
	r := tools.DefaultRegistry()
	r.Replace(tools.WaitTool{Duration: time.Millisecond})
	return r
}

func testAgent(p llm.Provider, page *fakePage, opts ...Option) *Agent {
	base := []Option{
		WithObserver(fastObserver()),
		WithRegistry(fastRegistry()),
		WithTokenizer(&tokenizer.Tokenizer{}),
		WithStartURL(""),
	}
	return New(p, &fakeSessions{page: page}, append(base, opts...)...)
}

// cloningProvider hands insight calls for a different model to clone.
type cloningProvider struct {
	*fakeProvider
	clone *fakeProvider
	model string
}

func (c *cloningProvider) CloneWithModel(model string) llm.Provider {
	c.model = model
	return c.clone
}
