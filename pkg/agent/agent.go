// Package agent implements the browser agent's control loop.
//
// A run observes the page, asks the reasoning service for the next actions,
// dispatches them against the browser and repeats until the step budget is
// spent or the model answers, then produces a final answer:
//
//	a := agent.New(provider, browser.NewManager(driver, opts))
//	res, err := a.RunTask(ctx, "What is the capital of France?")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(state.Deref(res.Answer))
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent/state"
	"github.com/Suryanshpandey5492/WebVision/pkg/agent/tools"
	"github.com/Suryanshpandey5492/WebVision/pkg/browser"
	"github.com/Suryanshpandey5492/WebVision/pkg/llm"
	"github.com/Suryanshpandey5492/WebVision/pkg/llm/tokenizer"
	"github.com/Suryanshpandey5492/WebVision/pkg/logging"
	"github.com/Suryanshpandey5492/WebVision/pkg/types"
)

// Defaults for a new Agent.
const (
	DefaultStepBudget     = 25
	DefaultPageTokenLimit = 6000
	DefaultStartURL       = "https://duckduckgo.com/"
	startURLTimeout       = 60 * time.Second
)

// Agent runs browsing tasks. It is safe for concurrent use; every run gets
// its own page and state.
type Agent struct {
	provider       llm.Provider
	sessions       browser.SessionProvider
	registry       *tools.Registry
	guard          *tools.HostGuard
	platform       string
	tokenizer      *tokenizer.Tokenizer
	budget         int
	recursionLimit int
	pageTokenLimit int
	startURL       string
	insightModel   string
	observer       *Observer
	logger         *logging.Logger
	events         types.EventSink
}

// Option configures an Agent.
type Option func(*Agent)

// WithStepBudget sets the default step budget of a run.
func WithStepBudget(n int) Option {
	return func(a *Agent) { a.budget = n }
}

// WithRecursionLimit caps node executions per run.
func WithRecursionLimit(n int) Option {
	return func(a *Agent) { a.recursionLimit = n }
}

// WithStartURL sets the page every session opens first. Empty skips it.
func WithStartURL(url string) Option {
	return func(a *Agent) { a.startURL = url }
}

// WithInsightModel answers the page-insight call with model instead of the
// provider's own. The provider must support model cloning.
func WithInsightModel(model string) Option {
	return func(a *Agent) { a.insightModel = model }
}

// WithPageTokenLimit bounds the page text sent to the insight call.
func WithPageTokenLimit(n int) Option {
	return func(a *Agent) { a.pageTokenLimit = n }
}

// WithRegistry replaces the action catalog.
func WithRegistry(r *tools.Registry) Option {
	return func(a *Agent) { a.registry = r }
}

// WithHostGuard restricts navigation targets.
func WithHostGuard(g *tools.HostGuard) Option {
	return func(a *Agent) { a.guard = g }
}

// WithPlatform overrides the OS used for keyboard shortcuts.
func WithPlatform(p string) Option {
	return func(a *Agent) { a.platform = p }
}

// WithTokenizer sets the tokenizer used to trim page text.
func WithTokenizer(t *tokenizer.Tokenizer) Option {
	return func(a *Agent) { a.tokenizer = t }
}

// WithObserver replaces the observation retry policy.
func WithObserver(o *Observer) Option {
	return func(a *Agent) { a.observer = o }
}

// WithLogger sets the agent's logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// WithEvents sets a sink receiving the events of every run.
func WithEvents(sink types.EventSink) Option {
	return func(a *Agent) { a.events = sink }
}

// New creates an agent.
func New(provider llm.Provider, sessions browser.SessionProvider, opts ...Option) *Agent {
	a := &Agent{
		provider:       provider,
		sessions:       sessions,
		budget:         DefaultStepBudget,
		recursionLimit: DefaultRecursionLimit,
		pageTokenLimit: DefaultPageTokenLimit,
		startURL:       DefaultStartURL,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logging.Nop()
	}
	if a.registry == nil {
		a.registry = tools.DefaultRegistry()
	}
	if a.tokenizer == nil {
		a.tokenizer = tokenizer.Default()
	}
	if a.observer == nil {
		a.observer = NewObserver(a.logger)
	}
	return a
}

// RunOption configures a single run.
type RunOption func(*runConfig)

type runConfig struct {
	profileInfo string
	budget      int
	events      types.EventSink
}

// WithProfileInfo passes opaque context about the user to the prompts.
func WithProfileInfo(info string) RunOption {
	return func(c *runConfig) { c.profileInfo = info }
}

// WithBudget overrides the step budget for one run.
func WithBudget(n int) RunOption {
	return func(c *runConfig) { c.budget = n }
}

// WithRunEvents adds a sink for this run's events only.
func WithRunEvents(sink types.EventSink) RunOption {
	return func(c *runConfig) { c.events = sink }
}

// Result is the outcome of a run.
type Result struct {
	RunID        string
	Answer       *string
	Errors       *string
	Steps        int
	VisitedSites []state.VisitedSite
	Duration     time.Duration
}

// RunTask runs task to completion. The error is non-nil only when the run
// could not start; every other failure is reported in Result.Errors.
func (a *Agent) RunTask(ctx context.Context, task string, opts ...RunOption) (Result, error) {
	cfg := runConfig{budget: a.budget}
	for _, opt := range opts {
		opt(&cfg)
	}
	events := a.sink(cfg.events)

	start := time.Now()
	runID := uuid.NewString()
	ctx = types.WithRunID(ctx, runID)
	logger := a.logger.With("run_id", runID)
	result := Result{RunID: runID}

	if strings.TrimSpace(task) == "" {
		result.Errors = state.String(MsgNoTask)
		return result, ErrNoTask
	}

	events.Emit(types.NewRunStartEvent(runID, task))
	logger.Infof("run started: %s", task)

	page, err := a.sessions.Open(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
		logger.Errorf("open session: %v", err)
		events.Emit(types.NewErrorEvent(runID, err))
		result.Errors = state.String(MsgNoPage)
		result.Duration = time.Since(start)
		events.Emit(types.NewRunEndEvent(runID, 0, result.Duration))
		return result, err
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Warnf("close session: %v", err)
		}
	}()

	if a.startURL != "" {
		if err := page.Goto(ctx, a.startURL, startURLTimeout); err != nil {
			logger.Warnf("open start page %s: %v", a.startURL, err)
		}
	}

	dispatcher := tools.NewDispatcher(a.registry,
		tools.WithHostGuard(a.guard),
		tools.WithPlatform(a.platform),
		tools.WithLogger(logger),
		tools.WithEvents(events))
	reasoner := NewReasoner(a.provider, dispatcher, a.tokenizer, a.pageTokenLimit, logger, events)
	if a.insightModel != "" {
		reasoner.insight = llm.WithModel(a.provider, a.insightModel)
	}
	finalizer := NewFinalizer(a.provider, logger, events)
	graph := NewGraph(a.recursionLimit, logger, events)

	nodes := Nodes{
		Observe: func(ctx context.Context, st state.RunState) state.RunState {
			return a.observer.Observe(ctx, page, st)
		},
		Reason: func(ctx context.Context, st state.RunState) (state.RunState, error) {
			return reasoner.Reason(ctx, page, st)
		},
		Finalize: finalizer.Finalize,
	}

	final, err := graph.Run(ctx, nodes, state.New(task, cfg.profileInfo, cfg.budget))
	if errors.Is(err, ErrRecursionLimit) {
		logger.Warnf("recursion limit reached, finalizing. narrative so far:\n%s", final.Narrative)
		final = finalizer.Finalize(ctx, final)
	}

	result.Answer = final.Answer
	result.Errors = final.Errors
	result.Steps = final.StepCount
	result.VisitedSites = final.VisitedSites
	result.Duration = time.Since(start)

	events.Emit(types.NewAnswerEvent(runID, state.Deref(result.Answer), state.Deref(result.Errors)))
	events.Emit(types.NewRunEndEvent(runID, result.Steps, result.Duration))
	logger.Infof("run finished in %s after %d steps", result.Duration.Round(time.Millisecond), result.Steps)
	return result, nil
}

// sink fans events out to the agent-wide and per-run sinks.
func (a *Agent) sink(run types.EventSink) types.EventSink {
	switch {
	case a.events == nil:
		return run
	case run == nil:
		return a.events
	}
	return func(e *types.RunEvent) {
		a.events(e)
		run(e)
	}
}
