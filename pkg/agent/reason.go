package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent/prompts"
	"github.com/Suryanshpandey5492/WebVision/pkg/agent/state"
	"github.com/Suryanshpandey5492/WebVision/pkg/agent/tools"
	"github.com/Suryanshpandey5492/WebVision/pkg/browser"
	"github.com/Suryanshpandey5492/WebVision/pkg/llm"
	"github.com/Suryanshpandey5492/WebVision/pkg/llm/tokenizer"
	"github.com/Suryanshpandey5492/WebVision/pkg/logging"
	"github.com/Suryanshpandey5492/WebVision/pkg/types"
)

// Reasoner runs the three reasoning calls of a step: planning, page
// insight and bookkeeping.
type Reasoner struct {
	provider       llm.Provider
	// insight answers the page-insight call; nil means provider.
	insight        llm.Provider
	dispatcher     *tools.Dispatcher
	tokenizer      *tokenizer.Tokenizer
	pageTokenLimit int
	logger         *logging.Logger
	events         types.EventSink
}

// NewReasoner wires a reasoner. A nil tokenizer disables page truncation.
func NewReasoner(provider llm.Provider, dispatcher *tools.Dispatcher, tok *tokenizer.Tokenizer, pageTokenLimit int, logger *logging.Logger, events types.EventSink) *Reasoner {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Reasoner{
		provider:       provider,
		dispatcher:     dispatcher,
		tokenizer:      tok,
		pageTokenLimit: pageTokenLimit,
		logger:         logger,
		events:         events,
	}
}

// Reason advances st by one reasoning step. Failures are recorded in the
// returned state; the error is non-nil only for ErrRecursionLimit.
func (r *Reasoner) Reason(ctx context.Context, page browser.Page, st state.RunState) (state.RunState, error) {
	if strings.TrimSpace(st.Task) == "" {
		r.logger.Errorf("reason: no task")
		return st.WithError(MsgNoTask), nil
	}
	if page == nil {
		r.logger.Errorf("reason: no page")
		return st.WithError(MsgNoPage), nil
	}
	runID := types.RunIDFrom(ctx)
	registry := r.dispatcher.Registry()

	// planning
	payload := prompts.PayloadFrom(st)
	planSpecs := registry.Specs(tools.PlanningSet...)
	plan, err := r.provider.CompleteWithTools(ctx,
		prompts.BuildMessages(prompts.PlanningSystemPrompt(payload, planSpecs), payload), planSpecs)
	if err != nil {
		return r.fail(ctx, st, "planning", err)
	}
	if plan.Empty() {
		r.logger.Errorf("reason: empty planning response")
		return st.WithError(MsgEmptyPlan), nil
	}

	thought := renderCompletion(plan)
	st = st.AppendNarrative(thought)
	r.events.Emit(types.NewThoughtEvent(runID, thought))
	st, _ = r.dispatcher.Dispatch(ctx, page, plan.ToolCalls, st)
	if st.Terminal {
		return st, nil
	}

	// page insight
	pageText := r.pageText(ctx, page)
	insight, err := r.insightProvider().Complete(ctx, prompts.InsightMessages(st.Task, pageText))
	if err != nil {
		return r.fail(ctx, st, "insight", err)
	}
	if insight == nil || strings.TrimSpace(insight.Content) == "" {
		r.logger.Errorf("reason: empty insight")
		return st.WithError(MsgEmptyInsight), nil
	}
	st = st.AppendInsight(insight.Content)
	r.events.Emit(types.NewInsightEvent(runID, insight.Content))

	// bookkeeping
	payload = prompts.PayloadFrom(st)
	bookSpecs := registry.Specs(tools.BookkeepingSet...)
	book, err := r.provider.CompleteWithTools(ctx,
		prompts.BuildMessages(prompts.BookkeepingSystemPrompt(payload, bookSpecs), payload), bookSpecs)
	if err != nil {
		return r.fail(ctx, st, "bookkeeping", err)
	}
	if book.Empty() {
		r.logger.Warnf("reason: bookkeeping returned no response")
		return st, nil
	}
	st, _ = r.dispatcher.Dispatch(ctx, page, r.onlyBookkeeping(book.ToolCalls), st)
	return st, nil
}

func (r *Reasoner) insightProvider() llm.Provider {
	if r.insight != nil {
		return r.insight
	}
	return r.provider
}

// pageText returns the visible body text cut to the page token limit, or a
// placeholder describing why it could not be read.
func (r *Reasoner) pageText(ctx context.Context, page browser.Page) string {
	if err := page.WaitForLoad(ctx, browser.LoadStateDOMContentLoaded); err != nil {
		r.logger.Debugf("reason: wait for load: %v", err)
	}
	text, err := page.InnerText(ctx, "body")
	if err != nil {
		return "Could not extract page content due to: " + err.Error()
	}
	text = strings.TrimSpace(text)
	if r.tokenizer != nil {
		var cut bool
		if text, cut = r.tokenizer.Truncate(text, r.pageTokenLimit); cut {
			r.logger.Debugf("reason: page text truncated to %d tokens", r.pageTokenLimit)
		}
	}
	r.logger.Debugf("reason: extracted %d characters of page text", len(text))
	return text
}

func (r *Reasoner) onlyBookkeeping(calls []llm.ToolCall) []llm.ToolCall {
	out := make([]llm.ToolCall, 0, len(calls))
	for _, c := range calls {
		if c.Name == tools.LogVisitedWebsiteName || c.Name == tools.MarkTaskCompleteName {
			out = append(out, c)
			continue
		}
		r.logger.Warnf("reason: bookkeeping requested %s, ignoring", c.Name)
	}
	return out
}

func (r *Reasoner) fail(ctx context.Context, st state.RunState, call string, err error) (state.RunState, error) {
	if errors.Is(err, ErrRecursionLimit) {
		return st, err
	}
	runID := types.RunIDFrom(ctx)
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		r.logger.Warnf("reason: %s call cancelled", call)
		r.events.Emit(types.NewErrorEvent(runID, err))
		return st.WithError(MsgCancelled), nil
	}
	r.logger.Errorf("reason: %s call failed: %v", call, err)
	r.events.Emit(types.NewErrorEvent(runID, err))
	return st.WithError(fmt.Sprintf("Unexpected error while executing task: %v", err)), nil
}

// renderCompletion turns a planning reply into a narrative entry: the text
// followed by one line per requested action.
func renderCompletion(c *llm.Completion) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(c.Content))
	for _, call := range c.ToolCalls {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "Action: %s %s", call.Name, call.Arguments)
	}
	return b.String()
}
