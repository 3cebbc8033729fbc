package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent/prompts"
	"github.com/Suryanshpandey5492/WebVision/pkg/agent/state"
	"github.com/Suryanshpandey5492/WebVision/pkg/agent/tools"
	"github.com/Suryanshpandey5492/WebVision/pkg/llm"
	"github.com/Suryanshpandey5492/WebVision/pkg/logging"
	"github.com/Suryanshpandey5492/WebVision/pkg/types"
)

// Finalizer produces the structured final answer once the budget is spent.
type Finalizer struct {
	provider llm.Provider
	logger   *logging.Logger
	events   types.EventSink
}

// NewFinalizer creates a finalizer.
func NewFinalizer(provider llm.Provider, logger *logging.Logger, events types.EventSink) *Finalizer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Finalizer{provider: provider, logger: logger, events: events}
}

// answerFormat is the strict schema of the final answer.
var answerFormat = llm.ResponseFormat{
	Name:        "Response",
	Description: "Final response to the user's task.",
	Schema:      tools.ResponseSchema(),
}

// Finalize makes st terminal with an answer. A state that is already
// terminal is returned unchanged.
func (f *Finalizer) Finalize(ctx context.Context, st state.RunState) state.RunState {
	if st.Terminal {
		f.logger.Debugf("finalize: run already terminal")
		return st
	}
	if strings.TrimSpace(st.Task) == "" {
		f.logger.Errorf("finalize: no task")
		return st.WithError(MsgNoFinalizerTask)
	}

	payload := prompts.PayloadFrom(st)
	raw, err := f.provider.CompleteStructured(ctx,
		prompts.BuildMessages(prompts.AnswerSystemPrompt(payload), payload), answerFormat)
	if err != nil {
		return f.fail(ctx, st, "Error generating final answer", err)
	}
	resp, err := tools.DecodeResponse([]byte(raw))
	if err != nil {
		return f.fail(ctx, st, "Error decoding final answer", err)
	}

	f.logger.Infof("finalize: answer %q", truncate(resp.FinalAnswer, 200))
	return st.MarkTerminal(state.String(resp.FinalAnswer), resp.Errors)
}

func (f *Finalizer) fail(ctx context.Context, st state.RunState, what string, err error) state.RunState {
	f.logger.Errorf("finalize: %s: %v", what, err)
	f.events.Emit(types.NewErrorEvent(types.RunIDFrom(ctx), err))
	return st.MarkTerminal(nil, state.String(fmt.Sprintf("%s: %v", what, err)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
