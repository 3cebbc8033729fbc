package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent/state"
	"github.com/Suryanshpandey5492/WebVision/pkg/agent/tools"
	"github.com/Suryanshpandey5492/WebVision/pkg/llm"
	"github.com/Suryanshpandey5492/WebVision/pkg/llm/tokenizer"
	"github.com/Suryanshpandey5492/WebVision/pkg/types"
)

func newTestReasoner(p llm.Provider, limit int) *Reasoner {
	return NewReasoner(p, tools.NewDispatcher(fastRegistry()), &tokenizer.Tokenizer{}, limit, nil, nil)
}

func observed() state.RunState {
	st := state.New("find the capital of France", "", 5)
	return st.WithObservation(state.Observation{
		Screenshot: "cG5n",
		Elements:   []state.Element{{ID: 0, X: 10, Y: 20, Type: "input", AriaLabel: "Search"}},
	})
}

func TestReasonFullStep(t *testing.T) {
	p := &fakeProvider{
		plans: []*llm.Completion{plan("Searching DuckDuckGo.",
			toolCall(tools.NavigateURLName, `{"url":"duckduckgo.com"}`))},
		insights: []string{"Paris is the capital."},
		books: []*llm.Completion{plan("",
			toolCall(tools.LogVisitedWebsiteName, `{"url":"https://duckduckgo.com","summary":"search"}`),
			toolCall(tools.ClickName, `{"bbox_id":0}`))},
	}
	page := newFakePage()

	got, err := newTestReasoner(p, 100).Reason(context.Background(), page, observed())
	require.NoError(t, err)

	assert.Equal(t, "Searching DuckDuckGo.\nAction: NavigateURL {\"url\":\"duckduckgo.com\"}", got.Narrative)
	assert.Equal(t, "Paris is the capital.", got.Insights)
	require.Len(t, got.VisitedSites, 1)
	assert.Equal(t, "https://duckduckgo.com", got.VisitedSites[0].URL)
	assert.Equal(t, []string{"Goto https://duckduckgo.com"}, page.Calls(), "bookkeeping may not click")
	assert.Nil(t, got.Errors)

	plans, insights, books, finals := p.counts()
	assert.Equal(t, []int{1, 1, 1, 0}, []int{plans, insights, books, finals})

	require.Len(t, p.lastPlan, 2)
	assert.Equal(t, types.RoleSystem, p.lastPlan[0].Role)
	require.Len(t, p.lastPlan[1].Images, 1)
	assert.Contains(t, p.lastPlan[1].Content, `0 (<input/> "Search")`)
}

func TestReasonStopsAfterResponse(t *testing.T) {
	p := &fakeProvider{plans: []*llm.Completion{plan("Done.",
		toolCall(tools.ResponseName, `{"final_answer":"Paris","errors":null}`))}}

	got, err := newTestReasoner(p, 100).Reason(context.Background(), newFakePage(), observed())
	require.NoError(t, err)
	assert.True(t, got.Terminal)
	assert.Equal(t, "Paris", state.Deref(got.Answer))

	_, insights, books, _ := p.counts()
	assert.Zero(t, insights)
	assert.Zero(t, books)
}

func TestReasonErrors(t *testing.T) {
	tests := []struct {
		name      string
		st        state.RunState
		provider  *fakeProvider
		ctx       func() (context.Context, context.CancelFunc)
		want      string
		wantBooks int
	}{
		{
			name:     "missing task",
			st:       state.New("", "", 5),
			provider: &fakeProvider{},
			want:     MsgNoTask,
		},
		{
			name:     "empty plan",
			st:       observed(),
			provider: &fakeProvider{plans: []*llm.Completion{{}}},
			want:     MsgEmptyPlan,
		},
		{
			name:     "planning failure",
			st:       observed(),
			provider: &fakeProvider{planErr: errBoom},
			want:     "Unexpected error while executing task: boom",
		},
		{
			name:     "empty insight",
			st:       observed(),
			provider: &fakeProvider{insights: []string{"  "}},
			want:     MsgEmptyInsight,
		},
		{
			name:     "insight cancelled",
			st:       observed(),
			provider: &fakeProvider{insErr: context.Canceled},
			want:     MsgCancelled,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newTestReasoner(tt.provider, 100).Reason(context.Background(), newFakePage(), tt.st)
			require.NoError(t, err)
			require.NotNil(t, got.Errors)
			assert.Equal(t, tt.want, *got.Errors)
			assert.False(t, got.Terminal)
			_, _, books, _ := tt.provider.counts()
			assert.Equal(t, tt.wantBooks, books)
		})
	}
}

func TestReasonCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &blockingProvider{}

	before := observed().AppendNarrative("kept")
	got, err := newTestReasoner(p, 100).Reason(ctx, newFakePage(), before)
	require.NoError(t, err)
	assert.Equal(t, MsgCancelled, state.Deref(got.Errors))
	assert.Equal(t, "kept", got.Narrative)
}

func TestReasonWithoutPage(t *testing.T) {
	p := &fakeProvider{
		plans:    []*llm.Completion{plan("Searching.", toolCall(tools.NavigateURLName, `{"url":"duckduckgo.com"}`))},
		insights: []string{"unused"},
	}
	before := observed().AppendNarrative("kept").AppendInsight("earlier")

	got, err := newTestReasoner(p, 100).Reason(context.Background(), nil, before)
	require.NoError(t, err)
	assert.Equal(t, MsgNoPage, state.Deref(got.Errors))
	assert.Equal(t, "kept", got.Narrative)
	assert.Equal(t, "earlier", got.Insights)

	plans, insights, books, finals := p.counts()
	assert.Equal(t, []int{0, 0, 0, 0}, []int{plans, insights, books, finals})
}

func TestReasonRecursionLimitPassesThrough(t *testing.T) {
	p := &fakeProvider{planErr: fmt.Errorf("engine: %w", ErrRecursionLimit)}
	_, err := newTestReasoner(p, 100).Reason(context.Background(), newFakePage(), observed())
	assert.ErrorIs(t, err, ErrRecursionLimit)
}

func TestReasonPageTextFallbacks(t *testing.T) {
	r := newTestReasoner(&fakeProvider{}, 2)

	page := newFakePage()
	page.bodyText = "  " + strings.Repeat("word ", 50) + "  "
	text := r.pageText(context.Background(), page)
	assert.LessOrEqual(t, len(text), 8, "two tokens at four bytes each")

	page.innerErr = errBoom
	assert.Equal(t, "Could not extract page content due to: boom", r.pageText(context.Background(), page))
}

func TestRenderCompletion(t *testing.T) {
	tests := []struct {
		name string
		in   *llm.Completion
		want string
	}{
		{name: "text only", in: plan(" thinking "), want: "thinking"},
		{name: "calls only", in: plan("", toolCall("Wait", "{}")), want: "Action: Wait {}"},
		{
			name: "both",
			in:   plan("go", toolCall("Wait", "{}"), toolCall("PressEnter", "{}")),
			want: "go\nAction: Wait {}\nAction: PressEnter {}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderCompletion(tt.in))
		})
	}
}
