package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent/state"
	"github.com/Suryanshpandey5492/WebVision/pkg/llm"
	"github.com/Suryanshpandey5492/WebVision/pkg/types"
)

func samplePayload() Payload {
	st := state.New("Find the capital of France", "", 5)
	st = st.WithObservation(state.Observation{
		Screenshot: "aGVsbG8=",
		Elements: []state.Element{
			{ID: 0, X: 10, Y: 20, Type: "input", AriaLabel: "Search"},
			{ID: 1, X: 30, Y: 40, Type: "a", Text: "Paris - Wikipedia"},
		},
	})
	st = st.AppendNarrative("searching").AppendNarrative("opening result")
	st = st.AppendInsight("Paris is the capital.")
	st = st.AppendVisited(state.NewVisitedSite("https://en.wikipedia.org/wiki/Paris", "Paris", "capital facts", ""))
	return PayloadFrom(st)
}

func TestPayloadFrom(t *testing.T) {
	p := samplePayload()
	assert.Equal(t, NoProfile, p.ProfileInfo)
	assert.Equal(t, "aGVsbG8=", p.Screenshot)
	assert.Len(t, p.Elements, 2)
	assert.Contains(t, p.Thoughts, state.NarrativeSeparator)

	fields := p.Fields()
	for _, key := range []string{"task", "img", "bboxes", "profile_info", "insights", "thoughts", "visited_websites"} {
		assert.Contains(t, fields, key)
	}
	assert.Equal(t, "None", fields["profile_info"])
}

func TestBboxes(t *testing.T) {
	tests := []struct {
		name     string
		elements []state.Element
		want     []string
	}{
		{
			name: "empty",
			want: []string{"No labeled elements on this page."},
		},
		{
			name: "text and aria fallback",
			elements: []state.Element{
				{ID: 0, Type: "input", AriaLabel: "Search"},
				{ID: 1, Type: "a", Text: "Docs"},
			},
			want: []string{"Valid Bounding Boxes:", `0 (<input/> "Search")`, `1 (<a/> "Docs")`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Payload{Elements: tt.elements}.Bboxes()
			assert.Equal(t, strings.Join(tt.want, "\n"), got)
		})
	}
}

func TestVisited(t *testing.T) {
	assert.Equal(t, "None", Payload{}.Visited())
	p := samplePayload()
	assert.Equal(t, "- https://en.wikipedia.org/wiki/Paris (Paris): capital facts", p.Visited())
}

func TestPromptBuilder(t *testing.T) {
	t.Run("BasicBuild", func(t *testing.T) {
		prompt := NewPromptBuilder("<base/>").Build()
		assert.Equal(t, "<base/>", prompt)
	})

	t.Run("WithToolsAndPayload", func(t *testing.T) {
		specs := []llm.ToolSpec{{Name: "Click", Description: "Click an element."}}
		prompt := NewPromptBuilder("<base/>").WithTools(specs).WithPayload(samplePayload()).Build()

		assert.True(t, strings.HasPrefix(prompt, "<base/>"))
		assert.Contains(t, prompt, "<available_actions>\n- Click: Click an element.\n</available_actions>")
		assert.Contains(t, prompt, "<profile_info>\nNone\n</profile_info>")
		assert.Contains(t, prompt, "<insights>\nParis is the capital.\n</insights>")
		assert.Contains(t, prompt, "<visited_websites>")
		assert.NotContains(t, prompt, "<last_error>")
	})

	t.Run("ErrorContext", func(t *testing.T) {
		p := Payload{LastError: "Error: No bounding box found for ID 9."}
		prompt := NewPromptBuilder("x").WithPayload(p).Build()
		assert.Contains(t, prompt, "<last_error>\nError: No bounding box found for ID 9.\n</last_error>")
	})
}

func TestStagePrompts(t *testing.T) {
	p := samplePayload()
	specs := []llm.ToolSpec{{Name: "markTaskComplete", Description: "done"}}

	planning := PlanningSystemPrompt(p, specs)
	assert.Contains(t, planning, "duckduckgo.com")
	assert.Contains(t, planning, "markTaskComplete")

	bookkeeping := BookkeepingSystemPrompt(p, specs)
	assert.Contains(t, bookkeeping, "<task>\nFind the capital of France\n</task>")
	assert.Contains(t, bookkeeping, "exactly once")

	answer := AnswerSystemPrompt(p)
	assert.Contains(t, answer, "<final_answer>")
	assert.NotContains(t, answer, "<available_actions>")
}

func TestUserMessage(t *testing.T) {
	msg := UserMessage(samplePayload())
	assert.Equal(t, types.RoleUser, msg.Role)
	require.Len(t, msg.Images, 1)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", msg.Images[0].DataURL())
	assert.Contains(t, msg.Content, "Find the capital of France")
	assert.Contains(t, msg.Content, "History of actions (Needs to be updated right now): opening result")
	assert.NotContains(t, msg.Content, "searching")

	bare := UserMessage(Payload{Task: "t"})
	assert.Empty(t, bare.Images)
	assert.Contains(t, bare.Content, "none yet")
}

func TestBuildMessages(t *testing.T) {
	msgs := BuildMessages("sys", samplePayload())
	require.Len(t, msgs, 2)
	assert.Equal(t, types.RoleSystem, msgs[0].Role)
	assert.Equal(t, "sys", msgs[0].Content)
	assert.Equal(t, types.RoleUser, msgs[1].Role)
}

func TestInsightMessages(t *testing.T) {
	msgs := InsightMessages("capital?", "Paris is the capital of France.")
	require.Len(t, msgs, 2)
	assert.Equal(t, InsightPrompt, msgs[0].Content)
	assert.Contains(t, msgs[1].Content, "Task: capital?")
	assert.Contains(t, msgs[1].Content, "Paris is the capital of France.")
	assert.Contains(t, InsightPrompt, MissingContentNote)
}
