// Package prompts renders run state into the messages sent to the
// reasoning service.
package prompts

import (
	"fmt"
	"strings"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent/state"
	"github.com/Suryanshpandey5492/WebVision/pkg/llm"
	"github.com/Suryanshpandey5492/WebVision/pkg/types"
)

// NoProfile is rendered when the caller gave no profile information.
const NoProfile = "None"

// Payload is the context handed to every reasoning call of a step.
type Payload struct {
	Task         string
	Screenshot   string
	Elements     []state.Element
	ProfileInfo  string
	Insights     string
	Thoughts     string
	VisitedSites []state.VisitedSite
	LastError    string
}

// PayloadFrom collects the payload fields from st.
func PayloadFrom(st state.RunState) Payload {
	profile := st.ProfileInfo
	if profile == "" {
		profile = NoProfile
	}
	return Payload{
		Task:         st.Task,
		Screenshot:   st.Observation.Screenshot,
		Elements:     st.Observation.Elements,
		ProfileInfo:  profile,
		Insights:     st.Insights,
		Thoughts:     st.Narrative,
		VisitedSites: st.VisitedSites,
		LastError:    st.LastErrorNote,
	}
}

// Fields returns the payload as a flat map keyed the way run logs and the
// HTTP layer name them.
func (p Payload) Fields() map[string]string {
	return map[string]string{
		"task":             p.Task,
		"img":              p.Screenshot,
		"bboxes":           p.Bboxes(),
		"profile_info":     p.ProfileInfo,
		"insights":         p.Insights,
		"thoughts":         p.Thoughts,
		"visited_websites": p.Visited(),
	}
}

// Bboxes lists the labeled elements one per line.
func (p Payload) Bboxes() string {
	if len(p.Elements) == 0 {
		return "No labeled elements on this page."
	}
	var b strings.Builder
	b.WriteString("Valid Bounding Boxes:\n")
	for _, el := range p.Elements {
		b.WriteString(el.String())
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// Visited lists logged websites one per line.
func (p Payload) Visited() string {
	if len(p.VisitedSites) == 0 {
		return "None"
	}
	lines := make([]string, 0, len(p.VisitedSites))
	for _, v := range p.VisitedSites {
		line := "- " + v.URL
		if v.Title != "" {
			line += " (" + v.Title + ")"
		}
		if v.Summary != "" {
			line += ": " + v.Summary
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// PromptBuilder assembles a system prompt from a base instruction block and
// the run's context sections.
type PromptBuilder struct {
	base         string
	tools        []llm.ToolSpec
	profileInfo  string
	insights     string
	thoughts     string
	visited      string
	errorContext string
}

// NewPromptBuilder creates a builder around base.
func NewPromptBuilder(base string) *PromptBuilder {
	return &PromptBuilder{base: base}
}

// WithTools lists the actions the model may request.
func (pb *PromptBuilder) WithTools(specs []llm.ToolSpec) *PromptBuilder {
	pb.tools = specs
	return pb
}

// WithPayload copies the context sections of p into the prompt.
func (pb *PromptBuilder) WithPayload(p Payload) *PromptBuilder {
	pb.profileInfo = p.ProfileInfo
	pb.insights = p.Insights
	pb.thoughts = p.Thoughts
	pb.visited = p.Visited()
	pb.errorContext = p.LastError
	return pb
}

// Build renders the system prompt.
func (pb *PromptBuilder) Build() string {
	var builder strings.Builder
	builder.WriteString(pb.base)
	builder.WriteString("\n\n")

	if len(pb.tools) > 0 {
		builder.WriteString("<available_actions>\n")
		builder.WriteString(FormatToolSpecs(pb.tools))
		builder.WriteString("</available_actions>\n\n")
	}

	writeSection(&builder, "profile_info", pb.profileInfo)
	writeSection(&builder, "visited_websites", pb.visited)
	writeSection(&builder, "insights", pb.insights)
	writeSection(&builder, "thoughts", pb.thoughts)
	writeSection(&builder, "last_error", pb.errorContext)

	return strings.TrimRight(builder.String(), "\n")
}

func writeSection(b *strings.Builder, tag, content string) {
	if content == "" {
		return
	}
	fmt.Fprintf(b, "<%s>\n%s\n</%s>\n\n", tag, content, tag)
}

// FormatToolSpecs renders one line per action.
func FormatToolSpecs(specs []llm.ToolSpec) string {
	var b strings.Builder
	for _, s := range specs {
		fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
	}
	return b.String()
}

// PlanningSystemPrompt is the system prompt of the planning call.
func PlanningSystemPrompt(p Payload, specs []llm.ToolSpec) string {
	base := strings.Join([]string{
		BrowsingCapabilitiesPrompt,
		PlanningLoopPrompt,
		SearchGuidancePrompt,
		PageHandlingPrompt,
	}, "\n\n")
	return NewPromptBuilder(base).WithTools(specs).WithPayload(p).Build()
}

// BookkeepingSystemPrompt is the system prompt of the bookkeeping call.
func BookkeepingSystemPrompt(p Payload, specs []llm.ToolSpec) string {
	return NewPromptBuilder(BookkeepingPrompt + "\n\n<task>\n" + p.Task + "\n</task>").
		WithTools(specs).
		WithPayload(p).
		Build()
}

// AnswerSystemPrompt is the system prompt of the final answer call.
func AnswerSystemPrompt(p Payload) string {
	return NewPromptBuilder(AnswerPrompt).WithPayload(p).Build()
}

// UserMessage renders the screenshot, the element list, the task and the
// action history as the human turn.
func UserMessage(p Payload) types.Message {
	var b strings.Builder
	b.WriteString(p.Bboxes())
	b.WriteString("\n\n")
	b.WriteString(p.Task)
	b.WriteString("\n\nHistory of actions (Needs to be updated right now): ")
	if p.Thoughts == "" {
		b.WriteString("none yet")
	} else {
		b.WriteString(lastEntry(p.Thoughts))
	}
	return types.NewUserMessage(b.String()).WithImage(p.Screenshot)
}

// lastEntry returns the newest narrative entry. The full narrative is
// already in the system prompt.
func lastEntry(narrative string) string {
	if i := strings.LastIndex(narrative, state.NarrativeSeparator); i >= 0 {
		return narrative[i+len(state.NarrativeSeparator):]
	}
	return narrative
}

// BuildMessages pairs a system prompt with the payload's user turn.
func BuildMessages(systemPrompt string, p Payload) []types.Message {
	return []types.Message{
		types.NewSystemMessage(systemPrompt),
		UserMessage(p),
	}
}

// InsightMessages builds the page reading request.
func InsightMessages(task, pageText string) []types.Message {
	user := fmt.Sprintf("Task: %s\n\nExtracted page text:\n%s", task, pageText)
	return []types.Message{
		types.NewSystemMessage(InsightPrompt),
		types.NewUserMessage(user),
	}
}
