package tools

import (
	"context"
	"strings"
	"time"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent/state"
	"github.com/Suryanshpandey5492/WebVision/pkg/llm"
)

const (
	LogVisitedWebsiteName = "logVisitedWebsite"
	MarkTaskCompleteName  = "markTaskComplete"
	ResponseName          = "Response"
)

// LoopBreaking is implemented by actions that end the run. The dispatcher
// stops processing the rest of a batch after one of them succeeds.
type LoopBreaking interface {
	IsLoopBreaking() bool
}

// LogVisitedWebsiteTool appends to the run's browsing log.
type LogVisitedWebsiteTool struct{}

func (LogVisitedWebsiteTool) Name() string { return LogVisitedWebsiteName }
func (LogVisitedWebsiteTool) Description() string {
	return "Log details about a visited website: its URL, title, a summary of the content extracted and a timestamp. " +
		"Log each URL at most once."
}
func (LogVisitedWebsiteTool) Schema() *llm.Schema {
	return llm.Object(map[string]*llm.Schema{
		"url":       llm.String("URL of the page."),
		"summary":   llm.String("Key information extracted from the page."),
		"title":     llm.String("Page title."),
		"timestamp": llm.String("RFC3339 time of the visit; the current time when empty."),
	}, "url", "summary")
}
func (LogVisitedWebsiteTool) Timeout() time.Duration { return 0 }

type visitArgs struct {
	URL       string `json:"url"`
	Summary   string `json:"summary"`
	Title     string `json:"title"`
	Timestamp string `json:"timestamp"`
}

func (LogVisitedWebsiteTool) Execute(_ context.Context, env *Env, raw []byte) (string, error) {
	var args visitArgs
	if err := decodeArgs(LogVisitedWebsiteName, raw, &args); err != nil {
		return "", err
	}
	if strings.TrimSpace(args.URL) == "" {
		return "", newActionError(CodeInvalidArguments, LogVisitedWebsiteName, nil, "Error: A URL is required to log a website.")
	}
	v := state.NewVisitedSite(args.URL, args.Title, args.Summary, args.Timestamp)
	*env.State = env.State.AppendVisited(v)
	return "Logged website: " + args.URL, nil
}

// MarkTaskCompleteTool requests finalization on the next routing decision.
type MarkTaskCompleteTool struct{}

func (MarkTaskCompleteTool) Name() string { return MarkTaskCompleteName }
func (MarkTaskCompleteTool) Description() string {
	return "Mark the task as complete. Call this ONLY when the complete output of the task has been retrieved."
}
func (MarkTaskCompleteTool) Schema() *llm.Schema    { return llm.Object(nil) }
func (MarkTaskCompleteTool) Timeout() time.Duration { return 0 }

func (MarkTaskCompleteTool) Execute(_ context.Context, env *Env, _ []byte) (string, error) {
	*env.State = env.State.CompleteEarly()
	return "Task marked as complete.", nil
}

// ResponseTool records the final answer and ends the run.
type ResponseTool struct{}

func (ResponseTool) Name() string { return ResponseName }
func (ResponseTool) Description() string {
	return "Respond to the user with the final answer once the task is done."
}

// Schema is shared with the structured finalization call.
func (ResponseTool) Schema() *llm.Schema { return ResponseSchema() }

func (ResponseTool) Timeout() time.Duration { return 0 }
func (ResponseTool) IsLoopBreaking() bool   { return true }

// FinalResponse is the shape of a final answer.
type FinalResponse struct {
	FinalAnswer string  `json:"final_answer"`
	Errors      *string `json:"errors"`
}

// ResponseSchema is the JSON schema of FinalResponse.
func ResponseSchema() *llm.Schema {
	return llm.Object(map[string]*llm.Schema{
		"final_answer": llm.String("The final answer to the task."),
		"errors":       llm.String("Problems that prevented a complete answer, or null.").OrNull(),
	}, "final_answer", "errors")
}

// DecodeResponse parses a FinalResponse document.
func DecodeResponse(raw []byte) (FinalResponse, error) {
	var r FinalResponse
	if err := decodeArgs(ResponseName, raw, &r); err != nil {
		return FinalResponse{}, err
	}
	return r, nil
}

func (ResponseTool) Execute(_ context.Context, env *Env, raw []byte) (string, error) {
	r, err := DecodeResponse(raw)
	if err != nil {
		return "", err
	}
	*env.State = env.State.MarkTerminal(state.String(r.FinalAnswer), r.Errors)
	return "Final answer recorded.", nil
}
