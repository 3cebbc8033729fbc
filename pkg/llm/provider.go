// Package llm provides abstractions for reasoning provider integration.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	completion, err := provider.CompleteWithTools(ctx, []types.Message{
//	    types.NewUserMessage("Open the docs page"),
//	}, registry.Specs())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, call := range completion.ToolCalls {
//	    fmt.Println(call.Name, call.Arguments)
//	}
package llm

import (
	"context"
	"errors"

	"github.com/Suryanshpandey5492/WebVision/pkg/types"
)

// ErrEmptyResponse is returned when a provider answers with no choices.
var ErrEmptyResponse = errors.New("llm: empty response")

// Provider defines the interface for reasoning service integrations.
//
// Providers only translate between provider-neutral messages and a vendor
// API. The agent layer owns prompts, dispatching and run state.
type Provider interface {
	// Complete sends messages and returns the assistant's text reply.
	Complete(ctx context.Context, messages []types.Message) (*types.Message, error)

	// CompleteWithTools lets the model answer with free text, tool calls or
	// both. Only the given tools may be requested.
	CompleteWithTools(ctx context.Context, messages []types.Message, tools []ToolSpec) (*Completion, error)

	// CompleteStructured constrains the reply to the JSON schema in format
	// and returns the raw JSON document.
	CompleteStructured(ctx context.Context, messages []types.Message, format ResponseFormat) (string, error)

	// GetModelInfo returns information about the model being used.
	GetModelInfo() *types.ModelInfo

	// GetModel returns the model name being used.
	GetModel() string
}

// ToolSpec describes one callable action offered to the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  *Schema
}

// ToolCall is a single action requested by the model. Arguments is the raw
// JSON text exactly as the provider returned it.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Usage holds token accounting for one call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the result of a tool-enabled call.
type Completion struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
}

// Empty reports whether the model produced neither text nor tool calls.
func (c *Completion) Empty() bool {
	return c == nil || (c.Content == "" && len(c.ToolCalls) == 0)
}

// ResponseFormat names a JSON schema the reply must satisfy.
type ResponseFormat struct {
	Name        string
	Description string
	Schema      *Schema
}
