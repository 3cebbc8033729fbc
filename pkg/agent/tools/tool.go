// Package tools holds the action catalog the reasoning service chooses from
// and the dispatcher that executes its requests against a browser page.
package tools

import (
	"context"
	"runtime"
	"time"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent/state"
	"github.com/Suryanshpandey5492/WebVision/pkg/browser"
	"github.com/Suryanshpandey5492/WebVision/pkg/llm"
)

// Tool is one named action of the catalog.
type Tool interface {
	// Name is the identifier the model uses to request the action.
	Name() string

	Description() string

	// Schema describes the JSON object the model must pass as arguments.
	Schema() *llm.Schema

	// Timeout bounds Execute. Zero means no action-level deadline.
	Timeout() time.Duration

	// Execute performs the action. Failures the model should see are
	// returned as *ActionError whose message becomes the action's result.
	Execute(ctx context.Context, env *Env, args []byte) (string, error)
}

// Env is what an action may touch: the page and the dispatcher's working
// copy of the run state.
type Env struct {
	Page  browser.Page
	State *state.RunState
	Guard *HostGuard
	// Platform selects the select-all shortcut; defaults to runtime.GOOS.
	Platform string
}

func (e *Env) selectAllKey() string {
	p := e.Platform
	if p == "" {
		p = runtime.GOOS
	}
	if p == "darwin" {
		return "Meta+A"
	}
	return "Control+A"
}

// Spec converts t into the description offered to the model.
func Spec(t Tool) llm.ToolSpec {
	return llm.ToolSpec{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Schema(),
	}
}
