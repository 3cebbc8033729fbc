package tools

import (
	"fmt"
	"sync"

	"github.com/Suryanshpandey5492/WebVision/pkg/llm"
)

// Registry maps action names to tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry holding tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		_ = r.Register(t)
	}
	return r
}

// DefaultRegistry holds the full action catalog.
func DefaultRegistry() *Registry {
	return NewRegistry(
		ClickTool{},
		TypeTextTool{},
		ScrollTool{},
		NavigateURLTool{},
		GoBackTool{},
		PressEnterTool{},
		WaitTool{},
		LogVisitedWebsiteTool{},
		MarkTaskCompleteTool{},
		ResponseTool{},
	)
}

// PlanningSet names the actions offered to the planning call.
var PlanningSet = []string{
	ClickName,
	TypeTextName,
	ScrollName,
	NavigateURLName,
	GoBackName,
	PressEnterName,
	WaitName,
	LogVisitedWebsiteName,
	MarkTaskCompleteName,
	ResponseName,
}

// BookkeepingSet names the actions offered to the bookkeeping call.
var BookkeepingSet = []string{
	LogVisitedWebsiteName,
	MarkTaskCompleteName,
}

// Register adds t. Registering a name twice is an error.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %s already registered", t.Name())
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
	return nil
}

// Replace registers t, overwriting a tool with the same name.
func (r *Registry) Replace(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Specs describes the named tools for a provider call, in the given order.
// With no names every registered tool is described. Unknown names are
// skipped.
func (r *Registry) Specs(names ...string) []llm.ToolSpec {
	if len(names) == 0 {
		names = r.Names()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]llm.ToolSpec, 0, len(names))
	for _, n := range names {
		if t, ok := r.tools[n]; ok {
			specs = append(specs, Spec(t))
		}
	}
	return specs
}
