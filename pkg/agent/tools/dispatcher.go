package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent/state"
	"github.com/Suryanshpandey5492/WebVision/pkg/browser"
	"github.com/Suryanshpandey5492/WebVision/pkg/llm"
	"github.com/Suryanshpandey5492/WebVision/pkg/logging"
	"github.com/Suryanshpandey5492/WebVision/pkg/types"
)

// CallRecord is the outcome of one requested action.
type CallRecord struct {
	Name     string
	Args     string
	Result   string
	Err      error
	Duration time.Duration
}

// Failed reports whether the action did not succeed.
func (c CallRecord) Failed() bool { return c.Err != nil }

// Dispatcher executes tool calls requested by the model.
type Dispatcher struct {
	registry *Registry
	guard    *HostGuard
	platform string
	logger   *logging.Logger
	events   types.EventSink
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHostGuard restricts navigation targets.
func WithHostGuard(g *HostGuard) DispatcherOption {
	return func(d *Dispatcher) { d.guard = g }
}

// WithPlatform overrides the operating system used to pick key shortcuts.
func WithPlatform(p string) DispatcherOption {
	return func(d *Dispatcher) { d.platform = p }
}

// WithLogger sets the dispatcher's logger.
func WithLogger(l *logging.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// WithEvents sets the sink receiving tool call and result events.
func WithEvents(sink types.EventSink) DispatcherOption {
	return func(d *Dispatcher) { d.events = sink }
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{registry: registry, logger: logging.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the catalog the dispatcher executes from.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch executes calls in order against page and folds their effects into
// a copy of st. A failing call never stops the batch; a successful
// loop-breaking call does. Dispatch never fails: errors are carried in the
// records and in the returned state's LastErrorNote.
func (d *Dispatcher) Dispatch(ctx context.Context, page browser.Page, calls []llm.ToolCall, st state.RunState) (state.RunState, []CallRecord) {
	work := st.Clone()
	if work.Terminal {
		return work, nil
	}
	env := &Env{Page: page, State: &work, Guard: d.guard, Platform: d.platform}
	runID := types.RunIDFrom(ctx)

	records := make([]CallRecord, 0, len(calls))
	for _, call := range calls {
		rec, stop := d.dispatchOne(ctx, env, runID, call)
		records = append(records, rec)
		if rec.Err != nil {
			work = work.NoteError(rec.Result)
		}
		if stop {
			break
		}
	}
	return work, records
}

func (d *Dispatcher) dispatchOne(ctx context.Context, env *Env, runID string, call llm.ToolCall) (CallRecord, bool) {
	rec := CallRecord{Name: call.Name, Args: call.Arguments}
	d.events.Emit(types.NewToolCallEvent(runID, call.Name, call.Arguments))

	tool, ok := d.registry.Lookup(call.Name)
	if !ok {
		rec.Err = newActionError(CodeUnknownAction, call.Name, nil, "Error: Unknown action %s.", call.Name)
		return d.fail(runID, rec), false
	}

	if call.Name == LogVisitedWebsiteName {
		var v visitArgs
		if err := decodeArgs(call.Name, []byte(call.Arguments), &v); err == nil && env.State.HasVisited(v.URL) {
			rec.Result = "Website already logged: " + v.URL
			d.logger.Debugf("skipping duplicate visit log for %s", v.URL)
			d.events.Emit(types.NewToolResultEvent(runID, call.Name, rec.Result, 0).WithInput(call.Arguments))
			return rec, false
		}
	}

	start := time.Now()
	result, err := d.execute(ctx, tool, env, []byte(call.Arguments))
	rec.Duration = time.Since(start)
	if err != nil {
		rec.Err = err
		return d.fail(runID, rec), false
	}

	rec.Result = result
	d.logger.Infof("%s(%s) -> %s", call.Name, truncate(call.Arguments, 200), truncate(result, 200))
	d.events.Emit(types.NewToolResultEvent(runID, call.Name, result, rec.Duration).WithInput(call.Arguments))

	lb, ok := tool.(LoopBreaking)
	return rec, ok && lb.IsLoopBreaking()
}

// execute runs tool under its timeout and turns panics and untyped errors
// into ActionErrors.
func (d *Dispatcher) execute(ctx context.Context, tool Tool, env *Env, args []byte) (result string, err error) {
	if timeout := tool.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			result = ""
			err = newActionError(CodeFailed, tool.Name(), fmt.Errorf("panic: %v", r),
				"Error: %s failed unexpectedly: %v", tool.Name(), r)
		}
	}()

	result, err = tool.Execute(ctx, env, args)
	if err != nil && CodeOf(err) == "" {
		err = newActionError(CodeFailed, tool.Name(), err, "Error: %s failed: %v", tool.Name(), err)
	}
	return result, err
}

func (d *Dispatcher) fail(runID string, rec CallRecord) CallRecord {
	rec.Result = rec.Err.Error()
	d.logger.Warnf("%s failed [%s]: %s", rec.Name, CodeOf(rec.Err), rec.Result)
	d.events.Emit(types.NewToolErrorEvent(runID, rec.Name, rec.Err))
	return rec
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
