package types

import "time"

// RunEventType defines the type of event emitted while a task runs.
type RunEventType string

const (
	EventTypeRunStart   RunEventType = "run_start"   // EventTypeRunStart indicates a task run has acquired its session.
	EventTypeRunEnd     RunEventType = "run_end"     // EventTypeRunEnd indicates a task run has finished, with or without an answer.
	EventTypeStageStart RunEventType = "stage_start" // EventTypeStageStart indicates the scheduler entered a stage.
	EventTypeStageEnd   RunEventType = "stage_end"   // EventTypeStageEnd indicates a stage returned its state.
	EventTypeThought    RunEventType = "thought"     // EventTypeThought carries planning output appended to the narrative.
	EventTypeInsight    RunEventType = "insight"     // EventTypeInsight carries a page insight appended to the insight log.
	EventTypeToolCall   RunEventType = "tool_call"   // EventTypeToolCall indicates an action is about to execute.
	EventTypeToolResult RunEventType = "tool_result" // EventTypeToolResult indicates an action returned a result string.
	EventTypeToolError  RunEventType = "tool_error"  // EventTypeToolError indicates an action was skipped or failed.
	EventTypeAnswer     RunEventType = "answer"      // EventTypeAnswer indicates the run produced its final answer.
	EventTypeError      RunEventType = "error"       // EventTypeError indicates a recoverable error was recorded.
)

// RunEvent represents an event emitted by the agent during a run.
type RunEvent struct {
	// Metadata holds optional additional information about the event.
	Metadata map[string]interface{}

	// Error contains error information for error events.
	Error error

	// Type indicates the kind of event.
	Type RunEventType

	// RunID identifies the run that emitted the event.
	RunID string

	// Stage is the scheduler stage (observe, reason, finalize) for stage events.
	Stage string

	// ToolName is the action being dispatched (for tool events).
	ToolName string

	// ToolInput is the raw JSON arguments of the action (for tool events).
	ToolInput string

	// Content holds text for thought, insight, result and answer events.
	Content string

	// Step is the run's step count when the event was emitted.
	Step int

	// Duration is set on stage end and tool result events.
	Duration time.Duration

	Timestamp time.Time
}

func newEvent(t RunEventType, runID string) *RunEvent {
	return &RunEvent{Type: t, RunID: runID, Timestamp: time.Now()}
}

// NewRunStartEvent creates a run start event for the given task.
func NewRunStartEvent(runID, task string) *RunEvent {
	e := newEvent(EventTypeRunStart, runID)
	e.Content = task
	return e
}

// NewRunEndEvent creates a run end event.
func NewRunEndEvent(runID string, steps int, d time.Duration) *RunEvent {
	e := newEvent(EventTypeRunEnd, runID)
	e.Step = steps
	e.Duration = d
	return e
}

func NewStageStartEvent(runID, stage string, step int) *RunEvent {
	e := newEvent(EventTypeStageStart, runID)
	e.Stage = stage
	e.Step = step
	return e
}

func NewStageEndEvent(runID, stage string, step int, d time.Duration) *RunEvent {
	e := newEvent(EventTypeStageEnd, runID)
	e.Stage = stage
	e.Step = step
	e.Duration = d
	return e
}

func NewThoughtEvent(runID, content string) *RunEvent {
	e := newEvent(EventTypeThought, runID)
	e.Content = content
	return e
}

func NewInsightEvent(runID, content string) *RunEvent {
	e := newEvent(EventTypeInsight, runID)
	e.Content = content
	return e
}

func NewToolCallEvent(runID, toolName, input string) *RunEvent {
	e := newEvent(EventTypeToolCall, runID)
	e.ToolName = toolName
	e.ToolInput = input
	return e
}

func NewToolResultEvent(runID, toolName, result string, d time.Duration) *RunEvent {
	e := newEvent(EventTypeToolResult, runID)
	e.ToolName = toolName
	e.Content = result
	e.Duration = d
	return e
}

func NewToolErrorEvent(runID, toolName string, err error) *RunEvent {
	e := newEvent(EventTypeToolError, runID)
	e.ToolName = toolName
	e.Error = err
	return e
}

// NewAnswerEvent creates an answer event; errs may be empty.
func NewAnswerEvent(runID, answer, errs string) *RunEvent {
	e := newEvent(EventTypeAnswer, runID)
	e.Content = answer
	if errs != "" {
		e.Metadata = map[string]interface{}{"errors": errs}
	}
	return e
}

func NewErrorEvent(runID string, err error) *RunEvent {
	e := newEvent(EventTypeError, runID)
	e.Error = err
	return e
}

// WithInput attaches the action's raw arguments, for result events.
func (e *RunEvent) WithInput(input string) *RunEvent {
	e.ToolInput = input
	return e
}

// WithMetadata adds metadata to the event and returns the event for chaining.
func (e *RunEvent) WithMetadata(key string, value interface{}) *RunEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// IsToolEvent returns true if this is a tool-related event.
func (e *RunEvent) IsToolEvent() bool {
	return e.Type == EventTypeToolCall ||
		e.Type == EventTypeToolResult ||
		e.Type == EventTypeToolError
}

// IsStageEvent returns true for stage start and end events.
func (e *RunEvent) IsStageEvent() bool {
	return e.Type == EventTypeStageStart || e.Type == EventTypeStageEnd
}

// IsErrorEvent returns true if this event carries an error.
func (e *RunEvent) IsErrorEvent() bool {
	return e.Type == EventTypeError || e.Type == EventTypeToolError
}

// IsTerminal returns true for events after which the run emits nothing else.
func (e *RunEvent) IsTerminal() bool {
	return e.Type == EventTypeRunEnd
}
