package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunEventType(t *testing.T) {
	tests := []struct {
		eventType RunEventType
		expected  string
	}{
		{EventTypeRunStart, "run_start"},
		{EventTypeRunEnd, "run_end"},
		{EventTypeStageStart, "stage_start"},
		{EventTypeStageEnd, "stage_end"},
		{EventTypeThought, "thought"},
		{EventTypeInsight, "insight"},
		{EventTypeToolCall, "tool_call"},
		{EventTypeToolResult, "tool_result"},
		{EventTypeToolError, "tool_error"},
		{EventTypeAnswer, "answer"},
		{EventTypeError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.eventType))
		})
	}
}

func TestEventConstructors(t *testing.T) {
	err := errors.New("click timed out")

	tests := []struct {
		name  string
		event *RunEvent
		check func(t *testing.T, e *RunEvent)
	}{
		{
			name:  "run start",
			event: NewRunStartEvent("r1", "find the capital of France"),
			check: func(t *testing.T, e *RunEvent) {
				assert.Equal(t, EventTypeRunStart, e.Type)
				assert.Equal(t, "find the capital of France", e.Content)
			},
		},
		{
			name:  "run end",
			event: NewRunEndEvent("r1", 4, time.Second),
			check: func(t *testing.T, e *RunEvent) {
				assert.Equal(t, 4, e.Step)
				assert.Equal(t, time.Second, e.Duration)
				assert.True(t, e.IsTerminal())
			},
		},
		{
			name:  "stage start",
			event: NewStageStartEvent("r1", "observe", 1),
			check: func(t *testing.T, e *RunEvent) {
				assert.Equal(t, "observe", e.Stage)
				assert.Equal(t, 1, e.Step)
				assert.True(t, e.IsStageEvent())
			},
		},
		{
			name:  "tool call",
			event: NewToolCallEvent("r1", "Click", `{"bbox_id":0}`),
			check: func(t *testing.T, e *RunEvent) {
				assert.Equal(t, "Click", e.ToolName)
				assert.Equal(t, `{"bbox_id":0}`, e.ToolInput)
				assert.True(t, e.IsToolEvent())
				assert.False(t, e.IsErrorEvent())
			},
		},
		{
			name:  "tool error",
			event: NewToolErrorEvent("r1", "Click", err),
			check: func(t *testing.T, e *RunEvent) {
				assert.Equal(t, err, e.Error)
				assert.True(t, e.IsToolEvent())
				assert.True(t, e.IsErrorEvent())
			},
		},
		{
			name:  "answer without errors",
			event: NewAnswerEvent("r1", "Paris", ""),
			check: func(t *testing.T, e *RunEvent) {
				assert.Equal(t, "Paris", e.Content)
				assert.Nil(t, e.Metadata)
			},
		},
		{
			name:  "answer with errors",
			event: NewAnswerEvent("r1", "partial", "search blocked"),
			check: func(t *testing.T, e *RunEvent) {
				assert.Equal(t, "search blocked", e.Metadata["errors"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "r1", tt.event.RunID)
			assert.False(t, tt.event.Timestamp.IsZero())
			tt.check(t, tt.event)
		})
	}
}

func TestWithMetadata(t *testing.T) {
	e := NewErrorEvent("r1", errors.New("x")).WithMetadata("stage", "reason").WithMetadata("step", 2)
	assert.Equal(t, "reason", e.Metadata["stage"])
	assert.Equal(t, 2, e.Metadata["step"])
	assert.True(t, e.IsErrorEvent())
}

func TestMessageWithImage(t *testing.T) {
	m := NewUserMessage("look")
	withImg := m.WithImage("aGVsbG8=")

	assert.Empty(t, m.Images, "original message must not be modified")
	assert.Len(t, withImg.Images, 1)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", withImg.Images[0].DataURL())
	assert.Equal(t, withImg, withImg.WithImage(""))
}

func TestImageMediaTypeDefault(t *testing.T) {
	assert.Equal(t, "image/png", Image{}.MediaType())
	assert.Equal(t, "image/jpeg", Image{MIMEType: "image/jpeg"}.MediaType())
}

func TestWithInput(t *testing.T) {
	e := NewToolResultEvent("r1", "NavigateURL", "Navigated to https://a.example", 0).WithInput(`{"url":"a.example"}`)
	assert.Equal(t, `{"url":"a.example"}`, e.ToolInput)
	assert.True(t, e.IsToolEvent())
}
