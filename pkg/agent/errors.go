package agent

import "errors"

var (
	// ErrRecursionLimit is returned by Graph.Run when the node execution
	// limit is exceeded before the run ends.
	ErrRecursionLimit = errors.New("recursion limit reached")

	// ErrSessionUnavailable wraps failures to acquire a browser page.
	ErrSessionUnavailable = errors.New("browser session unavailable")

	// ErrNoTask is returned by RunTask for an empty task.
	ErrNoTask = errors.New("no task provided")
)

// Messages recorded in RunState.Errors.
const (
	MsgNoPage          = "Browser object not initialized correctly. Please check configuration."
	MsgNoTask          = "No task description was provided. Please specify what you want to accomplish on this page."
	MsgEmptyPlan       = "Model returned an empty response. Please try again with a more specific task."
	MsgEmptyInsight    = "The model could not generate a response based on the page content."
	MsgCancelled       = "Task was cancelled by the system or user"
	MsgNoFinalizerTask = "Could not generate final answer due to missing task information"
)
