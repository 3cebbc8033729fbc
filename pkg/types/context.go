package types

import "context"

// EventSink receives run events. Implementations must not block for long;
// the run waits for each call.
type EventSink func(*RunEvent)

// Emit calls s with e when s is set.
func (s EventSink) Emit(e *RunEvent) {
	if s != nil && e != nil {
		s(e)
	}
}

type runIDKey struct{}

// WithRunID attaches a run id to ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFrom returns the run id attached to ctx, or "".
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
