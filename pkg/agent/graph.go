package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent/state"
	"github.com/Suryanshpandey5492/WebVision/pkg/logging"
	"github.com/Suryanshpandey5492/WebVision/pkg/types"
)

// Route names the next node of the control graph.
type Route int

const (
	RouteObserve Route = iota
	RouteReason
	RouteFinalize
	RouteDone
)

func (r Route) String() string {
	switch r {
	case RouteObserve:
		return "observe"
	case RouteReason:
		return "reason"
	case RouteFinalize:
		return "finalize"
	case RouteDone:
		return "done"
	}
	return "unknown"
}

// NextAfterReason picks the node that follows a reasoning step.
func NextAfterReason(st state.RunState) Route {
	switch {
	case st.Validate() != nil:
		return RouteDone
	case st.StepCount >= st.Budget:
		return RouteFinalize
	case st.Terminal:
		return RouteDone
	}
	return RouteObserve
}

// Nodes are the stage functions the graph drives.
type Nodes struct {
	Observe  func(ctx context.Context, st state.RunState) state.RunState
	Reason   func(ctx context.Context, st state.RunState) (state.RunState, error)
	Finalize func(ctx context.Context, st state.RunState) state.RunState
}

// Graph runs Observe and Reason in a loop until routing selects
// finalization or the end.
type Graph struct {
	// RecursionLimit caps node executions per run.
	RecursionLimit int

	logger *logging.Logger
	events types.EventSink
}

// DefaultRecursionLimit is used when Graph.RecursionLimit is not positive.
const DefaultRecursionLimit = 50

// NewGraph creates a graph.
func NewGraph(limit int, logger *logging.Logger, events types.EventSink) *Graph {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Graph{RecursionLimit: limit, logger: logger, events: events}
}

// Run executes nodes starting at Observe. It returns ErrRecursionLimit with
// the last state when the limit is exceeded.
func (g *Graph) Run(ctx context.Context, nodes Nodes, st state.RunState) (state.RunState, error) {
	limit := g.RecursionLimit
	if limit <= 0 {
		limit = DefaultRecursionLimit
	}
	runID := types.RunIDFrom(ctx)

	route := RouteObserve
	for executions := 0; route != RouteDone; executions++ {
		if executions >= limit {
			g.logger.Warnf("graph: recursion limit %d reached at step %d", limit, st.StepCount)
			return st, ErrRecursionLimit
		}
		if ctx.Err() != nil {
			g.logger.Warnf("graph: context done before %s: %v", route, ctx.Err())
			return st.WithError(MsgCancelled), nil
		}

		start := time.Now()
		g.events.Emit(types.NewStageStartEvent(runID, route.String(), st.StepCount))

		var err error
		next := RouteDone
		switch route {
		case RouteObserve:
			st = nodes.Observe(ctx, st.Step())
			next = RouteReason
		case RouteReason:
			st, err = nodes.Reason(ctx, st.Step())
			next = NextAfterReason(st)
		case RouteFinalize:
			st = nodes.Finalize(ctx, st)
		}

		elapsed := time.Since(start)
		g.events.Emit(types.NewStageEndEvent(runID, route.String(), st.StepCount, elapsed))
		g.logger.Debugf("graph: %s finished in %s at step %d -> %s", route, elapsed.Round(time.Millisecond), st.StepCount, next)
		g.logger.Debugf("graph: state %s", preview(st))
		if err != nil {
			return st, err
		}
		route = next
	}
	return st, nil
}

// preview summarizes st for debug logs.
func preview(st state.RunState) string {
	return truncate(fmt.Sprintf("steps=%d terminal=%t elements=%d visited=%d narrative=%s",
		st.StepCount, st.Terminal, len(st.Observation.Elements), len(st.VisitedSites), st.Narrative), 500)
}
