// Package state defines RunState, the record threaded through every stage of
// one task execution.
//
// RunState is a value. Stages receive it, derive a new value through the
// mutators below and return it; slices are copied on write so a returned
// value never aliases one a previous stage still holds.
package state

import (
	"errors"
	"fmt"
	"time"
)

const (
	// NarrativeSeparator joins successive planning outputs.
	NarrativeSeparator = "\n\n----- Final Thought from Main Chain -----\n\n"
	// InsightSeparator joins successive page insights.
	InsightSeparator = "\n\n===== Next Insight =====\n\n"
)

// Element describes one interactable element found on the page. X and Y are
// the center of its bounding rectangle in viewport pixels.
type Element struct {
	ID        int     `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Type      string  `json:"type"`
	Text      string  `json:"text"`
	AriaLabel string  `json:"ariaLabel"`
}

func (e Element) String() string {
	label := e.Text
	if label == "" {
		label = e.AriaLabel
	}
	return fmt.Sprintf("%d (<%s/> %q)", e.ID, e.Type, label)
}

// Observation is the latest snapshot of the page.
type Observation struct {
	// Screenshot is a base64 encoded PNG, empty when capture failed.
	Screenshot string
	Elements   []Element
}

// VisitedSite is one entry of the run's browsing log.
type VisitedSite struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Summary   string `json:"summary"`
	Timestamp string `json:"timestamp"`
}

// RunState carries everything one run knows about itself.
type RunState struct {
	Task          string
	StepCount     int
	Budget        int
	Observation   Observation
	Narrative     string
	Insights      string
	VisitedSites  []VisitedSite
	ProfileInfo   string
	Terminal      bool
	Answer        *string
	Errors        *string
	LastErrorNote string
}

// New creates the initial state for task.
func New(task, profileInfo string, budget int) RunState {
	return RunState{
		Task:        task,
		Budget:      budget,
		ProfileInfo: profileInfo,
	}
}

// Clone returns a deep copy of s.
func (s RunState) Clone() RunState {
	out := s
	if s.Observation.Elements != nil {
		out.Observation.Elements = append([]Element(nil), s.Observation.Elements...)
	}
	if s.VisitedSites != nil {
		out.VisitedSites = append([]VisitedSite(nil), s.VisitedSites...)
	}
	if s.Answer != nil {
		out.Answer = String(*s.Answer)
	}
	if s.Errors != nil {
		out.Errors = String(*s.Errors)
	}
	return out
}

// Step returns s with StepCount incremented.
func (s RunState) Step() RunState {
	out := s.Clone()
	out.StepCount++
	return out
}

// WithObservation replaces the observation. Terminal states keep theirs.
func (s RunState) WithObservation(o Observation) RunState {
	if s.Terminal {
		return s
	}
	out := s.Clone()
	out.Observation = Observation{
		Screenshot: o.Screenshot,
		Elements:   append([]Element(nil), o.Elements...),
	}
	return out
}

// AppendNarrative adds a planning output to the narrative.
func (s RunState) AppendNarrative(text string) RunState {
	if s.Terminal || text == "" {
		return s
	}
	out := s.Clone()
	out.Narrative = join(s.Narrative, text, NarrativeSeparator)
	return out
}

// AppendInsight adds a page insight.
func (s RunState) AppendInsight(text string) RunState {
	if s.Terminal || text == "" {
		return s
	}
	out := s.Clone()
	out.Insights = join(s.Insights, text, InsightSeparator)
	return out
}

// AppendVisited logs a visited site. Existing entries are never modified.
func (s RunState) AppendVisited(v VisitedSite) RunState {
	out := s.Clone()
	out.VisitedSites = append(out.VisitedSites, v)
	return out
}

// HasVisited reports whether url has already been logged.
func (s RunState) HasVisited(url string) bool {
	for _, v := range s.VisitedSites {
		if v.URL == url {
			return true
		}
	}
	return false
}

// MarkTerminal records the final answer and ends the run. It is a no-op when
// the state is already terminal.
func (s RunState) MarkTerminal(answer, errs *string) RunState {
	if s.Terminal {
		return s
	}
	out := s.Clone()
	out.Terminal = true
	out.Answer = nil
	out.Errors = nil
	if answer != nil && *answer != "" {
		out.Answer = String(*answer)
	}
	if errs != nil {
		out.Errors = String(*errs)
	}
	return out
}

// CompleteEarly pushes StepCount up to the budget so the next routing
// decision selects finalization.
func (s RunState) CompleteEarly() RunState {
	out := s.Clone()
	if out.StepCount < out.Budget {
		out.StepCount = out.Budget
	}
	return out
}

// NoteError records a recoverable error.
func (s RunState) NoteError(msg string) RunState {
	out := s.Clone()
	out.LastErrorNote = msg
	return out
}

// WithError sets the user-visible error field and the error note.
func (s RunState) WithError(msg string) RunState {
	out := s.Clone()
	out.Errors = String(msg)
	out.LastErrorNote = msg
	return out
}

// ErrMalformed is returned by Validate.
var ErrMalformed = errors.New("malformed run state")

// Validate reports states the scheduler must not keep looping on.
func (s RunState) Validate() error {
	switch {
	case s.StepCount < 0:
		return fmt.Errorf("%w: negative step count %d", ErrMalformed, s.StepCount)
	case s.Budget <= 0:
		return fmt.Errorf("%w: step budget %d", ErrMalformed, s.Budget)
	}
	return nil
}

// NewVisitedSite builds a log entry, stamping it with now when ts is empty.
func NewVisitedSite(url, title, summary, ts string) VisitedSite {
	if ts == "" {
		ts = time.Now().UTC().Format(time.RFC3339)
	}
	return VisitedSite{URL: url, Title: title, Summary: summary, Timestamp: ts}
}

// Deref returns *p or "" for nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func join(prev, next, sep string) string {
	if prev == "" {
		return next
	}
	return prev + sep + next
}

// String returns a pointer to s, for the Answer and Errors fields.
func String(s string) *string { return &s }
