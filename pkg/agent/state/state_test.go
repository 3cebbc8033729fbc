package state

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s := New("find the capital of France", "", 3)
	assert.Equal(t, "find the capital of France", s.Task)
	assert.Equal(t, 3, s.Budget)
	assert.Zero(t, s.StepCount)
	assert.False(t, s.Terminal)
	assert.Nil(t, s.Answer)
	assert.Nil(t, s.Errors)
}

func TestCloneDoesNotAlias(t *testing.T) {
	s := New("t", "", 5)
	s = s.WithObservation(Observation{Elements: []Element{{ID: 0, X: 1, Y: 2}}})
	s = s.AppendVisited(NewVisitedSite("https://a.example", "A", "first", "2024-01-01T00:00:00Z"))
	s.Answer = String("x")

	c := s.Clone()
	c.Observation.Elements[0].X = 99
	c.VisitedSites[0].Summary = "changed"
	*c.Answer = "y"

	assert.Equal(t, float64(1), s.Observation.Elements[0].X)
	assert.Equal(t, "first", s.VisitedSites[0].Summary)
	assert.Equal(t, "x", *s.Answer)
}

func TestAppendOnlyLogs(t *testing.T) {
	s := New("t", "", 10)
	s = s.AppendNarrative("first thought")
	s = s.AppendNarrative("")
	s = s.AppendNarrative("second thought")
	assert.Equal(t, "first thought"+NarrativeSeparator+"second thought", s.Narrative)

	s = s.AppendInsight("one")
	s = s.AppendInsight("two")
	assert.Equal(t, "one"+InsightSeparator+"two", s.Insights)

	before := s
	s = s.AppendVisited(NewVisitedSite("https://b.example", "", "b", "ts"))
	s = s.AppendVisited(NewVisitedSite("https://c.example", "", "c", "ts"))
	assert.Len(t, before.VisitedSites, 0)
	require.Len(t, s.VisitedSites, 2)
	assert.True(t, s.HasVisited("https://b.example"))
	assert.False(t, s.HasVisited("https://z.example"))

	prefix := s.VisitedSites[:1]
	s = s.AppendVisited(NewVisitedSite("https://d.example", "", "d", "ts"))
	if diff := cmp.Diff(prefix, s.VisitedSites[:1]); diff != "" {
		t.Errorf("existing entries changed (-want +got):\n%s", diff)
	}
}

func TestTerminalIsMonotone(t *testing.T) {
	s := New("t", "", 10)
	s = s.WithObservation(Observation{Screenshot: "img"})
	s = s.MarkTerminal(String("Paris"), nil)

	require.True(t, s.Terminal)
	require.NotNil(t, s.Answer)
	assert.Equal(t, "Paris", *s.Answer)
	assert.Nil(t, s.Errors)

	frozen := s
	s = s.MarkTerminal(String("London"), String("late"))
	s = s.AppendNarrative("more")
	s = s.AppendInsight("more")
	s = s.WithObservation(Observation{Screenshot: "other"})

	if diff := cmp.Diff(frozen, s); diff != "" {
		t.Errorf("terminal state mutated (-want +got):\n%s", diff)
	}
}

func TestMarkTerminalEmptyAnswer(t *testing.T) {
	s := New("t", "", 10).MarkTerminal(String(""), String("failed"))
	assert.True(t, s.Terminal)
	assert.Nil(t, s.Answer)
	assert.Equal(t, "failed", Deref(s.Errors))
}

func TestCompleteEarly(t *testing.T) {
	s := New("t", "", 7).Step().Step()
	s = s.CompleteEarly()
	assert.Equal(t, 7, s.StepCount)

	over := New("t", "", 2).Step().Step().Step().CompleteEarly()
	assert.Equal(t, 3, over.StepCount, "never decremented")
}

func TestErrors(t *testing.T) {
	s := New("t", "", 1).NoteError("transient")
	assert.Equal(t, "transient", s.LastErrorNote)
	assert.Nil(t, s.Errors)

	s = s.WithError("fatal to cycle")
	assert.Equal(t, "fatal to cycle", s.LastErrorNote)
	assert.Equal(t, "fatal to cycle", Deref(s.Errors))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		state   RunState
		wantErr bool
	}{
		{name: "fresh", state: New("t", "", 3)},
		{name: "negative steps", state: RunState{StepCount: -1, Budget: 3}, wantErr: true},
		{name: "zero budget", state: RunState{Budget: 0}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrMalformed))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestElementString(t *testing.T) {
	assert.Equal(t, `3 (<button/> "Search")`, Element{ID: 3, Type: "button", Text: "Search"}.String())
	assert.Equal(t, `4 (<input/> "Query")`, Element{ID: 4, Type: "input", AriaLabel: "Query"}.String())
}

func TestNewVisitedSiteStampsTime(t *testing.T) {
	v := NewVisitedSite("https://a.example", "", "s", "")
	assert.NotEmpty(t, v.Timestamp)
	assert.Equal(t, "fixed", NewVisitedSite("u", "", "s", "fixed").Timestamp)
}
