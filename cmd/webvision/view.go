package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Suryanshpandey5492/WebVision/pkg/types"
)

// eventMsg carries a run event into the progress view.
type eventMsg struct{ e *types.RunEvent }

// workDoneMsg ends the progress view.
type workDoneMsg struct{}

// runLine is the progress of one run.
type runLine struct {
	task    string
	stage   string
	step    int
	detail  string
	started time.Time
	elapsed time.Duration
	done    bool
	failed  bool
}

// progressModel shows one line per run while tasks execute.
type progressModel struct {
	spinner    spinner.Model
	order      []string
	runs       map[string]*runLine
	cancel     context.CancelFunc
	cancelling bool
	width      int
}

func newProgressModel(cancel context.CancelFunc) progressModel {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = mutedStyle
	return progressModel{
		spinner: s,
		runs:    make(map[string]*runLine),
		cancel:  cancel,
		width:   100,
	}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.cancel != nil {
				m.cancel()
			}
			m.cancelling = true
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case eventMsg:
		m.apply(msg.e)
		return m, nil
	case workDoneMsg:
		return m, tea.Quit
	}
	return m, nil
}

// apply folds e into the line of its run.
func (m *progressModel) apply(e *types.RunEvent) {
	line, ok := m.runs[e.RunID]
	if !ok {
		if e.Type != types.EventTypeRunStart {
			return
		}
		line = &runLine{task: e.Content, started: e.Timestamp}
		m.runs[e.RunID] = line
		m.order = append(m.order, e.RunID)
		return
	}

	switch e.Type {
	case types.EventTypeStageStart:
		line.stage = e.Stage
		line.step = e.Step
	case types.EventTypeThought, types.EventTypeInsight:
		line.detail = firstLine(e.Content)
	case types.EventTypeToolCall:
		line.detail = "→ " + e.ToolName
	case types.EventTypeToolError:
		line.detail = fmt.Sprintf("✗ %s: %v", e.ToolName, e.Error)
	case types.EventTypeAnswer:
		if e.Content == "" {
			line.failed = true
			line.detail = fmt.Sprint(e.Metadata["errors"])
		} else {
			line.detail = e.Content
		}
	case types.EventTypeRunEnd:
		line.done = true
		line.elapsed = e.Duration
	}
}

func (m progressModel) View() string {
	var b strings.Builder
	for _, id := range m.order {
		line := m.runs[id]
		mark := m.spinner.View()
		switch {
		case line.done && line.failed:
			mark = errorStyle.Render("✗")
		case line.done:
			mark = answerStyle.Render("✓")
		}

		status := mutedStyle.Render(fmt.Sprintf("[%s step %d]", line.stage, line.step))
		if line.done {
			status = mutedStyle.Render(fmt.Sprintf("[%s]", round(line.elapsed)))
		}
		room := m.width - 40
		if room < 20 {
			room = 20
		}
		fmt.Fprintf(&b, "%s %s %s %s\n", mark, taskStyle.Render(shorten(line.task, 30)), status,
			shorten(line.detail, room))
	}
	if m.cancelling {
		b.WriteString(mutedStyle.Render("cancelling...") + "\n")
	}
	return b.String()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// withProgress runs work while a live view renders its events to out.
// work receives the sink to attach to its runs.
func withProgress(ctx context.Context, out io.Writer, work func(ctx context.Context, sink types.EventSink) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(cancel), tea.WithOutput(out), tea.WithContext(ctx))
	done := make(chan error, 1)
	go func() {
		err := work(ctx, func(e *types.RunEvent) { p.Send(eventMsg{e}) })
		p.Send(workDoneMsg{})
		done <- err
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		// the view failing must not abandon the runs
		fmt.Fprintf(out, "progress view unavailable: %v\n", err)
	}
	return <-done
}
