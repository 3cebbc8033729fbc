package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	json "github.com/json-iterator/go"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent"
	"github.com/Suryanshpandey5492/WebVision/pkg/agent/state"
)

var (
	accent = lipgloss.Color("#FFB3BA")
	mint   = lipgloss.Color("#A8E6CF")
	muted  = lipgloss.Color("#6B7280")

	taskStyle   = lipgloss.NewStyle().Foreground(accent).Bold(true)
	answerStyle = lipgloss.NewStyle().Foreground(mint)
	errorStyle  = lipgloss.NewStyle().Foreground(accent)
	mutedStyle  = lipgloss.NewStyle().Foreground(muted)
)

// runOutput is the JSON shape of one finished task.
type runOutput struct {
	Task            string              `json:"task"`
	RunID           string              `json:"run_id,omitempty"`
	FinalAnswer     *string             `json:"final_answer"`
	Errors          *string             `json:"errors"`
	Steps           int                 `json:"steps"`
	ExecutionTime   string              `json:"execution_time"`
	VisitedWebsites []state.VisitedSite `json:"visited_websites,omitempty"`
}

func toOutputs(results []agent.BatchResult) []runOutput {
	out := make([]runOutput, len(results))
	for i, r := range results {
		errs := r.Result.Errors
		if errs == nil && r.Err != nil {
			errs = state.String(r.Err.Error())
		}
		out[i] = runOutput{
			Task:            r.Task,
			RunID:           r.Result.RunID,
			FinalAnswer:     r.Result.Answer,
			Errors:          errs,
			Steps:           r.Result.Steps,
			ExecutionTime:   fmt.Sprintf("%.2f", r.Result.Duration.Seconds()),
			VisitedWebsites: r.Result.VisitedSites,
		}
	}
	return out
}

// writeJSON writes v indented, highlighted when color is set.
func writeJSON(w io.Writer, v any, color bool) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	src := string(data) + "\n"
	if !color {
		_, err = io.WriteString(w, src)
		return err
	}
	return quick.Highlight(w, src, "json", "terminal256", "monokai")
}

// writeText prints each task with its answer and any errors.
func writeText(w io.Writer, results []agent.BatchResult) error {
	var b strings.Builder
	for i, o := range toOutputs(results) {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(taskStyle.Render(o.Task) + "\n")
		if o.FinalAnswer != nil {
			b.WriteString(answerStyle.Render(*o.FinalAnswer) + "\n")
		} else {
			b.WriteString(mutedStyle.Render("(no answer)") + "\n")
		}
		if o.Errors != nil && *o.Errors != "" {
			b.WriteString(errorStyle.Render("errors: "+*o.Errors) + "\n")
		}
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%d steps in %ss, %d sites visited",
			o.Steps, o.ExecutionTime, len(o.VisitedWebsites))) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// answers joins the answers of results, skipping runs without one.
func answers(results []agent.BatchResult) string {
	var parts []string
	for _, r := range results {
		if r.Result.Answer != nil {
			parts = append(parts, *r.Result.Answer)
		}
	}
	return strings.Join(parts, "\n")
}

func shorten(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func round(d time.Duration) time.Duration { return d.Round(100 * time.Millisecond) }
