package tools

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Suryanshpandey5492/WebVision/pkg/browser"
	"github.com/Suryanshpandey5492/WebVision/pkg/llm"
)

const (
	ClickName       = "Click"
	TypeTextName    = "TypeText"
	ScrollName      = "Scroll"
	NavigateURLName = "NavigateURL"
	GoBackName      = "GoBack"
	PressEnterName  = "PressEnter"
	WaitName        = "Wait"

	clickTimeout    = 2 * time.Second
	typeTimeout     = 8 * time.Second
	navigateTimeout = 60 * time.Second

	windowScrollStep  = 500
	elementScrollStep = 400
)

func requirePage(tool string, env *Env) error {
	if env == nil || env.Page == nil {
		return newActionError(CodeFailed, tool, browser.ErrPageClosed, "Error: Page object not found.")
	}
	return nil
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// ClickTool clicks the center of a labeled element.
type ClickTool struct{}

func (ClickTool) Name() string { return ClickName }
func (ClickTool) Description() string {
	return "Use this to click on an element, identified by its numerical label."
}
func (ClickTool) Schema() *llm.Schema {
	return llm.Object(map[string]*llm.Schema{
		"bbox_id": llm.Integer("The numerical label of the element to click."),
	}, "bbox_id")
}
func (ClickTool) Timeout() time.Duration { return clickTimeout }

func (t ClickTool) Execute(ctx context.Context, env *Env, raw []byte) (string, error) {
	var args struct {
		BboxID int `json:"bbox_id"`
	}
	if err := decodeArgs(ClickName, raw, &args); err != nil {
		return "", err
	}
	if err := requirePage(ClickName, env); err != nil {
		return "", err
	}
	idx, err := bboxIndex(ClickName, env, args.BboxID)
	if err != nil {
		return "", err
	}
	el := env.State.Observation.Elements[idx]

	if err := env.Page.Click(ctx, el.X, el.Y); err != nil {
		if isTimeout(err) {
			return "", newActionError(CodeTimeout, ClickName, err,
				"Error: Click operation at %s, %s timed out after 2 seconds.", formatCoord(el.X), formatCoord(el.Y))
		}
		return "", newActionError(CodeFailed, ClickName, err, "Error: Failed to click on bbox %d.", args.BboxID)
	}
	return fmt.Sprintf("Clicked on %s.", el), nil
}

// TypeTextTool replaces the content of a text field.
type TypeTextTool struct{}

func (TypeTextTool) Name() string        { return TypeTextName }
func (TypeTextTool) Description() string { return "Type into an element on the page." }
func (TypeTextTool) Schema() *llm.Schema {
	return llm.Object(map[string]*llm.Schema{
		"bbox_id": llm.Integer("The numerical label of the field."),
		"text":    llm.String("The text to type. Existing content is replaced."),
	}, "bbox_id", "text")
}
func (TypeTextTool) Timeout() time.Duration { return typeTimeout }

func (TypeTextTool) Execute(ctx context.Context, env *Env, raw []byte) (string, error) {
	var args struct {
		BboxID int    `json:"bbox_id"`
		Text   string `json:"text"`
	}
	if err := decodeArgs(TypeTextName, raw, &args); err != nil {
		return "", err
	}
	if err := requirePage(TypeTextName, env); err != nil {
		return "", err
	}
	idx, err := bboxIndex(TypeTextName, env, args.BboxID)
	if err != nil {
		return "", err
	}
	el := env.State.Observation.Elements[idx]

	steps := []func() error{
		func() error { return env.Page.Click(ctx, el.X, el.Y) },
		func() error { return env.Page.Press(ctx, env.selectAllKey()) },
		func() error { return env.Page.Press(ctx, "Backspace") },
		func() error { return env.Page.Type(ctx, args.Text) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			if isTimeout(err) {
				return "", newActionError(CodeTimeout, TypeTextName, err, "Failed to type '%s' due to timeout.", args.Text)
			}
			return "", newActionError(CodeFailed, TypeTextName, err, "Failed to type '%s' due to an error.", args.Text)
		}
	}
	return fmt.Sprintf("Typed '%s' into %s.", args.Text, el), nil
}

// ScrollTool scrolls the window or the element under a label.
type ScrollTool struct{}

func (ScrollTool) Name() string { return ScrollName }
func (ScrollTool) Description() string {
	return "Scroll on the page. For the entire page set target to WINDOW, to scroll within an element give its numerical label."
}
func (ScrollTool) Schema() *llm.Schema {
	return llm.Object(map[string]*llm.Schema{
		"target":    llm.String("WINDOW or the numerical label of a scrollable element."),
		"direction": llm.Enum("Scroll direction. 1 means down and -1 means up.", "up", "down", "1", "-1"),
	}, "target", "direction")
}
func (ScrollTool) Timeout() time.Duration { return 0 }

func (ScrollTool) Execute(ctx context.Context, env *Env, raw []byte) (string, error) {
	var args struct {
		Target    string `json:"target"`
		Direction string `json:"direction"`
	}
	if err := decodeArgs(ScrollName, raw, &args); err != nil {
		return "", err
	}
	sign, direction := 0, ""
	switch strings.ToLower(strings.TrimSpace(args.Direction)) {
	case "up", "-1":
		sign, direction = -1, "up"
	case "down", "1", "+1":
		sign, direction = 1, "down"
	default:
		return "", newActionError(CodeInvalidArguments, ScrollName, nil,
			"Error: Invalid scroll direction %q; use up or down.", args.Direction)
	}
	window, id, err := parseTarget(ScrollName, args.Target)
	if err != nil {
		return "", err
	}
	if err := requirePage(ScrollName, env); err != nil {
		return "", err
	}

	if window {
		if _, err := env.Page.Evaluate(ctx, fmt.Sprintf("window.scrollBy(0, %d)", sign*windowScrollStep)); err != nil {
			return "", newActionError(CodeFailed, ScrollName, err, "Error: Failed to scroll the window: %v", err)
		}
		return fmt.Sprintf("Scrolled %s in window.", direction), nil
	}

	idx, err := bboxIndex(ScrollName, env, id)
	if err != nil {
		return "", err
	}
	el := env.State.Observation.Elements[idx]
	if err := env.Page.MoveMouse(ctx, el.X, el.Y); err != nil {
		return "", newActionError(CodeFailed, ScrollName, err, "Error: Failed to scroll element %d: %v", id, err)
	}
	if err := env.Page.Wheel(ctx, 0, float64(sign*elementScrollStep)); err != nil {
		return "", newActionError(CodeFailed, ScrollName, err, "Error: Failed to scroll element %d: %v", id, err)
	}
	return fmt.Sprintf("Scrolled %s in element %d.", direction, id), nil
}

// NavigateURLTool opens a URL in the current page.
type NavigateURLTool struct{}

func (NavigateURLTool) Name() string        { return NavigateURLName }
func (NavigateURLTool) Description() string { return "Navigate directly to a URL on the web." }
func (NavigateURLTool) Schema() *llm.Schema {
	return llm.Object(map[string]*llm.Schema{
		"url": llm.String("The URL to open. https:// is assumed when no scheme is given."),
	}, "url")
}

// Timeout is zero because the navigation deadline is passed to the driver.
func (NavigateURLTool) Timeout() time.Duration { return 0 }

// NormalizeURL adds https:// when rawURL names no scheme. Other schemes are
// kept as given so that the host guard can refuse them.
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if hasScheme(rawURL) {
		return rawURL
	}
	return "https://" + rawURL
}

// hasScheme reports whether rawURL starts with a scheme. "localhost:8080"
// is a host and port, not the scheme "localhost".
func hasScheme(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return false
	}
	if strings.Contains(rawURL, "://") {
		return true
	}
	port, _, _ := strings.Cut(u.Opaque, "/")
	return port == "" || strings.Trim(port, "0123456789") != ""
}

func (NavigateURLTool) Execute(ctx context.Context, env *Env, raw []byte) (string, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := decodeArgs(NavigateURLName, raw, &args); err != nil {
		return "", err
	}
	if strings.TrimSpace(args.URL) == "" {
		return "", newActionError(CodeInvalidArguments, NavigateURLName, nil, "Error: A URL is required.")
	}
	if err := requirePage(NavigateURLName, env); err != nil {
		return "", err
	}
	target := NormalizeURL(args.URL)
	if !webScheme(target) {
		return "", newActionError(CodeBlocked, NavigateURLName, nil, "Error: Only http and https URLs can be opened, not %s.", target)
	}
	if !env.Guard.Allows(target) {
		return "", newActionError(CodeBlocked, NavigateURLName, nil, "Error: Navigation to %s is blocked.", target)
	}

	if err := env.Page.Goto(ctx, target, navigateTimeout); err != nil {
		return "", newActionError(CodeNavigationError, NavigateURLName, err, "Error: Could not navigate to %s: %v", target, err)
	}
	return "Navigated to " + target, nil
}

// GoBackTool goes back one entry in the page history.
type GoBackTool struct{}

func (GoBackTool) Name() string           { return GoBackName }
func (GoBackTool) Description() string    { return "Go back to the previous page." }
func (GoBackTool) Schema() *llm.Schema    { return llm.Object(nil) }
func (GoBackTool) Timeout() time.Duration { return 0 }

func (GoBackTool) Execute(ctx context.Context, env *Env, raw []byte) (string, error) {
	if err := requirePage(GoBackName, env); err != nil {
		return "", err
	}
	if err := env.Page.GoBack(ctx); err != nil {
		return "", newActionError(CodeFailed, GoBackName, err, "Error: Failed to navigate back.")
	}
	return "Navigated back a page to " + env.Page.URL(), nil
}

// PressEnterTool presses Enter in the focused element.
type PressEnterTool struct{}

func (PressEnterTool) Name() string           { return PressEnterName }
func (PressEnterTool) Description() string    { return "Press enter on the page." }
func (PressEnterTool) Schema() *llm.Schema    { return llm.Object(nil) }
func (PressEnterTool) Timeout() time.Duration { return 0 }

func (PressEnterTool) Execute(ctx context.Context, env *Env, raw []byte) (string, error) {
	if err := requirePage(PressEnterName, env); err != nil {
		return "", err
	}
	if err := env.Page.Press(ctx, "Enter"); err != nil {
		return "", newActionError(CodeFailed, PressEnterName, err, "Error: Failed to press Enter.")
	}
	return "Pressed Enter key.", nil
}

// WaitTool pauses so the page can settle.
type WaitTool struct {
	// Duration defaults to two seconds.
	Duration time.Duration
}

func (WaitTool) Name() string { return WaitName }
func (WaitTool) Description() string {
	return "Wait for the page to finish loading or updating."
}
func (WaitTool) Schema() *llm.Schema    { return llm.Object(nil) }
func (WaitTool) Timeout() time.Duration { return 0 }

func (t WaitTool) Execute(ctx context.Context, env *Env, raw []byte) (string, error) {
	d := t.Duration
	if d <= 0 {
		d = 2 * time.Second
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return fmt.Sprintf("Waited for %s.", d), nil
	case <-ctx.Done():
		return "", newActionError(CodeFailed, WaitName, ctx.Err(), "Error: Failed to execute wait.")
	}
}
