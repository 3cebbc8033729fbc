package agent

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	json "github.com/json-iterator/go"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent/state"
	"github.com/Suryanshpandey5492/WebVision/pkg/browser"
	"github.com/Suryanshpandey5492/WebVision/pkg/logging"
)

const (
	markExpression   = "window.markPage()"
	unmarkExpression = "window.unmarkPage && window.unmarkPage()"
)

// Observer captures a labeled screenshot of the current page.
type Observer struct {
	// Attempts is how many times markPage is tried before giving up.
	Attempts int
	// Backoff is the fixed pause between attempts.
	Backoff time.Duration
	// CleanupAttempts bounds the unmarkPage retries.
	CleanupAttempts int

	logger *logging.Logger
}

// NewObserver returns an observer with the default retry policy.
func NewObserver(logger *logging.Logger) *Observer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Observer{
		Attempts:        10,
		Backoff:         500 * time.Millisecond,
		CleanupAttempts: 3,
		logger:          logger,
	}
}

type markedElement struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Type      string  `json:"type"`
	Text      string  `json:"text"`
	AriaLabel string  `json:"ariaLabel"`
}

// Observe replaces the observation in st. Only Observation, LastErrorNote
// and Errors can change.
func (o *Observer) Observe(ctx context.Context, page browser.Page, st state.RunState) state.RunState {
	if page == nil {
		o.logger.Errorf("observe: no browser page")
		return st.WithError(MsgNoPage)
	}

	if err := page.WaitForLoad(ctx, browser.LoadStateDOMContentLoaded); err != nil {
		o.logger.Warnf("observe: wait for load: %v", err)
		st = st.NoteError(fmt.Sprintf("Page did not finish loading: %v", err))
	}

	elements := o.mark(ctx, page)

	var shot string
	png, err := page.Screenshot(ctx)
	if err != nil {
		o.logger.Warnf("observe: screenshot: %v", err)
		st = st.NoteError(fmt.Sprintf("Error while processing page content: %v", err))
	} else {
		shot = base64.StdEncoding.EncodeToString(png)
	}

	o.cleanup(ctx, page)

	o.logger.Debugf("observe: %d elements, screenshot %d bytes", len(elements), len(shot))
	return st.WithObservation(state.Observation{Screenshot: shot, Elements: elements})
}

// mark injects the labeling script and returns the first non-empty element
// list, or nil when every attempt fails.
func (o *Observer) mark(ctx context.Context, page browser.Page) []state.Element {
	for attempt := 1; attempt <= o.Attempts; attempt++ {
		elements, err := markOnce(ctx, page)
		if err == nil && len(elements) > 0 {
			return elements
		}
		if err != nil {
			o.logger.Debugf("observe: markPage attempt %d/%d: %v", attempt, o.Attempts, err)
		}
		if attempt == o.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(o.Backoff):
		}
	}
	o.logger.Warnf("observe: no elements labeled after %d attempts", o.Attempts)
	return nil
}

func markOnce(ctx context.Context, page browser.Page) ([]state.Element, error) {
	if _, err := page.Evaluate(ctx, browser.MarkScript); err != nil {
		return nil, fmt.Errorf("inject: %w", err)
	}
	raw, err := page.Evaluate(ctx, markExpression)
	if err != nil {
		return nil, err
	}
	return decodeElements(raw)
}

// decodeElements converts the script's result, whatever shape the driver
// returned it in, into numbered elements.
func decodeElements(raw interface{}) ([]state.Element, error) {
	if raw == nil {
		return nil, nil
	}
	var data []byte
	switch v := raw.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			return nil, fmt.Errorf("encode elements: %w", err)
		}
	}
	var marked []markedElement
	if err := json.Unmarshal(data, &marked); err != nil {
		return nil, fmt.Errorf("decode elements: %w", err)
	}
	out := make([]state.Element, len(marked))
	for i, m := range marked {
		out[i] = state.Element{ID: i, X: m.X, Y: m.Y, Type: m.Type, Text: m.Text, AriaLabel: m.AriaLabel}
	}
	return out, nil
}

func (o *Observer) cleanup(ctx context.Context, page browser.Page) {
	var err error
	for i := 0; i < o.CleanupAttempts; i++ {
		if _, err = page.Evaluate(ctx, unmarkExpression); err == nil {
			return
		}
	}
	if err != nil {
		o.logger.Debugf("observe: unmarkPage: %v", err)
	}
}
