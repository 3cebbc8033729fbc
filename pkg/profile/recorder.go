package profile

import (
	"errors"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/json-iterator/go"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent/tools"
	"github.com/Suryanshpandey5492/WebVision/pkg/logging"
	"github.com/Suryanshpandey5492/WebVision/pkg/types"
)

const (
	navigatedPrefix = "Navigated to "
	backPrefix      = "Navigated back a page to "
	loggedPrefix    = "Logged website: "
)

// Recorder builds profiles from run events. Handle is its EventSink.
type Recorder struct {
	mu       sync.Mutex
	dir      string
	interval time.Duration
	profiles map[string]*Profile
	logger   *logging.Logger
}

// NewRecorder stores profiles under dir.
func NewRecorder(dir string, interval time.Duration, logger *logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Recorder{dir: dir, interval: interval, profiles: map[string]*Profile{}, logger: logger}
}

// Sink returns Handle as an event sink.
func (r *Recorder) Sink() types.EventSink {
	return r.Handle
}

// Handle folds one event into the matching domain profile.
func (r *Recorder) Handle(e *types.RunEvent) {
	if e == nil {
		return
	}
	switch e.Type {
	case types.EventTypeToolResult:
		r.handleResult(e)
	case types.EventTypeRunEnd:
		r.saveDue()
	}
}

func (r *Recorder) handleResult(e *types.RunEvent) {
	switch e.ToolName {
	case tools.NavigateURLName:
		if u, ok := strings.CutPrefix(e.Content, navigatedPrefix); ok {
			r.navigation(u, "navigate")
		}
	case tools.GoBackName:
		if u, ok := strings.CutPrefix(e.Content, backPrefix); ok {
			r.navigation(u, "back")
		}
	case tools.LogVisitedWebsiteName:
		if !strings.HasPrefix(e.Content, loggedPrefix) {
			return
		}
		var args struct {
			URL     string `json:"url"`
			Title   string `json:"title"`
			Summary string `json:"summary"`
		}
		if err := json.Unmarshal([]byte(e.ToolInput), &args); err != nil {
			r.logger.Debugf("profile: undecodable visit log: %v", err)
			return
		}
		if p := r.profileFor(args.URL); p != nil {
			p.AddPage(args.URL, args.Title, args.Summary)
		}
	}
}

func (r *Recorder) navigation(rawURL, kind string) {
	if p := r.profileFor(rawURL); p != nil {
		p.AddNavigation(strings.TrimSpace(rawURL), kind)
	}
}

// profileFor returns the profile for rawURL's host, creating it on first use.
func (r *Recorder) profileFor(rawURL string) *Profile {
	domain := Domain(rawURL)
	if domain == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[domain]
	if !ok {
		p = New(domain, r.dir, r.interval)
		r.profiles[domain] = p
	}
	return p
}

// Profile returns the profile for domain, if any event touched it.
func (r *Recorder) Profile(domain string) (*Profile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[domain]
	return p, ok
}

// Domains lists tracked domains in sorted order.
func (r *Recorder) Domains() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.profiles))
	for d := range r.profiles {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (r *Recorder) all() []*Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	return out
}

func (r *Recorder) saveDue() {
	for _, p := range r.all() {
		if _, err := p.MaybeSave(); err != nil {
			r.logger.Warnf("profile: %v", err)
		}
	}
}

// Flush saves every profile regardless of interval.
func (r *Recorder) Flush() error {
	var errs []error
	for _, p := range r.all() {
		if err := p.Save(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Domain returns the lowercased host of rawURL without a leading "www.".
func Domain(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
