// Package profile keeps a per-domain record of what runs saw on a target:
// pages, navigation, API calls, cookies and server details.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	json "github.com/json-iterator/go"
)

// DefaultInterval is the minimum time between interval-gated saves.
const DefaultInterval = time.Minute

// APICall is one observed request to the target.
type APICall struct {
	Timestamp       time.Time         `json:"timestamp"`
	Endpoint        string            `json:"endpoint"`
	Method          string            `json:"method"`
	RequestHeaders  map[string]string `json:"request_headers,omitempty"`
	RequestBody     string            `json:"request_body,omitempty"`
	ResponseHeaders map[string]string `json:"response_headers,omitempty"`
	ResponseBody    string            `json:"response_body,omitempty"`
	StatusCode      int               `json:"status_code"`
}

// PageSummary describes a visited page.
type PageSummary struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Purpose     string   `json:"purpose,omitempty"`
	UserInputs  []string `json:"user_inputs"`
}

// Page is one entry of pages_and_paths.
type Page struct {
	URL         string      `json:"url"`
	Summary     PageSummary `json:"page_summary"`
	Credentials []string    `json:"credentials"`
}

// Navigation is one navigation event.
type Navigation struct {
	URL       string    `json:"url"`
	Type      string    `json:"navigation_type"`
	Timestamp time.Time `json:"timestamp"`
}

// Data is the persisted document.
type Data struct {
	Domain     string                 `json:"domain"`
	APICalls   []APICall              `json:"api_calls"`
	Pages      []Page                 `json:"pages_and_paths"`
	Navigation []Navigation           `json:"navigation"`
	Cookies    map[string]string      `json:"cookies"`
	ServerInfo map[string]interface{} `json:"server_info"`
}

// Profile is safe for concurrent use.
type Profile struct {
	mu       sync.Mutex
	dir      string
	interval time.Duration
	lastSave time.Time
	now      func() time.Time
	data     Data
}

// New creates an empty profile for domain stored under dir.
func New(domain, dir string, interval time.Duration) *Profile {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Profile{
		dir:      dir,
		interval: interval,
		now:      time.Now,
		data: Data{
			Domain:     domain,
			APICalls:   []APICall{},
			Pages:      []Page{},
			Navigation: []Navigation{},
			Cookies:    map[string]string{},
			ServerInfo: map[string]interface{}{},
		},
	}
	p.lastSave = p.now()
	return p
}

// Domain returns the tracked domain.
func (p *Profile) Domain() string {
	return p.data.Domain
}

// Path is where Save writes.
func (p *Profile) Path() string {
	return filepath.Join(p.dir, p.data.Domain+"_profile.json")
}

// AddNavigation logs a navigation of kind navType (navigate, back, click).
func (p *Profile) AddNavigation(url, navType string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data.Navigation = append(p.data.Navigation, Navigation{URL: url, Type: navType, Timestamp: p.now()})
}

// AddPage logs a visited page.
func (p *Profile) AddPage(url, title, description string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data.Pages = append(p.data.Pages, Page{
		URL:         url,
		Summary:     PageSummary{Title: title, Description: description, UserInputs: []string{}},
		Credentials: []string{},
	})
}

// UpsertAPICall replaces the call with the same endpoint and method, or
// appends it.
func (p *Profile) UpsertAPICall(call APICall) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if call.Timestamp.IsZero() {
		call.Timestamp = p.now()
	}
	for i, existing := range p.data.APICalls {
		if existing.Endpoint == call.Endpoint && existing.Method == call.Method {
			p.data.APICalls[i] = call
			return
		}
	}
	p.data.APICalls = append(p.data.APICalls, call)
}

// SetCookies replaces the cookie jar snapshot.
func (p *Profile) SetCookies(cookies map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data.Cookies = make(map[string]string, len(cookies))
	for k, v := range cookies {
		p.data.Cookies[k] = v
	}
}

// SetServerInfo replaces the server details.
func (p *Profile) SetServerInfo(info map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data.ServerInfo = make(map[string]interface{}, len(info))
	for k, v := range info {
		p.data.ServerInfo[k] = v
	}
}

// EndpointSummary aggregates API calls by endpoint.
type EndpointSummary struct {
	Endpoint string   `json:"endpoint"`
	Count    int      `json:"count"`
	Methods  []string `json:"methods"`
}

// Summary is a compact view of a profile.
type Summary struct {
	Domain           string                 `json:"domain"`
	PagesVisited     int                    `json:"pages_visited"`
	APICalls         int                    `json:"api_calls"`
	NavigationEvents int                    `json:"navigation_events"`
	Cookies          int                    `json:"cookies"`
	RecentPages      []string               `json:"recent_pages,omitempty"`
	Endpoints        []EndpointSummary      `json:"api_summary,omitempty"`
	ServerInfo       map[string]interface{} `json:"server_info,omitempty"`
}

// Summary returns counts, the last five pages and per-endpoint totals.
func (p *Profile) Summary() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Summary{
		Domain:           p.data.Domain,
		PagesVisited:     len(p.data.Pages),
		APICalls:         len(p.data.APICalls),
		NavigationEvents: len(p.data.Navigation),
		Cookies:          len(p.data.Cookies),
	}
	pages := p.data.Pages
	if len(pages) > 5 {
		pages = pages[len(pages)-5:]
	}
	for _, pg := range pages {
		s.RecentPages = append(s.RecentPages, pg.URL)
	}

	byEndpoint := map[string]*EndpointSummary{}
	var order []string
	for _, c := range p.data.APICalls {
		es, ok := byEndpoint[c.Endpoint]
		if !ok {
			es = &EndpointSummary{Endpoint: c.Endpoint}
			byEndpoint[c.Endpoint] = es
			order = append(order, c.Endpoint)
		}
		es.Count++
		if !contains(es.Methods, c.Method) {
			es.Methods = append(es.Methods, c.Method)
		}
	}
	for _, ep := range order {
		sort.Strings(byEndpoint[ep].Methods)
		s.Endpoints = append(s.Endpoints, *byEndpoint[ep])
	}
	if len(p.data.ServerInfo) > 0 {
		s.ServerInfo = p.data.ServerInfo
	}
	return s
}

// Snapshot returns a copy of the profile document.
func (p *Profile) Snapshot() Data {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.data
	d.APICalls = append([]APICall(nil), p.data.APICalls...)
	d.Pages = append([]Page(nil), p.data.Pages...)
	d.Navigation = append([]Navigation(nil), p.data.Navigation...)
	return d
}

// MaybeSave saves when the interval has passed since the last save. It
// reports whether a save happened.
func (p *Profile) MaybeSave() (bool, error) {
	p.mu.Lock()
	due := p.now().Sub(p.lastSave) >= p.interval
	p.mu.Unlock()
	if !due {
		return false, nil
	}
	return true, p.Save()
}

// Save writes the profile to Path as indented JSON.
func (p *Profile) Save() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := json.MarshalIndent(p.data, "", "    ")
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", p.data.Domain, err)
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("create profile directory: %w", err)
	}
	if err := os.WriteFile(p.Path(), data, 0o644); err != nil {
		return fmt.Errorf("write profile %s: %w", p.data.Domain, err)
	}
	p.lastSave = p.now()
	return nil
}

// Load reads a saved profile document.
func Load(path string) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Data{}, err
	}
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return Data{}, fmt.Errorf("decode profile %s: %w", path, err)
	}
	return d, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
