package tools

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// HostGuard decides which hosts NavigateURL may open. Denied patterns take
// precedence; an empty allow list allows every host that is not denied.
type HostGuard struct {
	allowed []glob.Glob
	denied  []glob.Glob
}

// NewHostGuard compiles host patterns such as "*.internal" or "localhost".
func NewHostGuard(allowed, denied []string) (*HostGuard, error) {
	g := &HostGuard{}
	for _, pattern := range allowed {
		c, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid allowed host pattern '%s': %w", pattern, err)
		}
		g.allowed = append(g.allowed, c)
	}
	for _, pattern := range denied {
		c, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid blocked host pattern '%s': %w", pattern, err)
		}
		g.denied = append(g.denied, c)
	}
	return g, nil
}

// Allows reports whether rawURL may be opened. Only http and https URLs with
// a host pass; a nil guard allows every such URL.
func (g *HostGuard) Allows(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" || !isWebScheme(u.Scheme) {
		return false
	}
	if g == nil {
		return true
	}
	host := strings.ToLower(u.Hostname())

	for _, p := range g.denied {
		if p.Match(host) {
			return false
		}
	}
	if len(g.allowed) == 0 {
		return true
	}
	for _, p := range g.allowed {
		if p.Match(host) {
			return true
		}
	}
	return false
}

func isWebScheme(scheme string) bool {
	return scheme == "http" || scheme == "https"
}

// webScheme reports whether rawURL uses http or https.
func webScheme(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && isWebScheme(u.Scheme)
}
