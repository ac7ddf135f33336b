// Package links narrows the anchors found on a rendered page down to the
// in-scope URLs that may enter the frontier.
package links

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-mirror/internal/frontier"
	"github.com/JakeFAU/site-mirror/internal/scope"
)

// Offerer is the part of the frontier the filter feeds.
type Offerer interface {
	Offer(u *url.URL) bool
}

// Result tallies one batch of hrefs.
type Result struct {
	Seen     int
	Admitted int
	Rejected int
	Errors   int
}

// Filter applies the scope checks for one crawl.
type Filter struct {
	domain string
	allow  scope.Predicate
	logger *zap.Logger
}

// NewFilter returns a filter admitting links whose host equals domain and
// which satisfy allow. A nil allow admits everything in-domain.
func NewFilter(domain string, allow scope.Predicate, logger *zap.Logger) *Filter {
	if allow == nil {
		allow = scope.AllowAll
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{domain: domain, allow: allow, logger: logger}
}

// Normalize strips the first "www." occurrence anywhere in raw, parses it as
// an absolute URL and clears the fragment. The substring removal is not host
// aware: "https://example.com/www.page" loses the "www." in its path too.
func Normalize(raw string) (*url.URL, error) {
	u, err := frontier.Canonicalize(strings.Replace(raw, "www.", "", 1))
	if err != nil {
		return nil, fmt.Errorf("normalize %q: %w", raw, err)
	}
	return u, nil
}

// Admit reports whether u is in scope. The comparison is against u.Host, so a
// link carrying an explicit non-default port never matches a bare domain.
func (f *Filter) Admit(u *url.URL) bool {
	if u == nil || u.Hostname() == "" {
		return false
	}
	if u.Host != f.domain {
		return false
	}
	return f.allow(u)
}

// Apply normalizes every href, offers the in-scope ones to dst and returns the
// tallies. Malformed hrefs are logged and skipped.
func (f *Filter) Apply(hrefs []string, dst Offerer) Result {
	var res Result
	for _, raw := range hrefs {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		res.Seen++
		u, err := Normalize(raw)
		if err != nil {
			res.Errors++
			f.logger.Warn("Failed to process link", zap.String("href", raw), zap.Error(err))
			continue
		}
		if !f.Admit(u) {
			res.Rejected++
			continue
		}
		if dst.Offer(u) {
			res.Admitted++
		}
	}
	return res
}
