// Package scope decides which discovered URLs belong to a crawl. The
// registrable domain is derived once from the seed host and then compared
// verbatim against every candidate link, optionally narrowed by a per-domain
// allow rule.
package scope

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// ErrNoRegistrableDomain is returned when a hostname has no public-suffix
// aware registrable domain (bare suffixes, IP literals, empty input).
var ErrNoRegistrableDomain = errors.New("no registrable domain")

// Resolve returns the registrable domain (eTLD+1) of hostname, e.g.
// "example.co.uk" for "shop.example.co.uk". Internationalized names resolve
// to their punycode form, matching the hosts a browser reports.
func Resolve(hostname string) (string, error) {
	host := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(hostname)), ".")
	if host == "" {
		return "", fmt.Errorf("resolve %q: %w", hostname, ErrNoRegistrableDomain)
	}
	host, err := punycode(host)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", hostname, err)
	}
	if net.ParseIP(strings.Trim(host, "[]")) != nil {
		return "", fmt.Errorf("resolve %q: ip literal: %w", hostname, ErrNoRegistrableDomain)
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w: %w", hostname, ErrNoRegistrableDomain, err)
	}
	return domain, nil
}

// punycode converts a non-ASCII hostname to its ASCII form. ASCII input is
// returned as is.
func punycode(host string) (string, error) {
	for i := 0; i < len(host); i++ {
		if host[i] >= 0x80 {
			ascii, err := idna.Lookup.ToASCII(host)
			if err != nil {
				return "", fmt.Errorf("idna: %w", err)
			}
			return strings.ToLower(ascii), nil
		}
	}
	return host, nil
}

// Predicate reports whether an in-domain URL may enter the frontier.
type Predicate func(u *url.URL) bool

// AllowAll admits every URL.
func AllowAll(*url.URL) bool { return true }

// Rule restricts admission for one registrable domain to paths containing at
// least one of PathContains.
type Rule struct {
	Domain       string   `mapstructure:"domain"`
	PathContains []string `mapstructure:"path_contains"`
}

// Predicate builds the matcher for r.
func (r Rule) Predicate() Predicate {
	segments := make([]string, 0, len(r.PathContains))
	for _, s := range r.PathContains {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return AllowAll
	}
	return func(u *url.URL) bool {
		path := u.EscapedPath()
		for _, s := range segments {
			if strings.Contains(path, s) {
				return true
			}
		}
		return false
	}
}

// Rules maps a registrable domain to its allow predicate.
type Rules map[string]Predicate

// NewRules indexes rules by lower-cased, punycode domain. Later rules for the
// same domain replace earlier ones.
func NewRules(rules []Rule) Rules {
	out := make(Rules, len(rules))
	for _, r := range rules {
		domain := strings.ToLower(strings.TrimSpace(r.Domain))
		if domain == "" {
			continue
		}
		if ascii, err := punycode(domain); err == nil {
			domain = ascii
		}
		out[domain] = r.Predicate()
	}
	return out
}

// For returns the predicate registered for domain, or AllowAll.
func (r Rules) For(domain string) Predicate {
	if p, ok := r[strings.ToLower(domain)]; ok && p != nil {
		return p
	}
	return AllowAll
}
