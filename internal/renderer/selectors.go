package renderer

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultReadySelector matches the generic content and footer regions.
const DefaultReadySelector = ".tpc, footer, .footer, .footer-bottom"

// SelectorRule overrides the readiness selector for URLs matching Match, a
// regular expression applied to the full URL string.
type SelectorRule struct {
	Match    string `mapstructure:"match"`
	Selector string `mapstructure:"selector"`
}

type compiledRule struct {
	re       *regexp.Regexp
	selector string
}

// Selectors picks the readiness selector for a URL. The first matching
// override wins; otherwise the default applies.
type Selectors struct {
	fallback string
	rules    []compiledRule
}

// NewSelectors compiles the override table.
func NewSelectors(fallback string, rules []SelectorRule) (*Selectors, error) {
	fallback = strings.TrimSpace(fallback)
	if fallback == "" {
		fallback = DefaultReadySelector
	}
	s := &Selectors{fallback: fallback}
	for i, r := range rules {
		sel := strings.TrimSpace(r.Selector)
		if sel == "" {
			return nil, fmt.Errorf("selector override %d: empty selector", i)
		}
		re, err := regexp.Compile(r.Match)
		if err != nil {
			return nil, fmt.Errorf("selector override %d: compile %q: %w", i, r.Match, err)
		}
		s.rules = append(s.rules, compiledRule{re: re, selector: sel})
	}
	return s, nil
}

// For returns the selector to wait on for href.
func (s *Selectors) For(href string) string {
	if s == nil {
		return DefaultReadySelector
	}
	for _, r := range s.rules {
		if r.re.MatchString(href) {
			return r.selector
		}
	}
	return s.fallback
}
