package config

import "github.com/JakeFAU/site-mirror/internal/scope"

func scopeRule(domain string, segments ...string) scope.Rule {
	return scope.Rule{Domain: domain, PathContains: segments}
}
