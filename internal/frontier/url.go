package frontier

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// ErrNotAbsolute is returned for hrefs that lack a scheme or host.
var ErrNotAbsolute = errors.New("url is not absolute")

// Canonicalize parses raw the way a browser URL parser would for http(s)
// links: scheme and host are lower-cased, internationalized hosts are
// converted to punycode, default ports are dropped, dot segments are removed,
// an empty path becomes "/" and the fragment is cleared. The query is left
// untouched.
func Canonicalize(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("parse url %q: %w", raw, ErrNotAbsolute)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Host, err = asciiHost(u.Host); err != nil {
		return nil, fmt.Errorf("parse url %q: %w", raw, err)
	}
	switch {
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	if u.Host != "" && u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}
	if u.Opaque == "" && strings.Contains(u.Path, "/.") {
		resolved := u.ResolveReference(&url.URL{Path: u.Path, RawPath: u.RawPath, RawQuery: u.RawQuery})
		resolved.ForceQuery = u.ForceQuery
		u = resolved
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u, nil
}

// asciiHost lower-cases host and maps a non-ASCII hostname to its punycode
// form, keeping any port.
func asciiHost(host string) (string, error) {
	host = strings.ToLower(host)
	if isASCII(host) {
		return host, nil
	}
	name, port, err := net.SplitHostPort(host)
	if err != nil {
		name, port = host, ""
	}
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", fmt.Errorf("idna host %q: %w", name, err)
	}
	ascii = strings.ToLower(ascii)
	if port != "" {
		return net.JoinHostPort(ascii, port), nil
	}
	return ascii, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// VisitedKey is origin+pathname: scheme, host and escaped path with no query
// or fragment.
func VisitedKey(u *url.URL) string {
	return u.Scheme + "://" + u.Host + u.EscapedPath()
}

// Href is the full URL string used for pending-queue identity.
func Href(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return c.String()
}
