// Package urlscope resolves link references and decides whether a URL
// belongs to the crawl's target domain.
package urlscope

import (
	"fmt"
	"net/url"
	"strings"
)

// Domain returns the host component (including any port) of a start URL.
// It is the scope boundary for every later InScope decision.
func Domain(startURL string) (string, error) {
	u, err := url.Parse(startURL)
	if err != nil {
		return "", fmt.Errorf("invalid start URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("start URL %q must be absolute", startURL)
	}
	return u.Host, nil
}

// Resolve merges a possibly relative reference onto base following
// RFC 3986 reference resolution. Absolute, scheme-relative, path-relative
// and fragment-only references are all accepted. The reference is cleaned
// first: surrounding whitespace and control characters are trimmed, embedded
// tabs and newlines are removed, and a '%' that does not start a valid escape
// is encoded as %25.
func Resolve(base *url.URL, rawHref string) (*url.URL, error) {
	href := cleanReference(rawHref)
	ref, err := url.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("invalid reference %q: %w", rawHref, err)
	}
	return base.ResolveReference(ref), nil
}

var newlineStripper = strings.NewReplacer("\t", "", "\r", "", "\n", "")

func cleanReference(href string) string {
	href = strings.TrimFunc(href, func(r rune) bool { return r <= ' ' })
	href = newlineStripper.Replace(href)
	return escapeStrayPercents(href)
}

func escapeStrayPercents(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && (i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2])) {
			b.WriteString("%25")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// InScope reports whether candidate has a scheme, a host, and a host that
// equals domain exactly. Subdomains do not match and no normalization of
// case, trailing slashes or query strings takes place.
func InScope(candidate *url.URL, domain string) bool {
	if candidate == nil {
		return false
	}
	return candidate.Scheme != "" && candidate.Host != "" && candidate.Host == domain
}

// InScopeString is InScope for an unparsed URL. Unparseable input is out of scope.
func InScopeString(candidate, domain string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	return InScope(u, domain)
}
