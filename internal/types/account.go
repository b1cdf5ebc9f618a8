package types

import (
	"strings"
)

// hostPrefixes are the profile URL forms accepted for an account, checked
// after the scheme has been stripped
var hostPrefixes = []string{
	"www.x.com/",
	"mobile.x.com/",
	"x.com/",
	"www.twitter.com/",
	"mobile.twitter.com/",
	"twitter.com/",
}

// NormalizeHandle reduces a bare handle, an @handle or a full profile URL
// on either x.com or twitter.com to the bare handle.
func NormalizeHandle(account string) string {
	s := strings.TrimSpace(account)

	lower := strings.ToLower(s)
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(lower, scheme) {
			s = s[len(scheme):]
			lower = lower[len(scheme):]
			break
		}
	}

	for _, prefix := range hostPrefixes {
		if strings.HasPrefix(lower, prefix) {
			s = s[len(prefix):]
			break
		}
	}

	s = strings.TrimPrefix(s, "@")

	// Drop trailing path, query or fragment (e.g. /status/123, ?lang=en)
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}

	return s
}

// NormalizeHandles normalizes a list of accounts, dropping blanks and
// duplicates while keeping the first occurrence order.
func NormalizeHandles(accounts []string) []string {
	seen := make(map[string]bool, len(accounts))
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		h := NormalizeHandle(a)
		if h == "" {
			continue
		}
		key := strings.ToLower(h)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, h)
	}
	return out
}
