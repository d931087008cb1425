package core

import (
	"net/url"
	"strings"
	"unicode"
)

const (
	// DefaultSearchURL is the query prefix used for search-like input.
	DefaultSearchURL = "https://www.google.com/search?q="
	// PlaceholderTitle is shown for tabs that have not navigated yet.
	PlaceholderTitle = "New Tab"
	// FallbackTitle is shown when a target has no usable host.
	FallbackTitle = "Page"
)

// NormalizeURL turns address bar input into a navigation target.
//
// This is a three-way heuristic, not a URL grammar:
//   - input starting with http:// or https:// is used as is
//   - input containing a '.' and no whitespace is treated as a bare host and gets https://
//   - anything else is a search query, with spaces replaced by '+'
func NormalizeURL(input, searchURL string) string {
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return input
	}
	if strings.Contains(input, ".") && strings.IndexFunc(input, unicode.IsSpace) == -1 {
		return "https://" + input
	}
	return searchURL + strings.ReplaceAll(input, " ", "+")
}

// TitleFor derives a tab title from a target URL. Targets without a host get FallbackTitle.
func TitleFor(target string) string {
	parsed, err := url.Parse(target)
	if err != nil {
		return FallbackTitle
	}
	host := parsed.Hostname()
	if host == "" {
		return FallbackTitle
	}
	return host
}
