package utils

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformedURL indicates a link that could not be reduced to an origin.
var ErrMalformedURL = errors.New("malformed url")

// redirectWrapperMarker is the prefix search engines wrap outbound result
// links with. Everything before and including the marker is discarded.
const redirectWrapperMarker = "/url?q="

// NormalizeToOrigin reduces a raw result link to its origin in the canonical
// form "scheme://host/". Links wrapped in a redirect marker are unwrapped
// first. Path, query and fragment are dropped, which also strips any tracking
// parameters appended after the wrapped target.
func NormalizeToOrigin(rawLink string) (string, error) {
	link := rawLink
	if idx := strings.Index(link, redirectWrapperMarker); idx != -1 {
		link = link[idx+len(redirectWrapperMarker):]
	}

	parsed, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrMalformedURL, rawLink, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedURL, rawLink)
	}

	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host) + "/", nil
}

// JoinURLPath concatenates a base URL and a relative path with exactly one
// slash between them, regardless of how either side is slashed.
func JoinURLPath(base, path string) string {
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// IsValidURL reports whether a string is an absolute URL with scheme and host.
func IsValidURL(rawURL string) bool {
	parsedURL, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return false
	}
	return parsedURL.Scheme != "" && parsedURL.Host != ""
}
