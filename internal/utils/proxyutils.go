package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseProxyURL parses a proxy string in [scheme://][user:pass@]host:port
// form into a URL usable by both the HTTP transport and the browser
// --proxy-server flag. The scheme defaults to http when absent.
func ParseProxyURL(proxyInput string) (*url.URL, error) {
	trimmed := strings.TrimSpace(proxyInput)
	if trimmed == "" {
		return nil, nil
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}

	parsedURL, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse proxy '%s': %w", proxyInput, err)
	}
	if parsedURL.Hostname() == "" {
		return nil, fmt.Errorf("proxy '%s' has no host", proxyInput)
	}

	return parsedURL, nil
}
