package utils

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Browser-like request headers. Search engines and some business sites serve
// reduced or blocked pages to clients that do not present these.
const (
	DefaultBrowserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_11_6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/54.0.2840.98 Safari/537.36"
	DefaultAcceptHeader     = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
)

// BrowserHeaders builds the header set sent on every outbound request.
// An empty userAgent falls back to DefaultBrowserUserAgent.
func BrowserHeaders(userAgent string) http.Header {
	if userAgent == "" {
		userAgent = DefaultBrowserUserAgent
	}
	headers := make(http.Header)
	headers.Set("User-Agent", userAgent)
	headers.Set("Accept", DefaultAcceptHeader)
	return headers
}

// SiteDomain extracts the bare domain of a site URL, without port or a
// leading "www." label. Used to match harvested mail addresses against the
// site they were found on.
func SiteDomain(urlString string) (string, error) {
	u, err := url.Parse(urlString)
	if err != nil {
		return "", err
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedURL, urlString)
	}
	return strings.TrimPrefix(host, "www."), nil
}
