package networking

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/rafabd1/Tendril/internal/config"
	"github.com/rafabd1/Tendril/internal/utils"
)

// Client manages the plain HTTP side of a campaign: search queries and
// existence probes. Probes must observe raw 301/302 responses, so the client
// keeps two modes, one that follows redirects and one that returns the
// redirect response itself.
type Client struct {
	baseClient   *http.Client
	followClient *http.Client
	logger       utils.Logger
	userAgent    string
}

// ClientRequestData encapsulates all necessary data for making a request.
type ClientRequestData struct {
	Ctx             context.Context
	URL             string
	Method          string
	Headers         http.Header
	FollowRedirects bool
}

// ClientResponseData holds the outcome of an HTTP request. A transport-level
// failure leaves StatusCode zero and sets Error; an HTTP response of any
// status is not an error.
type ClientResponseData struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Error      error
}

// NewClient creates a new HTTP Client from the campaign configuration.
func NewClient(cfg *config.Config, logger utils.Logger) (*Client, error) {
	if logger == nil {
		logger = &utils.NoOpLogger{}
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	if cfg.Proxy != "" {
		proxyURL, err := utils.ParseProxyURL(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		if proxyURL != nil {
			transport.Proxy = http.ProxyURL(proxyURL)
			logger.Debugf("Routing HTTP traffic through proxy %s", proxyURL.Redacted())
		}
	}

	// Some business sites gate content behind consent or session cookies
	// that arrive mid-redirect-chain.
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		logger:    logger,
		userAgent: cfg.UserAgent,
	}

	c.baseClient = &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   cfg.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	c.followClient = &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   cfg.RequestTimeout,
	}

	return c, nil
}

// PerformRequest executes an HTTP request based on the provided
// ClientRequestData. Browser-like headers are applied first, then any
// request-specific headers on top.
func (c *Client) PerformRequest(reqData ClientRequestData) ClientResponseData {
	var respData ClientResponseData

	ctx := reqData.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, reqData.Method, reqData.URL, nil)
	if err != nil {
		respData.Error = fmt.Errorf("failed to build request for %s: %w", reqData.URL, err)
		return respData
	}

	req.Header = utils.BrowserHeaders(c.userAgent)
	for key, values := range reqData.Headers {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	httpClient := c.baseClient
	if reqData.FollowRedirects {
		httpClient = c.followClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		respData.Error = fmt.Errorf("failed to execute %s %s: %w", reqData.Method, reqData.URL, err)
		if ctx.Err() == context.DeadlineExceeded {
			c.logger.Debugf("Request to %s hit its deadline", reqData.URL)
		}
		return respData
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		respData.Error = fmt.Errorf("failed to read response body for %s: %w", reqData.URL, err)
		return respData
	}

	respData.StatusCode = resp.StatusCode
	respData.Headers = resp.Header
	respData.Body = bodyBytes
	return respData
}

// Get issues a GET that follows redirects. Used for search result pages.
func (c *Client) Get(ctx context.Context, rawURL string) ClientResponseData {
	return c.PerformRequest(ClientRequestData{
		Ctx:             ctx,
		URL:             rawURL,
		Method:          http.MethodGet,
		FollowRedirects: true,
	})
}

// Head issues a HEAD that does not follow redirects, so the caller sees the
// 301/302 response itself. Used for existence probes.
func (c *Client) Head(ctx context.Context, rawURL string) ClientResponseData {
	return c.PerformRequest(ClientRequestData{
		Ctx:             ctx,
		URL:             rawURL,
		Method:          http.MethodHead,
		FollowRedirects: false,
	})
}
