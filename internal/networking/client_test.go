package networking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafabd1/Tendril/internal/config"
	"github.com/rafabd1/Tendril/internal/utils"
)

func testClient(t *testing.T, mutate func(*config.Config)) *Client {
	t.Helper()
	cfg := config.GetDefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	client, err := NewClient(cfg, nil)
	require.NoError(t, err)
	return client
}

func TestHeadDoesNotFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/contact" {
			w.Header().Set("Location", "/contact-final")
			w.WriteHeader(http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := testClient(t, nil)
	resp := client.Head(context.Background(), server.URL+"/contact")

	require.NoError(t, resp.Error)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/contact-final", resp.Headers.Get("Location"))
}

func TestGetFollowsRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/landed", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("landed"))
	}))
	defer server.Close()

	client := testClient(t, nil)
	resp := client.Get(context.Background(), server.URL+"/start")

	require.NoError(t, resp.Error)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "landed", string(resp.Body))
}

func TestRequestsCarryBrowserHeaders(t *testing.T) {
	var gotUserAgent, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := testClient(t, nil)
	resp := client.Get(context.Background(), server.URL)

	require.NoError(t, resp.Error)
	assert.Equal(t, utils.DefaultBrowserUserAgent, gotUserAgent)
	assert.Equal(t, utils.DefaultAcceptHeader, gotAccept)
}

func TestCustomHeadersOverrideDefaults(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := testClient(t, nil)
	headers := make(http.Header)
	headers.Set("User-Agent", "probe-override/2.0")
	resp := client.PerformRequest(ClientRequestData{
		URL:     server.URL,
		Method:  http.MethodGet,
		Headers: headers,
	})

	require.NoError(t, resp.Error)
	assert.Equal(t, "probe-override/2.0", gotUserAgent)
}

func TestTransportFailureSetsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := testClient(t, nil)
	resp := client.Head(context.Background(), server.URL)

	assert.Error(t, resp.Error)
	assert.Zero(t, resp.StatusCode)
}

func TestRequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := testClient(t, func(c *config.Config) { c.RequestTimeout = 100 * time.Millisecond })
	start := time.Now()
	resp := client.Get(context.Background(), server.URL)

	assert.Error(t, resp.Error)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestNewClientRejectsBadProxy(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Proxy = "http://"
	_, err := NewClient(cfg, nil)
	assert.Error(t, err)
}
