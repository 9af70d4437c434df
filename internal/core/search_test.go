package core

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafabd1/Tendril/internal/config"
	"github.com/rafabd1/Tendril/internal/networking"
)

func searchFetcher(t *testing.T, baseURL string) *Fetcher {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.SearchBaseURL = baseURL
	cfg.SearchRatePerSec = 1000
	cfg.RequestTimeout = 2 * time.Second

	client, err := networking.NewClient(cfg, nil)
	require.NoError(t, err)
	return NewFetcher(cfg, client, nil)
}

func TestSearchTaskSearchTerm(t *testing.T) {
	task := SearchTask{City: "Austin", Keyword: "plumber", PageNumber: 10}
	assert.Equal(t, "plumber in Austin", task.SearchTerm())
}

func TestSearchTaskBuildURL(t *testing.T) {
	task := SearchTask{City: "Austin", Keyword: "plumber", PageNumber: 10}

	built, err := url.Parse(task.BuildURL("https://search.example.com/search"))
	require.NoError(t, err)

	assert.Equal(t, "https://search.example.com/search", built.Scheme+"://"+built.Host+built.Path)
	params := built.Query()
	assert.Equal(t, "plumber in Austin", params.Get("q"))
	assert.Equal(t, "us", params.Get("gl"))
	assert.Equal(t, "en", params.Get("hl"))
	assert.Equal(t, "10", params.Get("start"))
	assert.Equal(t, "N", params.Get("sa"))
}

func TestNewSearchResultDeduplicatesLinks(t *testing.T) {
	task := SearchTask{City: "Austin", Keyword: "plumber", PageNumber: 0}
	result := NewSearchResult(task, http.StatusOK, []string{
		"https://alpha.example.com",
		"https://beta.example.com",
		"https://alpha.example.com",
	})

	assert.Equal(t, []string{"https://alpha.example.com", "https://beta.example.com"}, result.Links())
	assert.Equal(t, 2, result.Count())
	assert.True(t, result.HasLink("https://beta.example.com"))
	assert.False(t, result.HasLink("https://gamma.example.com"))
	assert.True(t, result.IsValid())
	assert.Equal(t, "plumber in Austin", result.SearchTerm)
}

func TestSearchResultLinksReturnsCopy(t *testing.T) {
	task := SearchTask{City: "Austin", Keyword: "plumber", PageNumber: 0}
	result := NewSearchResult(task, http.StatusOK, []string{"https://alpha.example.com"})

	links := result.Links()
	links[0] = "https://mutated.example.com"

	assert.Equal(t, []string{"https://alpha.example.com"}, result.Links())
}

func TestSearchResultWithoutLink(t *testing.T) {
	task := SearchTask{City: "Austin", Keyword: "plumber", PageNumber: 0}
	result := NewSearchResult(task, http.StatusOK, []string{
		"https://alpha.example.com",
		"https://beta.example.com",
	})

	trimmed := result.WithoutLink("https://alpha.example.com", nil)
	assert.Equal(t, []string{"https://beta.example.com"}, trimmed.Links())
	assert.Equal(t, result.StatusCode, trimmed.StatusCode)
	assert.Equal(t, result.SearchTerm, trimmed.SearchTerm)

	unchanged := result.WithoutLink("https://absent.example.com", nil)
	assert.Equal(t, result.Links(), unchanged.Links())
}

func TestFetchExtractsOriginsFromResultPage(t *testing.T) {
	page := `<html><body>
		<h3 class="r"><a href="https://alpha.example.com/services">Alpha Plumbing</a></h3>
		<h3 class="r"><a href="/url?q=https://beta.example.com/contact&amp;sa=U&amp;ved=abc">Beta Pipes</a></h3>
		<h3 class="r"><span>No anchor here</span></h3>
		<h3 class="r"><a href="gamma.example.com/no-scheme">Broken</a></h3>
		<h3 class="r"><a href="https://alpha.example.com/reviews">Alpha again</a></h3>
	</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "plumber in Austin", r.URL.Query().Get("q"))
		assert.Equal(t, "0", r.URL.Query().Get("start"))
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	fetcher := searchFetcher(t, server.URL)
	result := fetcher.Fetch(context.Background(), SearchTask{City: "Austin", Keyword: "plumber", PageNumber: 0})

	assert.True(t, result.IsValid())
	assert.Equal(t, []string{"https://alpha.example.com/", "https://beta.example.com/"}, result.Links())
}

func TestFetchRecordsNon200Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := searchFetcher(t, server.URL)
	result := fetcher.Fetch(context.Background(), SearchTask{City: "Austin", Keyword: "plumber", PageNumber: 20})

	assert.False(t, result.IsValid())
	assert.Equal(t, http.StatusServiceUnavailable, result.StatusCode)
	assert.Zero(t, result.Count())
	assert.Equal(t, 20, result.PageNumber)
}

func TestFetchRecordsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	fetcher := searchFetcher(t, server.URL)
	result := fetcher.Fetch(context.Background(), SearchTask{City: "Austin", Keyword: "plumber", PageNumber: 0})

	assert.False(t, result.IsValid())
	assert.Zero(t, result.StatusCode)
	assert.Zero(t, result.Count())
}
