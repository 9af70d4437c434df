package core

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/rafabd1/Tendril/internal/config"
	"github.com/rafabd1/Tendril/internal/networking"
	"github.com/rafabd1/Tendril/internal/utils"
)

// resultHeadingSelector matches the result-heading elements on a search
// result page. The selector is a fixed contract with the markup version the
// harvester targets.
const resultHeadingSelector = "h3.r"

// SearchTask identifies one paginated search query. Immutable; created by
// the scheduler when expanding the campaign's page range.
type SearchTask struct {
	City       string
	Keyword    string
	PageNumber int
}

// SearchTerm derives the query text sent to the search engine.
func (t SearchTask) SearchTerm() string {
	return fmt.Sprintf("%s in %s", t.Keyword, t.City)
}

// BuildURL forms the paginated query URL for this task.
func (t SearchTask) BuildURL(baseURL string) string {
	params := url.Values{}
	params.Set("q", t.SearchTerm())
	params.Set("gl", "us")
	params.Set("hl", "en")
	params.Set("start", strconv.Itoa(t.PageNumber))
	params.Set("sa", "N")
	return baseURL + "?" + params.Encode()
}

// SearchResult holds the outcome of one search query: the provenance fields
// of its task, the observed status code, and the deduplicated site origins
// extracted from the result page. Construct with NewSearchResult; the value
// is immutable, link removal produces a new value.
type SearchResult struct {
	City       string
	Keyword    string
	SearchTerm string
	PageNumber int
	StatusCode int

	links   []string
	linkSet map[string]struct{}
}

// NewSearchResult builds a SearchResult, deduplicating links while keeping
// their first-seen order.
func NewSearchResult(task SearchTask, statusCode int, links []string) SearchResult {
	result := SearchResult{
		City:       task.City,
		Keyword:    task.Keyword,
		SearchTerm: task.SearchTerm(),
		PageNumber: task.PageNumber,
		StatusCode: statusCode,
		linkSet:    make(map[string]struct{}, len(links)),
	}
	for _, link := range links {
		if _, seen := result.linkSet[link]; seen {
			continue
		}
		result.linkSet[link] = struct{}{}
		result.links = append(result.links, link)
	}
	return result
}

// IsValid reports whether the query itself succeeded.
func (r SearchResult) IsValid() bool {
	return r.StatusCode == http.StatusOK
}

// Links returns the extracted origins in discovery order.
func (r SearchResult) Links() []string {
	out := make([]string, len(r.links))
	copy(out, r.links)
	return out
}

// Count returns the number of distinct origins.
func (r SearchResult) Count() int {
	return len(r.links)
}

// HasLink reports whether link is present in the result.
func (r SearchResult) HasLink(link string) bool {
	_, ok := r.linkSet[link]
	return ok
}

// WithoutLink returns a copy of the result with the given link removed.
// Removing an absent link logs a warning and returns the result unchanged.
func (r SearchResult) WithoutLink(link string, logger utils.Logger) SearchResult {
	if logger == nil {
		logger = &utils.NoOpLogger{}
	}
	if !r.HasLink(link) {
		logger.Warnf("Link not present in search result: %s", link)
		return r
	}
	remaining := make([]string, 0, len(r.links)-1)
	for _, l := range r.links {
		if l != link {
			remaining = append(remaining, l)
		}
	}
	logger.Debugf("Link removed from search result: %s", link)
	return NewSearchResult(SearchTask{City: r.City, Keyword: r.Keyword, PageNumber: r.PageNumber}, r.StatusCode, remaining)
}

// Fetcher performs paginated search queries and extracts site origins from
// the result markup.
type Fetcher struct {
	client  *networking.Client
	limiter *rate.Limiter
	baseURL string
	logger  utils.Logger
}

// NewFetcher creates a Fetcher. Queries are paced by a rate limiter so page
// fan-out does not hammer the search endpoint.
func NewFetcher(cfg *config.Config, client *networking.Client, logger utils.Logger) *Fetcher {
	if logger == nil {
		logger = &utils.NoOpLogger{}
	}
	return &Fetcher{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.SearchRatePerSec), 1),
		baseURL: cfg.SearchBaseURL,
		logger:  logger,
	}
}

// Fetch runs one search query. Any failure, transport or HTTP, yields a
// SearchResult with no links and the observed status code; the caller records
// it instead of aborting the campaign.
func (f *Fetcher) Fetch(ctx context.Context, task SearchTask) SearchResult {
	f.logger.Infof("[Search] Querying %q, page %d", task.SearchTerm(), task.PageNumber)

	if err := f.limiter.Wait(ctx); err != nil {
		f.logger.Debugf("[Search] Pacing wait aborted for %q page %d: %v", task.SearchTerm(), task.PageNumber, err)
		return NewSearchResult(task, 0, nil)
	}

	resp := f.client.Get(ctx, task.BuildURL(f.baseURL))
	if resp.Error != nil {
		f.logger.Warnf("[Search] Query for %q page %d failed: %v", task.SearchTerm(), task.PageNumber, resp.Error)
		return NewSearchResult(task, 0, nil)
	}
	if resp.StatusCode != http.StatusOK {
		f.logger.Errorf("[Search] Query for %q page %d returned status %d, no links extracted", task.SearchTerm(), task.PageNumber, resp.StatusCode)
		return NewSearchResult(task, resp.StatusCode, nil)
	}

	links := f.extractResultLinks(resp.Body)
	f.logger.Infof("[Search] Extracted %d links for %q, page %d", len(links), task.SearchTerm(), task.PageNumber)
	return NewSearchResult(task, resp.StatusCode, links)
}

// extractResultLinks pulls the first anchor of every result heading and
// normalizes its target to an origin. Headings without a usable anchor and
// links that do not parse are skipped.
func (f *Fetcher) extractResultLinks(body []byte) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		f.logger.Warnf("[Search] Failed to parse result page: %v", err)
		return nil
	}

	var links []string
	doc.Find(resultHeadingSelector).Each(func(_ int, heading *goquery.Selection) {
		href, ok := heading.Find("a").First().Attr("href")
		if !ok {
			return
		}
		origin, err := utils.NormalizeToOrigin(href)
		if err != nil {
			f.logger.Debugf("[Search] Discarding link %q: %v", href, err)
			return
		}
		links = append(links, origin)
	})
	return links
}
