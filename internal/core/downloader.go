package core

import (
	"context"
	"errors"

	"github.com/rafabd1/Tendril/internal/config"
	"github.com/rafabd1/Tendril/internal/networking"
	"github.com/rafabd1/Tendril/internal/utils"
)

// PageFetch is the outcome of retrieving one page. A failed fetch carries no
// HTML; the two fields are never partially populated.
type PageFetch struct {
	URL       string
	HTML      string
	Succeeded bool
}

// Site groups the downloaded pages of one origin.
type Site struct {
	OriginURL string
	Pages     []PageFetch
}

// PageRenderer is the collaborator that turns a URL into rendered page
// source. Implemented by networking.ChromeRenderer.
type PageRenderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// DownloadPool retrieves rendered HTML for batches of page URLs over a
// bounded worker pool. Page failures are isolated: a timeout or render
// problem on one URL never affects its siblings.
type DownloadPool struct {
	renderer PageRenderer
	workers  int
	logger   utils.Logger
}

// NewDownloadPool creates a DownloadPool sized by the campaign concurrency.
func NewDownloadPool(cfg *config.Config, renderer PageRenderer, logger utils.Logger) *DownloadPool {
	if logger == nil {
		logger = &utils.NoOpLogger{}
	}
	return &DownloadPool{
		renderer: renderer,
		workers:  cfg.Concurrency,
		logger:   logger,
	}
}

// FetchAll fetches every page. The returned slice holds exactly one
// PageFetch per input URL, in no particular order; correlate by URL. A
// non-nil error reports a fatal worker failure, in which case the slice is
// still complete, with the affected pages marked failed. Zero input URLs
// return an empty slice without dispatching any task.
func (p *DownloadPool) FetchAll(ctx context.Context, pages []string) ([]PageFetch, error) {
	if len(pages) == 0 {
		return []PageFetch{}, nil
	}

	p.logger.Debugf("[Downloader] Fetching %d pages", len(pages))

	tasks := make([]utils.Task, 0, len(pages))
	for _, pageURL := range pages {
		pageURL := pageURL
		tasks = append(tasks, func(taskCtx context.Context) (interface{}, error) {
			p.logger.Infof("[Downloader] Downloading page: %s", pageURL)
			html, err := p.renderer.Render(taskCtx, pageURL)
			if err != nil {
				if errors.Is(err, networking.ErrRenderTimeout) {
					p.logger.Warnf("[Downloader] Timeout downloading page: %s", pageURL)
				} else {
					p.logger.Warnf("[Downloader] Failed downloading page %s: %v", pageURL, err)
				}
				return PageFetch{URL: pageURL}, nil
			}
			return PageFetch{URL: pageURL, HTML: html, Succeeded: true}, nil
		})
	}

	results := utils.RunTasks(ctx, p.workers, 0, p.logger, tasks)

	fetches := make([]PageFetch, 0, len(pages))
	var fatal error
	for _, result := range results {
		if fetch, ok := result.Value.(PageFetch); ok {
			fetches = append(fetches, fetch)
			continue
		}
		if result.Err != nil && errors.Is(result.Err, utils.ErrTaskPanic) && fatal == nil {
			fatal = result.Err
		}
	}

	// A crashed task produces no identifiable result. Fill the gap so every
	// input URL still resolves into the aggregate, as a failed fetch.
	delivered := make(map[string]int, len(fetches))
	for _, fetch := range fetches {
		delivered[fetch.URL]++
	}
	for _, pageURL := range pages {
		if delivered[pageURL] > 0 {
			delivered[pageURL]--
			continue
		}
		fetches = append(fetches, PageFetch{URL: pageURL})
	}

	return fetches, fatal
}
