package core

import (
	"context"
	"net/http"

	"github.com/rafabd1/Tendril/internal/config"
	"github.com/rafabd1/Tendril/internal/networking"
	"github.com/rafabd1/Tendril/internal/utils"
)

// ExistenceProbe is the outcome of resolving one candidate page. URL carries
// the base the chain ended on, not intermediate redirect hops.
type ExistenceProbe struct {
	URL    string
	Exists bool
}

// ExistenceResolver determines whether candidate pages are reachable,
// following redirects up to a bounded depth.
type ExistenceResolver struct {
	client       *networking.Client
	maxRedirects int
	logger       utils.Logger
}

// NewExistenceResolver creates a resolver bound to the campaign's redirect
// budget.
func NewExistenceResolver(cfg *config.Config, client *networking.Client, logger utils.Logger) *ExistenceResolver {
	if logger == nil {
		logger = &utils.NoOpLogger{}
	}
	return &ExistenceResolver{
		client:       client,
		maxRedirects: cfg.MaxRedirects,
		logger:       logger,
	}
}

// Resolve probes a URL with HEAD requests, walking redirects as a bounded
// loop over (base, path, depth) state:
//
//   - 302 keeps the current base and takes the Location header as the new
//     path component appended to it.
//   - 301 replaces the base entirely with the Location header and clears
//     the path.
//   - 200 terminates with exists true, every other status with exists false.
//
// Transport failures and exhausted redirect budgets both terminate with
// exists false; neither is escalated to the caller.
func (r *ExistenceResolver) Resolve(ctx context.Context, candidateURL string) ExistenceProbe {
	currentBase := candidateURL
	currentPath := ""

	for depth := 0; ; depth++ {
		if depth > r.maxRedirects {
			r.logger.Warnf("[Resolver] Max redirects reached for %s", currentBase)
			return ExistenceProbe{URL: currentBase, Exists: false}
		}

		probeURL := utils.JoinURLPath(currentBase, currentPath)
		r.logger.Debugf("[Resolver] Checking %s (base: %s, depth: %d)", probeURL, currentBase, depth)

		resp := r.client.Head(ctx, probeURL)
		if resp.Error != nil {
			r.logger.Debugf("[Resolver] Probe of %s failed: %v", probeURL, resp.Error)
			return ExistenceProbe{URL: currentBase, Exists: false}
		}

		switch resp.StatusCode {
		case http.StatusFound:
			currentPath = resp.Headers.Get("Location")
		case http.StatusMovedPermanently:
			currentBase = resp.Headers.Get("Location")
			currentPath = ""
		default:
			return ExistenceProbe{URL: currentBase, Exists: resp.StatusCode == http.StatusOK}
		}
	}
}
