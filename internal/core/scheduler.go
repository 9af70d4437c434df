package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/rafabd1/Tendril/internal/config"
	"github.com/rafabd1/Tendril/internal/report"
	"github.com/rafabd1/Tendril/internal/utils"
)

// MailVerifier checks that an address belongs to a domain that can actually
// receive mail. Implemented by networking.MXVerifier.
type MailVerifier interface {
	VerifyAddress(mail string) bool
}

// ProgressReporter receives coarse campaign progress. StartPhase resets the
// counter for a new phase; Increment marks one unit done. Implementations
// must be safe for concurrent use.
type ProgressReporter interface {
	StartPhase(label string, total int)
	Increment()
}

// siteClaim pins a discovered origin to the search that first surfaced it.
// The claim's provenance becomes the site's report entry even when the same
// origin reappears under a later pair.
type siteClaim struct {
	origin  string
	keyword string
	city    string
	term    string
	page    int
}

// harvestOutcome carries one processed site's mails back through the pool,
// keyed by claim index so results can be reordered after the join.
type harvestOutcome struct {
	index int
	mails []string
}

// probeOutcome keys an existence probe by its candidate index.
type probeOutcome struct {
	index int
	probe ExistenceProbe
}

// Scheduler orchestrates the campaign. For every (keyword, city) pair it
// fans search tasks out over the page range, claims newly discovered sites
// against the shared processed-set, and harvests each claimed site on a
// bounded pool: candidate pages, existence probes, rendered downloads, mail
// extraction.
type Scheduler struct {
	config    *config.Config
	fetcher   *Fetcher
	resolver  *ExistenceResolver
	downloads *DownloadPool
	verifier  MailVerifier
	processed *ProcessedSet
	progress  ProgressReporter
	logger    utils.Logger
}

// NewScheduler creates a new Scheduler instance.
func NewScheduler(cfg *config.Config, fetcher *Fetcher, resolver *ExistenceResolver, downloads *DownloadPool, logger utils.Logger) *Scheduler {
	if logger == nil {
		logger = &utils.NoOpLogger{}
	}
	return &Scheduler{
		config:    cfg,
		fetcher:   fetcher,
		resolver:  resolver,
		downloads: downloads,
		processed: NewProcessedSet(),
		logger:    logger,
	}
}

// SetMailVerifier enables domain verification of harvested addresses.
func (s *Scheduler) SetMailVerifier(v MailVerifier) {
	s.verifier = v
}

// SetProgressReporter attaches a progress sink for the search and harvest
// phases. Passing nil disables progress reporting.
func (s *Scheduler) SetProgressReporter(p ProgressReporter) {
	s.progress = p
}

// Run executes the full campaign and returns one report entry per unique
// site processed, in discovery order. The returned error is non-nil when the
// run was interrupted or a task failed fatally (panic class); the entries
// are still valid as a best-effort report in either case.
func (s *Scheduler) Run(ctx context.Context) ([]report.Entry, error) {
	pairTotal := len(s.config.Keywords) * len(s.config.Cities)
	s.logger.Infof("[Scheduler] Starting campaign: %d keyword(s) x %d city(ies), pages %d-%d, %d search task(s) total",
		len(s.config.Keywords), len(s.config.Cities), s.config.StartPage, s.config.EndPage, s.config.TotalSearchTasks())
	s.logger.Debugf("[Scheduler] Concurrency level set to: %d", s.config.Concurrency)
	s.logger.Debugf("[Scheduler] Request timeout set to: %s", s.config.RequestTimeout.String())

	entries := make([]report.Entry, 0)
	var fatal error
	recordFatal := func(err error) {
		if err != nil && fatal == nil {
			fatal = err
		}
	}

	pairIndex := 0
	for _, keyword := range s.config.Keywords {
		for _, city := range s.config.Cities {
			pairIndex++
			term := SearchTask{City: city, Keyword: keyword}.SearchTerm()

			if ctx.Err() != nil {
				s.logger.Warnf("[Scheduler] Campaign interrupted before pair %d/%d (%q)", pairIndex, pairTotal, term)
				return entries, fmt.Errorf("campaign interrupted: %w", ctx.Err())
			}

			s.logger.Infof("[Scheduler] (%d/%d) Searching %q", pairIndex, pairTotal, term)
			results, searchFatal := s.searchPair(ctx, keyword, city, pairIndex, pairTotal)
			recordFatal(searchFatal)

			claims := s.claimSites(results)
			if len(claims) == 0 {
				s.logger.Infof("[Scheduler] No new sites discovered for %q", term)
				continue
			}
			s.logger.Infof("[Scheduler] Discovered %d new site(s) for %q", len(claims), term)

			if ctx.Err() != nil {
				s.logger.Warnf("[Scheduler] Campaign interrupted before harvesting %q", term)
				return entries, fmt.Errorf("campaign interrupted: %w", ctx.Err())
			}

			mailsByClaim, harvestFatal := s.harvestSites(ctx, pairIndex, pairTotal, claims)
			recordFatal(harvestFatal)

			for i, claim := range claims {
				entries = append(entries, report.NewEntry(claim.origin, claim.keyword, claim.city, claim.term, claim.page, mailsByClaim[i]))
			}
		}
	}

	s.logger.Infof("[Scheduler] Campaign finished: %d site(s) processed", len(entries))
	if fatal != nil {
		return entries, fmt.Errorf("campaign completed with fatal task failures: %w", fatal)
	}
	return entries, nil
}

// searchPair fans one search task per result page out over the pool and
// returns the collected results in page order. Pages whose task failed are
// absent from the slice; a panicking task is additionally reported as the
// second return value.
func (s *Scheduler) searchPair(ctx context.Context, keyword, city string, pairIndex, pairTotal int) ([]SearchResult, error) {
	pageCount := s.config.EndPage - s.config.StartPage + 1
	tasks := make([]utils.Task, 0, pageCount)
	for page := s.config.StartPage; page <= s.config.EndPage; page++ {
		task := SearchTask{City: city, Keyword: keyword, PageNumber: page}
		tasks = append(tasks, func(taskCtx context.Context) (interface{}, error) {
			result := s.fetcher.Fetch(taskCtx, task)
			if s.progress != nil {
				s.progress.Increment()
			}
			return result, nil
		})
	}

	if s.progress != nil {
		s.progress.StartPhase(fmt.Sprintf("Search %d/%d", pairIndex, pairTotal), len(tasks))
	}

	var fatal error
	byPage := make(map[int]SearchResult, len(tasks))
	for _, taskResult := range utils.RunTasks(ctx, s.config.Concurrency, s.config.RequestTimeout, s.logger, tasks) {
		if taskResult.Err != nil {
			if isCancellation(taskResult.Err) {
				s.logger.Debugf("[Scheduler] Search task cancelled: %v", taskResult.Err)
			} else {
				s.logger.Errorf("[Scheduler] Search task failed: %v", taskResult.Err)
				if fatal == nil {
					fatal = taskResult.Err
				}
			}
			continue
		}
		result, ok := taskResult.Value.(SearchResult)
		if !ok {
			continue
		}
		byPage[result.PageNumber] = result
	}

	ordered := make([]SearchResult, 0, len(byPage))
	for page := s.config.StartPage; page <= s.config.EndPage; page++ {
		if result, ok := byPage[page]; ok {
			ordered = append(ordered, result)
		}
	}
	return ordered, fatal
}

// claimSites walks the pair's search results in page order and claims every
// link not yet seen this campaign. The first claim wins; later sightings of
// the same origin are skipped, so each site is harvested at most once per
// run with the provenance of its first discovery.
func (s *Scheduler) claimSites(results []SearchResult) []siteClaim {
	var claims []siteClaim
	for _, result := range results {
		if !result.IsValid() {
			s.logger.Debugf("[Scheduler] Ignoring failed search result for %q page %d (status %d)", result.SearchTerm, result.PageNumber, result.StatusCode)
			continue
		}
		for _, link := range result.Links() {
			if !s.processed.MarkIfNew(link) {
				s.logger.Debugf("[Scheduler] Site already processed this campaign: %s", link)
				continue
			}
			claims = append(claims, siteClaim{
				origin:  link,
				keyword: result.Keyword,
				city:    result.City,
				term:    result.SearchTerm,
				page:    result.PageNumber,
			})
		}
	}
	return claims
}

// harvestSites processes the claimed sites on a bounded pool and returns
// each site's mails indexed by claim. Claims whose task did not complete
// (panic or interruption) keep a nil slice, so every claim still yields a
// report entry.
func (s *Scheduler) harvestSites(ctx context.Context, pairIndex, pairTotal int, claims []siteClaim) ([][]string, error) {
	tasks := make([]utils.Task, 0, len(claims))
	for i := range claims {
		index := i
		claim := claims[i]
		tasks = append(tasks, func(taskCtx context.Context) (interface{}, error) {
			mails, err := s.processSite(taskCtx, claim.origin)
			if s.progress != nil {
				s.progress.Increment()
			}
			return harvestOutcome{index: index, mails: mails}, err
		})
	}

	if s.progress != nil {
		s.progress.StartPhase(fmt.Sprintf("Harvest %d/%d", pairIndex, pairTotal), len(tasks))
	}

	var fatal error
	mailsByClaim := make([][]string, len(claims))
	for _, taskResult := range utils.RunTasks(ctx, s.config.Concurrency, 0, s.logger, tasks) {
		if outcome, ok := taskResult.Value.(harvestOutcome); ok {
			mailsByClaim[outcome.index] = outcome.mails
		}
		if taskResult.Err == nil {
			continue
		}
		if isCancellation(taskResult.Err) {
			s.logger.Debugf("[Scheduler] Site task cancelled: %v", taskResult.Err)
			continue
		}
		s.logger.Errorf("[Scheduler] Site task failed: %v", taskResult.Err)
		if fatal == nil {
			fatal = taskResult.Err
		}
	}
	return mailsByClaim, fatal
}

// processSite runs the candidate, probe, download, and extraction stages for
// one claimed origin. The mails come back deduplicated in first-seen order;
// a non-nil error reports a fatal stage failure without invalidating the
// mails gathered before it.
func (s *Scheduler) processSite(ctx context.Context, origin string) ([]string, error) {
	s.logger.Infof("[Scheduler Worker] Processing site: %s", origin)

	pages, probeFatal := s.resolveCandidatePages(ctx, origin)
	s.logger.Debugf("[Scheduler Worker] %d reachable page(s) for %s", len(pages), origin)

	fetches, downloadFatal := s.downloads.FetchAll(ctx, pages)
	site := Site{OriginURL: origin, Pages: fetches}

	mails := CollectSiteMails(site).Mails
	if s.config.DomainMailsOnly && len(mails) > 0 {
		domain, err := utils.SiteDomain(origin)
		if err != nil {
			s.logger.Warnf("[Scheduler Worker] Cannot derive mail domain for %s: %v", origin, err)
		} else {
			mails = FilterMailsByDomain(domain, mails)
		}
	}
	if s.verifier != nil {
		mails = s.verifiedMails(mails)
	}
	s.logger.Infof("[Scheduler Worker] Site %s yielded %d mail(s)", origin, len(mails))

	fatal := probeFatal
	if fatal == nil {
		fatal = downloadFatal
	}
	return mails, fatal
}

// resolveCandidatePages probes every candidate page of the origin
// concurrently and returns the reachable URLs in candidate order, resolved
// duplicates collapsed. The origin itself is always part of the returned
// set even when no probe survived.
func (s *Scheduler) resolveCandidatePages(ctx context.Context, origin string) ([]string, error) {
	candidates := CandidatePages(origin)
	tasks := make([]utils.Task, 0, len(candidates))
	for i := range candidates {
		index := i
		candidateURL := candidates[i]
		tasks = append(tasks, func(taskCtx context.Context) (interface{}, error) {
			return probeOutcome{index: index, probe: s.resolver.Resolve(taskCtx, candidateURL)}, nil
		})
	}

	var fatal error
	probes := make([]ExistenceProbe, len(candidates))
	for _, taskResult := range utils.RunTasks(ctx, s.config.Concurrency, s.config.RequestTimeout, s.logger, tasks) {
		if taskResult.Err != nil {
			if isCancellation(taskResult.Err) {
				s.logger.Debugf("[Scheduler Worker] Probe task cancelled: %v", taskResult.Err)
			} else {
				s.logger.Errorf("[Scheduler Worker] Probe task failed: %v", taskResult.Err)
				if fatal == nil {
					fatal = taskResult.Err
				}
			}
			continue
		}
		if outcome, ok := taskResult.Value.(probeOutcome); ok {
			probes[outcome.index] = outcome.probe
		}
	}

	pages := make([]string, 0, len(candidates)+1)
	seen := make(map[string]struct{}, len(candidates)+1)
	for _, probe := range probes {
		if !probe.Exists {
			continue
		}
		if _, dup := seen[probe.URL]; dup {
			continue
		}
		seen[probe.URL] = struct{}{}
		pages = append(pages, probe.URL)
	}
	if _, dup := seen[origin]; !dup {
		pages = append(pages, origin)
	}
	return pages, fatal
}

// verifiedMails keeps only the addresses whose domain publishes MX records.
func (s *Scheduler) verifiedMails(mails []string) []string {
	verified := make([]string, 0, len(mails))
	for _, mail := range mails {
		if s.verifier.VerifyAddress(mail) {
			verified = append(verified, mail)
		} else {
			s.logger.Debugf("[Scheduler Worker] Dropping mail with unverifiable domain: %s", mail)
		}
	}
	return verified
}

// isCancellation reports whether the task error only reflects the campaign
// context being cancelled, which Run surfaces on its own.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
