package crawl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sjlee133/academyradar/internal/adapter"
	"sjlee133/academyradar/internal/store"
	"sjlee133/academyradar/logger"
)

// Orchestration precondition errors.
var (
	ErrTargetNotFound  = errors.New("crawl: target not found")
	ErrTargetInactive  = errors.New("crawl: target is inactive")
	ErrNoActiveSources = errors.New("crawl: no active sources configured")
)

// TargetResult summarizes one target's crawl run.
type TargetResult struct {
	TargetID        uuid.UUID `json:"targetId"`
	TargetName      string    `json:"targetName"`
	TotalJobs       int       `json:"totalJobs"`
	Completed       int       `json:"completed"`
	Failed          int       `json:"failed"`
	TotalPostsSaved int       `json:"totalPostsSaved"`
}

// TargetOutcome is one entry of a crawl-all run. Err is set when the
// whole target failed before any jobs ran.
type TargetOutcome struct {
	TargetID   uuid.UUID     `json:"targetId"`
	TargetName string        `json:"targetName"`
	Result     *TargetResult `json:"result,omitempty"`
	Err        error         `json:"-"`
	Error      string        `json:"error,omitempty"`
}

// SearchRequest is an ad-hoc search against one source.
type SearchRequest struct {
	SourceType string
	SourceURL  string
	Keyword    string
	MaxResults int
	DateRange  adapter.DateRange
	// Persist saves results under TargetID. The source must be
	// registered so posts can reference it.
	Persist  bool
	TargetID uuid.UUID
}

// SearchResult is the outcome of an ad-hoc search.
type SearchResult struct {
	TotalResults int               `json:"totalResults"`
	Posts        []adapter.RawPost `json:"posts"`
	PostsSaved   int               `json:"postsSaved"`
}

// DetailRequest resolves one post URL through a source's adapter.
type DetailRequest struct {
	SourceType string
	SourceURL  string
	PostURL    string
}

// JobListing pairs jobs with their pagination window.
type JobListing struct {
	Jobs       []*store.CrawlJob `json:"jobs"`
	Pagination *store.PageInfo   `json:"pagination"`
}

// Orchestrator walks targets and sources sequentially, one job per
// (source, keyword) pair, failing soft wherever a single unit fails.
type Orchestrator struct {
	store    store.Store
	executor *Executor
	factory  AdapterFactory
	base     adapter.Options
	log      *logger.Logger
}

// NewOrchestrator wires an orchestrator around an executor.
func NewOrchestrator(st store.Store, executor *Executor, factory AdapterFactory, base adapter.Options) *Orchestrator {
	return &Orchestrator{
		store:    st,
		executor: executor,
		factory:  factory,
		base:     base,
		log:      logger.ForComponent("orchestrator"),
	}
}

// CrawlForTarget runs every (source, keyword) job for one target. Sources
// are walked in the outer loop so LastCrawledAt advances as soon as a
// source's jobs are done, not at the end of the whole run.
func (o *Orchestrator) CrawlForTarget(ctx context.Context, targetID uuid.UUID, opts JobOptions) (*TargetResult, error) {
	target, err := o.store.GetTarget(ctx, targetID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, targetID)
	}
	if err != nil {
		return nil, err
	}
	if !target.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrTargetInactive, target.Slug)
	}

	sources, err := o.store.ListActiveSources(ctx)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, ErrNoActiveSources
	}

	result := &TargetResult{TargetID: target.ID, TargetName: target.Name}
	for _, source := range sources {
		jobsRun := 0
		for _, keyword := range target.Keywords {
			job := o.executor.Run(ctx, source, target, keyword, opts)
			jobsRun++
			result.TotalJobs++
			if job.Status == store.JobStatusCompleted {
				result.Completed++
			} else {
				result.Failed++
			}
			result.TotalPostsSaved += job.PostsSaved
		}
		// LastCrawledAt only moves once a job actually ran against the source.
		if jobsRun == 0 {
			continue
		}
		if err := o.store.MarkSourceCrawled(ctx, source.ID, time.Now()); err != nil {
			o.log.WithError(err).Warn().
				Str("source", source.Name).
				Msg("failed to advance source crawl time")
		}
	}

	o.log.Info().
		Str("target", target.Slug).
		Int("jobs", result.TotalJobs).
		Int("failed", result.Failed).
		Int("saved", result.TotalPostsSaved).
		Msg("target crawl finished")
	return result, nil
}

// CrawlAllTargets crawls every active target. A failing target produces
// an error entry and the run moves on.
func (o *Orchestrator) CrawlAllTargets(ctx context.Context, opts JobOptions) ([]TargetOutcome, error) {
	targets, err := o.store.ListActiveTargets(ctx)
	if err != nil {
		return nil, err
	}

	outcomes := make([]TargetOutcome, 0, len(targets))
	for _, target := range targets {
		outcome := TargetOutcome{TargetID: target.ID, TargetName: target.Name}
		result, err := o.CrawlForTarget(ctx, target.ID, opts)
		if err != nil {
			outcome.Err = err
			outcome.Error = err.Error()
			o.log.WithError(err).Error().
				Str("target", target.Slug).
				Msg("target crawl failed")
		} else {
			outcome.Result = result
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// Search runs an ad-hoc search against one source, optionally persisting
// the results for a target.
func (o *Orchestrator) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	adp, err := o.factory(req.SourceType, req.SourceURL, o.base)
	if err != nil {
		return nil, err
	}
	defer adp.Release()

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}
	posts, err := adp.Search(ctx, req.Keyword, maxResults, req.DateRange)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{TotalResults: len(posts), Posts: posts}
	if !req.Persist {
		return result, nil
	}

	source, err := o.store.GetSourceByURL(ctx, req.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("cannot persist search results, source not registered: %w", err)
	}
	dedup := store.NewDeduplicator(o.store)
	for _, raw := range posts {
		if raw.IsSample {
			continue
		}
		res, err := dedup.Save(ctx, raw, source.ID, req.TargetID)
		if err != nil {
			o.log.WithError(err).Warn().Str("url", raw.URL).Msg("failed to save search result")
			continue
		}
		if res.Outcome == store.OutcomeSaved {
			result.PostsSaved++
		}
	}
	return result, nil
}

// Detail fetches one post with its comments through the source's adapter.
func (o *Orchestrator) Detail(ctx context.Context, req DetailRequest) (*adapter.PostDetail, error) {
	adp, err := o.factory(req.SourceType, req.SourceURL, o.base)
	if err != nil {
		return nil, err
	}
	defer adp.Release()

	return adp.Detail(ctx, req.PostURL)
}

// ListJobs pages through the crawl-job ledger.
func (o *Orchestrator) ListJobs(ctx context.Context, filter store.JobFilter, page store.Pagination) (*JobListing, error) {
	jobs, info, err := o.store.ListJobs(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	return &JobListing{Jobs: jobs, Pagination: info}, nil
}
