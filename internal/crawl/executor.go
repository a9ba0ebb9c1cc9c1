// Package crawl runs crawl jobs and orchestrates them across sources and
// targets.
package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sjlee133/academyradar/internal/adapter"
	"sjlee133/academyradar/internal/store"
	"sjlee133/academyradar/logger"
	"sjlee133/academyradar/services/publisher"
)

// AdapterFactory builds an adapter for a source. Tests swap in fakes.
type AdapterFactory func(sourceType, sourceURL string, opts adapter.Options) (adapter.Adapter, error)

// JobOptions tunes one job run.
type JobOptions struct {
	MaxResults int
	DateRange  adapter.DateRange
	// PersistSamples controls whether synthetic fallback posts reach the
	// store. They are always counted in PostsFound either way.
	PersistSamples bool
}

// Executor runs a single crawl job against one (source, target, keyword)
// triple and guarantees the job ledger ends in a terminal state.
type Executor struct {
	store   store.Store
	dedup   *store.Deduplicator
	factory AdapterFactory
	base    adapter.Options
	pub     publisher.Publisher
	log     *logger.Logger
}

// NewExecutor wires an executor. pub may be nil when no stream consumer
// exists.
func NewExecutor(st store.Store, factory AdapterFactory, base adapter.Options, pub publisher.Publisher) *Executor {
	return &Executor{
		store:   st,
		dedup:   store.NewDeduplicator(st),
		factory: factory,
		base:    base,
		pub:     pub,
		log:     logger.ForComponent("executor"),
	}
}

// Run executes one job. The returned job is always in a terminal state;
// failures are recorded on the job, never returned. The ledger entry is
// created as running before any network traffic and updated exactly once.
func (e *Executor) Run(ctx context.Context, source *store.Source, target *store.Target, keyword string, opts JobOptions) *store.CrawlJob {
	now := time.Now()
	job := &store.CrawlJob{
		SourceID:  source.ID,
		TargetID:  target.ID,
		Keyword:   keyword,
		Status:    store.JobStatusRunning,
		StartedAt: &now,
	}
	if err := e.store.CreateJob(ctx, job); err != nil {
		job.Status = store.JobStatusFailed
		job.Error = fmt.Sprintf("failed to create job: %v", err)
		completed := time.Now()
		job.CompletedAt = &completed
		return job
	}

	finished := false
	finalize := func(status store.JobStatus, errMsg string) {
		if finished {
			return
		}
		finished = true
		completed := time.Now()
		job.Status = status
		job.Error = errMsg
		job.CompletedAt = &completed
		if err := e.store.UpdateJob(ctx, job); err != nil {
			e.log.WithError(err).Error().
				Str("job_id", job.ID.String()).
				Msg("failed to persist terminal job state")
		}
	}

	defer func() {
		if r := recover(); r != nil {
			e.log.Error().
				Str("job_id", job.ID.String()).
				Interface("panic", r).
				Msg("crawl job panicked")
			finalize(store.JobStatusFailed, fmt.Sprintf("panic: %v", r))
		}
	}()

	adp, err := e.factory(string(source.SourceType), source.URL, e.adapterOptions(source))
	if err != nil {
		finalize(store.JobStatusFailed, err.Error())
		return job
	}
	defer adp.Release()

	results, err := adp.Search(ctx, keyword, opts.MaxResults, opts.DateRange)
	job.PostsFound = len(results)
	if err != nil {
		finalize(store.JobStatusFailed, err.Error())
		return job
	}

	for _, raw := range results {
		if raw.IsSample && !opts.PersistSamples {
			continue
		}
		res, err := e.dedup.Save(ctx, raw, source.ID, target.ID)
		if err != nil {
			e.log.WithError(err).Warn().
				Str("job_id", job.ID.String()).
				Str("url", raw.URL).
				Msg("failed to save post")
			continue
		}
		switch res.Outcome {
		case store.OutcomeSaved:
			job.PostsSaved++
			e.publish(res.Post)
		default:
			job.DuplicatesSkipped++
		}
	}

	finalize(store.JobStatusCompleted, "")
	return job
}

func (e *Executor) adapterOptions(source *store.Source) adapter.Options {
	opts := e.base
	opts.RequiresLogin = source.CrawlConfig.RequiresLogin
	if source.CrawlConfig.MinDelayMs > 0 {
		opts.MinDelay = time.Duration(source.CrawlConfig.MinDelayMs) * time.Millisecond
	}
	if source.CrawlConfig.MaxDelayMs > 0 {
		opts.MaxDelay = time.Duration(source.CrawlConfig.MaxDelayMs) * time.Millisecond
	}
	return opts
}

// publish emits a saved post downstream. Publish failures never fail the
// job.
func (e *Executor) publish(post *store.Post) {
	if e.pub == nil {
		return
	}
	payload, err := json.Marshal(post)
	if err != nil {
		e.log.WithError(err).Warn().Msg("failed to encode post for publishing")
		return
	}
	if err := e.pub.Publish(string(post.SourceType), payload); err != nil {
		e.log.WithError(err).Warn().
			Str("post_id", post.ID.String()).
			Msg("failed to publish post")
	}
}
