package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicateKey is returned when an insert violates a unique
	// constraint. The Deduplicator recovers it as a duplicate.
	ErrDuplicateKey = errors.New("store: duplicate key")
)

// JobFilter narrows ListJobs results. Zero-value fields match everything.
type JobFilter struct {
	SourceID uuid.UUID
	TargetID uuid.UUID
	Status   JobStatus
}

// Pagination is a limit/offset window.
type Pagination struct {
	Limit  int
	Offset int
}

// PageInfo describes the window a listing returned.
type PageInfo struct {
	Total  int
	Limit  int
	Offset int
}

// Store is the persistence boundary. MemoryStore backs tests and
// credential-free runs; PostgresStore backs deployments.
type Store interface {
	GetSource(ctx context.Context, id uuid.UUID) (*Source, error)
	GetSourceByURL(ctx context.Context, url string) (*Source, error)
	ListActiveSources(ctx context.Context) ([]*Source, error)
	CreateSource(ctx context.Context, source *Source) error
	// MarkSourceCrawled advances LastCrawledAt, never backwards.
	MarkSourceCrawled(ctx context.Context, id uuid.UUID, at time.Time) error

	GetTarget(ctx context.Context, id uuid.UUID) (*Target, error)
	GetTargetBySlug(ctx context.Context, slug string) (*Target, error)
	ListActiveTargets(ctx context.Context) ([]*Target, error)
	CreateTarget(ctx context.Context, target *Target) error

	CreateJob(ctx context.Context, job *CrawlJob) error
	UpdateJob(ctx context.Context, job *CrawlJob) error
	ListJobs(ctx context.Context, filter JobFilter, page Pagination) ([]*CrawlJob, *PageInfo, error)

	GetPostByCanonicalURL(ctx context.Context, url string) (*Post, error)
	// InsertPost returns ErrDuplicateKey on a canonical URL collision.
	InsertPost(ctx context.Context, post *Post) error
	UpdatePostCounts(ctx context.Context, id uuid.UUID, viewCount, commentCount int) error
	ListPostsByTarget(ctx context.Context, targetID uuid.UUID, page Pagination) ([]*Post, *PageInfo, error)
}
