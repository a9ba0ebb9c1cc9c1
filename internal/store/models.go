// Package store holds the persistence model and Store implementations.
package store

import (
	"time"

	"github.com/google/uuid"
)

// SourceType identifies a supported platform.
type SourceType string

const (
	SourceTypeNaverCafe SourceType = "naver_cafe"
	SourceTypeDaumCafe  SourceType = "daum_cafe"
	SourceTypeDCInside  SourceType = "dcinside"
)

// JobStatus is the lifecycle state of a CrawlJob. Transitions are
// monotonic: pending, running, then exactly one of completed or failed.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether the status is final.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CrawlConfig is per-source crawl tuning.
type CrawlConfig struct {
	RequiresLogin bool `json:"requiresLogin"`
	MinDelayMs    int  `json:"minDelayMs"`
	MaxDelayMs    int  `json:"maxDelayMs"`
}

// Source is one crawlable community (a cafe or a gallery).
type Source struct {
	ID            uuid.UUID
	Name          string
	URL           string
	SourceType    SourceType
	ExternalID    string
	IsActive      bool
	LastCrawledAt *time.Time
	CrawlConfig   CrawlConfig
	CreatedAt     time.Time
}

// Target is a monitored academy with its search keywords.
type Target struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	Keywords  []string
	IsActive  bool
	CreatedAt time.Time
}

// CrawlJob is one ledger entry for a (source, target, keyword) run.
type CrawlJob struct {
	ID                uuid.UUID
	SourceID          uuid.UUID
	TargetID          uuid.UUID
	Keyword           string
	Status            JobStatus
	PostsFound        int
	PostsSaved        int
	DuplicatesSkipped int
	Error             string
	StartedAt         *time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
}

// Post is one persisted community post.
type Post struct {
	ID           uuid.UUID
	SourceID     uuid.UUID
	TargetID     uuid.UUID
	Keyword      string
	Title        string
	Content      string
	Author       string
	CanonicalURL string
	ViewCount    int
	CommentCount int
	PostedAt     *time.Time
	CollectedAt  time.Time
	SourceType   SourceType
	IsSample     bool
	CreatedAt    time.Time
}
