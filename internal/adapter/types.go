// Package adapter implements per-site crawl adapters for the supported
// Korean community platforms. Each adapter runs an ordered list of
// extraction strategies and returns the first non-empty result.
package adapter

import (
	"context"
	"time"

	"sjlee133/academyradar/internal/browser"
	"sjlee133/academyradar/services/cache"
)

// RawPost is one extracted post before persistence.
type RawPost struct {
	Title        string
	URL          string
	Author       string
	Content      string
	PostedAtRaw  string
	PostedAt     *time.Time
	ViewCount    int
	CommentCount int
	Keyword      string
	Source       string
	OriginURL    string
	CollectedAt  time.Time
	IsSample     bool
}

// Comment is one comment under a post.
type Comment struct {
	Author   string
	Content  string
	PostedAt *time.Time
}

// PostDetail is a fully resolved post with body and comments.
type PostDetail struct {
	RawPost
	Comments []Comment
}

// DateRange bounds retained posts by their parsed date. Nil bounds are
// open; posts with unparseable dates always pass.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Adapter extracts posts mentioning a keyword from one source.
type Adapter interface {
	// Search returns up to maxResults posts matching keyword within the
	// date range. When every strategy comes back empty it returns
	// synthetic sample posts rather than an error.
	Search(ctx context.Context, keyword string, maxResults int, dateRange DateRange) ([]RawPost, error)

	// Detail resolves a single post including its comments.
	Detail(ctx context.Context, url string) (*PostDetail, error)

	// Release frees any resources held by the adapter. Idempotent.
	Release()
}

// Options carries credentials and tuning shared by all adapters. The
// factory fills it from configuration; tests inject fakes.
type Options struct {
	NaverClientID     string
	NaverClientSecret string
	NaverLoginID      string
	NaverLoginPass    string
	KakaoRESTKey      string

	// Politeness delay bounds between consecutive network operations
	// inside a strategy.
	MinDelay time.Duration
	MaxDelay time.Duration

	Timeout       time.Duration
	RequiresLogin bool
	Headless      bool

	// CacheSvc, when set, blocks re-fetching a source during its
	// rate-limit cool-down window.
	CacheSvc cache.CacheService

	// NewSession builds a browser session for render strategies.
	// Tests swap in a fake; nil means render strategies are skipped.
	NewSession func(ctx context.Context, cfg browser.Config) (browser.Session, error)

	// Sleep is the pacing hook. Defaults to time.Sleep.
	Sleep func(d time.Duration)
}

func (o *Options) sleep(d time.Duration) {
	if o.Sleep != nil {
		o.Sleep(d)
		return
	}
	time.Sleep(d)
}
