package crawl

import (
	"context"
	"time"

	"sjlee133/academyradar/internal/adapter"
)

// fakeAdapter scripts Search and Detail outcomes for executor tests.
type fakeAdapter struct {
	posts        []adapter.RawPost
	detail       *adapter.PostDetail
	err          error
	panics       bool
	releaseCalls int
	detailURLs   []string
}

func (f *fakeAdapter) Search(ctx context.Context, keyword string, maxResults int, dateRange adapter.DateRange) ([]adapter.RawPost, error) {
	if f.panics {
		panic("selector walked off the page")
	}
	return f.posts, f.err
}

func (f *fakeAdapter) Detail(ctx context.Context, url string) (*adapter.PostDetail, error) {
	f.detailURLs = append(f.detailURLs, url)
	return f.detail, f.err
}

func (f *fakeAdapter) Release() {
	f.releaseCalls++
}

func fakeFactory(a adapter.Adapter) AdapterFactory {
	return func(sourceType, sourceURL string, opts adapter.Options) (adapter.Adapter, error) {
		return a, nil
	}
}

func rawPost(title, url string, sample bool) adapter.RawPost {
	posted := time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)
	return adapter.RawPost{
		Title:       title,
		URL:         url,
		PostedAtRaw: "2025.11.10",
		PostedAt:    &posted,
		ViewCount:   10,
		Keyword:     "한빛영재",
		Source:      "naver_cafe",
		CollectedAt: time.Now(),
		IsSample:    sample,
	}
}
