package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-guarded in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	sources map[uuid.UUID]*Source
	targets map[uuid.UUID]*Target
	jobs    map[uuid.UUID]*CrawlJob
	posts   map[uuid.UUID]*Post
	postURL map[string]uuid.UUID
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sources: make(map[uuid.UUID]*Source),
		targets: make(map[uuid.UUID]*Target),
		jobs:    make(map[uuid.UUID]*CrawlJob),
		posts:   make(map[uuid.UUID]*Post),
		postURL: make(map[string]uuid.UUID),
	}
}

func (m *MemoryStore) GetSource(ctx context.Context, id uuid.UUID) (*Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sources[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) GetSourceByURL(ctx context.Context, url string) (*Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sources {
		if s.URL == url {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListActiveSources(ctx context.Context) ([]*Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Source
	for _, s := range m.sources {
		if s.IsActive {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) CreateSource(ctx context.Context, source *Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}
	if source.CreatedAt.IsZero() {
		source.CreatedAt = time.Now()
	}
	for _, s := range m.sources {
		if s.SourceType == source.SourceType && s.ExternalID == source.ExternalID {
			return ErrDuplicateKey
		}
	}
	cp := *source
	m.sources[source.ID] = &cp
	return nil
}

func (m *MemoryStore) MarkSourceCrawled(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sources[id]
	if !ok {
		return ErrNotFound
	}
	if s.LastCrawledAt == nil || at.After(*s.LastCrawledAt) {
		t := at
		s.LastCrawledAt = &t
	}
	return nil
}

func (m *MemoryStore) GetTarget(ctx context.Context, id uuid.UUID) (*Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.targets[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) GetTargetBySlug(ctx context.Context, slug string) (*Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.targets {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListActiveTargets(ctx context.Context) ([]*Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Target
	for _, t := range m.targets {
		if t.IsActive {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) CreateTarget(ctx context.Context, target *Target) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if target.ID == uuid.Nil {
		target.ID = uuid.New()
	}
	if target.CreatedAt.IsZero() {
		target.CreatedAt = time.Now()
	}
	for _, t := range m.targets {
		if t.Slug == target.Slug {
			return ErrDuplicateKey
		}
	}
	cp := *target
	m.targets[target.ID] = &cp
	return nil
}

func (m *MemoryStore) CreateJob(ctx context.Context, job *CrawlJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateJob(ctx context.Context, job *CrawlJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[job.ID]; !ok {
		return ErrNotFound
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *MemoryStore) ListJobs(ctx context.Context, filter JobFilter, page Pagination) ([]*CrawlJob, *PageInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*CrawlJob
	for _, j := range m.jobs {
		if filter.SourceID != uuid.Nil && j.SourceID != filter.SourceID {
			continue
		}
		if filter.TargetID != uuid.Nil && j.TargetID != filter.TargetID {
			continue
		}
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		cp := *j
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	info := &PageInfo{Total: len(matched), Limit: page.Limit, Offset: page.Offset}
	matched = window(matched, page)
	return matched, info, nil
}

func (m *MemoryStore) GetPostByCanonicalURL(ctx context.Context, url string) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.postURL[url]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.posts[id]
	return &cp, nil
}

func (m *MemoryStore) InsertPost(ctx context.Context, post *Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.postURL[post.CanonicalURL]; exists {
		return ErrDuplicateKey
	}
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	cp := *post
	m.posts[post.ID] = &cp
	m.postURL[post.CanonicalURL] = post.ID
	return nil
}

func (m *MemoryStore) UpdatePostCounts(ctx context.Context, id uuid.UUID, viewCount, commentCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok {
		return ErrNotFound
	}
	p.ViewCount = viewCount
	p.CommentCount = commentCount
	return nil
}

func (m *MemoryStore) ListPostsByTarget(ctx context.Context, targetID uuid.UUID, page Pagination) ([]*Post, *PageInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*Post
	for _, p := range m.posts {
		if p.TargetID == targetID {
			cp := *p
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CollectedAt.After(matched[j].CollectedAt) })

	info := &PageInfo{Total: len(matched), Limit: page.Limit, Offset: page.Offset}
	matched = window(matched, page)
	return matched, info, nil
}

func window[T any](items []T, page Pagination) []T {
	if page.Offset > 0 {
		if page.Offset >= len(items) {
			return nil
		}
		items = items[page.Offset:]
	}
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}
