package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(t *testing.T, s Store) *Source {
	t.Helper()
	src := &Source{
		Name:       "영어교육 카페",
		URL:        "https://cafe.naver.com/engedu",
		SourceType: SourceTypeNaverCafe,
		ExternalID: "12345678",
		IsActive:   true,
	}
	require.NoError(t, s.CreateSource(context.Background(), src))
	return src
}

func newTestTarget(t *testing.T, s Store) *Target {
	t.Helper()
	tgt := &Target{
		Name:     "한빛영재학원",
		Slug:     "hanbit",
		Keywords: []string{"한빛영재", "한빛학원"},
		IsActive: true,
	}
	require.NoError(t, s.CreateTarget(context.Background(), tgt))
	return tgt
}

func TestMemoryStoreSourceUnique(t *testing.T) {
	s := NewMemoryStore()
	newTestSource(t, s)

	dup := &Source{
		Name:       "same cafe again",
		URL:        "https://cafe.naver.com/engedu2",
		SourceType: SourceTypeNaverCafe,
		ExternalID: "12345678",
	}
	err := s.CreateSource(context.Background(), dup)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestMemoryStoreMarkSourceCrawledForwardOnly(t *testing.T) {
	s := NewMemoryStore()
	src := newTestSource(t, s)
	ctx := context.Background()

	later := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	require.NoError(t, s.MarkSourceCrawled(ctx, src.ID, later))
	got, err := s.GetSource(ctx, src.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastCrawledAt)
	assert.Equal(t, later, *got.LastCrawledAt)

	// An earlier timestamp never moves it backwards
	require.NoError(t, s.MarkSourceCrawled(ctx, src.ID, earlier))
	got, err = s.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, later, *got.LastCrawledAt)
}

func TestMemoryStoreTargetSlugUnique(t *testing.T) {
	s := NewMemoryStore()
	newTestTarget(t, s)

	err := s.CreateTarget(context.Background(), &Target{Name: "other", Slug: "hanbit"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestMemoryStoreInsertPostDuplicateURL(t *testing.T) {
	s := NewMemoryStore()
	src := newTestSource(t, s)
	tgt := newTestTarget(t, s)
	ctx := context.Background()

	post := &Post{
		SourceID:     src.ID,
		TargetID:     tgt.ID,
		Title:        "한빛영재 후기",
		CanonicalURL: "https://cafe.naver.com/engedu/100",
		CollectedAt:  time.Now(),
		SourceType:   SourceTypeNaverCafe,
	}
	require.NoError(t, s.InsertPost(ctx, post))

	again := *post
	again.ID = uuid.Nil
	err := s.InsertPost(ctx, &again)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	got, err := s.GetPostByCanonicalURL(ctx, post.CanonicalURL)
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)
}

func TestMemoryStoreListJobsFilterAndPagination(t *testing.T) {
	s := NewMemoryStore()
	src := newTestSource(t, s)
	tgt := newTestTarget(t, s)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		status := JobStatusCompleted
		if i%2 == 1 {
			status = JobStatusFailed
		}
		job := &CrawlJob{
			SourceID:  src.ID,
			TargetID:  tgt.ID,
			Keyword:   "한빛영재",
			Status:    status,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, s.CreateJob(ctx, job))
	}

	jobs, info, err := s.ListJobs(ctx, JobFilter{Status: JobStatusFailed}, Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 2, info.Total)
	assert.Len(t, jobs, 2)

	jobs, info, err = s.ListJobs(ctx, JobFilter{TargetID: tgt.ID}, Pagination{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, info.Total)
	assert.Len(t, jobs, 2)

	jobs, _, err = s.ListJobs(ctx, JobFilter{TargetID: uuid.New()}, Pagination{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestMemoryStoreUpdateJob(t *testing.T) {
	s := NewMemoryStore()
	src := newTestSource(t, s)
	tgt := newTestTarget(t, s)
	ctx := context.Background()

	job := &CrawlJob{SourceID: src.ID, TargetID: tgt.ID, Keyword: "한빛영재", Status: JobStatusPending}
	require.NoError(t, s.CreateJob(ctx, job))

	now := time.Now()
	job.Status = JobStatusCompleted
	job.PostsFound = 7
	job.CompletedAt = &now
	require.NoError(t, s.UpdateJob(ctx, job))

	jobs, _, err := s.ListJobs(ctx, JobFilter{}, Pagination{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, JobStatusCompleted, jobs[0].Status)
	assert.Equal(t, 7, jobs[0].PostsFound)

	missing := &CrawlJob{ID: uuid.New()}
	assert.ErrorIs(t, s.UpdateJob(ctx, missing), ErrNotFound)
}

func TestJobStatusIsTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusRunning.IsTerminal())
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
}
