package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Migrate creates the schema when it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS sources (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	url TEXT NOT NULL,
	source_type TEXT NOT NULL,
	external_id TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	last_crawled_at TIMESTAMPTZ,
	crawl_config JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (source_type, external_id)
);

CREATE TABLE IF NOT EXISTS targets (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	keywords TEXT[] NOT NULL DEFAULT '{}',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS crawl_jobs (
	id UUID PRIMARY KEY,
	source_id UUID NOT NULL REFERENCES sources(id),
	target_id UUID NOT NULL REFERENCES targets(id),
	keyword TEXT NOT NULL,
	status TEXT NOT NULL,
	posts_found INT NOT NULL DEFAULT 0,
	posts_saved INT NOT NULL DEFAULT 0,
	duplicates_skipped INT NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_crawl_jobs_target ON crawl_jobs(target_id, created_at DESC);

CREATE TABLE IF NOT EXISTS posts (
	id UUID PRIMARY KEY,
	source_id UUID NOT NULL REFERENCES sources(id),
	target_id UUID NOT NULL REFERENCES targets(id),
	keyword TEXT NOT NULL,
	title TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	author TEXT NOT NULL DEFAULT '',
	canonical_url TEXT NOT NULL UNIQUE,
	view_count INT NOT NULL DEFAULT 0,
	comment_count INT NOT NULL DEFAULT 0,
	posted_at TIMESTAMPTZ,
	collected_at TIMESTAMPTZ NOT NULL,
	source_type TEXT NOT NULL,
	is_sample BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_posts_target ON posts(target_id, collected_at DESC);
`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateKey
	}
	return err
}

const sourceColumns = `id, name, url, source_type, external_id, is_active, last_crawled_at, crawl_config, created_at`

func scanSource(row pgx.Row) (*Source, error) {
	var s Source
	var cfg []byte
	err := row.Scan(&s.ID, &s.Name, &s.URL, &s.SourceType, &s.ExternalID, &s.IsActive, &s.LastCrawledAt, &cfg, &s.CreatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &s.CrawlConfig); err != nil {
			return nil, fmt.Errorf("failed to decode crawl config: %w", err)
		}
	}
	return &s, nil
}

func (s *PostgresStore) GetSource(ctx context.Context, id uuid.UUID) (*Source, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = $1`, id)
	return scanSource(row)
}

func (s *PostgresStore) GetSourceByURL(ctx context.Context, url string) (*Source, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sourceColumns+` FROM sources WHERE url = $1`, url)
	return scanSource(row)
}

func (s *PostgresStore) ListActiveSources(ctx context.Context) ([]*Source, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+sourceColumns+` FROM sources WHERE is_active ORDER BY created_at`)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var out []*Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateSource(ctx context.Context, source *Source) error {
	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}
	if source.CreatedAt.IsZero() {
		source.CreatedAt = time.Now()
	}
	cfg, err := json.Marshal(source.CrawlConfig)
	if err != nil {
		return fmt.Errorf("failed to encode crawl config: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO sources (id, name, url, source_type, external_id, is_active, last_crawled_at, crawl_config, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		source.ID, source.Name, source.URL, source.SourceType, source.ExternalID,
		source.IsActive, source.LastCrawledAt, cfg, source.CreatedAt)
	return translateError(err)
}

func (s *PostgresStore) MarkSourceCrawled(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sources
		SET last_crawled_at = GREATEST(COALESCE(last_crawled_at, 'epoch'::timestamptz), $2)
		WHERE id = $1`, id, at)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const targetColumns = `id, name, slug, keywords, is_active, created_at`

func scanTarget(row pgx.Row) (*Target, error) {
	var t Target
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Keywords, &t.IsActive, &t.CreatedAt); err != nil {
		return nil, translateError(err)
	}
	return &t, nil
}

func (s *PostgresStore) GetTarget(ctx context.Context, id uuid.UUID) (*Target, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+targetColumns+` FROM targets WHERE id = $1`, id)
	return scanTarget(row)
}

func (s *PostgresStore) GetTargetBySlug(ctx context.Context, slug string) (*Target, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+targetColumns+` FROM targets WHERE slug = $1`, slug)
	return scanTarget(row)
}

func (s *PostgresStore) ListActiveTargets(ctx context.Context) ([]*Target, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+targetColumns+` FROM targets WHERE is_active ORDER BY created_at`)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var out []*Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateTarget(ctx context.Context, target *Target) error {
	if target.ID == uuid.Nil {
		target.ID = uuid.New()
	}
	if target.CreatedAt.IsZero() {
		target.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO targets (id, name, slug, keywords, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		target.ID, target.Name, target.Slug, target.Keywords, target.IsActive, target.CreatedAt)
	return translateError(err)
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *CrawlJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO crawl_jobs (id, source_id, target_id, keyword, status, posts_found, posts_saved, duplicates_skipped, error, started_at, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		job.ID, job.SourceID, job.TargetID, job.Keyword, job.Status,
		job.PostsFound, job.PostsSaved, job.DuplicatesSkipped, job.Error,
		job.StartedAt, job.CompletedAt, job.CreatedAt)
	return translateError(err)
}

func (s *PostgresStore) UpdateJob(ctx context.Context, job *CrawlJob) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE crawl_jobs
		SET status = $2, posts_found = $3, posts_saved = $4, duplicates_skipped = $5,
		    error = $6, started_at = $7, completed_at = $8
		WHERE id = $1`,
		job.ID, job.Status, job.PostsFound, job.PostsSaved, job.DuplicatesSkipped,
		job.Error, job.StartedAt, job.CompletedAt)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter, page Pagination) ([]*CrawlJob, *PageInfo, error) {
	where := `WHERE ($1::uuid IS NULL OR source_id = $1)
		AND ($2::uuid IS NULL OR target_id = $2)
		AND ($3::text = '' OR status = $3)`

	var sourceID, targetID *uuid.UUID
	if filter.SourceID != uuid.Nil {
		sourceID = &filter.SourceID
	}
	if filter.TargetID != uuid.Nil {
		targetID = &filter.TargetID
	}

	var total int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM crawl_jobs `+where,
		sourceID, targetID, string(filter.Status)).Scan(&total)
	if err != nil {
		return nil, nil, translateError(err)
	}

	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_id, target_id, keyword, status, posts_found, posts_saved, duplicates_skipped, error, started_at, completed_at, created_at
		FROM crawl_jobs `+where+`
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`,
		sourceID, targetID, string(filter.Status), limit, page.Offset)
	if err != nil {
		return nil, nil, translateError(err)
	}
	defer rows.Close()

	var jobs []*CrawlJob
	for rows.Next() {
		var j CrawlJob
		err := rows.Scan(&j.ID, &j.SourceID, &j.TargetID, &j.Keyword, &j.Status,
			&j.PostsFound, &j.PostsSaved, &j.DuplicatesSkipped, &j.Error,
			&j.StartedAt, &j.CompletedAt, &j.CreatedAt)
		if err != nil {
			return nil, nil, translateError(err)
		}
		jobs = append(jobs, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return jobs, &PageInfo{Total: total, Limit: limit, Offset: page.Offset}, nil
}

const postColumns = `id, source_id, target_id, keyword, title, content, author, canonical_url, view_count, comment_count, posted_at, collected_at, source_type, is_sample, created_at`

func scanPost(row pgx.Row) (*Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.SourceID, &p.TargetID, &p.Keyword, &p.Title, &p.Content,
		&p.Author, &p.CanonicalURL, &p.ViewCount, &p.CommentCount,
		&p.PostedAt, &p.CollectedAt, &p.SourceType, &p.IsSample, &p.CreatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}

func (s *PostgresStore) GetPostByCanonicalURL(ctx context.Context, url string) (*Post, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE canonical_url = $1`, url)
	return scanPost(row)
}

func (s *PostgresStore) InsertPost(ctx context.Context, post *Post) error {
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO posts (id, source_id, target_id, keyword, title, content, author, canonical_url, view_count, comment_count, posted_at, collected_at, source_type, is_sample, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		post.ID, post.SourceID, post.TargetID, post.Keyword, post.Title, post.Content,
		post.Author, post.CanonicalURL, post.ViewCount, post.CommentCount,
		post.PostedAt, post.CollectedAt, post.SourceType, post.IsSample, post.CreatedAt)
	return translateError(err)
}

func (s *PostgresStore) UpdatePostCounts(ctx context.Context, id uuid.UUID, viewCount, commentCount int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE posts SET view_count = $2, comment_count = $3 WHERE id = $1`,
		id, viewCount, commentCount)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListPostsByTarget(ctx context.Context, targetID uuid.UUID, page Pagination) ([]*Post, *PageInfo, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE target_id = $1`, targetID).Scan(&total); err != nil {
		return nil, nil, translateError(err)
	}

	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE target_id = $1
		ORDER BY collected_at DESC
		LIMIT $2 OFFSET $3`, targetID, limit, page.Offset)
	if err != nil {
		return nil, nil, translateError(err)
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return posts, &PageInfo{Total: total, Limit: limit, Offset: page.Offset}, nil
}
