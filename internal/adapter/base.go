package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	mathrand "math/rand"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjlee133/academyradar/helpers"
	"sjlee133/academyradar/internal/browser"
	"sjlee133/academyradar/internal/normalize"
	"sjlee133/academyradar/logger"
	crawlerrors "sjlee133/academyradar/pkg/errors"
	"sjlee133/academyradar/services/cache"
)

// blockDuration is how long a rate-limited source stays blocked.
const blockDuration = 5 * time.Minute

// maxSamplePosts caps the synthetic fallback output.
const maxSamplePosts = 10

// strategy is one extraction approach for a source. Strategies run in
// order; the first one returning posts wins.
type strategy struct {
	name string
	run  func(ctx context.Context, keyword string, maxResults int, dateRange DateRange) ([]RawPost, error)
}

// baseAdapter carries what every site adapter shares.
type baseAdapter struct {
	sourceType string
	sourceURL  string
	externalID string
	opts       Options
	log        *logger.Logger

	session  browser.Session
	released bool
}

func newBaseAdapter(sourceType, sourceURL, externalID string, opts Options) baseAdapter {
	return baseAdapter{
		sourceType: sourceType,
		sourceURL:  sourceURL,
		externalID: externalID,
		opts:       opts,
		log:        logger.ForAdapter(sourceType),
	}
}

// runStrategies executes the ordered strategy list and falls back to
// synthetic samples when every strategy comes back empty. Extraction
// errors are logged and treated the same as empty results; errors
// outside the extraction taxonomy abort the whole search.
func (b *baseAdapter) runStrategies(ctx context.Context, strategies []strategy, keyword string, maxResults int, dateRange DateRange) ([]RawPost, error) {
	for i, st := range strategies {
		if i > 0 {
			b.pace()
		}

		posts, err := b.runOne(ctx, st, keyword, maxResults, dateRange)
		if err != nil {
			var cerr *crawlerrors.CrawlError
			if errors.As(err, &cerr) && !cerr.FallsThrough() {
				return nil, err
			}
			b.log.WithError(err).Warn().
				Str("strategy", st.name).
				Str("keyword", keyword).
				Msg("strategy failed, falling through")
			continue
		}
		if len(posts) > 0 {
			b.log.Info().
				Str("strategy", st.name).
				Str("keyword", keyword).
				Int("count", len(posts)).
				Msg("strategy succeeded")
			if len(posts) > maxResults {
				posts = posts[:maxResults]
			}
			return posts, nil
		}
	}

	b.log.Warn().
		Str("keyword", keyword).
		Msg("all strategies empty, generating sample posts")
	return b.samplePosts(keyword, maxResults, dateRange), nil
}

func (b *baseAdapter) runOne(ctx context.Context, st strategy, keyword string, maxResults int, dateRange DateRange) ([]RawPost, error) {
	timeout := b.opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	posts, err := st.run(runCtx, keyword, maxResults, dateRange)
	if err != nil {
		return nil, err
	}
	return b.retain(posts, dateRange), nil
}

// retain drops posts whose parsed date falls outside the range. Posts
// with unparseable dates are kept.
func (b *baseAdapter) retain(posts []RawPost, dateRange DateRange) []RawPost {
	out := posts[:0]
	for _, p := range posts {
		if normalize.WithinRange(p.PostedAt, dateRange.Start, dateRange.End) {
			out = append(out, p)
		}
	}
	return out
}

// samplePosts builds synthetic posts inside the date range so downstream
// plumbing has data to exercise when a source yields nothing.
func (b *baseAdapter) samplePosts(keyword string, maxResults int, dateRange DateRange) []RawPost {
	now := time.Now()
	count := maxResults
	if count > maxSamplePosts {
		count = maxSamplePosts
	}

	end := now
	if dateRange.End != nil && dateRange.End.Before(end) {
		end = *dateRange.End
	}
	start := end.AddDate(0, 0, -90)
	if dateRange.Start != nil && dateRange.Start.After(start) {
		start = *dateRange.Start
	}
	span := end.Sub(start)

	posts := make([]RawPost, 0, count)
	for i := 0; i < count; i++ {
		postedAt := start
		if span > 0 {
			postedAt = start.Add(time.Duration(mathrand.Int63n(int64(span))))
		}
		t := postedAt
		posts = append(posts, RawPost{
			Title:        fmt.Sprintf("[샘플] %s 관련 게시글 %d", keyword, i+1),
			URL:          fmt.Sprintf("%s/sample%d", strings.TrimRight(b.sourceURL, "/"), i+1),
			Author:       "테스트사용자",
			PostedAtRaw:  postedAt.Format("2006.01.02"),
			PostedAt:     &t,
			ViewCount:    mathrand.Intn(500) + 50,
			CommentCount: mathrand.Intn(20),
			Keyword:      keyword,
			Source:       b.sourceType,
			OriginURL:    b.sourceURL,
			CollectedAt:  now,
			IsSample:     true,
		})
	}
	return posts
}

// pace sleeps a random duration within the source's politeness bounds.
func (b *baseAdapter) pace() {
	min := b.opts.MinDelay
	max := b.opts.MaxDelay
	if max <= min {
		if min <= 0 {
			return
		}
		b.opts.sleep(min)
		return
	}
	d := min + time.Duration(mathrand.Int63n(int64(max-min)))
	b.opts.sleep(d)
}

// fetchDocument fetches a page and parses it, honoring the rate-limit
// block cache. A source inside its cool-down window is not re-fetched.
func (b *baseAdapter) fetchDocument(ctx context.Context, url string, mobile bool) (*goquery.Document, error) {
	blockKey := cache.BlockKey(b.sourceType, b.externalID)
	if b.opts.CacheSvc != nil {
		if _, err := b.opts.CacheSvc.Get(blockKey); err == nil {
			return nil, crawlerrors.NewRateLimit(b.sourceType, blockDuration)
		}
	}

	var body io.Reader
	var err error
	if mobile {
		body, err = helpers.FetchMobile(ctx, url)
	} else {
		body, err = helpers.FetchWithRandomHeaders(ctx, url)
	}
	if err != nil {
		var rateErr *helpers.RateLimitError
		if errors.As(err, &rateErr) && b.opts.CacheSvc != nil {
			b.opts.CacheSvc.Set(blockKey, []byte(rateErr.RetryAfter), blockDuration)
		}
		return nil, crawlerrors.NewNetwork(b.sourceType, "failed to fetch "+url, err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, crawlerrors.NewParse(b.sourceType, "failed to parse "+url, err)
	}
	return doc, nil
}

// ensureSession lazily starts the browser session, logging in when the
// source requires it.
func (b *baseAdapter) ensureSession(ctx context.Context, login *browser.LoginParams) (browser.Session, error) {
	if b.session != nil {
		return b.session, nil
	}
	if b.opts.NewSession == nil {
		return nil, crawlerrors.New(crawlerrors.ErrorTypeConfiguration, b.sourceType, "no browser session factory configured", nil)
	}

	session, err := b.opts.NewSession(ctx, browser.Config{
		Headless: b.opts.Headless,
		Timeout:  b.opts.Timeout,
	})
	if err != nil {
		return nil, crawlerrors.NewNetwork(b.sourceType, "failed to start browser session", err)
	}

	if login != nil {
		if err := session.Login(ctx, *login); err != nil {
			session.Close()
			return nil, crawlerrors.NewAuth(b.sourceType, "login failed", err)
		}
	}

	b.session = session
	return session, nil
}

// renderedDocument navigates the session, scrolls to load lazy list
// items and parses the resulting markup.
func (b *baseAdapter) renderedDocument(ctx context.Context, session browser.Session, url string) (*goquery.Document, error) {
	if err := session.Navigate(ctx, url); err != nil {
		return nil, crawlerrors.NewNetwork(b.sourceType, "failed to render "+url, err)
	}
	if err := session.AutoScroll(ctx); err != nil {
		return nil, crawlerrors.NewNetwork(b.sourceType, "failed to scroll "+url, err)
	}
	html, err := session.HTML(ctx, "html")
	if err != nil {
		return nil, crawlerrors.NewParse(b.sourceType, "failed to extract rendered markup", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, crawlerrors.NewParse(b.sourceType, "failed to parse rendered markup", err)
	}
	return doc, nil
}

// Release closes the browser session. Idempotent.
func (b *baseAdapter) Release() {
	if b.released {
		return
	}
	b.released = true
	if b.session != nil {
		b.session.Close()
		b.session = nil
	}
}

func absoluteURL(base, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return strings.TrimRight(base, "/") + href
	}
	return strings.TrimRight(base, "/") + "/" + href
}
