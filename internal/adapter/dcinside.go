package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjlee133/academyradar/internal/normalize"
	crawlerrors "sjlee133/academyradar/pkg/errors"
)

// Overridable in tests.
var (
	dcGalleryBase = "https://gall.dcinside.com"
	dcSearchBase  = "https://search.dcinside.com"
)

// DCInsideAdapter extracts posts from one DCInside gallery.
type DCInsideAdapter struct {
	baseAdapter
	galleryID string
	isMini    bool
}

// NewDCInsideAdapter builds an adapter for the gallery at sourceURL
// (https://gall.dcinside.com/board/lists/?id=<galleryID>, mini galleries
// under /mgallery/).
func NewDCInsideAdapter(sourceURL string, opts Options) *DCInsideAdapter {
	galleryID := extractGalleryID(sourceURL)
	return &DCInsideAdapter{
		baseAdapter: newBaseAdapter("dcinside", sourceURL, galleryID, opts),
		galleryID:   galleryID,
		isMini:      strings.Contains(sourceURL, "/mgallery/"),
	}
}

func extractGalleryID(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return ""
	}
	if id := u.Query().Get("id"); id != "" {
		return id
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 {
		return parts[len(parts)-1]
	}
	return ""
}

// Search runs the DCInside strategy chain: the gallery's own subject and
// body search first, then the combined search page scoped to the gallery.
func (a *DCInsideAdapter) Search(ctx context.Context, keyword string, maxResults int, dateRange DateRange) ([]RawPost, error) {
	strategies := []strategy{
		{name: "board_search", run: a.searchBoard},
		{name: "combined_search", run: a.searchCombined},
	}
	return a.runStrategies(ctx, strategies, keyword, maxResults, dateRange)
}

// searchBoard scrapes the in-gallery subject/body search. Notices and ad
// rows are skipped.
func (a *DCInsideAdapter) searchBoard(ctx context.Context, keyword string, maxResults int, dateRange DateRange) ([]RawPost, error) {
	galleryType := "board"
	if a.isMini {
		galleryType = "mgallery/board"
	}
	searchURL := fmt.Sprintf("%s/%s/lists/?id=%s&s_type=search_subject_memo&s_keyword=%s",
		dcGalleryBase, galleryType, a.galleryID, url.QueryEscape(keyword))

	doc, err := a.fetchDocument(ctx, searchURL, false)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var posts []RawPost
	doc.Find(".gall_list .ub-content").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if s.HasClass("ub-notice") || s.Find(".icon_notice").Length() > 0 {
			return true
		}

		titleEl := s.Find(".gall_tit a").First()
		title := strings.TrimSpace(titleEl.Text())
		href, _ := titleEl.Attr("href")
		if title == "" || href == "" {
			return true
		}

		rawDate := strings.TrimSpace(s.Find(".gall_date").First().Text())
		if rawDate == "" {
			rawDate, _ = s.Find(".gall_date").First().Attr("title")
		}
		author := strings.TrimSpace(s.Find(".gall_writer .nickname").First().Text())
		if author == "" {
			author = strings.TrimSpace(s.Find(".gall_writer em").First().Text())
		}

		posts = append(posts, RawPost{
			Title:        title,
			URL:          absoluteURL(dcGalleryBase, href),
			Author:       author,
			PostedAtRaw:  rawDate,
			PostedAt:     normalize.Date(now, rawDate),
			ViewCount:    normalize.Count(s.Find(".gall_count").First().Text()),
			CommentCount: normalize.Count(s.Find(".gall_tit .reply_num").First().Text()),
			Keyword:      keyword,
			Source:       a.sourceType,
			OriginURL:    a.sourceURL,
			CollectedAt:  now,
		})
		return len(posts) < maxResults
	})
	return posts, nil
}

// searchCombined scrapes the sitewide combined search, keeping only hits
// that link back into this gallery.
func (a *DCInsideAdapter) searchCombined(ctx context.Context, keyword string, maxResults int, dateRange DateRange) ([]RawPost, error) {
	searchURL := fmt.Sprintf("%s/combine/q/%s", dcSearchBase, url.PathEscape(keyword))

	doc, err := a.fetchDocument(ctx, searchURL, false)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var posts []RawPost
	doc.Find(".sch_result li, ul.result_list li").EachWithBreak(func(i int, s *goquery.Selection) bool {
		titleEl := s.Find("a.tit_txt, a").First()
		title := strings.TrimSpace(titleEl.Text())
		href, _ := titleEl.Attr("href")
		if title == "" || href == "" {
			return true
		}
		if a.galleryID != "" && !strings.Contains(href, "id="+a.galleryID) {
			return true
		}

		rawDate := strings.TrimSpace(s.Find(".date_time, .date").First().Text())
		posts = append(posts, RawPost{
			Title:       title,
			URL:         href,
			PostedAtRaw: rawDate,
			PostedAt:    normalize.Date(now, rawDate),
			Keyword:     keyword,
			Source:      a.sourceType,
			OriginURL:   a.sourceURL,
			CollectedAt: now,
		})
		return len(posts) < maxResults
	})
	return posts, nil
}

// Detail resolves a single post with comments from the gallery view page.
func (a *DCInsideAdapter) Detail(ctx context.Context, postURL string) (*PostDetail, error) {
	doc, err := a.fetchDocument(ctx, postURL, false)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	title := strings.TrimSpace(doc.Find(".title_subject").First().Text())
	if title == "" {
		return nil, crawlerrors.NewParse(a.sourceType, "post markup missing title: "+postURL, nil)
	}

	rawDate := strings.TrimSpace(doc.Find(".gall_date").First().Text())
	detail := &PostDetail{
		RawPost: RawPost{
			Title:       title,
			URL:         postURL,
			Author:      strings.TrimSpace(doc.Find(".gall_writer .nickname").First().Text()),
			Content:     strings.TrimSpace(doc.Find(".write_div").First().Text()),
			PostedAtRaw: rawDate,
			PostedAt:    normalize.Date(now, rawDate),
			ViewCount:   normalize.Count(doc.Find(".gall_count").First().Text()),
			Source:      a.sourceType,
			OriginURL:   a.sourceURL,
			CollectedAt: now,
		},
	}

	doc.Find(".cmt_list li.ub-content").Each(func(i int, s *goquery.Selection) {
		content := strings.TrimSpace(s.Find(".usertxt").First().Text())
		if content == "" {
			return
		}
		commentDate := strings.TrimSpace(s.Find(".date_time").First().Text())
		detail.Comments = append(detail.Comments, Comment{
			Author:   strings.TrimSpace(s.Find(".nickname").First().Text()),
			Content:  content,
			PostedAt: normalize.Date(now, commentDate),
		})
	})
	detail.CommentCount = len(detail.Comments)

	return detail, nil
}
