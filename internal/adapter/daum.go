package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjlee133/academyradar/helpers"
	"sjlee133/academyradar/internal/normalize"
	crawlerrors "sjlee133/academyradar/pkg/errors"
)

// Overridable in tests.
var (
	daumMobileBase   = "https://m.cafe.daum.net"
	kakaoAPIBase     = "https://dapi.kakao.com/v2/search/cafe"
	daumSearchPages  = 5
	kakaoAPIPageSize = 50
)

// DaumCafeAdapter extracts posts from one Daum cafe.
type DaumCafeAdapter struct {
	baseAdapter
	cafeID string
}

// NewDaumCafeAdapter builds an adapter for the cafe at sourceURL
// (https://cafe.daum.net/<cafeID>).
func NewDaumCafeAdapter(sourceURL string, opts Options) *DaumCafeAdapter {
	cafeID := extractDaumCafeID(sourceURL)
	return &DaumCafeAdapter{
		baseAdapter: newBaseAdapter("daum_cafe", sourceURL, cafeID, opts),
		cafeID:      cafeID,
	}
}

func extractDaumCafeID(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// Search runs the Daum strategy chain: the mobile in-cafe search first,
// then the Kakao REST API when a key is configured.
func (a *DaumCafeAdapter) Search(ctx context.Context, keyword string, maxResults int, dateRange DateRange) ([]RawPost, error) {
	strategies := []strategy{
		{name: "mobile_search", run: a.searchMobile},
	}
	if a.opts.KakaoRESTKey != "" {
		strategies = append(strategies, strategy{name: "kakao_api", run: a.searchKakaoAPI})
	}
	return a.runStrategies(ctx, strategies, keyword, maxResults, dateRange)
}

// searchMobile pages through the mobile in-cafe search, stopping early at
// maxResults or the first empty page.
func (a *DaumCafeAdapter) searchMobile(ctx context.Context, keyword string, maxResults int, dateRange DateRange) ([]RawPost, error) {
	now := time.Now()
	var posts []RawPost

	for page := 1; page <= daumSearchPages && len(posts) < maxResults; page++ {
		if page > 1 {
			a.pace()
		}

		searchURL := fmt.Sprintf("%s/%s/_search?query=%s&page=%d",
			daumMobileBase, a.cafeID, url.QueryEscape(keyword), page)
		doc, err := a.fetchDocument(ctx, searchURL, true)
		if err != nil {
			if len(posts) > 0 {
				break
			}
			return nil, err
		}

		pageCount := 0
		doc.Find(".search_list li, .list_search li").EachWithBreak(func(i int, s *goquery.Selection) bool {
			titleEl := s.Find("a").First()
			title := strings.TrimSpace(titleEl.Find(".txt_detail, .tit_item").First().Text())
			if title == "" {
				title = strings.TrimSpace(titleEl.Text())
			}
			href, _ := titleEl.Attr("href")
			if title == "" || href == "" {
				return true
			}

			rawDate := strings.TrimSpace(s.Find(".txt_date, .num_date").First().Text())
			posts = append(posts, RawPost{
				Title:        title,
				URL:          absoluteURL(daumMobileBase, href),
				Author:       strings.TrimSpace(s.Find(".txt_name, .name_user").First().Text()),
				PostedAtRaw:  rawDate,
				PostedAt:     normalize.Date(now, rawDate),
				ViewCount:    normalize.Count(s.Find(".txt_view").First().Text()),
				CommentCount: normalize.Count(s.Find(".num_cmt").First().Text()),
				Keyword:      keyword,
				Source:       a.sourceType,
				OriginURL:    a.sourceURL,
				CollectedAt:  now,
			})
			pageCount++
			return len(posts) < maxResults
		})

		if pageCount == 0 {
			break
		}
	}
	return posts, nil
}

type kakaoAPIResponse struct {
	Meta struct {
		TotalCount int  `json:"total_count"`
		IsEnd      bool `json:"is_end"`
	} `json:"meta"`
	Documents []struct {
		Title    string `json:"title"`
		Contents string `json:"contents"`
		URL      string `json:"url"`
		CafeName string `json:"cafename"`
		Datetime string `json:"datetime"`
	} `json:"documents"`
}

// searchKakaoAPI queries the Kakao cafe search API. Like the Naver API it
// searches every cafe, so results are filtered by the cafe id in the URL.
func (a *DaumCafeAdapter) searchKakaoAPI(ctx context.Context, keyword string, maxResults int, dateRange DateRange) ([]RawPost, error) {
	headers := map[string]string{
		"Authorization": "KakaoAK " + a.opts.KakaoRESTKey,
	}

	now := time.Now()
	var posts []RawPost
	for page := 1; page <= daumSearchPages && len(posts) < maxResults; page++ {
		if page > 1 {
			a.pace()
		}

		endpoint := fmt.Sprintf("%s?query=%s&page=%d&size=%d&sort=recency",
			kakaoAPIBase, url.QueryEscape(keyword), page, kakaoAPIPageSize)

		var resp kakaoAPIResponse
		if err := helpers.FetchJSON(ctx, endpoint, headers, &resp); err != nil {
			if len(posts) > 0 {
				break
			}
			return nil, crawlerrors.NewNetwork(a.sourceType, "kakao cafe search failed", err)
		}
		if len(resp.Documents) == 0 {
			break
		}

		for _, doc := range resp.Documents {
			if a.cafeID != "" && !strings.Contains(doc.URL, a.cafeID) {
				continue
			}
			var postedAt *time.Time
			if t, err := time.Parse(time.RFC3339, doc.Datetime); err == nil {
				postedAt = &t
			}
			posts = append(posts, RawPost{
				Title:       helpers.StripTags(doc.Title),
				URL:         doc.URL,
				Content:     helpers.StripTags(doc.Contents),
				PostedAtRaw: doc.Datetime,
				PostedAt:    postedAt,
				Keyword:     keyword,
				Source:      a.sourceType,
				OriginURL:   a.sourceURL,
				CollectedAt: now,
			})
			if len(posts) >= maxResults {
				break
			}
		}

		if resp.Meta.IsEnd {
			break
		}
	}
	return posts, nil
}

// Detail resolves a single post with comments from the mobile article page.
func (a *DaumCafeAdapter) Detail(ctx context.Context, postURL string) (*PostDetail, error) {
	doc, err := a.fetchDocument(ctx, postURL, true)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	title := strings.TrimSpace(doc.Find(".tit_subject, h3.tit_view").First().Text())
	if title == "" {
		return nil, crawlerrors.NewParse(a.sourceType, "post markup missing title: "+postURL, nil)
	}

	rawDate := strings.TrimSpace(doc.Find(".txt_date, .num_date").First().Text())
	detail := &PostDetail{
		RawPost: RawPost{
			Title:       title,
			URL:         postURL,
			Author:      strings.TrimSpace(doc.Find(".txt_name, .info_name").First().Text()),
			Content:     strings.TrimSpace(doc.Find("#article, .article_view").First().Text()),
			PostedAtRaw: rawDate,
			PostedAt:    normalize.Date(now, rawDate),
			Source:      a.sourceType,
			OriginURL:   a.sourceURL,
			CollectedAt: now,
		},
	}

	doc.Find(".list_comment li, .cmt_list li").Each(func(i int, s *goquery.Selection) {
		content := strings.TrimSpace(s.Find(".txt_detail, .comment_txt").First().Text())
		if content == "" {
			return
		}
		commentDate := strings.TrimSpace(s.Find(".txt_date").First().Text())
		detail.Comments = append(detail.Comments, Comment{
			Author:   strings.TrimSpace(s.Find(".txt_name").First().Text()),
			Content:  content,
			PostedAt: normalize.Date(now, commentDate),
		})
	})
	detail.CommentCount = len(detail.Comments)

	return detail, nil
}
