package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjlee133/academyradar/helpers"
	"sjlee133/academyradar/internal/browser"
	"sjlee133/academyradar/internal/normalize"
	crawlerrors "sjlee133/academyradar/pkg/errors"
)

// Overridable in tests.
var (
	naverAPIBase       = "https://openapi.naver.com/v1/search/cafearticle.json"
	naverMobileBase    = "https://m.cafe.naver.com"
	naverPCBase        = "https://cafe.naver.com"
	naverSearchBase    = "https://search.naver.com/search.naver"
	naverLoginURL      = "https://nid.naver.com/nidlogin.login"
	naverAPIMaxDisplay = 100
)

// NaverCafeAdapter extracts posts from one Naver cafe.
type NaverCafeAdapter struct {
	baseAdapter
	cafeID string
}

// NewNaverCafeAdapter builds an adapter for the cafe at sourceURL
// (https://cafe.naver.com/<cafeID>).
func NewNaverCafeAdapter(sourceURL string, opts Options) *NaverCafeAdapter {
	cafeID := extractNaverCafeID(sourceURL)
	return &NaverCafeAdapter{
		baseAdapter: newBaseAdapter("naver_cafe", sourceURL, cafeID, opts),
		cafeID:      cafeID,
	}
}

func extractNaverCafeID(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return ""
	}
	return strings.Trim(u.Path, "/")
}

// Search runs the Naver strategy chain. The Open API strategy leads when
// credentials are configured; render scrapes and the web search cover the
// credential-free path.
func (a *NaverCafeAdapter) Search(ctx context.Context, keyword string, maxResults int, dateRange DateRange) ([]RawPost, error) {
	var strategies []strategy
	if a.opts.NaverClientID != "" && a.opts.NaverClientSecret != "" {
		strategies = append(strategies, strategy{name: "open_api", run: a.searchAPI})
	}
	strategies = append(strategies,
		strategy{name: "mobile_render", run: a.searchMobile},
		strategy{name: "pc_iframe", run: a.searchPCIframe},
		strategy{name: "web_search", run: a.searchWeb},
	)
	return a.runStrategies(ctx, strategies, keyword, maxResults, dateRange)
}

type naverAPIResponse struct {
	Total int `json:"total"`
	Start int `json:"start"`
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Description string `json:"description"`
		CafeName    string `json:"cafename"`
		CafeURL     string `json:"cafeurl"`
	} `json:"items"`
}

// searchAPI queries the cafearticle search endpoint and keeps only items
// belonging to this cafe. The API searches all cafes, so results are
// filtered post hoc against the cafe id.
func (a *NaverCafeAdapter) searchAPI(ctx context.Context, keyword string, maxResults int, dateRange DateRange) ([]RawPost, error) {
	headers := map[string]string{
		"X-Naver-Client-Id":     a.opts.NaverClientID,
		"X-Naver-Client-Secret": a.opts.NaverClientSecret,
	}

	now := time.Now()
	var posts []RawPost
	for start := 1; len(posts) < maxResults && start <= 1000; start += naverAPIMaxDisplay {
		if start > 1 {
			a.pace()
		}

		display := naverAPIMaxDisplay
		endpoint := fmt.Sprintf("%s?query=%s&display=%d&start=%d&sort=date",
			naverAPIBase, url.QueryEscape(keyword), display, start)

		var resp naverAPIResponse
		if err := helpers.FetchJSON(ctx, endpoint, headers, &resp); err != nil {
			if len(posts) > 0 {
				break
			}
			return nil, crawlerrors.NewNetwork(a.sourceType, "cafearticle search failed", err)
		}
		if len(resp.Items) == 0 {
			break
		}

		for _, item := range resp.Items {
			if !a.belongsToCafe(item.Link, item.CafeURL) {
				continue
			}
			posts = append(posts, RawPost{
				Title:       helpers.StripTags(item.Title),
				URL:         item.Link,
				Content:     helpers.StripTags(item.Description),
				Keyword:     keyword,
				Source:      a.sourceType,
				OriginURL:   a.sourceURL,
				CollectedAt: now,
			})
			if len(posts) >= maxResults {
				break
			}
		}
	}
	return posts, nil
}

func (a *NaverCafeAdapter) belongsToCafe(link, cafeURL string) bool {
	if a.cafeID == "" {
		return true
	}
	return strings.Contains(link, "/"+a.cafeID+"/") ||
		strings.HasSuffix(link, "/"+a.cafeID) ||
		strings.Contains(cafeURL, a.cafeID)
}

// searchMobile renders the mobile in-cafe article search.
func (a *NaverCafeAdapter) searchMobile(ctx context.Context, keyword string, maxResults int, dateRange DateRange) ([]RawPost, error) {
	session, err := a.ensureSession(ctx, a.loginParams())
	if err != nil {
		return nil, err
	}

	searchURL := fmt.Sprintf("%s/ca-fe/web/cafes/%s/articles?query=%s&searchBy=0",
		naverMobileBase, a.cafeID, url.QueryEscape(keyword))
	doc, err := a.renderedDocument(ctx, session, searchURL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var posts []RawPost
	doc.Find("a[href*='/articles/']").EachWithBreak(func(i int, s *goquery.Selection) bool {
		title := strings.TrimSpace(s.Find(".title, strong").First().Text())
		if title == "" {
			title = strings.TrimSpace(s.Text())
		}
		href, _ := s.Attr("href")
		if title == "" || href == "" {
			return true
		}

		rawDate := strings.TrimSpace(s.Find(".date, .time").First().Text())
		posts = append(posts, RawPost{
			Title:       title,
			URL:         absoluteURL(naverMobileBase, href),
			Author:      strings.TrimSpace(s.Find(".nickname, .nick").First().Text()),
			PostedAtRaw: rawDate,
			PostedAt:    normalize.Date(now, rawDate),
			ViewCount:   normalize.Count(s.Find(".view, .read").First().Text()),
			Keyword:     keyword,
			Source:      a.sourceType,
			OriginURL:   a.sourceURL,
			CollectedAt: now,
		})
		return len(posts) < maxResults
	})
	return posts, nil
}

// searchPCIframe renders the PC article search list that normally lives
// inside the cafe's iframe.
func (a *NaverCafeAdapter) searchPCIframe(ctx context.Context, keyword string, maxResults int, dateRange DateRange) ([]RawPost, error) {
	session, err := a.ensureSession(ctx, a.loginParams())
	if err != nil {
		return nil, err
	}

	searchURL := fmt.Sprintf("%s/ArticleSearchList.nhn?search.clubid=&search.searchBy=0&search.query=%s&search.cafeId=%s",
		naverPCBase, url.QueryEscape(keyword), url.QueryEscape(a.cafeID))
	doc, err := a.renderedDocument(ctx, session, searchURL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var posts []RawPost
	doc.Find(".article-board tr, .board-list tr").EachWithBreak(func(i int, s *goquery.Selection) bool {
		titleEl := s.Find("a.article").First()
		title := strings.TrimSpace(titleEl.Text())
		href, _ := titleEl.Attr("href")
		if title == "" || href == "" {
			return true
		}

		rawDate := strings.TrimSpace(s.Find(".td_date").First().Text())
		posts = append(posts, RawPost{
			Title:       title,
			URL:         absoluteURL(naverPCBase, href),
			Author:      strings.TrimSpace(s.Find(".td_name a, .p-nick").First().Text()),
			PostedAtRaw: rawDate,
			PostedAt:    normalize.Date(now, rawDate),
			ViewCount:   normalize.Count(s.Find(".td_view").First().Text()),
			Keyword:     keyword,
			Source:      a.sourceType,
			OriginURL:   a.sourceURL,
			CollectedAt: now,
		})
		return len(posts) < maxResults
	})
	return posts, nil
}

// searchWeb scrapes the Naver web search scoped to this cafe's domain.
// Plain HTTP; the last resort when the cafe itself will not talk to us.
func (a *NaverCafeAdapter) searchWeb(ctx context.Context, keyword string, maxResults int, dateRange DateRange) ([]RawPost, error) {
	query := fmt.Sprintf("%s site:cafe.naver.com/%s", keyword, a.cafeID)
	searchURL := fmt.Sprintf("%s?where=cafearticle&query=%s", naverSearchBase, url.QueryEscape(query))

	doc, err := a.fetchDocument(ctx, searchURL, false)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	seen := make(map[string]bool)
	var posts []RawPost
	doc.Find("a[href*='cafe.naver.com']").EachWithBreak(func(i int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		title := strings.TrimSpace(s.Text())
		if title == "" || href == "" || seen[href] {
			return true
		}
		if a.cafeID != "" && !strings.Contains(href, a.cafeID) && !strings.Contains(href, "ArticleRead") {
			return true
		}
		seen[href] = true

		posts = append(posts, RawPost{
			Title:       title,
			URL:         absoluteURL(naverPCBase, href),
			Keyword:     keyword,
			Source:      a.sourceType,
			OriginURL:   a.sourceURL,
			CollectedAt: now,
		})
		return len(posts) < maxResults
	})
	return posts, nil
}

// Detail resolves a single post with comments via the rendered page.
func (a *NaverCafeAdapter) Detail(ctx context.Context, postURL string) (*PostDetail, error) {
	session, err := a.ensureSession(ctx, a.loginParams())
	if err != nil {
		return nil, err
	}

	doc, err := a.renderedDocument(ctx, session, postURL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	title := strings.TrimSpace(doc.Find(".title_text, h3.title").First().Text())
	if title == "" {
		return nil, crawlerrors.NewParse(a.sourceType, "post markup missing title: "+postURL, nil)
	}

	rawDate := strings.TrimSpace(doc.Find(".article_info .date").First().Text())
	detail := &PostDetail{
		RawPost: RawPost{
			Title:       title,
			URL:         postURL,
			Author:      strings.TrimSpace(doc.Find(".nickname, .nick_box .nickname").First().Text()),
			Content:     strings.TrimSpace(doc.Find(".se-main-container, .article_viewer").First().Text()),
			PostedAtRaw: rawDate,
			PostedAt:    normalize.Date(now, rawDate),
			ViewCount:   normalize.Count(doc.Find(".article_info .count").First().Text()),
			Source:      a.sourceType,
			OriginURL:   a.sourceURL,
			CollectedAt: now,
		},
	}

	doc.Find(".comment_list .comment_item, li.CommentItem").Each(func(i int, s *goquery.Selection) {
		content := strings.TrimSpace(s.Find(".comment_text_view, .text_comment").First().Text())
		if content == "" {
			return
		}
		commentDate := strings.TrimSpace(s.Find(".comment_info_date, .date").First().Text())
		detail.Comments = append(detail.Comments, Comment{
			Author:   strings.TrimSpace(s.Find(".comment_nickname, .nickname").First().Text()),
			Content:  content,
			PostedAt: normalize.Date(now, commentDate),
		})
	})
	detail.CommentCount = len(detail.Comments)

	return detail, nil
}

func (a *NaverCafeAdapter) loginParams() *browser.LoginParams {
	if !a.opts.RequiresLogin || a.opts.NaverLoginID == "" {
		return nil
	}
	return &browser.LoginParams{
		URL:              naverLoginURL,
		IDSelector:       "#id",
		PasswordSelector: "#pw",
		SubmitSelector:   "#log\\.login",
		ID:               a.opts.NaverLoginID,
		Password:         a.opts.NaverLoginPass,
		FailureURLPart:   "nidlogin",
		SuccessURLPart:   "naver.com",
	}
}
