package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractNaverCafeID(t *testing.T) {
	assert.Equal(t, "engedu", extractNaverCafeID("https://cafe.naver.com/engedu"))
	assert.Equal(t, "engedu", extractNaverCafeID("https://cafe.naver.com/engedu/"))
	assert.Equal(t, "", extractNaverCafeID("https://cafe.naver.com/"))
}

func TestNaverSearchAPIFiltersByCafe(t *testing.T) {
	var gotClientID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClientID = r.Header.Get("X-Naver-Client-Id")
		start := r.URL.Query().Get("start")
		if start != "1" {
			w.Write([]byte(`{"total": 2, "items": []}`))
			return
		}
		w.Write([]byte(`{
			"total": 2,
			"start": 1,
			"items": [
				{"title": "<b>한빛영재</b> 후기", "link": "https://cafe.naver.com/engedu/123", "description": "좋아요", "cafename": "영어교육", "cafeurl": "https://cafe.naver.com/engedu"},
				{"title": "다른 카페 글", "link": "https://cafe.naver.com/other/9", "description": "", "cafename": "무관", "cafeurl": "https://cafe.naver.com/other"}
			]
		}`))
	}))
	defer server.Close()

	orig := naverAPIBase
	naverAPIBase = server.URL
	defer func() { naverAPIBase = orig }()

	opts := testOptions()
	opts.NaverClientID = "cid"
	opts.NaverClientSecret = "csecret"
	a := NewNaverCafeAdapter("https://cafe.naver.com/engedu", opts)
	defer a.Release()

	posts, err := a.searchAPI(context.Background(), "한빛영재", 20, DateRange{})
	require.NoError(t, err)
	assert.Equal(t, "cid", gotClientID)

	require.Len(t, posts, 1)
	assert.Equal(t, "한빛영재 후기", posts[0].Title, "markup must be stripped from API titles")
	assert.Equal(t, "https://cafe.naver.com/engedu/123", posts[0].URL)
	assert.Equal(t, "naver_cafe", posts[0].Source)
	assert.False(t, posts[0].IsSample)
}

func TestNaverSearchChainPrefersAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") != "1" {
			w.Write([]byte(`{"total": 1, "items": []}`))
			return
		}
		w.Write([]byte(`{"total": 1, "items": [{"title": "글", "link": "https://cafe.naver.com/engedu/5", "description": "", "cafename": "", "cafeurl": ""}]}`))
	}))
	defer server.Close()

	orig := naverAPIBase
	naverAPIBase = server.URL
	defer func() { naverAPIBase = orig }()

	session := &fakeSession{}
	opts := testOptions()
	opts.NaverClientID = "cid"
	opts.NaverClientSecret = "csecret"
	opts.NewSession = sessionFactory(session)

	a := NewNaverCafeAdapter("https://cafe.naver.com/engedu", opts)
	defer a.Release()

	posts, err := a.Search(context.Background(), "한빛영재", 10, DateRange{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Empty(t, session.navigated, "render strategies must not run when the API succeeds")
}

func TestNaverMobileRenderScrape(t *testing.T) {
	session := &fakeSession{html: `
		<html><body>
			<ul>
				<li><a href="/ca-fe/web/cafes/engedu/articles/100">
					<strong>한빛영재 상담 후기</strong>
					<span class="nickname">학부모A</span>
					<span class="date">2025.11.10</span>
					<span class="view">조회 152</span>
				</a></li>
				<li><a href="/ca-fe/web/cafes/engedu/articles/101">
					<strong>한빛영재 레벨테스트</strong>
					<span class="date">3일 전</span>
				</a></li>
			</ul>
		</body></html>`}

	opts := testOptions()
	opts.NewSession = sessionFactory(session)
	a := NewNaverCafeAdapter("https://cafe.naver.com/engedu", opts)
	defer a.Release()

	posts, err := a.searchMobile(context.Background(), "한빛영재", 10, DateRange{})
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "한빛영재 상담 후기", posts[0].Title)
	assert.Contains(t, posts[0].URL, "/articles/100")
	assert.Equal(t, 152, posts[0].ViewCount)
	require.NotNil(t, posts[0].PostedAt)

	require.NotNil(t, posts[1].PostedAt, "relative dates must parse")
	require.Len(t, session.navigated, 1)
	assert.Contains(t, session.navigated[0], "cafes/engedu/articles")
}

func TestNaverMobileRenderLogsInWhenRequired(t *testing.T) {
	session := &fakeSession{html: "<html><body></body></html>"}

	opts := testOptions()
	opts.NewSession = sessionFactory(session)
	opts.RequiresLogin = true
	opts.NaverLoginID = "user"
	opts.NaverLoginPass = "pass"

	a := NewNaverCafeAdapter("https://cafe.naver.com/engedu", opts)
	defer a.Release()

	_, err := a.searchMobile(context.Background(), "한빛영재", 10, DateRange{})
	require.NoError(t, err)
	require.Len(t, session.logins, 1)
	assert.Equal(t, "user", session.logins[0].ID)
	assert.Equal(t, "nidlogin", session.logins[0].FailureURLPart)

	// Session is reused; no second login
	_, err = a.searchMobile(context.Background(), "한빛영재", 10, DateRange{})
	require.NoError(t, err)
	assert.Len(t, session.logins, 1)
}

func TestNaverLoginFailureFallsThroughToSamples(t *testing.T) {
	session := &fakeSession{loginErr: fmt.Errorf("captcha")}

	opts := testOptions()
	opts.NewSession = sessionFactory(session)
	opts.RequiresLogin = true
	opts.NaverLoginID = "user"
	opts.NaverLoginPass = "pass"

	a := NewNaverCafeAdapter("https://cafe.naver.com/engedu", opts)
	defer a.Release()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>no results</body></html>"))
	}))
	defer srv.Close()
	origSearch := naverSearchBase
	naverSearchBase = srv.URL
	defer func() { naverSearchBase = origSearch }()

	posts, err := a.Search(context.Background(), "한빛영재", 5, DateRange{})
	require.NoError(t, err)
	require.Len(t, posts, 5)
	for _, p := range posts {
		assert.True(t, p.IsSample)
	}
}

func TestNaverDetail(t *testing.T) {
	session := &fakeSession{html: `
		<html><body>
			<h3 class="title_text">한빛영재 설명회 후기</h3>
			<div class="article_info"><span class="date">2025.11.10</span><span class="count">조회 152</span></div>
			<span class="nickname">작성자A</span>
			<div class="se-main-container">설명회 다녀온 후기입니다</div>
			<ul class="comment_list">
				<li class="comment_item">
					<span class="comment_nickname">댓글러</span>
					<span class="comment_text_view">정보 감사합니다</span>
					<span class="comment_info_date">2025.11.11</span>
				</li>
			</ul>
		</body></html>`}

	opts := testOptions()
	opts.NewSession = sessionFactory(session)
	a := NewNaverCafeAdapter("https://cafe.naver.com/engedu", opts)
	defer a.Release()

	detail, err := a.Detail(context.Background(), "https://cafe.naver.com/engedu/100")
	require.NoError(t, err)

	assert.Equal(t, "한빛영재 설명회 후기", detail.Title)
	assert.Equal(t, "작성자A", detail.Author)
	assert.Contains(t, detail.Content, "설명회")
	assert.Equal(t, 152, detail.ViewCount)
	require.NotNil(t, detail.PostedAt)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "정보 감사합니다", detail.Comments[0].Content)
	assert.Equal(t, []string{"https://cafe.naver.com/engedu/100"}, session.navigated)
}

func TestNaverWebSearchScrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`
			<html><body>
				<a href="https://cafe.naver.com/engedu/55">한빛영재 설명회 다녀왔어요</a>
				<a href="https://cafe.naver.com/unrelated/1">다른 카페</a>
				<a href="https://cafe.naver.com/engedu/55">한빛영재 설명회 다녀왔어요</a>
			</body></html>`))
	}))
	defer server.Close()

	orig := naverSearchBase
	naverSearchBase = server.URL
	defer func() { naverSearchBase = orig }()

	a := NewNaverCafeAdapter("https://cafe.naver.com/engedu", testOptions())
	defer a.Release()

	posts, err := a.searchWeb(context.Background(), "한빛영재", 10, DateRange{})
	require.NoError(t, err)
	require.Len(t, posts, 1, "duplicate links and other cafes are skipped")
	assert.Equal(t, "한빛영재 설명회 다녀왔어요", posts[0].Title)
}
