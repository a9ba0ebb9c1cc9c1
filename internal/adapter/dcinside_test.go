package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractGalleryID(t *testing.T) {
	assert.Equal(t, "maths", extractGalleryID("https://gall.dcinside.com/board/lists/?id=maths"))
	assert.Equal(t, "minis", extractGalleryID("https://gall.dcinside.com/mgallery/board/lists/?id=minis"))
}

const dcBoardHTML = `
<html><body>
<table class="gall_list"><tbody>
	<tr class="ub-content ub-notice">
		<td class="gall_tit"><a href="/board/view/?id=maths&no=1">공지사항</a></td>
		<td class="gall_date">2025.01.01</td>
	</tr>
	<tr class="ub-content">
		<td class="gall_tit"><a href="/board/view/?id=maths&no=100">한빛영재 다니는 사람</a><span class="reply_num">[3]</span></td>
		<td class="gall_writer"><span class="nickname">ㅇㅇ</span></td>
		<td class="gall_date" title="2025-11-10 14:22:00">11.10</td>
		<td class="gall_count">231</td>
	</tr>
	<tr class="ub-content">
		<td class="gall_tit"><span class="icon_notice"></span><a href="/board/view/?id=maths&no=2">광고</a></td>
		<td class="gall_date">2025.01.01</td>
	</tr>
	<tr class="ub-content">
		<td class="gall_tit"><a href="/board/view/?id=maths&no=101">한빛영재 레벨 몇임</a></td>
		<td class="gall_writer"><em>익명</em></td>
		<td class="gall_date">3시간 전</td>
		<td class="gall_count">45</td>
	</tr>
</tbody></table>
</body></html>`

func TestDCInsideBoardSearchSkipsNotices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "search_subject_memo", r.URL.Query().Get("s_type"))
		w.Write([]byte(dcBoardHTML))
	}))
	defer server.Close()

	orig := dcGalleryBase
	dcGalleryBase = server.URL
	defer func() { dcGalleryBase = orig }()

	a := NewDCInsideAdapter("https://gall.dcinside.com/board/lists/?id=maths", testOptions())
	defer a.Release()

	posts, err := a.searchBoard(context.Background(), "한빛영재", 10, DateRange{})
	require.NoError(t, err)
	require.Len(t, posts, 2, "notice and ad rows are excluded")

	assert.Equal(t, "한빛영재 다니는 사람", posts[0].Title)
	assert.Equal(t, "ㅇㅇ", posts[0].Author)
	assert.Equal(t, 231, posts[0].ViewCount)
	assert.Equal(t, 3, posts[0].CommentCount)
	require.NotNil(t, posts[0].PostedAt)

	assert.Equal(t, "익명", posts[1].Author)
	require.NotNil(t, posts[1].PostedAt, "relative dates must parse")
}

func TestDCInsideCombinedSearchScopedToGallery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`
			<html><body>
			<ul class="sch_result">
				<li><a class="tit_txt" href="https://gall.dcinside.com/board/view/?id=maths&no=300">한빛영재 어때</a><span class="date_time">2025.11.08</span></li>
				<li><a class="tit_txt" href="https://gall.dcinside.com/board/view/?id=other&no=1">딴 갤 글</a><span class="date_time">2025.11.08</span></li>
			</ul>
			</body></html>`))
	}))
	defer server.Close()

	orig := dcSearchBase
	dcSearchBase = server.URL
	defer func() { dcSearchBase = orig }()

	a := NewDCInsideAdapter("https://gall.dcinside.com/board/lists/?id=maths", testOptions())
	defer a.Release()

	posts, err := a.searchCombined(context.Background(), "한빛영재", 10, DateRange{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "한빛영재 어때", posts[0].Title)
}

func TestDCInsideSearchFallsBackAcrossStrategies(t *testing.T) {
	board := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer board.Close()

	combined := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`
			<html><body><ul class="sch_result">
				<li><a class="tit_txt" href="https://gall.dcinside.com/board/view/?id=maths&no=7">한빛영재 후기</a></li>
			</ul></body></html>`))
	}))
	defer combined.Close()

	origBoard, origSearch := dcGalleryBase, dcSearchBase
	dcGalleryBase = board.URL
	dcSearchBase = combined.URL
	defer func() { dcGalleryBase, dcSearchBase = origBoard, origSearch }()

	a := NewDCInsideAdapter("https://gall.dcinside.com/board/lists/?id=maths", testOptions())
	defer a.Release()

	posts, err := a.Search(context.Background(), "한빛영재", 10, DateRange{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.False(t, posts[0].IsSample)
}

func TestDCInsideRateLimitSetsBlockCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "300")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	orig := dcGalleryBase
	dcGalleryBase = server.URL
	defer func() { dcGalleryBase = orig }()

	opts := testOptions()
	blockCache := newRecordingCache()
	opts.CacheSvc = blockCache

	a := NewDCInsideAdapter("https://gall.dcinside.com/board/lists/?id=maths", opts)
	defer a.Release()

	_, err := a.searchBoard(context.Background(), "한빛영재", 10, DateRange{})
	require.Error(t, err)
	assert.Contains(t, blockCache.keys(), "block:dcinside:maths")

	// The cool-down window blocks the next fetch without a request
	_, err = a.searchBoard(context.Background(), "한빛영재", 10, DateRange{})
	require.Error(t, err)
}

func TestDCInsideDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`
			<html><body>
			<span class="title_subject">한빛영재 다니는 사람 있음?</span>
			<div class="gall_writer"><span class="nickname">ㅇㅇ</span></div>
			<span class="gall_date">2025.11.10</span>
			<span class="gall_count">120</span>
			<div class="write_div">본문 내용</div>
			<ul class="cmt_list">
				<li class="ub-content"><span class="nickname">댓글러</span><p class="usertxt">맞음 괜찮음</p><span class="date_time">11.11</span></li>
			</ul>
			</body></html>`))
	}))
	defer server.Close()

	a := NewDCInsideAdapter("https://gall.dcinside.com/board/lists/?id=maths", testOptions())
	defer a.Release()

	detail, err := a.Detail(context.Background(), server.URL+"/board/view/?id=maths&no=100")
	require.NoError(t, err)

	assert.Equal(t, "한빛영재 다니는 사람 있음?", detail.Title)
	assert.Equal(t, "ㅇㅇ", detail.Author)
	assert.Equal(t, "본문 내용", detail.Content)
	assert.Equal(t, 120, detail.ViewCount)
	require.NotNil(t, detail.PostedAt)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "맞음 괜찮음", detail.Comments[0].Content)
}

func TestDCInsideDetailMissingTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div class="write_div">내용만 있음</div></body></html>`))
	}))
	defer server.Close()

	a := NewDCInsideAdapter("https://gall.dcinside.com/board/lists/?id=maths", testOptions())
	defer a.Release()

	_, err := a.Detail(context.Background(), server.URL+"/board/view/?id=maths&no=1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}
