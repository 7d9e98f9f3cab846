package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/scanner"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Sample</title>
  <item>
    <title>First &amp; foremost</title>
    <link>https://news.test/a/1?utm_source=rss</link>
    <description><![CDATA[<p>Lead <b>paragraph</b> here.</p>]]></description>
    <pubDate>Mon, 02 Jun 2025 09:00:00 +0900</pubDate>
  </item>
  <item>
    <title>Second</title>
    <link>https://news.test/a/2</link>
    <description>Plain description</description>
  </item>
  <item>
    <title></title>
    <link>https://news.test/a/3</link>
  </item>
</channel>
</rss>`

func TestRSSScannerParsesFeed(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	s := NewRSSScanner(srv.Client(), "ShortsFactory/test")
	items, err := s.Scan(context.Background(), scanner.Request{
		Source: scanner.Source{Key: "sample", URL: srv.URL},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if gotUA != "ShortsFactory/test" {
		t.Fatalf("unexpected user agent %q", gotUA)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Title != "First & foremost" {
		t.Fatalf("unexpected title %q", items[0].Title)
	}
	if items[0].Summary != "Lead paragraph here." {
		t.Fatalf("unexpected summary %q", items[0].Summary)
	}
	want := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	if !items[0].PublishedAt.Equal(want) {
		t.Fatalf("unexpected published time %s", items[0].PublishedAt)
	}
	if !items[1].PublishedAt.IsZero() {
		t.Fatalf("expected zero time for undated entry, got %s", items[1].PublishedAt)
	}
}

func TestRSSScannerRespectsMaxItems(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	items, err := NewRSSScanner(srv.Client(), "").Scan(context.Background(), scanner.Request{
		Source:   scanner.Source{Key: "sample", URL: srv.URL},
		MaxItems: 1,
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestRSSScannerReportsHTTPErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	_, err := NewRSSScanner(srv.Client(), "").Scan(context.Background(), scanner.Request{
		Source: scanner.Source{Key: "sample", URL: srv.URL},
	})
	if err == nil || !strings.Contains(err.Error(), "410") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestHTMLListScannerResolvesLinks(t *testing.T) {
	t.Parallel()

	page := `<html><body>
	<ul class="list">
	  <li class="entry"><a href="/news/1">  Relative   link </a></li>
	  <li class="entry"><a href="https://other.test/2">Absolute link</a></li>
	  <li class="entry"><a href="/news/1">Duplicate</a></li>
	  <li class="entry"><a href="javascript:void(0)">Script</a></li>
	  <li class="entry"><a href="/news/3"></a></li>
	</ul></body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	s := NewHTMLListScanner(srv.Client(), "")
	items, err := s.Scan(context.Background(), scanner.Request{
		Source: scanner.Source{Key: "list", URL: srv.URL + "/section/", LinkSelector: "li.entry"},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}
	if items[0].URL != srv.URL+"/news/1" || items[0].Title != "Relative link" {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	if items[1].URL != "https://other.test/2" {
		t.Fatalf("unexpected second item %+v", items[1])
	}
}

func TestHTMLListScannerNeedsSelector(t *testing.T) {
	t.Parallel()

	_, err := NewHTMLListScanner(nil, "").Scan(context.Background(), scanner.Request{
		Source: scanner.Source{Key: "list", URL: "https://x.test"},
	})
	if err == nil {
		t.Fatal("expected error without selector")
	}
}

const articlePage = `<html><body>
<nav>Home | World | Tech</nav>
<div class="story-news">
  <p>반도체 수출이 석 달 연속 증가했다.</p>
  <p>정부는 하반기에도 흐름이 이어질 것으로 내다봤다.</p>
  <p>hong@news.test</p>
</div>
<script>var x = 1;</script>
</body></html>`

func TestArticleFetcherUsesSiteSelector(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	f := NewArticleFetcher(srv.Client(), FetcherOptions{
		BodySelectors: map[string]string{"127.0.0.1": "div.story-news"},
	})
	body, err := f.FetchBody(context.Background(), domain.SourceItem{URL: srv.URL + "/a/1"})
	if err != nil {
		t.Fatalf("fetch body: %v", err)
	}

	want := "반도체 수출이 석 달 연속 증가했다. 정부는 하반기에도 흐름이 이어질 것으로 내다봤다."
	if body != want {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestArticleFetcherRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`<html><body><p>Recovered text.</p></body></html>`))
	}))
	defer srv.Close()

	f := NewArticleFetcher(srv.Client(), FetcherOptions{MaxRetries: 3, InitialDelay: time.Millisecond})
	body, err := f.FetchBody(context.Background(), domain.SourceItem{URL: srv.URL})
	if err != nil {
		t.Fatalf("fetch body: %v", err)
	}
	if body != "Recovered text." {
		t.Fatalf("unexpected body %q", body)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestArticleFetcherDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.NotFound(w, nil)
	}))
	defer srv.Close()

	f := NewArticleFetcher(srv.Client(), FetcherOptions{MaxRetries: 3, InitialDelay: time.Millisecond})
	if _, err := f.FetchBody(context.Background(), domain.SourceItem{URL: srv.URL}); err == nil {
		t.Fatal("expected error for 404")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestArticleFetcherEmptyBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><script>only()</script></body></html>`))
	}))
	defer srv.Close()

	_, err := NewArticleFetcher(srv.Client(), FetcherOptions{}).FetchBody(context.Background(), domain.SourceItem{URL: srv.URL})
	if !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
}

func TestCleanBodyStripsBoilerplate(t *testing.T) {
	t.Parallel()

	in := "[홍길동 기자] 본문 내용입니다.\n(사진=연합뉴스) 이어지는 문장.\n▶ 관련 기사 보기\n무단 전재 및 재배포 금지"
	got := CleanBody(in)
	if got != "본문 내용입니다. 이어지는 문장." {
		t.Fatalf("unexpected cleaned body %q", got)
	}
}
