package parser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v5"

	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/ports"
)

// ErrEmptyBody means the page loaded but no article text was found.
var ErrEmptyBody = errors.New("no article body found")

// bodySelectors are tried in order when no site-specific selector matches.
var bodySelectors = []string{
	"[itemprop=articleBody]",
	"#articleBody",
	"#article-view-content-div",
	"div.article_body",
	"div.article-body",
	"article",
	"main",
}

// ArticleFetcher downloads an article page and extracts its main text.
type ArticleFetcher struct {
	client       *http.Client
	userAgent    string
	maxTries     uint
	initialDelay time.Duration
	selectors    map[string]string
}

var _ ports.ArticleFetcher = (*ArticleFetcher)(nil)

// FetcherOptions tune ArticleFetcher.
type FetcherOptions struct {
	UserAgent     string
	MaxRetries    int
	InitialDelay  time.Duration
	BodySelectors map[string]string
}

// NewArticleFetcher wires an HTTP client. BodySelectors maps a hostname to
// the CSS selector holding that site's article text.
func NewArticleFetcher(client *http.Client, opts FetcherOptions) *ArticleFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	tries := opts.MaxRetries
	if tries <= 0 {
		tries = 1
	}
	delay := opts.InitialDelay
	if delay <= 0 {
		delay = time.Second
	}
	return &ArticleFetcher{
		client:       client,
		userAgent:    opts.UserAgent,
		maxTries:     uint(tries),
		initialDelay: delay,
		selectors:    opts.BodySelectors,
	}
}

// FetchBody returns the cleaned article text for item.URL.
func (f *ArticleFetcher) FetchBody(ctx context.Context, item domain.SourceItem) (string, error) {
	operation := func() (*goquery.Document, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if f.userAgent != "" {
			req.Header.Set("User-Agent", f.userAgent)
		}
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if isRetryableStatus(resp.StatusCode) {
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}

		doc, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("parse document: %w", err))
		}
		return doc, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.initialDelay
	bo.MaxInterval = 10 * f.initialDelay

	doc, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(f.maxTries))
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", item.URL, err)
	}

	body := CleanBody(f.extract(doc, item.URL))
	if body == "" {
		return "", ErrEmptyBody
	}
	return body, nil
}

func (f *ArticleFetcher) extract(doc *goquery.Document, pageURL string) string {
	doc.Find("script, style, noscript, nav, aside, figure, header, footer, iframe").Remove()

	if u, err := url.Parse(pageURL); err == nil {
		if sel, ok := f.selectors[u.Hostname()]; ok && sel != "" {
			if text := selectionText(doc.Find(sel)); text != "" {
				return text
			}
		}
	}

	for _, sel := range bodySelectors {
		if text := selectionText(doc.Find(sel).First()); len([]rune(text)) >= 100 {
			return text
		}
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, "\n")
}

func selectionText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	var lines []string
	for _, line := range strings.Split(sel.Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
