package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/scanner"
)

// HTMLListScanner extracts article links from a section page using a CSS
// selector, for sites that publish no feed.
type HTMLListScanner struct {
	client    *http.Client
	userAgent string
}

var _ scanner.Scanner = (*HTMLListScanner)(nil)

// NewHTMLListScanner wires an HTTP client.
func NewHTMLListScanner(client *http.Client, userAgent string) *HTMLListScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLListScanner{client: client, userAgent: userAgent}
}

// Name identifies the strategy inside the registry.
func (h *HTMLListScanner) Name() string {
	return "html_list"
}

// Scan returns one item per anchor matched by req.Source.LinkSelector.
func (h *HTMLListScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.SourceItem, error) {
	if req.Source.LinkSelector == "" {
		return nil, fmt.Errorf("no link selector provided for source %s", req.Source.Key)
	}

	base, err := url.Parse(req.Source.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid list url %s: %w", req.Source.URL, err)
	}

	doc, err := fetchDocument(ctx, h.client, h.userAgent, req.Source.URL)
	if err != nil {
		return nil, err
	}

	var items []domain.SourceItem
	seen := map[string]struct{}{}

	doc.Find(req.Source.LinkSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link, title := linkAndTitle(sel)
		if link == "" || title == "" {
			return true
		}
		abs := resolveLink(base, link)
		if abs == "" {
			return true
		}
		if _, ok := seen[abs]; ok {
			return true
		}
		seen[abs] = struct{}{}
		items = append(items, domain.SourceItem{URL: abs, Title: title})
		return req.MaxItems <= 0 || len(items) < req.MaxItems
	})

	return items, nil
}

// linkAndTitle accepts either the anchor itself or a container around it.
func linkAndTitle(sel *goquery.Selection) (string, string) {
	anchor := sel
	if goquery.NodeName(sel) != "a" {
		anchor = sel.Find("a[href]").First()
	}
	href, _ := anchor.Attr("href")
	title := strings.Join(strings.Fields(anchor.Text()), " ")
	if title == "" {
		title, _ = anchor.Attr("title")
		title = strings.TrimSpace(title)
	}
	return strings.TrimSpace(href), title
}

func resolveLink(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

func fetchDocument(ctx context.Context, client *http.Client, userAgent, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}
