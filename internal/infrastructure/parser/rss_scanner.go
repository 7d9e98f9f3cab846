package parser

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/scanner"
)

// RSSScanner reads RSS/Atom feeds.
type RSSScanner struct {
	client    *http.Client
	parser    *gofeed.Parser
	userAgent string
}

var _ scanner.Scanner = (*RSSScanner)(nil)

// NewRSSScanner wires an HTTP client; feeds are fetched with it rather than
// by gofeed directly so the user agent and timeout apply.
func NewRSSScanner(client *http.Client, userAgent string) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &RSSScanner{client: client, parser: gofeed.NewParser(), userAgent: userAgent}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return "rss"
}

// Scan downloads and parses the feed at req.Source.URL.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.SourceItem, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.Source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if s.userAgent != "" {
		httpReq.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s returned %s", req.Source.Key, resp.Status)
	}

	feed, err := s.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := feed.Items
	if req.MaxItems > 0 && len(entries) > req.MaxItems {
		entries = entries[:req.MaxItems]
	}

	items := make([]domain.SourceItem, 0, len(entries))
	for _, entry := range entries {
		link := strings.TrimSpace(entry.Link)
		title := PlainText(entry.Title)
		if link == "" || title == "" {
			continue
		}

		desc := entry.Description
		if desc == "" {
			desc = entry.Content
		}

		item := domain.SourceItem{
			URL:     link,
			Title:   title,
			Summary: PlainText(desc),
		}
		if entry.PublishedParsed != nil {
			item.PublishedAt = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			item.PublishedAt = entry.UpdatedParsed.UTC()
		}
		if len(entry.Authors) > 0 && entry.Authors[0] != nil {
			item.Author = entry.Authors[0].Name
		}
		items = append(items, item)
	}
	return items, nil
}
