// Package collector gathers fresh source items across configured sources,
// pacing requests and filtering against the persistent dedup index.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"ShortsFactory/internal/config"
	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/ports"
	"ShortsFactory/internal/scanner"
)

// Options tune collection behaviour.
type Options struct {
	MaxPerSource    int
	TitleSimilarity float64
}

// Collector implements ports.ItemCollector via registered scanner strategies.
type Collector struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	index    ports.DedupIndex
	limiter  *RateLimiter
	fetcher  ports.ArticleFetcher
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

var _ ports.ItemCollector = (*Collector)(nil)

// New wires the scanner registry with config-defined sources. fetcher may be
// nil, in which case listing text is used as the body.
func New(reg *scanner.Registry, sources []config.SourceConfig, index ports.DedupIndex, limiter *RateLimiter, fetcher ports.ArticleFetcher, opts Options, log *slog.Logger) *Collector {
	if limiter == nil {
		limiter = NewRateLimiter(0)
	}
	if log != nil {
		log = log.With("component", "collector")
	}
	return &Collector{
		registry: reg,
		sources:  sources,
		index:    index,
		limiter:  limiter,
		fetcher:  fetcher,
		opts:     opts,
		logger:   log,
		now:      time.Now,
	}
}

// Collect scans every selected source in configured order, drops items the
// index has already seen, keeps at most req.MaxItems and records the returned
// identities. A failing source is logged and skipped; the call fails with
// domain.ErrNoItems only when nothing fresh remains.
func (c *Collector) Collect(ctx context.Context, req ports.CollectRequest) ([]domain.SourceItem, error) {
	if c.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	if c.index == nil {
		return nil, fmt.Errorf("dedup index is not configured")
	}

	sources := c.selectSources(req.Sources)
	if len(sources) == 0 {
		return nil, domain.ConfigError("no enabled sources match %v", req.Sources)
	}
	c.debug("collect", "sources", len(sources), "max_items", req.MaxItems)

	var (
		candidates []domain.SourceItem
		failures   []error
		batchIDs   = map[string]struct{}{}
	)

	for _, src := range sources {
		items, err := c.scanSource(ctx, src)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			fe := &domain.FetchError{Source: src.Key, Err: err}
			c.warn("source failed", "source", src.Key, "error", err)
			failures = append(failures, fe)
			continue
		}

		kept := 0
		for _, item := range items {
			if _, dup := batchIDs[item.ID]; dup {
				continue
			}
			batchIDs[item.ID] = struct{}{}
			candidates = append(candidates, item)
			kept++
		}
		c.debug("source produced items", "source", src.Key, "count", kept)
	}

	fresh, err := c.dropSeen(ctx, candidates)
	if err != nil {
		return nil, err
	}
	fresh = dropSimilarTitles(fresh, c.opts.TitleSimilarity)

	if req.MaxItems > 0 && len(fresh) > req.MaxItems {
		fresh = fresh[:req.MaxItems]
	}

	if len(fresh) == 0 {
		if len(failures) == len(sources) {
			return nil, fmt.Errorf("%w: all %d sources failed: %w", domain.ErrNoItems, len(sources), errors.Join(failures...))
		}
		return nil, fmt.Errorf("%w: %d candidates, none fresh", domain.ErrNoItems, len(candidates))
	}

	if err := c.fillBodies(ctx, fresh); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(fresh))
	for _, item := range fresh {
		ids = append(ids, item.ID)
	}
	if err := c.index.Add(ctx, ids...); err != nil {
		return nil, fmt.Errorf("record collected ids: %w", err)
	}

	c.info("collect done", "items", len(fresh), "candidates", len(candidates), "failed_sources", len(failures))
	return fresh, nil
}

func (c *Collector) selectSources(only []string) []config.SourceConfig {
	allowed := map[string]bool{}
	for _, key := range only {
		if key = strings.TrimSpace(key); key != "" {
			allowed[key] = true
		}
	}
	var out []config.SourceConfig
	for _, src := range c.sources {
		if !src.Enabled {
			continue
		}
		if len(allowed) > 0 && !allowed[src.Key] {
			continue
		}
		out = append(out, src)
	}
	return out
}

func (c *Collector) scanSource(ctx context.Context, src config.SourceConfig) ([]domain.SourceItem, error) {
	strategy, err := c.registry.Resolve(src.Scanner)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx, src.Key); err != nil {
		return nil, err
	}

	items, err := strategy.Scan(ctx, scanner.Request{
		Source: scanner.Source{
			Key:          src.Key,
			Name:         src.Name,
			URL:          src.URL,
			Category:     src.Category,
			LinkSelector: src.LinkSelector,
		},
		MaxItems: c.opts.MaxPerSource,
	})
	if err != nil {
		return nil, err
	}

	now := c.now().UTC()
	out := make([]domain.SourceItem, 0, len(items))
	for _, item := range items {
		item.URL = NormalizeURL(item.URL)
		item.Title = strings.TrimSpace(item.Title)
		if item.URL == "" || item.Title == "" {
			continue
		}
		if item.ID == "" {
			item.ID = Identity(item.URL)
		}
		item.SourceKey = src.Key
		if item.SourceName == "" {
			item.SourceName = src.Name
		}
		if item.Category == "" {
			item.Category = src.Category
		}
		item.CollectedAt = now
		out = append(out, item)
	}

	// recency within a source; items without a date keep listing order at the end
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].PublishedAt, out[j].PublishedAt
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.After(b)
	})

	if c.opts.MaxPerSource > 0 && len(out) > c.opts.MaxPerSource {
		out = out[:c.opts.MaxPerSource]
	}
	return out, nil
}

func (c *Collector) dropSeen(ctx context.Context, items []domain.SourceItem) ([]domain.SourceItem, error) {
	if len(items) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	seen, err := c.index.Seen(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}

	fresh := make([]domain.SourceItem, 0, len(items))
	for _, item := range items {
		if seen[item.ID] {
			continue
		}
		fresh = append(fresh, item)
	}
	if dropped := len(items) - len(fresh); dropped > 0 {
		c.debug("dropped seen items", "count", dropped)
	}
	return fresh, nil
}

func dropSimilarTitles(items []domain.SourceItem, threshold float64) []domain.SourceItem {
	if threshold <= 0 {
		return items
	}
	var (
		kept   []domain.SourceItem
		titles []string
	)
	for _, item := range items {
		norm := NormalizeTitle(item.Title)
		similar := false
		for _, prev := range titles {
			if TitleSimilarity(norm, prev) >= threshold {
				similar = true
				break
			}
		}
		if similar {
			continue
		}
		titles = append(titles, norm)
		kept = append(kept, item)
	}
	return kept
}

// fillBodies downloads article text for the selected items only. A failed
// body fetch keeps the listing summary as the text.
func (c *Collector) fillBodies(ctx context.Context, items []domain.SourceItem) error {
	for i := range items {
		item := &items[i]
		if c.fetcher == nil {
			if item.Text == "" {
				item.Text = item.Summary
			}
			item.FetchOK = item.Text != ""
			continue
		}

		if err := c.limiter.Wait(ctx, hostOf(item.URL)); err != nil {
			return err
		}
		body, err := c.fetcher.FetchBody(ctx, *item)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.warn("body fetch failed", "url", item.URL, "error", err)
			item.FetchOK = false
			item.FetchError = err.Error()
			if item.Text == "" {
				item.Text = item.Summary
			}
			continue
		}
		item.Text = body
		item.FetchOK = true
		item.FetchError = ""
	}
	return nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

func (c *Collector) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Collector) info(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Collector) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
