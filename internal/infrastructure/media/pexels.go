package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ShortsFactory/internal/ports"
)

const (
	defaultPexelsURL  = "https://api.pexels.com"
	minClipDuration   = 10
	searchResultsSize = 15
)

// PexelsOptions configure PexelsBackgrounds.
type PexelsOptions struct {
	APIKey   string
	BaseURL  string
	CacheDir string
	// PerQuery caps downloads per search query.
	PerQuery int
	// Fallback is searched when a query yields nothing.
	Fallback string
}

// PexelsBackgrounds downloads portrait stock footage from the Pexels video
// API into a shared on-disk cache.
type PexelsBackgrounds struct {
	client   *http.Client
	apiKey   string
	baseURL  string
	cacheDir string
	perQuery int
	fallback string
	logger   *slog.Logger
}

var _ ports.BackgroundSource = (*PexelsBackgrounds)(nil)

func NewPexelsBackgrounds(client *http.Client, opts PexelsOptions, logger *slog.Logger) *PexelsBackgrounds {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultPexelsURL
	}
	if opts.PerQuery <= 0 {
		opts.PerQuery = 1
	}
	if logger != nil {
		logger = logger.With("component", "pexels")
	}
	return &PexelsBackgrounds{
		client:   client,
		apiKey:   opts.APIKey,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		cacheDir: opts.CacheDir,
		perQuery: opts.PerQuery,
		fallback: opts.Fallback,
		logger:   logger,
	}
}

type pexelsSearch struct {
	Videos []pexelsVideo `json:"videos"`
}

type pexelsVideo struct {
	ID         int64             `json:"id"`
	Duration   int               `json:"duration"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	VideoFiles []pexelsVideoFile `json:"video_files"`
}

type pexelsVideoFile struct {
	Quality  string `json:"quality"`
	FileType string `json:"file_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Link     string `json:"link"`
}

// Backgrounds translates each keyword set into a footage search and returns
// up to PerQuery local clip paths for it. Without an API key it returns
// nothing and the composer uses a solid colour. Failures for a single search
// are logged and skipped.
func (p *PexelsBackgrounds) Backgrounds(ctx context.Context, keywordSets [][]string) ([]string, error) {
	if p.apiKey == "" {
		p.debug("no pexels api key, skipping backgrounds")
		return nil, nil
	}
	if err := os.MkdirAll(p.cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("background cache: %w", err)
	}

	used := map[int64]bool{}
	var paths []string
	for _, kws := range keywordSets {
		q := visualQuery(kws, p.fallback)
		if q == "" {
			continue
		}
		got, err := p.forQuery(ctx, q, used)
		if err == nil && len(got) == 0 && p.fallback != "" && p.fallback != q {
			p.debug("no footage for query, trying fallback", "query", q, "fallback", p.fallback)
			got, err = p.forQuery(ctx, p.fallback, used)
		}
		if err != nil {
			if ctx.Err() != nil {
				return paths, ctx.Err()
			}
			p.warn("background lookup failed", "query", q, "error", err)
			continue
		}
		paths = append(paths, got...)
	}
	return paths, nil
}

func (p *PexelsBackgrounds) forQuery(ctx context.Context, query string, used map[int64]bool) ([]string, error) {
	videos, err := p.search(ctx, query)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, v := range videos {
		if len(paths) >= p.perQuery {
			break
		}
		if used[v.ID] || v.Duration < minClipDuration {
			continue
		}
		file, ok := bestFile(v.VideoFiles)
		if !ok {
			continue
		}
		path, err := p.download(ctx, v.ID, file.Link)
		if err != nil {
			p.warn("background download failed", "video_id", v.ID, "error", err)
			continue
		}
		used[v.ID] = true
		paths = append(paths, path)
	}
	return paths, nil
}

func (p *PexelsBackgrounds) search(ctx context.Context, query string) ([]pexelsVideo, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("orientation", "portrait")
	params.Set("size", "medium")
	params.Set("per_page", strconv.Itoa(searchResultsSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/videos/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pexels search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pexels search %q: status %d", query, resp.StatusCode)
	}

	var out pexelsSearch
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode pexels search: %w", err)
	}
	return out.Videos, nil
}

// download fetches a clip into the cache unless it is already there.
func (p *PexelsBackgrounds) download(ctx context.Context, id int64, link string) (string, error) {
	path := filepath.Join(p.cacheDir, fmt.Sprintf("bg_%d.mp4", id))
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		p.debug("background cache hit", "path", path)
		return path, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(p.cacheDir, ".bg-*.mp4")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	p.debug("background downloaded", "path", path)
	return path, nil
}

// bestFile prefers a portrait mp4 rendition closest to 1080px wide.
func bestFile(files []pexelsVideoFile) (pexelsVideoFile, bool) {
	var best pexelsVideoFile
	bestScore := -1
	for _, f := range files {
		if f.Link == "" || (f.FileType != "" && f.FileType != "video/mp4") {
			continue
		}
		score := 10000 - abs(f.Width-1080)
		if f.Height < f.Width {
			score -= 5000
		}
		if score > bestScore {
			best, bestScore = f, score
		}
	}
	return best, bestScore >= 0
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (p *PexelsBackgrounds) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *PexelsBackgrounds) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
