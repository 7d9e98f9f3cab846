// Package youtube uploads composed shorts through the YouTube Data API v3.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"ShortsFactory/internal/config"
	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/ports"
)

const (
	watchURL      = "https://www.youtube.com/shorts/"
	uploadChunk   = 8 << 20
	defaultTries  = 3
	initialRetry  = 2 * time.Second
	maxTitleRunes = 100
)

// Publisher uploads videos with a refresh-token OAuth client.
type Publisher struct {
	svc        *yt.Service
	defaults   config.YouTubeConfig
	maxTries   uint
	retryDelay time.Duration
	logger     *slog.Logger
}

var _ ports.Publisher = (*Publisher)(nil)

// NewPublisher authorizes with the configured client id, secret and refresh
// token unless opts supply another HTTP client. Missing credentials are a
// configuration error so a publishing run fails before any stage executes.
func NewPublisher(ctx context.Context, cfg config.YouTubeConfig, logger *slog.Logger, opts ...option.ClientOption) (*Publisher, error) {
	if len(opts) == 0 {
		client, err := oauthClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = []option.ClientOption{option.WithHTTPClient(client)}
	}

	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	if logger != nil {
		logger = logger.With("component", "youtube")
	}
	return &Publisher{
		svc:        svc,
		defaults:   cfg,
		maxTries:   defaultTries,
		retryDelay: initialRetry,
		logger:     logger,
	}, nil
}

func oauthClient(ctx context.Context, cfg config.YouTubeConfig) (*http.Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, domain.ConfigError("youtube: set YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET and YOUTUBE_REFRESH_TOKEN")
	}
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{yt.YoutubeUploadScope},
	}
	// expired on purpose so the first request exchanges the refresh token
	token := &oauth2.Token{RefreshToken: cfg.RefreshToken, Expiry: time.Now().Add(-time.Hour)}
	return oauth2.NewClient(ctx, conf.TokenSource(ctx, token)), nil
}

// Publish uploads video.Path. 5xx responses and transport failures are
// retried with backoff; the error after the last attempt matches
// domain.ErrProviderUnavailable, a 4xx matches domain.ErrProviderRejected.
func (p *Publisher) Publish(ctx context.Context, video domain.VideoOutput, meta ports.PublishMetadata) (ports.PublishResult, error) {
	if _, err := os.Stat(video.Path); err != nil {
		return ports.PublishResult{}, domain.MissingDependency(domain.StagePublish, "video file", err)
	}
	body := p.videoResource(meta)

	attempt := 0
	operation := func() (*yt.Video, error) {
		attempt++
		f, err := os.Open(video.Path)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		defer f.Close()

		p.info("uploading video", "title", body.Snippet.Title, "attempt", attempt)
		uploaded, err := p.svc.Videos.Insert([]string{"snippet", "status"}, body).
			Media(f, googleapi.ChunkSize(uploadChunk)).
			Context(ctx).
			Do()
		if err != nil {
			if ctx.Err() != nil || !retryable(err) {
				return nil, backoff.Permanent(err)
			}
			p.warn("upload failed, retrying", "attempt", attempt, "error", err)
			return nil, err
		}
		return uploaded, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.retryDelay
	bo.MaxInterval = 10 * p.retryDelay

	uploaded, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(p.maxTries))
	if err != nil {
		if ctx.Err() != nil {
			return ports.PublishResult{}, ctx.Err()
		}
		return ports.PublishResult{}, classify(err)
	}
	if uploaded.Id == "" {
		return ports.PublishResult{}, fmt.Errorf("%w: youtube returned no video id", domain.ErrProviderRejected)
	}

	result := ports.PublishResult{ExternalID: uploaded.Id, URL: watchURL + uploaded.Id}
	p.info("video uploaded", "video_id", result.ExternalID, "url", result.URL)
	return result, nil
}

func (p *Publisher) videoResource(meta ports.PublishMetadata) *yt.Video {
	privacy := firstNonEmpty(meta.Privacy, p.defaults.Privacy, "private")
	lang := firstNonEmpty(meta.Language, p.defaults.Language)
	return &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:                truncate(meta.Title, maxTitleRunes),
			Description:          meta.Description,
			Tags:                 meta.Tags,
			CategoryId:           firstNonEmpty(meta.CategoryID, p.defaults.CategoryID),
			DefaultLanguage:      lang,
			DefaultAudioLanguage: lang,
		},
		Status: &yt.VideoStatus{
			PrivacyStatus:           privacy,
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}
}

func retryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= http.StatusInternalServerError
	}
	return true
}

func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code < http.StatusInternalServerError {
		return fmt.Errorf("%w: youtube: %v", domain.ErrProviderRejected, err)
	}
	return fmt.Errorf("%w: youtube: %v", domain.ErrProviderUnavailable, err)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (p *Publisher) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Publisher) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
