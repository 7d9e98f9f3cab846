package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShortsFactory/internal/config"
	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/usecase"
)

func quotesConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Profile:      "quotes",
		PipelineType: domain.KindQuotes,
		Storage:      config.StorageConfig{DataDir: dir},
		Scheduler:    config.SchedulerConfig{RunAt: "06:00"},
		Providers: config.ProvidersConfig{
			LLM: config.BackendChoice{Backend: "ollama"},
			TTS: config.BackendChoice{Backend: "google"},
		},
		LLM:     config.LLMConfig{Ollama: config.OllamaConfig{BaseURL: "http://127.0.0.1:11434", Model: "gemma2"}},
		TTS:     config.TTSConfig{Google: config.GoogleTTSConfig{APIKey: "test-key", VoiceName: "ko-KR-Neural2-A", Language: "ko-KR"}},
		Content: config.ContentConfig{QuotesFile: filepath.Join(dir, "quotes.json")},
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewWiresQuotesProfile(t *testing.T) {
	application, err := New(context.Background(), quotesConfig(t), discard())
	require.NoError(t, err)
	require.NotNil(t, application.pipeline)
	assert.NoError(t, application.Close())
}

func TestNewWiresNewsProfileWithDedupIndex(t *testing.T) {
	cfg := quotesConfig(t)
	cfg.Profile = "news"
	cfg.PipelineType = domain.KindNews
	cfg.Sources = []config.SourceConfig{{Key: "yna", Scanner: "rss", URL: "https://example.com/rss", Enabled: true}}

	application, err := New(context.Background(), cfg, discard())
	require.NoError(t, err)
	require.Len(t, application.closers, 1)
	assert.FileExists(t, filepath.Join(cfg.ProfileDir(), "dedup.db"))
	assert.NoError(t, application.Close())
}

func TestNewFailsFastOnMissingCredentials(t *testing.T) {
	cfg := quotesConfig(t)
	cfg.Providers.LLM = config.BackendChoice{Backend: "openai"}

	_, err := New(context.Background(), cfg, discard())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := quotesConfig(t)
	cfg.Providers.TTS = config.BackendChoice{Backend: "polly"}

	_, err := New(context.Background(), cfg, discard())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "edge, google")
}

func TestNewRequiresYouTubeCredentialsWhenPublishing(t *testing.T) {
	cfg := quotesConfig(t)
	cfg.Publish = config.PublishConfig{Enabled: true, Target: "youtube"}

	_, err := New(context.Background(), cfg, discard())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestRunRejectsMalformedDate(t *testing.T) {
	application, err := New(context.Background(), quotesConfig(t), discard())
	require.NoError(t, err)
	defer application.Close()

	_, err = application.Run(context.Background(), usecase.RunRequest{Date: "2026-13-40"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
