package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShortsFactory/internal/domain"
)

const baseYAML = `
logging:
  level: warn
scheduler:
  run_at: "07:30"
  timezone: Asia/Seoul
providers:
  llm:
    backend: ollama
sources:
  - key: hn
    name: Hacker News
    scanner: rss
    url: https://news.ycombinator.com/rss
    category: tech
    enabled: true
scraping:
  min_interval: 3s
  body_selectors:
    example.com: article
`

func writeConfig(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func noEnv(string) string { return "" }

func TestLoadMergesProfileOverBase(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, map[string]string{
		"config.yaml": baseYAML,
		"profiles/news.yaml": `
pipeline_type: news
scraping:
  max_items: 7
  body_selectors:
    other.org: main
publish:
  enabled: true
  youtube:
    privacy: unlisted
`,
	})

	cfg, err := Load(LoadOptions{ConfigDir: dir, Profile: "news", Getenv: noEnv})
	require.NoError(t, err)

	assert.Equal(t, domain.KindNews, cfg.PipelineType)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 7, cfg.Scraping.MaxItems)
	assert.Equal(t, 3*time.Second, cfg.Scraping.MinInterval)
	assert.Equal(t, "article", cfg.Scraping.BodySelectors["example.com"])
	assert.Equal(t, "main", cfg.Scraping.BodySelectors["other.org"])
	assert.Equal(t, "unlisted", cfg.Publish.YouTube.Privacy)
	// untouched defaults survive both layers
	assert.Equal(t, 1080, cfg.Video.Width)
	assert.Equal(t, 15, cfg.Subtitles.CharsPerCue)
	assert.Equal(t, "Asia/Seoul", cfg.Scheduler.Location().String())
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, map[string]string{
		"config.yaml":        baseYAML,
		"profiles/news.yaml": "pipeline_type: news\n",
	})
	env := map[string]string{
		"LLM_PROVIDER":     "OpenAI",
		"TTS_PROVIDER":     "google",
		"OPENAI_API_KEY":   "sk-test",
		"SHORTS_DATA_DIR":  "/tmp/shorts",
		"TELEGRAM_CHAT_ID": "42",
	}

	cfg, err := Load(LoadOptions{ConfigDir: dir, Profile: "news", Getenv: func(k string) string { return env[k] }})
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Providers.LLM.Backend)
	assert.Equal(t, "google", cfg.Providers.TTS.Backend)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, "/tmp/shorts", cfg.Storage.DataDir)
	assert.Equal(t, "42", cfg.Notifications.Telegram.ChatID)
	assert.Equal(t, filepath.Join("/tmp/shorts", "news"), cfg.ProfileDir())
}

func TestLoadRejectsInvalidProfiles(t *testing.T) {
	t.Parallel()

	cases := map[string]map[string]string{
		"missing profile file": {
			"config.yaml": baseYAML,
		},
		"unknown pipeline type": {
			"config.yaml":        baseYAML,
			"profiles/news.yaml": "pipeline_type: podcasts\n",
		},
		"quotes without corpus": {
			"config.yaml":        baseYAML,
			"profiles/news.yaml": "pipeline_type: quotes\n",
		},
		"bad scanner": {
			"config.yaml": baseYAML,
			"profiles/news.yaml": `
pipeline_type: news
sources:
  - key: x
    scanner: atom
    url: https://x.test/feed
    enabled: true
`,
		},
		"html_list without selector": {
			"config.yaml": baseYAML,
			"profiles/news.yaml": `
pipeline_type: news
sources:
  - key: x
    scanner: html_list
    url: https://x.test/
    enabled: true
`,
		},
		"duration over a minute": {
			"config.yaml": baseYAML,
			"profiles/news.yaml": `
pipeline_type: news
video:
  max_duration: 90s
`,
		},
	}

	for name, files := range cases {
		files := files
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			dir := writeConfig(t, files)
			_, err := Load(LoadOptions{ConfigDir: dir, Profile: "news", Getenv: noEnv})
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfiguration), "got %v", err)
		})
	}
}

func TestEnabledSourcesFilters(t *testing.T) {
	t.Parallel()

	cfg := Config{Sources: []SourceConfig{
		{Key: "a", Enabled: true},
		{Key: "b", Enabled: false},
		{Key: "c", Enabled: true},
	}}

	all := cfg.EnabledSources(nil)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Key)
	assert.Equal(t, "c", all[1].Key)

	only := cfg.EnabledSources([]string{" c ", "b"})
	require.Len(t, only, 1)
	assert.Equal(t, "c", only[0].Key)
}

func TestTodayUsesSchedulerTimezone(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, map[string]string{
		"config.yaml":        baseYAML,
		"profiles/news.yaml": "pipeline_type: news\n",
	})
	cfg, err := Load(LoadOptions{ConfigDir: dir, Profile: "news", Getenv: noEnv})
	require.NoError(t, err)

	// 20:00 UTC is already the next day in Seoul.
	now := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-03-02", cfg.Today(now))
}
