package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"ShortsFactory/internal/domain"
)

const (
	appName         = "shortsfactory"
	defaultTimezone = "UTC"
	baseConfigFile  = "config.yaml"
	profilesDir     = "profiles"

	configDirEnv      = "SHORTS_CONFIG_DIR"
	dataDirEnv        = "SHORTS_DATA_DIR"
	logLevelEnv       = "LOG_LEVEL"
	logFormatEnv      = "LOG_FORMAT"
	llmProviderEnv    = "LLM_PROVIDER"
	ttsProviderEnv    = "TTS_PROVIDER"
	openAIKeyEnv      = "OPENAI_API_KEY"
	anthropicKeyEnv   = "ANTHROPIC_API_KEY"
	ollamaURLEnv      = "OLLAMA_BASE_URL"
	googleTTSKeyEnv   = "GOOGLE_TTS_API_KEY"
	pexelsKeyEnv      = "PEXELS_API_KEY"
	youtubeClientEnv  = "YOUTUBE_CLIENT_ID"
	youtubeSecretEnv  = "YOUTUBE_CLIENT_SECRET"
	youtubeRefreshEnv = "YOUTUBE_REFRESH_TOKEN"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config is the merged common + profile configuration. It is built once per
// process and passed by value; nothing reads the environment after Load.
type Config struct {
	Profile       string             `yaml:"-"`
	PipelineType  domain.ProfileKind `yaml:"pipeline_type"`
	Logging       LoggingConfig      `yaml:"logging"`
	Storage       StorageConfig      `yaml:"storage"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Providers     ProvidersConfig    `yaml:"providers"`
	LLM           LLMConfig          `yaml:"llm"`
	TTS           TTSConfig          `yaml:"tts"`
	Video         VideoConfig        `yaml:"video"`
	Backgrounds   BackgroundConfig   `yaml:"backgrounds"`
	Scraping      ScrapingConfig     `yaml:"scraping"`
	Dedup         DedupConfig        `yaml:"dedup"`
	Sources       []SourceConfig     `yaml:"sources"`
	Summarizer    SummarizerConfig   `yaml:"summarizer"`
	Subtitles     SubtitleConfig     `yaml:"subtitles"`
	Content       ContentConfig      `yaml:"content"`
	Publish       PublishConfig      `yaml:"publish"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig controls slog verbosity and output format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig points at the root of persisted state.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// SchedulerConfig defines when the daily run fires and which timezone
// decides "today".
type SchedulerConfig struct {
	RunAt    string         `yaml:"run_at"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ProvidersConfig selects the active backend per capability.
type ProvidersConfig struct {
	LLM BackendChoice `yaml:"llm"`
	TTS BackendChoice `yaml:"tts"`
}

// BackendChoice names the primary backend and an optional alternate.
type BackendChoice struct {
	Backend  string `yaml:"backend"`
	Fallback string `yaml:"fallback"`
}

// LLMConfig groups settings per language-model backend.
type LLMConfig struct {
	Ollama OllamaConfig `yaml:"ollama"`
	OpenAI ChatConfig   `yaml:"openai"`
	Claude ChatConfig   `yaml:"claude"`
}

// OllamaConfig describes a local Ollama server.
type OllamaConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ChatConfig defines how to contact a hosted chat-completion API.
type ChatConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// TTSConfig groups settings per speech backend.
type TTSConfig struct {
	Edge   EdgeTTSConfig   `yaml:"edge"`
	Google GoogleTTSConfig `yaml:"google"`
}

// EdgeTTSConfig configures the edge-tts command line tool.
type EdgeTTSConfig struct {
	Command string `yaml:"command"`
	Voice   string `yaml:"voice"`
	Rate    string `yaml:"rate"`
	Volume  string `yaml:"volume"`
}

// GoogleTTSConfig configures Google Cloud Text-to-Speech.
type GoogleTTSConfig struct {
	APIKey       string  `yaml:"api_key"`
	VoiceName    string  `yaml:"voice_name"`
	Language     string  `yaml:"language"`
	SpeakingRate float64 `yaml:"speaking_rate"`
	Pitch        float64 `yaml:"pitch"`
}

// VideoConfig is the output video format and encoder settings.
type VideoConfig struct {
	Width       int           `yaml:"width"`
	Height      int           `yaml:"height"`
	FPS         int           `yaml:"fps"`
	VideoCodec  string        `yaml:"video_codec"`
	AudioCodec  string        `yaml:"audio_codec"`
	MaxDuration time.Duration `yaml:"max_duration"`
	Font        string        `yaml:"font"`
	FontSize    int           `yaml:"font_size"`
	FFmpeg      string        `yaml:"ffmpeg"`
	FFprobe     string        `yaml:"ffprobe"`
}

// BackgroundConfig configures background footage lookup.
type BackgroundConfig struct {
	PexelsAPIKey  string `yaml:"pexels_api_key"`
	PerQuery      int    `yaml:"per_query"`
	FallbackColor string `yaml:"fallback_color"`
	Query         string `yaml:"query"`
}

// ScrapingConfig tunes outbound fetches.
type ScrapingConfig struct {
	UserAgent      string            `yaml:"user_agent"`
	RequestTimeout time.Duration     `yaml:"request_timeout"`
	MinInterval    time.Duration     `yaml:"min_interval"`
	MaxRetries     int               `yaml:"max_retries"`
	MaxItems       int               `yaml:"max_items"`
	MaxPerSource   int               `yaml:"max_per_source"`
	BodySelectors  map[string]string `yaml:"body_selectors"`
}

// DedupConfig tunes batch-level near-duplicate detection.
type DedupConfig struct {
	TitleSimilarity float64 `yaml:"title_similarity"`
}

// SourceConfig describes one content source and its scanner strategy.
type SourceConfig struct {
	Key          string `yaml:"key"`
	Name         string `yaml:"name"`
	Scanner      string `yaml:"scanner"`
	URL          string `yaml:"url"`
	Category     string `yaml:"category"`
	Enabled      bool   `yaml:"enabled"`
	LinkSelector string `yaml:"link_selector"`
}

// SummarizerConfig controls the news transform.
type SummarizerConfig struct {
	MaxArticles    int `yaml:"max_articles"`
	MinBodyChars   int `yaml:"min_body_chars"`
	WordsPerMinute int `yaml:"words_per_minute"`
	MaxTokens      int `yaml:"max_tokens"`
}

// SubtitleConfig controls cue splitting.
type SubtitleConfig struct {
	CharsPerCue int `yaml:"chars_per_cue"`
}

// ContentConfig holds quote-profile settings.
type ContentConfig struct {
	QuotesFile string `yaml:"quotes_file"`
}

// PublishConfig toggles and configures the publish target.
type PublishConfig struct {
	Enabled bool          `yaml:"enabled"`
	Target  string        `yaml:"target"`
	YouTube YouTubeConfig `yaml:"youtube"`
}

// YouTubeConfig carries upload metadata defaults and OAuth client data.
type YouTubeConfig struct {
	Privacy       string   `yaml:"privacy"`
	CategoryID    string   `yaml:"category_id"`
	Language      string   `yaml:"language"`
	DefaultTags   []string `yaml:"default_tags"`
	TitleTemplate string   `yaml:"title_template"`
	ClientID      string   `yaml:"client_id"`
	ClientSecret  string   `yaml:"client_secret"`
	RefreshToken  string   `yaml:"refresh_token"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// LoadOptions locate configuration on disk.
type LoadOptions struct {
	ConfigDir string
	Profile   string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Load reads config.yaml, decodes profiles/<profile>.yaml over it, then
// applies environment overrides and validates the result.
func Load(opts LoadOptions) (Config, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if opts.Profile == "" {
		opts.Profile = string(domain.KindNews)
	}

	dir := ResolveConfigDir(opts.ConfigDir, getenv)
	cfg := defaultConfig()

	basePath := filepath.Join(dir, baseConfigFile)
	if err := decodeFile(basePath, &cfg); err != nil {
		return Config{}, err
	}

	profilePath := filepath.Join(dir, profilesDir, opts.Profile+".yaml")
	if err := decodeFile(profilePath, &cfg); err != nil {
		return Config{}, err
	}

	cfg.Profile = opts.Profile
	if cfg.PipelineType == "" {
		cfg.PipelineType = domain.ProfileKind(opts.Profile)
	}

	cfg.applyEnvOverrides(getenv)
	cfg.bindTimezone()
	cfg.resolvePaths(dir)

	if err := validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ResolveConfigDir picks the explicit directory, then $SHORTS_CONFIG_DIR,
// then ./config, then the XDG config home.
func ResolveConfigDir(explicit string, getenv func(string) string) string {
	if explicit != "" {
		return explicit
	}
	if v := getenv(configDirEnv); v != "" {
		return v
	}
	if info, err := os.Stat("config"); err == nil && info.IsDir() {
		return "config"
	}
	return filepath.Join(xdg.ConfigHome, appName)
}

// Today returns the current date in the scheduler timezone.
func (c Config) Today(now time.Time) string {
	return now.In(c.Scheduler.Location()).Format(time.DateOnly)
}

// EnabledSources returns enabled sources in configured order, optionally
// narrowed to the given keys.
func (c Config) EnabledSources(only []string) []SourceConfig {
	allowed := map[string]bool{}
	for _, k := range only {
		if k = strings.TrimSpace(k); k != "" {
			allowed[k] = true
		}
	}
	var out []SourceConfig
	for _, s := range c.Sources {
		if !s.Enabled {
			continue
		}
		if len(allowed) > 0 && !allowed[s.Key] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ProfileDir is the root of all persisted state for the active profile.
func (c Config) ProfileDir() string {
	return filepath.Join(c.Storage.DataDir, c.Profile)
}

func decodeFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ConfigError("config file %s not found", path)
		}
		return domain.ConfigError("read %s: %v", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return domain.ConfigError("parse %s: %v", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&c.Storage.DataDir, dataDirEnv)
	set(&c.Logging.Level, logLevelEnv)
	set(&c.Logging.Format, logFormatEnv)
	set(&c.LLM.OpenAI.APIKey, openAIKeyEnv)
	set(&c.LLM.Claude.APIKey, anthropicKeyEnv)
	set(&c.LLM.Ollama.BaseURL, ollamaURLEnv)
	set(&c.TTS.Google.APIKey, googleTTSKeyEnv)
	set(&c.Backgrounds.PexelsAPIKey, pexelsKeyEnv)
	set(&c.Publish.YouTube.ClientID, youtubeClientEnv)
	set(&c.Publish.YouTube.ClientSecret, youtubeSecretEnv)
	set(&c.Publish.YouTube.RefreshToken, youtubeRefreshEnv)
	set(&c.Notifications.Telegram.BotToken, telegramTokenEnv)
	set(&c.Notifications.Telegram.ChatID, telegramChatIDEnv)

	if v := strings.TrimSpace(getenv(llmProviderEnv)); v != "" {
		c.Providers.LLM.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(getenv(ttsProviderEnv)); v != "" {
		c.Providers.TTS.Backend = strings.ToLower(v)
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

// resolvePaths anchors relative content paths at the config directory and
// falls back to the XDG data home for state.
func (c *Config) resolvePaths(dir string) {
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = filepath.Join(xdg.DataHome, appName)
	}
	if q := c.Content.QuotesFile; q != "" && !filepath.IsAbs(q) {
		if _, err := os.Stat(q); err != nil {
			c.Content.QuotesFile = filepath.Join(dir, q)
		}
	}
}

func validate(cfg *Config) error {
	switch cfg.PipelineType {
	case domain.KindNews:
		if len(cfg.EnabledSources(nil)) == 0 {
			return domain.ConfigError("profile %q: no enabled sources", cfg.Profile)
		}
	case domain.KindQuotes:
		if cfg.Content.QuotesFile == "" {
			return domain.ConfigError("profile %q: content.quotes_file is required", cfg.Profile)
		}
	default:
		return domain.ConfigError("profile %q: unknown pipeline_type %q (valid: news, quotes)", cfg.Profile, cfg.PipelineType)
	}

	validScanners := map[string]bool{"rss": true, "html_list": true}
	keys := map[string]bool{}
	for i, s := range cfg.Sources {
		if s.Key == "" {
			return domain.ConfigError("source %d: key is required", i)
		}
		if keys[s.Key] {
			return domain.ConfigError("source %q: duplicate key", s.Key)
		}
		keys[s.Key] = true
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return domain.ConfigError("source %q: url must be http or https, got %q", s.Key, s.URL)
		}
		if !validScanners[s.Scanner] {
			return domain.ConfigError("source %q: unknown scanner %q (valid: rss, html_list)", s.Key, s.Scanner)
		}
		if s.Scanner == "html_list" && s.LinkSelector == "" {
			return domain.ConfigError("source %q: html_list needs link_selector", s.Key)
		}
	}

	if cfg.Video.MaxDuration <= 0 || cfg.Video.MaxDuration > 60*time.Second {
		return domain.ConfigError("video.max_duration must be within (0, 60s], got %s", cfg.Video.MaxDuration)
	}
	if cfg.Video.Width <= 0 || cfg.Video.Height <= 0 || cfg.Video.FPS <= 0 {
		return domain.ConfigError("video: width, height and fps must be positive")
	}
	if cfg.Publish.Enabled && cfg.Publish.Target != "youtube" {
		return domain.ConfigError("publish.target %q is not supported (valid: youtube)", cfg.Publish.Target)
	}
	return nil
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Storage:   StorageConfig{DataDir: "data"},
		Scheduler: SchedulerConfig{RunAt: "06:00", Timezone: defaultTimezone, location: tz},
		Providers: ProvidersConfig{
			LLM: BackendChoice{Backend: "ollama"},
			TTS: BackendChoice{Backend: "edge"},
		},
		LLM: LLMConfig{
			Ollama: OllamaConfig{
				BaseURL:     "http://localhost:11434",
				Model:       "gemma2:9b-instruct-q4_K_M",
				Temperature: 0.3,
				MaxTokens:   2048,
				Timeout:     5 * time.Minute,
			},
			OpenAI: ChatConfig{
				Endpoint:    "https://api.openai.com/v1/chat/completions",
				Model:       "gpt-4o-mini",
				Temperature: 0.3,
				MaxTokens:   2048,
				Timeout:     60 * time.Second,
			},
			Claude: ChatConfig{
				Endpoint:    "https://api.anthropic.com/v1/messages",
				Model:       "claude-sonnet-4-20250514",
				Temperature: 0.3,
				MaxTokens:   2048,
				Timeout:     60 * time.Second,
			},
		},
		TTS: TTSConfig{
			Edge:   EdgeTTSConfig{Command: "edge-tts", Voice: "ko-KR-SunHiNeural", Rate: "+0%", Volume: "+0%"},
			Google: GoogleTTSConfig{VoiceName: "ko-KR-Neural2-A", Language: "ko-KR", SpeakingRate: 1.0},
		},
		Video: VideoConfig{
			Width:       1080,
			Height:      1920,
			FPS:         30,
			VideoCodec:  "libx264",
			AudioCodec:  "aac",
			MaxDuration: 59 * time.Second,
			Font:        "NanumGothic",
			FontSize:    64,
			FFmpeg:      "ffmpeg",
			FFprobe:     "ffprobe",
		},
		Backgrounds: BackgroundConfig{PerQuery: 1, FallbackColor: "0x101820", Query: "city night"},
		Scraping: ScrapingConfig{
			UserAgent:      "ShortsFactory/1.0",
			RequestTimeout: 15 * time.Second,
			MinInterval:    2 * time.Second,
			MaxRetries:     3,
			MaxItems:       20,
			MaxPerSource:   10,
		},
		Dedup:      DedupConfig{TitleSimilarity: 0.6},
		Summarizer: SummarizerConfig{MaxArticles: 5, MinBodyChars: 100, WordsPerMinute: 150, MaxTokens: 2048},
		Subtitles:  SubtitleConfig{CharsPerCue: 15},
		Publish: PublishConfig{
			Target: "youtube",
			YouTube: YouTubeConfig{
				Privacy:       "private",
				CategoryID:    "25",
				Language:      "ko",
				TitleTemplate: "{date} #Shorts",
			},
		},
	}
}

// String renders a short human description for logs.
func (c Config) String() string {
	return fmt.Sprintf("profile=%s type=%s llm=%s tts=%s", c.Profile, c.PipelineType, c.Providers.LLM.Backend, c.Providers.TTS.Backend)
}
