package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"ShortsFactory/internal/collector"
	"ShortsFactory/internal/config"
	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/infrastructure/llm"
	"ShortsFactory/internal/infrastructure/media"
	"ShortsFactory/internal/infrastructure/parser"
	"ShortsFactory/internal/infrastructure/scheduler"
	"ShortsFactory/internal/infrastructure/storage"
	"ShortsFactory/internal/infrastructure/telegram"
	"ShortsFactory/internal/infrastructure/tts"
	"ShortsFactory/internal/infrastructure/youtube"
	"ShortsFactory/internal/logging"
	"ShortsFactory/internal/ports"
	"ShortsFactory/internal/provider"
	"ShortsFactory/internal/quotes"
	"ShortsFactory/internal/scanner"
	"ShortsFactory/internal/store"
	"ShortsFactory/internal/usecase"
)

const (
	dedupFile     = "dedup.db"
	backgroundDir = "backgrounds"
	newsTitle     = "{date} 주요 뉴스"
	quotesTitle   = "오늘의 명언"
	stopTimeout   = 30 * time.Second
)

// Application wires one profile's configuration to the pipeline and owns the
// resources it opened.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	closers  []io.Closer
}

// New resolves providers and builds every adapter the profile needs. Missing
// credentials or tools for the selected backends fail here, before any stage
// runs.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger.With("profile", cfg.Profile)}

	registry := provider.NewRegistry(a.logger)
	registerProviders(ctx, registry, cfg)

	model, err := registry.ResolveLanguageModel(cfg.Providers.LLM.Backend, cfg.Providers.LLM.Fallback)
	if err != nil {
		return nil, err
	}
	speech, err := registry.ResolveSpeech(cfg.Providers.TTS.Backend, cfg.Providers.TTS.Fallback)
	if err != nil {
		return nil, err
	}

	variant, err := a.buildVariant(model)
	if err != nil {
		a.Close()
		return nil, err
	}

	prober := media.NewProber(cfg.Video.FFprobe)
	deps := usecase.PipelineDeps{
		Profile:  cfg.Profile,
		Variant:  variant,
		Store:    store.New(cfg.ProfileDir()),
		Speech:   speech,
		Prober:   prober,
		Composer: media.NewComposer(cfg.Video, cfg.Backgrounds.FallbackColor, prober, a.logger),
		Backgrounds: media.NewPexelsBackgrounds(nil, media.PexelsOptions{
			APIKey:   cfg.Backgrounds.PexelsAPIKey,
			CacheDir: filepath.Join(cfg.Storage.DataDir, backgroundDir),
			PerQuery: cfg.Backgrounds.PerQuery,
			Fallback: cfg.Backgrounds.Query,
		}, a.logger),
		Publish:     cfg.Publish.Enabled,
		CharsPerCue: cfg.Subtitles.CharsPerCue,
		Logger:      a.logger,
	}

	publisher, err := a.buildPublisher(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if publisher != nil {
		deps.Publisher = publisher
	}

	notifier := telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	if notifier.Configured() {
		deps.Notifier = notifier
	}

	a.pipeline = usecase.NewPipeline(deps)
	a.logger.Info("application ready", "config", cfg.String(), "llm", model.Name(), "tts", speech.Name())
	return a, nil
}

// registerProviders adds every known backend. Factories check their own
// credentials so only the selected backends need them.
func registerProviders(ctx context.Context, reg *provider.Registry, cfg config.Config) {
	reg.RegisterLanguageModel("ollama", func() (ports.LanguageModel, error) {
		if cfg.LLM.Ollama.BaseURL == "" {
			return nil, domain.ConfigError("llm.ollama.base_url is empty")
		}
		return llm.NewOllamaClient(cfg.LLM.Ollama), nil
	})
	reg.RegisterLanguageModel("openai", func() (ports.LanguageModel, error) {
		if cfg.LLM.OpenAI.APIKey == "" {
			return nil, domain.ConfigError("openai backend needs OPENAI_API_KEY")
		}
		return llm.NewOpenAIClient(cfg.LLM.OpenAI), nil
	})
	reg.RegisterLanguageModel("claude", func() (ports.LanguageModel, error) {
		if cfg.LLM.Claude.APIKey == "" {
			return nil, domain.ConfigError("claude backend needs ANTHROPIC_API_KEY")
		}
		return llm.NewClaudeClient(cfg.LLM.Claude), nil
	})

	reg.RegisterSpeech("edge", func() (ports.SpeechSynthesizer, error) {
		s, err := tts.NewEdgeSynthesizer(cfg.TTS.Edge)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	reg.RegisterSpeech("google", func() (ports.SpeechSynthesizer, error) {
		s, err := tts.NewGoogleSynthesizer(ctx, cfg.TTS.Google)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

func (a *Application) buildVariant(model ports.LanguageModel) (usecase.Variant, error) {
	cfg := a.cfg
	switch cfg.PipelineType {
	case domain.KindNews:
		index, err := storage.OpenDedupIndex(filepath.Join(cfg.ProfileDir(), dedupFile))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, index)

		client := &http.Client{Timeout: cfg.Scraping.RequestTimeout}
		scanners := scanner.NewRegistry()
		scanners.Register(parser.NewRSSScanner(client, cfg.Scraping.UserAgent))
		scanners.Register(parser.NewHTMLListScanner(client, cfg.Scraping.UserAgent))
		fetcher := parser.NewArticleFetcher(client, parser.FetcherOptions{
			UserAgent:     cfg.Scraping.UserAgent,
			MaxRetries:    cfg.Scraping.MaxRetries,
			BodySelectors: cfg.Scraping.BodySelectors,
		})

		coll := collector.New(scanners, cfg.EnabledSources(nil), index,
			collector.NewRateLimiter(cfg.Scraping.MinInterval), fetcher,
			collector.Options{MaxPerSource: cfg.Scraping.MaxPerSource, TitleSimilarity: cfg.Dedup.TitleSimilarity},
			a.logger)

		return usecase.NewNewsVariant(coll, model, usecase.NewsOptions{
			MaxItems:       cfg.Scraping.MaxItems,
			MaxArticles:    cfg.Summarizer.MaxArticles,
			MinBodyChars:   cfg.Summarizer.MinBodyChars,
			WordsPerMinute: cfg.Summarizer.WordsPerMinute,
			MaxTokens:      cfg.Summarizer.MaxTokens,
			Title:          newsTitle,
			YouTube:        cfg.Publish.YouTube,
		}, a.logger), nil

	case domain.KindQuotes:
		picker := quotes.NewPicker(quotes.NewCorpus(cfg.Content.QuotesFile), a.logger)
		return usecase.NewQuotesVariant(picker, model, usecase.QuotesOptions{
			WordsPerMinute: cfg.Summarizer.WordsPerMinute,
			MaxTokens:      cfg.Summarizer.MaxTokens,
			Title:          quotesTitle,
			YouTube:        cfg.Publish.YouTube,
		}, a.logger), nil
	}
	return nil, domain.ConfigError("profile %q: unknown pipeline_type %q", cfg.Profile, cfg.PipelineType)
}

// buildPublisher requires YouTube credentials when publishing is enabled.
// Otherwise a publisher is still built when credentials are present, so
// upload-only runs work for profiles that do not publish automatically.
func (a *Application) buildPublisher(ctx context.Context) (*youtube.Publisher, error) {
	yt := a.cfg.Publish.YouTube
	if a.cfg.Publish.Enabled {
		return youtube.NewPublisher(ctx, yt, a.logger)
	}
	if yt.ClientID == "" || yt.ClientSecret == "" || yt.RefreshToken == "" {
		return nil, nil
	}
	p, err := youtube.NewPublisher(ctx, yt, a.logger)
	if err != nil {
		a.logger.Warn("youtube publisher unavailable", "error", err)
		return nil, nil
	}
	return p, nil
}

// Run executes one pipeline run. An empty date means today in the scheduler
// timezone.
func (a *Application) Run(ctx context.Context, req usecase.RunRequest) (usecase.Report, error) {
	if req.Date == "" {
		req.Date = a.cfg.Today(time.Now())
	}
	return a.pipeline.Run(ctx, req)
}

// Schedule runs template daily at scheduler.run_at until ctx is cancelled.
func (a *Application) Schedule(ctx context.Context, template usecase.RunRequest) error {
	driver, err := scheduler.NewDailyScheduler(a.cfg.Scheduler.RunAt, a.cfg.Scheduler.Location())
	if err != nil {
		return err
	}
	sched := usecase.NewScheduler(driver, a.pipeline, a.cfg.Scheduler.Location(), template, a.logger)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "run_at", a.cfg.Scheduler.RunAt, "next", driver.Next(time.Now()))

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return sched.Stop(stopCtx)
}

// Close releases resources opened by New.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
