package provider

import (
	"context"
	"errors"
	"log/slog"

	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/ports"
)

func recoverable(err error) bool {
	return errors.Is(err, domain.ErrProviderUnavailable) || errors.Is(err, domain.ErrProviderRejected)
}

type fallbackModel struct {
	primary   ports.LanguageModel
	alternate ports.LanguageModel
	logger    *slog.Logger
}

func (f *fallbackModel) Name() string {
	return f.primary.Name() + "+" + f.alternate.Name()
}

func (f *fallbackModel) Generate(ctx context.Context, prompt ports.Prompt) (string, error) {
	text, err := f.primary.Generate(ctx, prompt)
	if err == nil || !recoverable(err) || ctx.Err() != nil {
		return text, err
	}
	f.logger.Warn("language model failed, using alternate", "primary", f.primary.Name(), "alternate", f.alternate.Name(), "error", err)
	return f.alternate.Generate(ctx, prompt)
}

type fallbackSpeech struct {
	primary   ports.SpeechSynthesizer
	alternate ports.SpeechSynthesizer
	logger    *slog.Logger
}

func (f *fallbackSpeech) Name() string {
	return f.primary.Name() + "+" + f.alternate.Name()
}

func (f *fallbackSpeech) Synthesize(ctx context.Context, text string, voice ports.Voice) (ports.Speech, error) {
	speech, err := f.primary.Synthesize(ctx, text, voice)
	if err == nil || !recoverable(err) || ctx.Err() != nil {
		return speech, err
	}
	f.logger.Warn("speech backend failed, using alternate", "primary", f.primary.Name(), "alternate", f.alternate.Name(), "error", err)
	return f.alternate.Synthesize(ctx, text, voice)
}
