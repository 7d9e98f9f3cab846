package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/texttospeech/v1"

	"ShortsFactory/internal/config"
	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/ports"
)

// GoogleSynthesizer calls Google Cloud Text-to-Speech. It reports no word
// timing; subtitles fall back to proportional spreading.
type GoogleSynthesizer struct {
	svc   *texttospeech.Service
	voice ports.Voice
}

var _ ports.SpeechSynthesizer = (*GoogleSynthesizer)(nil)

// NewGoogleSynthesizer authenticates with an API key unless opts supply
// another client.
func NewGoogleSynthesizer(ctx context.Context, cfg config.GoogleTTSConfig, opts ...option.ClientOption) (*GoogleSynthesizer, error) {
	if cfg.APIKey == "" && len(opts) == 0 {
		return nil, domain.ConfigError("google tts: no credentials, set GOOGLE_TTS_API_KEY")
	}
	if cfg.APIKey != "" {
		opts = append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	}

	svc, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google tts service: %w", err)
	}
	return &GoogleSynthesizer{
		svc: svc,
		voice: ports.Voice{
			Name:         cfg.VoiceName,
			Language:     cfg.Language,
			SpeakingRate: cfg.SpeakingRate,
			Pitch:        cfg.Pitch,
		},
	}, nil
}

func (g *GoogleSynthesizer) Name() string { return "google" }

// Synthesize requests MP3 audio for text.
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text string, voice ports.Voice) (ports.Speech, error) {
	if strings.TrimSpace(text) == "" {
		return ports.Speech{}, fmt.Errorf("%w: google: empty text", domain.ErrProviderRejected)
	}
	v := mergeVoice(voice, g.voice)
	lang := v.Language
	if lang == "" {
		lang = "ko-KR"
	}

	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: lang,
			Name:         v.Name,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: "MP3",
			SpeakingRate:  v.SpeakingRate,
			Pitch:         v.Pitch,
		},
	}

	resp, err := g.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return ports.Speech{}, classifyGoogleError(ctx, err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil || len(audio) == 0 {
		return ports.Speech{}, fmt.Errorf("%w: google tts returned no audio", domain.ErrProviderRejected)
	}
	return ports.Speech{Audio: audio, Format: "mp3"}, nil
}

func classifyGoogleError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code < http.StatusInternalServerError {
		return fmt.Errorf("%w: google tts: %v", domain.ErrProviderRejected, err)
	}
	return fmt.Errorf("%w: google tts: %v", domain.ErrProviderUnavailable, err)
}
