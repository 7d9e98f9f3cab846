package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"ShortsFactory/internal/config"
	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/ports"
	"ShortsFactory/internal/subtitle"
)

// EdgeSynthesizer shells out to the edge-tts command line tool and reads
// sentence timing from the SRT it writes alongside the audio.
type EdgeSynthesizer struct {
	command string
	voice   ports.Voice
}

var _ ports.SpeechSynthesizer = (*EdgeSynthesizer)(nil)

// NewEdgeSynthesizer fails with a configuration error when the command is
// not on PATH.
func NewEdgeSynthesizer(cfg config.EdgeTTSConfig) (*EdgeSynthesizer, error) {
	command := cfg.Command
	if command == "" {
		command = "edge-tts"
	}
	if _, err := exec.LookPath(command); err != nil {
		return nil, domain.ConfigError("edge-tts command %q not found: install it with `pip install edge-tts`", command)
	}
	return &EdgeSynthesizer{
		command: command,
		voice:   ports.Voice{Name: cfg.Voice, Rate: cfg.Rate, Volume: cfg.Volume},
	}, nil
}

func (e *EdgeSynthesizer) Name() string { return "edge" }

// Synthesize renders text to MP3.
func (e *EdgeSynthesizer) Synthesize(ctx context.Context, text string, voice ports.Voice) (ports.Speech, error) {
	if strings.TrimSpace(text) == "" {
		return ports.Speech{}, fmt.Errorf("%w: edge: empty text", domain.ErrProviderRejected)
	}
	v := mergeVoice(voice, e.voice)

	dir, err := os.MkdirTemp("", "edge-tts-*")
	if err != nil {
		return ports.Speech{}, fmt.Errorf("edge temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	media := filepath.Join(dir, "speech.mp3")
	subs := filepath.Join(dir, "speech.srt")

	args := []string{"--text", text, "--write-media", media, "--write-subtitles", subs}
	if v.Name != "" {
		args = append(args, "--voice", v.Name)
	}
	// leading +/- would be read as a flag without the = form
	if v.Rate != "" {
		args = append(args, "--rate="+v.Rate)
	}
	if v.Volume != "" {
		args = append(args, "--volume="+v.Volume)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.command, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ports.Speech{}, ctx.Err()
		}
		return ports.Speech{}, fmt.Errorf("%w: edge-tts: %v: %s", domain.ErrProviderUnavailable, err, lastLine(stderr.String()))
	}

	audio, err := os.ReadFile(media)
	if err != nil || len(audio) == 0 {
		return ports.Speech{}, fmt.Errorf("%w: edge-tts produced no audio", domain.ErrProviderRejected)
	}

	speech := ports.Speech{Audio: audio, Format: "mp3"}
	if raw, err := os.ReadFile(subs); err == nil {
		if cues, err := subtitle.ParseSRT(raw); err == nil && len(cues) > 0 {
			speech.Boundaries = subtitle.Boundaries(cues)
			speech.Duration = cues[len(cues)-1].End
		}
	}
	return speech, nil
}

func mergeVoice(override, base ports.Voice) ports.Voice {
	if override.Name == "" {
		override.Name = base.Name
	}
	if override.Rate == "" {
		override.Rate = base.Rate
	}
	if override.Volume == "" {
		override.Volume = base.Volume
	}
	if override.Language == "" {
		override.Language = base.Language
	}
	if override.SpeakingRate == 0 {
		override.SpeakingRate = base.SpeakingRate
	}
	if override.Pitch == 0 {
		override.Pitch = base.Pitch
	}
	return override
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
