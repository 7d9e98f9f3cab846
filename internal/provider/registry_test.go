package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/ports"
)

type fakeModel struct {
	name  string
	err   error
	calls int
}

func (m *fakeModel) Name() string { return m.name }

func (m *fakeModel) Generate(context.Context, ports.Prompt) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return "from " + m.name, nil
}

type fakeSpeech struct {
	name string
	err  error
}

func (s *fakeSpeech) Name() string { return s.name }

func (s *fakeSpeech) Synthesize(context.Context, string, ports.Voice) (ports.Speech, error) {
	if s.err != nil {
		return ports.Speech{}, s.err
	}
	return ports.Speech{Audio: []byte(s.name)}, nil
}

func TestResolveUnknownBackendFailsFast(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(nil)
	reg.RegisterLanguageModel("ollama", func() (ports.LanguageModel, error) { return &fakeModel{name: "ollama"}, nil })

	_, err := reg.Resolve(LanguageModel, "gpt5")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "ollama")

	// registered under another capability only
	_, err = reg.ResolveSpeech("ollama", "")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(nil)
	reg.RegisterLanguageModel("OpenAI", func() (ports.LanguageModel, error) { return &fakeModel{name: "openai"}, nil })

	model, err := reg.ResolveLanguageModel(" openai ", "")
	require.NoError(t, err)
	assert.Equal(t, "openai", model.Name())
	assert.Equal(t, []string{"openai"}, reg.Backends(LanguageModel))
}

func TestFactoryErrorsSurfaceAtResolution(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(nil)
	reg.RegisterLanguageModel("claude", func() (ports.LanguageModel, error) {
		return nil, domain.ConfigError("ANTHROPIC_API_KEY is not set")
	})

	_, err := reg.ResolveLanguageModel("claude", "")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestLanguageModelFallback(t *testing.T) {
	t.Parallel()
	primary := &fakeModel{name: "ollama", err: fmt.Errorf("%w: connection refused", domain.ErrProviderUnavailable)}
	alternate := &fakeModel{name: "openai"}

	reg := NewRegistry(nil)
	reg.RegisterLanguageModel("ollama", func() (ports.LanguageModel, error) { return primary, nil })
	reg.RegisterLanguageModel("openai", func() (ports.LanguageModel, error) { return alternate, nil })

	model, err := reg.ResolveLanguageModel("ollama", "openai")
	require.NoError(t, err)

	text, err := model.Generate(context.Background(), ports.Prompt{User: "x"})
	require.NoError(t, err)
	assert.Equal(t, "from openai", text)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, alternate.calls)
}

func TestFallbackIgnoresNonProviderErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	primary := &fakeModel{name: "a", err: boom}
	alternate := &fakeModel{name: "b"}

	model := &fallbackModel{primary: primary, alternate: alternate, logger: NewRegistry(nil).logger}
	_, err := model.Generate(context.Background(), ports.Prompt{})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, alternate.calls)
}

func TestSpeechFallback(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(nil)
	reg.RegisterSpeech("edge", func() (ports.SpeechSynthesizer, error) {
		return &fakeSpeech{name: "edge", err: fmt.Errorf("%w: quota", domain.ErrProviderRejected)}, nil
	})
	reg.RegisterSpeech("google", func() (ports.SpeechSynthesizer, error) { return &fakeSpeech{name: "google"}, nil })

	synth, err := reg.ResolveSpeech("edge", "google")
	require.NoError(t, err)
	assert.Equal(t, "edge+google", synth.Name())

	speech, err := synth.Synthesize(context.Background(), "hi", ports.Voice{})
	require.NoError(t, err)
	assert.Equal(t, "google", string(speech.Audio))
}

func TestSameFallbackAsPrimaryIsIgnored(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(nil)
	reg.RegisterSpeech("edge", func() (ports.SpeechSynthesizer, error) { return &fakeSpeech{name: "edge"}, nil })

	synth, err := reg.ResolveSpeech("edge", "EDGE")
	require.NoError(t, err)
	assert.Equal(t, "edge", synth.Name())
}
