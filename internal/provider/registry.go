// Package provider maps (capability, backend) pairs to concrete language
// model and speech implementations. Backends are resolved once at startup;
// callers hold only the capability interface afterwards.
package provider

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/ports"
)

// Capability names a provider interface.
type Capability string

const (
	LanguageModel   Capability = "language-model"
	SpeechSynthesis Capability = "speech-synthesis"
)

type key struct {
	capability Capability
	backend    string
}

// Registry keeps factories per capability and backend name. Factories run
// at resolution time so missing credentials surface before any stage runs.
type Registry struct {
	factories map[key]func() (any, error)
	logger    *slog.Logger
}

// NewRegistry builds an empty registry. logger may be nil.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		factories: map[key]func() (any, error){},
		logger:    logger.With("component", "provider_registry"),
	}
}

// RegisterLanguageModel adds or replaces a language-model backend.
func (r *Registry) RegisterLanguageModel(name string, factory func() (ports.LanguageModel, error)) {
	r.factories[key{LanguageModel, normalize(name)}] = func() (any, error) { return factory() }
}

// RegisterSpeech adds or replaces a speech-synthesis backend.
func (r *Registry) RegisterSpeech(name string, factory func() (ports.SpeechSynthesizer, error)) {
	r.factories[key{SpeechSynthesis, normalize(name)}] = func() (any, error) { return factory() }
}

// Resolve builds the backend registered for capability under name. An
// unknown name fails with domain.ErrConfiguration.
func (r *Registry) Resolve(capability Capability, name string) (any, error) {
	factory, ok := r.factories[key{capability, normalize(name)}]
	if !ok {
		return nil, domain.ConfigError("unknown %s backend %q (valid: %s)", capability, name, strings.Join(r.Backends(capability), ", "))
	}
	impl, err := factory()
	if err != nil {
		return nil, fmt.Errorf("%s backend %s: %w", capability, name, err)
	}
	return impl, nil
}

// Backends lists registered backend names for capability.
func (r *Registry) Backends(capability Capability) []string {
	var names []string
	for k := range r.factories {
		if k.capability == capability {
			names = append(names, k.backend)
		}
	}
	sort.Strings(names)
	return names
}

// ResolveLanguageModel resolves primary and, when set, an alternate that
// takes over on provider failures.
func (r *Registry) ResolveLanguageModel(primary, fallback string) (ports.LanguageModel, error) {
	p, err := r.Resolve(LanguageModel, primary)
	if err != nil {
		return nil, err
	}
	model := p.(ports.LanguageModel)
	if fallback == "" || normalize(fallback) == normalize(primary) {
		return model, nil
	}

	f, err := r.Resolve(LanguageModel, fallback)
	if err != nil {
		return nil, err
	}
	return &fallbackModel{primary: model, alternate: f.(ports.LanguageModel), logger: r.logger}, nil
}

// ResolveSpeech mirrors ResolveLanguageModel for speech backends.
func (r *Registry) ResolveSpeech(primary, fallback string) (ports.SpeechSynthesizer, error) {
	p, err := r.Resolve(SpeechSynthesis, primary)
	if err != nil {
		return nil, err
	}
	synth := p.(ports.SpeechSynthesizer)
	if fallback == "" || normalize(fallback) == normalize(primary) {
		return synth, nil
	}

	f, err := r.Resolve(SpeechSynthesis, fallback)
	if err != nil {
		return nil, err
	}
	return &fallbackSpeech{primary: synth, alternate: f.(ports.SpeechSynthesizer), logger: r.logger}, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
