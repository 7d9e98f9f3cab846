package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"ShortsFactory/internal/config"
	"ShortsFactory/internal/ports"
)

// OllamaClient talks to a local Ollama server through /api/generate.
type OllamaClient struct {
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	http        *http.Client
}

var _ ports.LanguageModel = (*OllamaClient)(nil)

// NewOllamaClient creates a reusable HTTP client. Local generation is slow,
// so the timeout defaults to five minutes.
func NewOllamaClient(cfg config.OllamaConfig) *OllamaClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &OllamaClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		http:        &http.Client{Timeout: timeout},
	}
}

func (c *OllamaClient) Name() string { return "ollama" }

// Generate runs a single non-streaming completion.
func (c *OllamaClient) Generate(ctx context.Context, prompt ports.Prompt) (string, error) {
	payload := map[string]any{
		"model":  c.model,
		"prompt": prompt.User,
		"stream": false,
		"options": map[string]any{
			"temperature": pick(prompt.Temperature, c.temperature),
			"num_predict": pickInt(prompt.MaxTokens, c.maxTokens),
		},
	}
	if s := strings.TrimSpace(prompt.System); s != "" {
		payload["system"] = s
	}

	var resp struct {
		Response string `json:"response"`
	}
	if err := postJSON(ctx, c.http, c.Name(), c.baseURL+"/api/generate", nil, payload, &resp); err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Response)
	if text == "" {
		return "", emptyResponse(c.Name())
	}
	return text, nil
}
