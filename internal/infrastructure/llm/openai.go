package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"ShortsFactory/internal/config"
	"ShortsFactory/internal/domain"
	"ShortsFactory/internal/ports"
)

// OpenAIClient implements ports.LanguageModel backed by OpenAI-compatible
// chat completion APIs.
type OpenAIClient struct {
	endpoint    string
	model       string
	apiKey      string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

var _ ports.LanguageModel = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from configuration.
func NewOpenAIClient(cfg config.ChatConfig) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (c *OpenAIClient) Name() string { return "openai" }

// Generate posts the prompt as a system + user message pair.
func (c *OpenAIClient) Generate(ctx context.Context, prompt ports.Prompt) (string, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", domain.ConfigError("openai client misconfigured")
	}

	messages := []map[string]string{}
	if s := strings.TrimSpace(prompt.System); s != "" {
		messages = append(messages, map[string]string{"role": "system", "content": s})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt.User})

	payload := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": pick(prompt.Temperature, c.temperature),
	}
	if n := pickInt(prompt.MaxTokens, c.maxTokens); n > 0 {
		payload["max_tokens"] = n
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := postJSON(ctx, c.httpClient, c.Name(), c.endpoint, headers, payload, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", emptyResponse(c.Name())
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func pick(override, fallback float64) float64 {
	if override > 0 {
		return override
	}
	return fallback
}

func pickInt(override, fallback int) int {
	if override > 0 {
		return override
	}
	return fallback
}
