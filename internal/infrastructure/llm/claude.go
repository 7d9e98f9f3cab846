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

const anthropicVersion = "2023-06-01"

// ClaudeClient implements ports.LanguageModel over the Anthropic messages API.
type ClaudeClient struct {
	endpoint    string
	model       string
	apiKey      string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

var _ ports.LanguageModel = (*ClaudeClient)(nil)

// NewClaudeClient builds a client from configuration.
func NewClaudeClient(cfg config.ChatConfig) *ClaudeClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &ClaudeClient{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (c *ClaudeClient) Name() string { return "claude" }

// Generate sends a single-turn message and joins the returned text blocks.
func (c *ClaudeClient) Generate(ctx context.Context, prompt ports.Prompt) (string, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", domain.ConfigError("claude client misconfigured")
	}

	payload := map[string]any{
		"model":       c.model,
		"max_tokens":  pickInt(prompt.MaxTokens, c.maxTokens),
		"temperature": pick(prompt.Temperature, c.temperature),
		"messages": []map[string]string{
			{"role": "user", "content": prompt.User},
		},
	}
	if s := strings.TrimSpace(prompt.System); s != "" {
		payload["system"] = s
	}

	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}
	if err := postJSON(ctx, c.httpClient, c.Name(), c.endpoint, headers, payload, &resp); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", emptyResponse(c.Name())
	}
	return text, nil
}
