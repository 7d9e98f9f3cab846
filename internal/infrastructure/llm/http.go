package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"ShortsFactory/internal/domain"
)

// Retry policy for provider calls. Only failures matching domain.ErrProviderUnavailable
// are retried.
var (
	maxAttempts  uint = 3
	initialDelay      = 500 * time.Millisecond
)

// postJSON sends payload and decodes a 200 response into v. Transport
// failures and 5xx responses match domain.ErrProviderUnavailable and are
// retried with exponential backoff; other error statuses match
// domain.ErrProviderRejected.
func postJSON(ctx context.Context, client *http.Client, backend, endpoint string, headers map[string]string, payload, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", backend, err)
	}

	operation := func() (struct{}, error) {
		err := postOnce(ctx, client, backend, endpoint, headers, body, v)
		if err != nil && !errors.Is(err, domain.ErrProviderUnavailable) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialDelay
	_, err = backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(maxAttempts))
	return err
}

func postOnce(ctx context.Context, client *http.Client, backend, endpoint string, headers map[string]string, body []byte, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, val := range headers {
		req.Header.Set(k, val)
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %s: %v", domain.ErrProviderUnavailable, backend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		kind := domain.ErrProviderRejected
		if resp.StatusCode >= http.StatusInternalServerError {
			kind = domain.ErrProviderUnavailable
		}
		return fmt.Errorf("%w: %s returned %s: %s", kind, backend, resp.Status, strings.TrimSpace(string(detail)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %s: decode response: %v", domain.ErrProviderRejected, backend, err)
	}
	return nil
}

func emptyResponse(backend string) error {
	return fmt.Errorf("%w: %s returned no text", domain.ErrProviderRejected, backend)
}
