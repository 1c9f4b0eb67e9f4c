// Package webhook provides a custom action handler that posts the action to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cast"
)

// Name is the value of the "handler" parameter that selects this handler.
const Name = "webhook"

const defaultTimeout = 30 * time.Second

var (
	ErrURLInvalid     = errors.New("invalid webhook url")
	ErrNonSuccessCode = errors.New("webhook returned non-success status")
)

// Handler performs a single POST per attempt. Retries belong to the engine.
type Handler struct {
	client *http.Client
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger, client *http.Client) *Handler {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	return &Handler{
		client: client,
		logger: logger.With("module", "webhook_action"),
	}
}

type payload struct {
	Target     string         `json:"target"`
	Parameters map[string]any `json:"parameters"`
}

func (h *Handler) Execute(ctx context.Context, target string, params map[string]any) (any, error) {
	url := cast.ToString(params["url"])
	if url == "" {
		return nil, ErrURLInvalid
	}

	forwarded := make(map[string]any, len(params))
	for k, v := range params {
		if k == "url" || k == "headers" || k == "handler" {
			continue
		}

		forwarded[k] = v
	}

	body, err := json.Marshal(payload{Target: target, Parameters: forwarded})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrURLInvalid, err)
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range cast.ToStringMapString(params["headers"]) {
		req.Header.Set(key, value)
	}

	h.logger.DebugContext(ctx, "Posting webhook", "url", url, "target", target)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrNonSuccessCode, resp.StatusCode)
	}

	var decoded any
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		decoded = string(respBody)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        decoded,
	}, nil
}

func (h *Handler) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Endpoint receiving the action as JSON",
				"pattern":     "^https?://",
			},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
		},
		"required": []string{"url"},
	}
}
