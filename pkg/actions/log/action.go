// Package log provides a handler that records the action instead of performing it.
package log

import (
	"context"
	"log/slog"
	"strings"
)

// Handler logs every action it receives and always succeeds. The engine binds
// it to every action kind when running dry.
type Handler struct {
	logger *slog.Logger
	level  slog.Level
}

func NewHandler(logger *slog.Logger, level string) *Handler {
	return &Handler{
		logger: logger.With("module", "log_action"),
		level:  parseLevel(level),
	}
}

func (h *Handler) Execute(ctx context.Context, target string, params map[string]any) (any, error) {
	message := "action executed"
	if m, ok := params["message"].(string); ok && m != "" {
		message = m
	}

	h.logger.Log(ctx, h.level, message, "target", target, "parameters", params)

	return map[string]any{
		"logged":  true,
		"target":  target,
		"message": message,
	}, nil
}

func (h *Handler) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message written instead of performing the action",
			},
		},
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
