// Copyright (c) Microsoft. All rights reserved.

package gptclient

import (
	"context"
	"log/slog"
	"time"
)

// Handler processes a non-streaming completion request.
type Handler func(ctx context.Context, messages []Message) (*Response, error)

// Middleware wraps a [Handler] with cross-cutting behavior.
type Middleware func(Handler) Handler

// Chain applies middleware to a handler in order
// (first = outermost).
func Chain(h Handler, mw ...Middleware) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// LoggingMiddleware returns a [Middleware] that logs completion
// requests using slog.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, messages []Message) (*Response, error) {
			start := time.Now()
			logger.InfoContext(ctx, "completion started",
				"message_count", len(messages),
			)

			resp, err := next(ctx, messages)

			duration := time.Since(start)
			if err != nil {
				logger.ErrorContext(ctx, "completion failed",
					"duration", duration,
					"error", err,
				)
				return nil, err
			}

			logger.InfoContext(ctx, "completion succeeded",
				"duration", duration,
				"choices", len(resp.Choices),
			)
			return resp, nil
		}
	}
}
