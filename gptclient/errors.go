// Copyright (c) Microsoft. All rights reserved.

package gptclient

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is. Every error returned by this
// module wraps exactly one of the four leaf sentinels.
var (
	// ErrClient is the base error for all client failures.
	ErrClient = errors.New("gpt client error")

	// ErrRequest indicates the HTTP call could not complete
	// (connection refused, TLS failure, timeout).
	ErrRequest = fmt.Errorf("%w: request", ErrClient)

	// ErrAPI indicates the service returned a non-success status.
	ErrAPI = fmt.Errorf("%w: api", ErrClient)

	// ErrParse indicates a response body, streaming or not, could not
	// be decoded into the expected shape.
	ErrParse = fmt.Errorf("%w: parse", ErrClient)

	// ErrConfig indicates invalid local parameters, detected before
	// any network call.
	ErrConfig = fmt.Errorf("%w: configuration", ErrClient)
)

// APIError is returned when the service reports a failure with a
// non-success HTTP status. Use errors.As to extract it.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return ErrAPI }

// IsRateLimited reports whether the service rejected the request for
// rate-limiting reasons (HTTP 429).
func (e *APIError) IsRateLimited() bool { return e.StatusCode == 429 }

// RequestError wraps a transport-level failure. The underlying error
// (typically a *url.Error) is reachable through errors.As.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("http request failed: %v", e.Err)
}

func (e *RequestError) Unwrap() []error { return []error{ErrRequest, e.Err} }

// ParseError is returned when a response body could not be decoded.
// For streaming responses, Payload carries the offending raw SSE
// payload text.
type ParseError struct {
	Detail  string
	Payload string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Payload != "" {
		return fmt.Sprintf("failed to parse response: %s: %q", e.Detail, e.Payload)
	}
	return fmt.Sprintf("failed to parse response: %s", e.Detail)
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrParse, e.Err}
	}
	return []error{ErrParse}
}

// ConfigError reports an invalid configuration value. Field names the
// offending parameter.
type ConfigError struct {
	Field  string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Detail)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }
