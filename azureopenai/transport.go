// Copyright (c) Microsoft. All rights reserved.

package azureopenai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	gpt "github.com/microsoft/azure-gpt-client/gptclient"
)

const (
	// defaultAPIVersion is the Azure OpenAI data-plane API version used
	// when none is configured.
	defaultAPIVersion = "2024-02-01"

	// errorBodyLimit bounds how much of an error response body is read.
	errorBodyLimit = 4096
)

// transport is an unexported interface for HTTP communication.
// The default implementation uses net/http; tests inject a mock.
type transport interface {
	do(ctx context.Context, body any, streaming bool) (*http.Response, error)
}

// httpTransport is the default transport using net/http.
type httpTransport struct {
	client     *http.Client
	url        string
	apiKey     string
	headers    map[string]string
	credential azcore.TokenCredential
	logger     *slog.Logger
}

func newHTTPTransport(endpoint, apiKey string, opts *clientConfig) *httpTransport {
	t := &httpTransport{
		client:     opts.httpClient,
		url:        requestURL(endpoint, opts.deployment, opts.apiVersion),
		apiKey:     apiKey,
		headers:    opts.headers,
		credential: opts.credential,
		logger:     opts.logger,
	}
	if t.client == nil {
		t.client = http.DefaultClient
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

// requestURL templates the chat-completions URL. With no deployment
// configured the endpoint is taken as the complete request URL.
func requestURL(endpoint, deployment, apiVersion string) string {
	if deployment == "" {
		return endpoint
	}
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(endpoint, "/"), deployment, apiVersion)
}

func (t *httpTransport) do(ctx context.Context, body any, streaming bool) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, &gpt.ParseError{Detail: fmt.Sprintf("marshal request: %v", err), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(b))
	if err != nil {
		return nil, &gpt.ConfigError{Field: "endpoint", Detail: err.Error()}
	}

	req.Header.Set("Content-Type", "application/json")
	if streaming {
		req.Header.Set("Accept", "text/event-stream")
	}

	if t.credential != nil {
		// Azure AD token authentication.
		token, err := t.credential.GetToken(ctx, policy.TokenRequestOptions{
			Scopes: []string{"https://cognitiveservices.azure.com/.default"},
		})
		if err != nil {
			return nil, &gpt.RequestError{Err: fmt.Errorf("get azure token: %w", err)}
		}
		t.logger.DebugContext(ctx, "using Azure AD token authentication",
			"token_expires_on", token.ExpiresOn)
		req.Header.Set("Authorization", "Bearer "+token.Token)
	} else {
		// Azure uses an api-key header instead of a Bearer token.
		req.Header.Set("api-key", t.apiKey)
	}
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	t.logger.DebugContext(ctx, "sending completion request",
		"url", t.url,
		"streaming", streaming,
	)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &gpt.RequestError{Err: err}
	}

	t.logger.DebugContext(ctx, "received response", "status", resp.StatusCode)

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, parseErrorResponse(resp)
	}

	return resp, nil
}

// parseErrorResponse reads a non-success response body and returns a
// typed error. The structured {"error":{...}} shape is decoded when
// present; otherwise the raw body text is used.
func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)

	msg := apiErr.Error.Message
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = resp.Status
	}

	return &gpt.APIError{
		StatusCode: resp.StatusCode,
		Message:    msg,
		Code:       apiErr.Error.Code,
	}
}
