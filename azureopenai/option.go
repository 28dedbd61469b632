// Copyright (c) Microsoft. All rights reserved.

package azureopenai

import (
	"log/slog"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	gpt "github.com/microsoft/azure-gpt-client/gptclient"
)

// clientConfig holds resolved configuration for the Azure OpenAI client.
type clientConfig struct {
	config     *gpt.Config
	deployment string
	apiVersion string
	httpClient *http.Client
	headers    map[string]string
	credential azcore.TokenCredential
	middleware []gpt.Middleware
	logger     *slog.Logger
}

// Option configures a [Client].
type Option func(*clientConfig)

// WithConfig sets the sampling parameters used for every request.
// Defaults to [gptclient.DefaultConfig].
func WithConfig(cfg gpt.Config) Option {
	return func(c *clientConfig) { c.config = &cfg }
}

// WithDeployment sets the model deployment name. When set, the request
// URL is templated as
// {endpoint}/openai/deployments/{deployment}/chat/completions; when
// unset, the endpoint is used as the complete request URL.
func WithDeployment(name string) Option {
	return func(c *clientConfig) { c.deployment = name }
}

// WithAPIVersion overrides the Azure OpenAI api-version query
// parameter. Only meaningful together with [WithDeployment].
func WithAPIVersion(version string) Option {
	return func(c *clientConfig) { c.apiVersion = version }
}

// WithHTTPClient provides a custom http.Client for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = client }
}

// WithHeaders adds custom headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *clientConfig) { c.headers = headers }
}

// WithTokenCredential enables Azure AD token authentication using the
// provided credential. When set, the client obtains and refreshes
// tokens automatically instead of sending the api-key header.
func WithTokenCredential(cred azcore.TokenCredential) Option {
	return func(c *clientConfig) { c.credential = cred }
}

// WithMiddleware adds middleware to the non-streaming completion
// pipeline. Middleware is applied in the order provided
// (first = outermost).
func WithMiddleware(mw ...gpt.Middleware) Option {
	return func(c *clientConfig) { c.middleware = append(c.middleware, mw...) }
}

// WithLogger sets the slog logger used for request diagnostics.
// Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}
