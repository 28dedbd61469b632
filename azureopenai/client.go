// Copyright (c) Microsoft. All rights reserved.

package azureopenai

import (
	"context"
	"fmt"
	"io"

	gpt "github.com/microsoft/azure-gpt-client/gptclient"
)

// Client talks to one Azure OpenAI chat-completions deployment. Use
// [New] to create one. A Client holds only immutable state (endpoint,
// credential, sampling configuration) and may be shared freely across
// concurrent requests.
type Client struct {
	tp      transport
	config  gpt.Config
	handler gpt.Handler
}

// New creates a [Client] for the given endpoint and API key.
//
//	client, err := azureopenai.New(
//	    os.Getenv("AZUREOPENAI_API_URL"),
//	    os.Getenv("AZUREOPENAI_API_KEY"),
//	    azureopenai.WithDeployment("gpt-4o"),
//	)
//
// apiKey may be empty when [WithTokenCredential] is supplied. New fails
// with a *[gptclient.ConfigError] before any network call when the
// endpoint is missing, no credential of either kind is provided, or the
// key cannot be carried in an HTTP header.
func New(endpoint, apiKey string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}

	if endpoint == "" {
		return nil, &gpt.ConfigError{Field: "endpoint", Detail: "API URL is required"}
	}
	if apiKey == "" && cfg.credential == nil {
		return nil, &gpt.ConfigError{Field: "api_key", Detail: "API key is required"}
	}
	if err := validateHeaderValue(apiKey); err != nil {
		return nil, &gpt.ConfigError{Field: "api_key", Detail: err.Error()}
	}

	c := &Client{tp: newHTTPTransport(endpoint, apiKey, cfg)}
	if cfg.config != nil {
		c.config = *cfg.config
	} else {
		c.config = gpt.DefaultConfig()
	}
	c.handler = gpt.Chain(c.complete, cfg.middleware...)
	return c, nil
}

// newWithTransport creates a Client with an injected transport (for testing).
func newWithTransport(tp transport, config gpt.Config) *Client {
	c := &Client{tp: tp, config: config}
	c.handler = c.complete
	return c
}

// validateHeaderValue rejects credentials that cannot be sent as an
// HTTP header value. net/http would silently send a mangled header
// otherwise; failing up front keeps the error local and classified.
func validateHeaderValue(v string) error {
	for i := 0; i < len(v); i++ {
		if v[i] < 0x20 || v[i] > 0x7e {
			return fmt.Errorf("invalid header value: contains non-ASCII or control byte at position %d", i)
		}
	}
	return nil
}

// Ask sends a single user message and returns the assistant's reply
// text. It is a convenience over [Client.Complete].
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	resp, err := c.Complete(ctx, []gpt.Message{gpt.NewUserMessage(prompt)})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &gpt.ParseError{Detail: "no response choices available"}
	}
	return resp.Choices[0].Message.Content, nil
}

// Complete sends a non-streaming completion request for the given
// conversation and returns the complete response.
func (c *Client) Complete(ctx context.Context, messages []gpt.Message) (*gpt.Response, error) {
	return c.handler(ctx, messages)
}

// complete is the base handler called by the middleware chain.
func (c *Client) complete(ctx context.Context, messages []gpt.Message) (*gpt.Response, error) {
	req := buildRequest(messages, c.config, false)

	resp, err := c.tp.do(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &gpt.RequestError{Err: fmt.Errorf("read response body: %w", err)}
	}

	return parseChatResponse(body)
}

// AskStream sends a single user message and returns the reply as an
// incremental fragment stream. It is a convenience over
// [Client.CompleteStream].
func (c *Client) AskStream(ctx context.Context, prompt string) (*gpt.Stream[string], error) {
	return c.CompleteStream(ctx, []gpt.Message{gpt.NewUserMessage(prompt)})
}

// CompleteStream sends a streaming completion request and returns a
// [gptclient.Stream] of text fragments. It returns as soon as the
// response body is open — before the model has finished generating —
// so transport and API failures during request setup are reported
// here, while failures mid-stream surface as the stream's terminal
// error.
//
// The caller must Close the stream (or cancel ctx); either releases
// the underlying connection promptly, including while a read is in
// flight.
func (c *Client) CompleteStream(ctx context.Context, messages []gpt.Message) (*gpt.Stream[string], error) {
	req := buildRequest(messages, c.config, true)

	resp, err := c.tp.do(ctx, req, true)
	if err != nil {
		return nil, err
	}

	stream := gpt.NewStream[string](ctx, func(ctx context.Context, ch chan<- string) error {
		defer resp.Body.Close()
		// Closing the body from the cancellation path unblocks a
		// pending read; a blocked decoder would otherwise outlive
		// the caller.
		stop := context.AfterFunc(ctx, func() { resp.Body.Close() })
		defer stop()
		return decodeStream(ctx, resp.Body, ch)
	})

	return stream, nil
}
