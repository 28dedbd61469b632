// Copyright (c) Microsoft. All rights reserved.

package azureopenai_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/microsoft/azure-gpt-client/azureopenai"
	gpt "github.com/microsoft/azure-gpt-client/gptclient"
)

// mockTransportFunc is a RoundTripper that delegates to a function.
type mockTransportFunc func(*http.Request) (*http.Response, error)

func (f mockTransportFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newMockHTTPClient(fn func(*http.Request) (*http.Response, error)) *http.Client {
	return &http.Client{Transport: mockTransportFunc(fn)}
}

func jsonResponse(status int, body any) *http.Response {
	b, _ := json.Marshal(body)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(b)),
	}
}

func sseResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestClient_Ask_Basic(t *testing.T) {
	apiResp := map[string]any{
		"id": "1",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message": map[string]any{
				"role":    "assistant",
				"content": "Hi",
			},
		}},
	}

	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		if req.Method != "POST" {
			t.Errorf("method = %q", req.Method)
		}
		if req.Header.Get("api-key") != "test-key" {
			t.Errorf("api-key = %q", req.Header.Get("api-key"))
		}
		if req.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q", req.Header.Get("Content-Type"))
		}
		if req.Header.Get("Accept") == "text/event-stream" {
			t.Error("non-streaming request must not ask for an event stream")
		}

		body, _ := io.ReadAll(req.Body)
		var reqBody map[string]any
		json.Unmarshal(body, &reqBody)
		if reqBody["stream"] != false {
			t.Errorf("stream = %v", reqBody["stream"])
		}
		msgs := reqBody["messages"].([]any)
		first := msgs[0].(map[string]any)
		if first["role"] != "user" || first["content"] != "hello" {
			t.Errorf("messages[0] = %v", first)
		}

		return jsonResponse(200, apiResp), nil
	})

	client, err := azureopenai.New("https://example.openai.azure.com/completions", "test-key",
		azureopenai.WithHTTPClient(httpClient),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	reply, err := client.Ask(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply != "Hi" {
		t.Errorf("reply = %q", reply)
	}
}

func TestClient_Ask_ConfigRoundTrip(t *testing.T) {
	var sentBody map[string]any
	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(req.Body)
		json.Unmarshal(body, &sentBody)
		return jsonResponse(200, map[string]any{
			"id": "1",
			"choices": []map[string]any{{
				"index": 0, "finish_reason": "stop",
				"message": map[string]any{"role": "assistant", "content": "ok"},
			}},
		}), nil
	})

	cfg, err := gpt.NewConfig().
		Temperature(0.3).
		MaxTokens(100).
		TopP(0.9).
		FrequencyPenalty(0.5).
		PresencePenalty(-0.5).
		Stop("END").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	client, err := azureopenai.New("https://example.test/v1", "test-key",
		azureopenai.WithConfig(cfg),
		azureopenai.WithHTTPClient(httpClient),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := client.Ask(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}

	if sentBody["temperature"] != 0.3 {
		t.Errorf("temperature = %v", sentBody["temperature"])
	}
	if sentBody["max_tokens"] != float64(100) {
		t.Errorf("max_tokens = %v", sentBody["max_tokens"])
	}
	if sentBody["top_p"] != 0.9 {
		t.Errorf("top_p = %v", sentBody["top_p"])
	}
	if sentBody["frequency_penalty"] != 0.5 {
		t.Errorf("frequency_penalty = %v", sentBody["frequency_penalty"])
	}
	if sentBody["presence_penalty"] != -0.5 {
		t.Errorf("presence_penalty = %v", sentBody["presence_penalty"])
	}
	stop := sentBody["stop"].([]any)
	if len(stop) != 1 || stop[0] != "END" {
		t.Errorf("stop = %v", stop)
	}
}

func TestClient_DeploymentURL(t *testing.T) {
	var sentURL string
	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		sentURL = req.URL.String()
		return jsonResponse(200, map[string]any{
			"choices": []map[string]any{{
				"index": 0,
				"message": map[string]any{"role": "assistant", "content": "ok"},
			}},
		}), nil
	})

	client, err := azureopenai.New("https://example.openai.azure.com/", "test-key",
		azureopenai.WithDeployment("gpt-4o"),
		azureopenai.WithAPIVersion("2024-06-01"),
		azureopenai.WithHTTPClient(httpClient),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := client.Ask(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}

	want := "https://example.openai.azure.com/openai/deployments/gpt-4o/chat/completions?api-version=2024-06-01"
	if sentURL != want {
		t.Errorf("url = %q, want %q", sentURL, want)
	}
}

func TestClient_New_Validation(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		key      string
		field    string
	}{
		{"missing endpoint", "", "key", "endpoint"},
		{"missing key", "https://example.test", "", "api_key"},
		{"non-ascii key", "https://example.test", "sk-éclair", "api_key"},
		{"control byte in key", "https://example.test", "key\nwith-newline", "api_key"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := azureopenai.New(tc.endpoint, tc.key)
			if err == nil {
				t.Fatal("expected error")
			}
			var cfgErr *gpt.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T: %v", err, err)
			}
			if cfgErr.Field != tc.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tc.field)
			}
		})
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       *http.Response
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "429 structured body",
			body:       jsonResponse(429, map[string]any{"error": map[string]any{"message": "rate limited"}}),
			wantStatus: 429,
			wantMsg:    "rate limited",
		},
		{
			name: "500 raw text body",
			body: &http.Response{
				StatusCode: 500,
				Status:     "500 Internal Server Error",
				Header:     http.Header{"Content-Type": []string{"text/plain"}},
				Body:       io.NopCloser(strings.NewReader("upstream exploded")),
			},
			wantStatus: 500,
			wantMsg:    "upstream exploded",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
				return tc.body, nil
			})

			client, err := azureopenai.New("https://example.test", "test-key",
				azureopenai.WithHTTPClient(httpClient),
			)
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			_, err = client.Ask(context.Background(), "hi")
			if err == nil {
				t.Fatal("expected error")
			}
			var apiErr *gpt.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T: %v", err, err)
			}
			if apiErr.StatusCode != tc.wantStatus {
				t.Errorf("StatusCode = %d", apiErr.StatusCode)
			}
			if apiErr.Message != tc.wantMsg {
				t.Errorf("Message = %q", apiErr.Message)
			}
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	client, err := azureopenai.New("https://example.test", "test-key",
		azureopenai.WithHTTPClient(httpClient),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.Ask(context.Background(), "hi")
	if !errors.Is(err, gpt.ErrRequest) {
		t.Errorf("err = %v, want ErrRequest", err)
	}
}

func TestClient_Ask_NoChoices(t *testing.T) {
	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, map[string]any{"id": "1", "choices": []any{}}), nil
	})

	client, err := azureopenai.New("https://example.test", "test-key",
		azureopenai.WithHTTPClient(httpClient),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.Ask(context.Background(), "hi")
	if !errors.Is(err, gpt.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestClient_Ask_MalformedBody(t *testing.T) {
	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: 200,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader("not json at all")),
		}, nil
	})

	client, err := azureopenai.New("https://example.test", "test-key",
		azureopenai.WithHTTPClient(httpClient),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.Ask(context.Background(), "hi")
	if !errors.Is(err, gpt.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestClient_Middleware(t *testing.T) {
	var calls atomic.Int32
	counting := func(next gpt.Handler) gpt.Handler {
		return func(ctx context.Context, msgs []gpt.Message) (*gpt.Response, error) {
			calls.Add(1)
			return next(ctx, msgs)
		}
	}

	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, map[string]any{
			"choices": []map[string]any{{
				"index":   0,
				"message": map[string]any{"role": "assistant", "content": "ok"},
			}},
		}), nil
	})

	client, err := azureopenai.New("https://example.test", "test-key",
		azureopenai.WithHTTPClient(httpClient),
		azureopenai.WithMiddleware(counting),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := client.Ask(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Errorf("middleware calls = %d", calls.Load())
	}
}

const streamBody = "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"},\"index\":0}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"},\"index\":0}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"},\"index\":0}]}\n\n" +
	"data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\",\"index\":0}]}\n\n" +
	"data: [DONE]\n\n"

func TestClient_AskStream(t *testing.T) {
	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("Accept = %q", req.Header.Get("Accept"))
		}
		body, _ := io.ReadAll(req.Body)
		var reqBody map[string]any
		json.Unmarshal(body, &reqBody)
		if reqBody["stream"] != true {
			t.Errorf("stream = %v", reqBody["stream"])
		}
		return sseResponse(streamBody), nil
	})

	client, err := azureopenai.New("https://example.test", "test-key",
		azureopenai.WithHTTPClient(httpClient),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	stream, err := client.AskStream(context.Background(), "hi")
	if err != nil {
		t.Fatalf("AskStream: %v", err)
	}
	defer stream.Close()

	fragments, err := stream.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(fragments) != 2 || fragments[0] != "Hel" || fragments[1] != "lo" {
		t.Errorf("fragments = %q", fragments)
	}

	// Concatenated fragments equal the non-streaming content for the
	// same transcript.
	if got := strings.Join(fragments, ""); got != "Hello" {
		t.Errorf("concatenated = %q", got)
	}
}

func TestClient_AskStream_SetupFailure(t *testing.T) {
	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(401, map[string]any{
			"error": map[string]any{"message": "bad key"},
		}), nil
	})

	client, err := azureopenai.New("https://example.test", "bad-key",
		azureopenai.WithHTTPClient(httpClient),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Setup failures surface eagerly, before any stream exists.
	_, err = client.AskStream(context.Background(), "hi")
	var apiErr *gpt.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != 401 {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
}

func TestClient_AskStream_MalformedMidStream(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"ok so far\"},\"index\":0}]}\n\n" +
		"data: garbage\n\n"

	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return sseResponse(body), nil
	})

	client, err := azureopenai.New("https://example.test", "test-key",
		azureopenai.WithHTTPClient(httpClient),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	stream, err := client.AskStream(context.Background(), "hi")
	if err != nil {
		t.Fatalf("AskStream: %v", err)
	}
	defer stream.Close()

	fragments, err := stream.Collect(context.Background())
	if len(fragments) != 1 || fragments[0] != "ok so far" {
		t.Errorf("fragments = %q", fragments)
	}
	var parseErr *gpt.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if parseErr.Payload != "garbage" {
		t.Errorf("Payload = %q", parseErr.Payload)
	}
}

// trackedBody is a response body that records Close and can block reads
// until closed.
type trackedBody struct {
	io.Reader
	closed    atomic.Bool
	closeOnce chan struct{}
}

func newTrackedBody(r io.Reader) *trackedBody {
	return &trackedBody{Reader: r, closeOnce: make(chan struct{})}
}

func (b *trackedBody) Read(p []byte) (int, error) {
	n, err := b.Reader.Read(p)
	if err == io.EOF && !b.closed.Load() {
		// Simulate a connection held open by the server: block until
		// the client gives up.
		<-b.closeOnce
		return 0, errors.New("read on closed body")
	}
	return n, err
}

func (b *trackedBody) Close() error {
	if b.closed.CompareAndSwap(false, true) {
		close(b.closeOnce)
	}
	return nil
}

func TestClient_AskStream_CloseReleasesBody(t *testing.T) {
	// No sentinel and no EOF: the server keeps the connection open.
	body := newTrackedBody(strings.NewReader(
		"data: {\"choices\":[{\"delta\":{\"content\":\"first\"},\"index\":0}]}\n\n"))

	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: 200,
			Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
			Body:       body,
		}, nil
	})

	client, err := azureopenai.New("https://example.test", "test-key",
		azureopenai.WithHTTPClient(httpClient),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	stream, err := client.AskStream(context.Background(), "hi")
	if err != nil {
		t.Fatalf("AskStream: %v", err)
	}

	frag, ok, err := stream.Next(context.Background())
	if err != nil || !ok || frag != "first" {
		t.Fatalf("Next = (%q, %v, %v)", frag, ok, err)
	}

	// Abandon consumption; the connection must be released promptly.
	stream.Close()

	deadline := time.After(2 * time.Second)
	for !body.closed.Load() {
		select {
		case <-deadline:
			t.Fatal("response body not closed after stream Close")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestClient_AskStream_ContextCancelReleasesBody(t *testing.T) {
	body := newTrackedBody(strings.NewReader(
		"data: {\"choices\":[{\"delta\":{\"content\":\"first\"},\"index\":0}]}\n\n"))

	httpClient := newMockHTTPClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: 200,
			Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
			Body:       body,
		}, nil
	})

	client, err := azureopenai.New("https://example.test", "test-key",
		azureopenai.WithHTTPClient(httpClient),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.AskStream(ctx, "hi")
	if err != nil {
		t.Fatalf("AskStream: %v", err)
	}
	defer stream.Close()

	if _, _, err := stream.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}

	// A caller-imposed timeout or cancellation takes the same release
	// path as Close.
	cancel()

	deadline := time.After(2 * time.Second)
	for !body.closed.Load() {
		select {
		case <-deadline:
			t.Fatal("response body not closed after context cancel")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
