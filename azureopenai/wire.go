// Copyright (c) Microsoft. All rights reserved.

package azureopenai

import (
	"encoding/json"

	gpt "github.com/microsoft/azure-gpt-client/gptclient"
)

// chatRequest is the Azure OpenAI chat-completion request body.
type chatRequest struct {
	Messages         []chatMessage `json:"messages"`
	Temperature      float64       `json:"temperature"`
	MaxTokens        int           `json:"max_tokens"`
	TopP             float64       `json:"top_p"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
	PresencePenalty  float64       `json:"presence_penalty"`
	Stop             []string      `json:"stop,omitempty"`
	Stream           bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the non-streaming response body. It is a distinct
// type from chatChunk: a full response carries a complete message per
// choice, never a delta, and the two shapes must not be conflated.
type chatResponse struct {
	ID      string       `json:"id"`
	Choices []respChoice `json:"choices"`
}

type respChoice struct {
	Index        int         `json:"index"`
	Message      respMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type respMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatChunk is one incremental SSE payload in streaming mode.
type chatChunk struct {
	ID      string        `json:"id"`
	Choices []chunkChoice `json:"choices"`
}

type chunkChoice struct {
	Index        int        `json:"index"`
	Delta        chunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// chunkDelta is the incremental part of a chunk choice. Content is a
// pointer so an absent field and an empty string are distinguishable.
type chunkDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

// buildRequest snapshots the configuration and message list into a
// request body. Pure function of its inputs; no I/O.
func buildRequest(messages []gpt.Message, cfg gpt.Config, stream bool) *chatRequest {
	req := &chatRequest{
		Temperature:      cfg.Temperature(),
		MaxTokens:        cfg.MaxTokens(),
		TopP:             cfg.TopP(),
		FrequencyPenalty: cfg.FrequencyPenalty(),
		PresencePenalty:  cfg.PresencePenalty(),
		Stop:             cfg.Stop(),
		Stream:           stream,
	}
	req.Messages = make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		req.Messages = append(req.Messages, chatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return req
}

// parseChatResponse converts the wire response into the public shape.
func parseChatResponse(data []byte) (*gpt.Response, error) {
	var raw chatResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &gpt.ParseError{Detail: err.Error(), Err: err}
	}

	resp := &gpt.Response{ID: raw.ID}
	for _, c := range raw.Choices {
		resp.Choices = append(resp.Choices, gpt.Choice{
			Index: c.Index,
			Message: gpt.Message{
				Role:    gpt.Role(c.Message.Role),
				Content: c.Message.Content,
			},
			FinishReason: gpt.FinishReason(c.FinishReason),
		})
	}
	return resp, nil
}
