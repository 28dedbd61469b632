// Copyright (c) Microsoft. All rights reserved.

package azureopenai

import (
	"bufio"
	"cmp"
	"context"
	"encoding/json"
	"io"
	"slices"
	"strings"

	gpt "github.com/microsoft/azure-gpt-client/gptclient"
)

// dataPrefix and doneSentinel are the server-sent-event framing
// markers used by the chat-completions stream.
const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"
)

// decodeStream reads a text/event-stream body from r and sends each
// non-empty text fragment to ch, in server transmission order and, within
// a chunk, in choice-index order. It returns nil when the stream ends
// normally — either the [DONE] sentinel or a clean EOF without one —
// and a terminal error otherwise:
//
//   - *gptclient.ParseError when a data payload is not valid chunk
//     JSON; the raw payload rides along. Nothing is emitted after it.
//   - *gptclient.RequestError when the underlying read fails mid-stream.
//   - ctx.Err() when the context is cancelled.
//
// Framing follows the SSE wire format: lines may arrive split across
// reads and may use CRLF endings; blank lines separate frames; comment
// lines and non-data fields are ignored; a final line without a
// trailing newline before EOF is still processed.
func decodeStream(ctx context.Context, r io.Reader, ch chan<- string) error {
	reader := bufio.NewReaderSize(r, 64*1024)

	for {
		line, err := reader.ReadString('\n')

		if line != "" {
			done, lineErr := decodeLine(ctx, line, ch)
			if lineErr != nil {
				return lineErr
			}
			if done {
				return nil
			}
		}

		if err != nil {
			if err == io.EOF {
				// Some deployments close the connection without
				// sending the sentinel; a clean EOF is a normal end.
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &gpt.RequestError{Err: err}
		}
	}
}

// decodeLine classifies one SSE line and emits any text fragments it
// carries. done is true when the line is the terminal sentinel.
func decodeLine(ctx context.Context, line string, ch chan<- string) (done bool, err error) {
	line = strings.TrimRight(line, "\r\n")

	// Blank lines separate frames; comments and non-data fields
	// (event:, id:, retry:) carry nothing we need.
	if line == "" || !strings.HasPrefix(line, dataPrefix) {
		return false, nil
	}

	// One leading space after the colon is part of the framing.
	payload := strings.TrimPrefix(strings.TrimPrefix(line, dataPrefix), " ")

	if payload == doneSentinel {
		return true, nil
	}

	var chunk chatChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		// A malformed chunk poisons the stream: no partial trust.
		return false, &gpt.ParseError{
			Detail:  err.Error(),
			Payload: payload,
			Err:     err,
		}
	}

	choices := chunk.Choices
	if !slices.IsSortedFunc(choices, compareChoiceIndex) {
		choices = slices.Clone(choices)
		slices.SortStableFunc(choices, compareChoiceIndex)
	}

	for _, c := range choices {
		// Role-only preambles and finish-reason-only chunks carry no
		// text and emit nothing.
		if c.Delta.Content == nil || *c.Delta.Content == "" {
			continue
		}
		select {
		case ch <- *c.Delta.Content:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return false, nil
}

func compareChoiceIndex(a, b chunkChoice) int {
	return cmp.Compare(a.Index, b.Index)
}
