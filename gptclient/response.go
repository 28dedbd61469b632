// Copyright (c) Microsoft. All rights reserved.

package gptclient

// Response is a complete, non-streaming completion result.
type Response struct {
	// ID is the completion identifier assigned by the service, if any.
	ID string

	// Choices holds the generated completions in index order. Most
	// requests produce exactly one.
	Choices []Choice
}

// Choice is one generated completion within a [Response].
type Choice struct {
	Index        int
	Message      Message
	FinishReason FinishReason
}

// Text returns the content of the first choice, or the empty string
// when the response carries no choices.
func (r *Response) Text() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}
