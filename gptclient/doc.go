// Copyright (c) Microsoft. All rights reserved.

// Package gptclient provides the core types for talking to a hosted
// GPT chat-completion service: request configuration, conversation
// messages, response shapes, the error taxonomy, and a generic
// streaming iterator.
//
// # Quick Start
//
// Build a validated [Config] and pass it to a provider client
// (e.g., the azureopenai package):
//
//	cfg, err := gptclient.NewConfig().
//	    Temperature(0.2).
//	    MaxTokens(400).
//	    Build()
//	if err != nil {
//	    // *gptclient.ConfigError names the offending field
//	}
//
//	client, err := azureopenai.New(endpoint, apiKey,
//	    azureopenai.WithConfig(cfg),
//	)
//
// # Errors
//
// All failures are classified into exactly one of four kinds, each a
// struct error that unwraps to a package sentinel:
//
//   - [RequestError] / [ErrRequest]: the HTTP call could not complete.
//   - [APIError] / [ErrAPI]: the service returned a non-success status.
//   - [ParseError] / [ErrParse]: a response body could not be decoded.
//   - [ConfigError] / [ErrConfig]: invalid local parameters, detected
//     before any network call.
//
// Use errors.Is against the sentinels for classification and errors.As
// against the struct types for detail (status code, offending payload,
// field name).
//
// # Streaming
//
// [Stream] is a pull-based iterator over values produced by a
// background goroutine. Streaming completions yield it specialized to
// string fragments:
//
//	stream, err := client.AskStream(ctx, "tell me a story")
//	if err != nil { ... }
//	defer stream.Close()
//
//	for {
//	    fragment, ok, err := stream.Next(ctx)
//	    if err != nil { ... }   // terminal error, stream is closed
//	    if !ok { break }        // normal end
//	    fmt.Print(fragment)
//	}
package gptclient
