// Copyright (c) Microsoft. All rights reserved.

// Package azureopenai implements the client for Azure OpenAI
// chat-completion deployments, covering both the single-shot and the
// server-sent-event streaming response paths.
//
// Create a client with [New]:
//
//	client, err := azureopenai.New(endpoint, apiKey,
//	    azureopenai.WithDeployment("gpt-4o"),
//	)
//
// Ask for a complete answer:
//
//	text, err := client.Ask(ctx, "What is the capital of France?")
//
// Or stream it as the model generates:
//
//	stream, err := client.AskStream(ctx, "Tell me a story.")
//	if err != nil { ... }
//	defer stream.Close()
//	for {
//	    fragment, ok, err := stream.Next(ctx)
//	    if err != nil || !ok {
//	        break
//	    }
//	    fmt.Print(fragment)
//	}
//
// # Configuration
//
// Sampling parameters come from a validated [gptclient.Config]
// ([WithConfig]); client identity comes from the endpoint, the api-key
// header, or an Azure AD credential ([WithTokenCredential]).
//
// # Testing
//
// The client uses an unexported transport interface internally. For
// testing, provide a mock http.Client via [WithHTTPClient] with a
// custom RoundTripper.
package azureopenai
