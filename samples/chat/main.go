// Copyright (c) Microsoft. All rights reserved.

// Command chat is an interactive loop against an Azure OpenAI
// deployment.
//
// Usage:
//
//	export AZUREOPENAI_API_URL=https://<resource>.openai.azure.com
//	export AZUREOPENAI_API_KEY=<your-key>
//	export AZUREOPENAI_DEPLOYMENT=gpt-4o
//	go run .
//
// Leave AZUREOPENAI_API_KEY unset to authenticate with Azure AD via
// DefaultAzureCredential (environment variables, managed identity,
// az login, etc.). Prefix a prompt with "stream " to print the reply
// incrementally; type "exit" to quit. Set DEBUG=1 for request-level
// logging.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/joho/godotenv"

	"github.com/microsoft/azure-gpt-client/azureopenai"
	gpt "github.com/microsoft/azure-gpt-client/gptclient"
)

func main() {
	// Load .env file if present (ignored if missing).
	_ = godotenv.Load()

	if os.Getenv("DEBUG") != "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	client := newClient()

	fmt.Println("Welcome to GPT Client!")
	fmt.Println("Type 'exit' to quit, prefix with 'stream ' for streaming output.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") {
			fmt.Println("Goodbye!")
			break
		}

		ctx := context.Background()

		if rest, ok := strings.CutPrefix(input, "stream "); ok {
			stream, err := client.AskStream(ctx, rest)
			if err != nil {
				log.Printf("Error: %v\n", err)
				continue
			}

			fmt.Print("\nGPT: ")
			for {
				fragment, ok, err := stream.Next(ctx)
				if err != nil {
					log.Printf("\nStream error: %v\n", err)
					break
				}
				if !ok {
					break
				}
				fmt.Print(fragment)
			}
			stream.Close()
			fmt.Println()
			fmt.Println()
			continue
		}

		reply, err := client.Ask(ctx, input)
		if err != nil {
			log.Printf("Error: %v\n", err)
			continue
		}
		fmt.Printf("\nGPT: %s\n\n", reply)
	}
}

// newClient builds the Azure OpenAI client from environment variables,
// falling back to Azure AD authentication when no API key is set.
func newClient() *azureopenai.Client {
	endpoint := os.Getenv("AZUREOPENAI_API_URL")
	if endpoint == "" {
		log.Fatal("Set AZUREOPENAI_API_URL")
	}
	key := os.Getenv("AZUREOPENAI_API_KEY")
	deployment := os.Getenv("AZUREOPENAI_DEPLOYMENT")

	cfg, err := gpt.NewConfig().
		Temperature(0.7).
		MaxTokens(800).
		Build()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	opts := []azureopenai.Option{
		azureopenai.WithConfig(cfg),
	}
	if deployment != "" {
		opts = append(opts, azureopenai.WithDeployment(deployment))
	}

	if key == "" {
		fmt.Println("No API key set; using Azure AD authentication (DefaultAzureCredential)")
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			log.Fatalf("Failed to create Azure credential: %v", err)
		}
		opts = append(opts, azureopenai.WithTokenCredential(cred))
	}

	client, err := azureopenai.New(endpoint, key, opts...)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	return client
}
