// Package llm provides clients for the text-generation service used to
// translate questions into SQL and results into prose.
package llm

import "context"

// Client defines the single-turn "generate from prompt" call the engine
// needs. Implementations must treat the service as an untrusted oracle:
// responses are plain text that may or may not contain usable JSON.
// Use this interface for dependency injection to enable mocking in tests.
type Client interface {
	// GenerateResponse generates a completion for the given prompt.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// GetModel returns the configured model name.
	GetModel() string
}
