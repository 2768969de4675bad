// Package llm provides the text-generation collaborator used for mandate
// extraction, gap classification, and report synthesis.
package llm

import "context"

// Client sends prompts to a text-generation model.
type Client interface {
	// Complete sends a prompt and returns the model's text response.
	// maxTokens <= 0 selects the client default.
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}
