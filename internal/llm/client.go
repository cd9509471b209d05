// Package llm turns schedule requests into structured operations by way
// of a chat model. It ships clients for GitHub Copilot, Ollama and
// LM Studio behind one small Client interface.
package llm

import (
	"context"
)

// Message is one turn in a chat transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the provider-neutral chat surface the rest of the program
// depends on.
type Client interface {
	// Chat runs one completion round and returns the raw reply text.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ChatJSON runs a completion and decodes the reply into result.
	ChatJSON(ctx context.Context, messages []Message, result any) error
}
