package provider

import "context"

// ChatPayload carries one reasoning request.
type ChatPayload struct {
	System    string
	User      string
	MaxTokens int
}

// ModelProvider is the narrow capability the reasoning stages consume:
// complete a system+user prompt into raw text within a bounded budget.
type ModelProvider interface {
	ID() string
	Complete(ctx context.Context, payload ChatPayload) (string, error)
}
