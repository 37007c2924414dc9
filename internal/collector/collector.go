package collector

import (
	"context"

	"marketpipe/internal/contracts"
)

// WebResult is one web collector invocation's output.
// Degraded marks a placeholder or otherwise incomplete result that
// succeeded without real data; the snapshot must surface it as partial.
type WebResult struct {
	Items    []contracts.WebItem
	Notes    []string
	Degraded bool
}

// SocialResult is one social collector invocation's output.
type SocialResult struct {
	Items    []contracts.SocialItem
	Notes    []string
	Degraded bool
}

// WebCollector fetches fresh web signals for a query.
type WebCollector interface {
	Collect(ctx context.Context, query string) (WebResult, error)
}

// SocialCollector fetches fresh social signals for a query.
type SocialCollector interface {
	Collect(ctx context.Context, query string) (SocialResult, error)
}
