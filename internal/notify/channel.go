// Package notify fans a reminder payload out over the configured
// delivery channels and aggregates per-channel outcomes. Channels are
// independent: one failing never short-circuits another.
package notify

import (
	"context"

	"pinefarm/internal/remind"
)

// Recipients is derived per tick, never stored: enabled admin push
// tokens plus the merged admin email list.
type Recipients struct {
	Tokens []string
	Emails []string
}

// Result is one channel's outcome for one dispatch. InvalidTokens are
// endpoints the provider reported as permanently dead; they trigger
// registry cleanup regardless of the overall dispatch outcome.
type Result struct {
	Channel       string
	Success       int
	Failure       int
	Skipped       bool
	InvalidTokens []string
}

type Channel interface {
	Name() string
	Send(ctx context.Context, p remind.Payload, rcpt Recipients) (Result, error)
}
