// Package provider defines the message-provider contract the sync pipeline
// consumes. Transports (Gmail API, IMAP) live in subpackages and implement
// Provider; the orchestrator depends only on this interface.
package provider

import (
	"context"

	"bcfeed/internal/model"
)

// Query holds provider-agnostic search parameters for finding release
// announcement emails. The date window is half-open: After is inclusive,
// Before is exclusive, at the day granularity the provider supports.
type Query struct {
	Sender          string
	SubjectContains string
	After           model.Day
	Before          model.Day
}

// RawMessage is a normalized email message returned by a provider fetch.
type RawMessage struct {
	// HTML is the decoded text/html body, empty when the message has none.
	HTML string

	// Date is the calendar date of the message, zero when unrecoverable.
	Date model.Day

	// Subject is the decoded subject line.
	Subject string
}

// Provider is the capability set every mail transport must implement.
// A Provider instance is scoped to a single sync run: Authenticate opens
// the session and Close releases it. Close must be safe to call multiple
// times and on a provider that never authenticated.
type Provider interface {
	// Authenticate opens a session with the mail service. It fails with
	// *AuthError when credentials are missing, invalid, or expired.
	Authenticate(ctx context.Context) error

	// Search returns the IDs of messages matching the query, newest
	// first, capped at maxResults. Fails with *ProviderError on
	// transport errors.
	Search(ctx context.Context, q Query, maxResults int) ([]string, error)

	// Fetch retrieves full message content for the given IDs. batchSize
	// controls progress reporting granularity only. Messages that cannot
	// be fetched or parsed individually are logged and omitted from the
	// result, not treated as fatal.
	Fetch(ctx context.Context, ids []string, batchSize int) (map[string]RawMessage, error)

	// Close releases the provider session. Idempotent.
	Close() error
}
