// Package interfaces defines the boundaries between the workspace core
// and its external collaborators. Components communicate through these
// for loose coupling.
package interfaces

import (
	"context"

	"github.com/quiverhq/quiver/internal/core"
)

// Payload is the fully resolved request handed to the execution service:
// variables substituted and auth headers synthesized. The core owns
// payload construction and result interpretation only; sockets, TLS, and
// protocol mechanics belong to the Sender implementation.
type Payload struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// Sender is the request execution service boundary.
type Sender interface {
	// Send executes the payload and returns the response, or an error
	// for transport-level failures.
	Send(ctx context.Context, p Payload) (*core.Response, error)

	// Protocol returns the protocol identifier (e.g. "http").
	Protocol() string
}

// DocumentStore is the persistence boundary: one independent keyed JSON
// document per entity family, last-writer-wins.
type DocumentStore interface {
	// Load unmarshals the document under key into v. A missing document
	// leaves v at its default and is not an error.
	Load(key string, v any) error

	// Save marshals v and replaces the document under key.
	Save(key string, v any) error
}
