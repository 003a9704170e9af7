// Package capability defines the shared contract every vendor adapter
// implements. The durable wrapper is generic over this contract and never
// branches on provider identity; vendor-specific behavior lives entirely
// behind it.
package capability

import "context"

// Kind identifies one domain capability a provider can implement.
type Kind string

// The closed capability set.
const (
	ChatCompletion  Kind = "chat-completion"
	WebSearch       Kind = "web-search"
	DocumentSearch  Kind = "document-search"
	Transcription   Kind = "transcription"
	Synthesis       Kind = "synthesis"
	VectorQuery     Kind = "vector-query"
	GraphQuery      Kind = "graph-query"
	CodeExecution   Kind = "code-execution"
	MediaGeneration Kind = "media-generation"
)

// Info contains metadata about a provider implementation.
type Info struct {
	// ID uniquely names the adapter, e.g. "openai", "elevenlabs".
	ID string `json:"id"`
	// Vendor is the upstream service the adapter targets.
	Vendor string `json:"vendor"`
	// Capabilities lists the kinds this provider implements.
	Capabilities []Kind `json:"capabilities"`
}

// Supports reports whether the provider implements the given kind.
func (i Info) Supports(kind Kind) bool {
	for _, k := range i.Capabilities {
		if k == kind {
			return true
		}
	}
	return false
}

// Provider is the minimal interface a vendor adapter exposes to the runtime.
// Domain operations are plain functions closed over the provider's client;
// they are handed to the durable wrapper as live functions, so this interface
// deliberately carries identity and lifecycle only.
type Provider interface {
	Info() Info

	// Close releases any client resources. Called on instance teardown.
	Close(ctx context.Context) error
}
