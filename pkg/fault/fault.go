// Package fault defines the unified failure taxonomy shared by every
// capability provider, plus the pure mapper that normalizes heterogeneous
// provider failures into it. Mapping is category/status based, never
// free-text matching, so it stays stable across vendor wording changes.
package fault

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind classifies a failure. The set is closed; providers never extend it.
type Kind int

const (
	// Internal is the catch-all for unclassifiable failures.
	Internal Kind = iota
	// InvalidRequest means malformed or unsupported input; not retryable.
	InvalidRequest
	// AuthenticationFailed means missing/invalid credentials.
	AuthenticationFailed
	// AuthorizationFailed means valid credentials lacking permission.
	AuthorizationFailed
	// RateLimited carries a retry-after hint; callers may retry after it elapses.
	RateLimited
	// QuotaExceeded is a hard account limit, not time-bounded.
	QuotaExceeded
	// UnsupportedOperation means the provider lacks the capability.
	UnsupportedOperation
	// ResourceNotFound means the referenced session/resource does not exist.
	ResourceNotFound
	// ResourceExhausted means the session reached its terminal exhausted state.
	ResourceExhausted
	// ResourceClosed means the session was explicitly closed.
	ResourceClosed
	// TransientProvider covers network and 5xx-class failures; safe to retry.
	TransientProvider
	// ConsistencyViolation is an internal fatal error (journal/ordinal
	// mismatch, unknown session handle during replay). Always terminates the
	// owning instance; never retryable.
	ConsistencyViolation
)

var kindNames = map[Kind]string{
	Internal:             "internal",
	InvalidRequest:       "invalid-request",
	AuthenticationFailed: "authentication-failed",
	AuthorizationFailed:  "authorization-failed",
	RateLimited:          "rate-limited",
	QuotaExceeded:        "quota-exceeded",
	UnsupportedOperation: "unsupported-operation",
	ResourceNotFound:     "resource-not-found",
	ResourceExhausted:    "resource-exhausted",
	ResourceClosed:       "resource-closed",
	TransientProvider:    "transient-provider",
	ConsistencyViolation: "consistency-violation",
}

var kindValues = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, v := range kindNames {
		m[v] = k
	}
	return m
}()

// String returns the wire name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "internal"
}

// MarshalJSON encodes the kind as its wire name.
func (k Kind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// UnmarshalJSON decodes a wire name; unknown names decode as Internal.
func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if v, ok := kindValues[s]; ok {
		*k = v
	} else {
		*k = Internal
	}
	return nil
}

// Retryable reports whether callers may retry after this kind of failure
// without operator intervention. The wrapper itself never retries.
func (k Kind) Retryable() bool {
	switch k {
	case RateLimited, TransientProvider:
		return true
	default:
		return false
	}
}

// Fatal reports whether the failure must terminate the owning instance.
func (k Kind) Fatal() bool { return k == ConsistencyViolation }

// Fault is the normalized failure value carried inside an Outcome. It is an
// ordinary value: persisted verbatim in the journal and replayed identically.
type Fault struct {
	Kind     Kind   `json:"kind"`
	Message  string `json:"message,omitempty"`
	Provider string `json:"provider,omitempty"`
	// Detail preserves the provider-specific failure payload for diagnostics.
	Detail string `json:"detail,omitempty"`
	// RetryAfterMs is set for rate-limited faults; milliseconds to wait.
	RetryAfterMs int64 `json:"retry_after_ms,omitempty"`
}

// New builds a Fault of the given kind.
func New(kind Kind, format string, args ...interface{}) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Provider != "" {
		return fmt.Sprintf("%s: %s (provider %s)", f.Kind, f.Message, f.Provider)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// RetryAfter returns the retry hint as a duration (zero when absent).
func (f *Fault) RetryAfter() time.Duration {
	return time.Duration(f.RetryAfterMs) * time.Millisecond
}

// Retryable reports whether callers may retry this fault.
func (f *Fault) Retryable() bool { return f.Kind.Retryable() }
