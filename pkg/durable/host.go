package durable

import (
	"errors"
	"strings"
)

// Record is one invocation record as the host hands it back during replay.
type Record struct {
	Ordinal     uint64
	Operation   string
	InputDigest string
	Outcome     []byte
}

// Host is the execution environment the wrapper runs against. It owns
// physical journal storage, determines live-vs-replay state and tracks the
// per-instance ordinal cursor.
//
// Cursor contract: CurrentOrdinal starts at 0 when a process (re)starts; a
// successful Persist advances it by one, as does a GetRecord call that finds
// a record at the cursor. IsLive(id) is true exactly when the cursor has
// moved past the recorded history.
//
// Implementations must be safe for concurrent use by independent instances;
// calls within one instance are already serialized by the Wrapper.
type Host interface {
	IsLive(instanceID string) bool
	Persist(instanceID string, ordinal uint64, operation string, inputDigest string, outcome []byte) error
	GetRecord(instanceID string, ordinal uint64) (Record, bool, error)
	CurrentOrdinal(instanceID string) uint64
}

// ReplayMode selects how the wrapper reacts to journal/ordinal mismatches.
type ReplayMode int

const (
	// ReplayStrict fails fatally on any mismatch. The default.
	ReplayStrict ReplayMode = iota
	// ReplayBestEffort re-executes the live function with a warning when a
	// recorded operation or input digest does not match the call being
	// replayed. Sound only for read-only/idempotent operations; the journal
	// is never rewritten.
	ReplayBestEffort
)

// String returns the configuration name of the mode.
func (m ReplayMode) String() string {
	if m == ReplayBestEffort {
		return "best-effort"
	}
	return "strict"
}

// ParseReplayMode parses "strict" or "best-effort".
func ParseReplayMode(s string) (ReplayMode, error) {
	switch strings.TrimSpace(s) {
	case "", "strict":
		return ReplayStrict, nil
	case "best-effort":
		return ReplayBestEffort, nil
	default:
		return ReplayStrict, errors.New("durable: invalid replay mode; use strict|best-effort")
	}
}

// Metrics is an optional observation seam for wrapped calls. Implementations
// must be cheap; the wrapper calls them inline.
type Metrics interface {
	// ObserveCall records one wrapped call. mode is "live" or "replay".
	ObserveCall(operation, mode string)
	// ObserveFault records a fault outcome by taxonomy kind.
	ObserveFault(kind string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveCall(string, string) {}
func (noopMetrics) ObserveFault(string)        {}
