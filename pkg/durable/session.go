package durable

import (
	"context"

	"github.com/rezlab/oplog/pkg/fault"
)

// SessionState is the lifecycle state of a long-lived resource.
type SessionState int

const (
	// SessionCreated means the creation call succeeded but the handle has
	// not been used yet.
	SessionCreated SessionState = iota
	// SessionActive means at least one call against the handle succeeded.
	SessionActive
	// SessionExhausted means the provider signaled there is nothing left to
	// deliver. Terminal.
	SessionExhausted
	// SessionClosed means the handle was explicitly closed. Terminal.
	SessionClosed
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case SessionCreated:
		return "created"
	case SessionActive:
		return "active"
	case SessionExhausted:
		return "exhausted"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SessionHandle is the local view of a long-lived remote resource. The
// LocalID is an arena index assigned deterministically (creation order), so
// a resumed instance rebuilds identical ids by replaying creation records.
// Handles are exclusively owned by the instance that created them.
type SessionHandle struct {
	localID   uint32
	remote    string
	state     SessionState
	createdAt uint64
}

// LocalID returns the arena index exposed to callers.
func (h *SessionHandle) LocalID() uint32 { return h.localID }

// RemoteRef returns the opaque provider-side token for this resource.
func (h *SessionHandle) RemoteRef() string { return h.remote }

// State returns the current lifecycle state.
func (h *SessionHandle) State() SessionState { return h.state }

// CreatedAtOrdinal returns the ordinal of the creation record.
func (h *SessionHandle) CreatedAtOrdinal() uint64 { return h.createdAt }

// OpenFunc performs the real resource creation, returning the provider-side
// reference that later calls will close over.
type OpenFunc func(ctx context.Context) (remoteRef string, flt *fault.Fault)

// SessionFunc performs one real call against an open resource.
type SessionFunc[T any] func(ctx context.Context, remoteRef string) (T, *fault.Fault)

// CloseFunc releases the remote resource. A nil CloseFunc records a local
// close without a provider call (for providers whose resources expire on
// their own).
type CloseFunc func(ctx context.Context, remoteRef string) *fault.Fault

// sessionInput wraps a session call's input so the journal digest also pins
// the handle the call was made against.
type sessionInput struct {
	LocalID uint32 `json:"local_id"`
	Input   any    `json:"input"`
}

// OpenSession durably creates a long-lived resource. The creation call is
// wrapped like any operation; the returned handle's remote reference comes
// from the creation record during replay, reconnecting the local handle to
// the same remote resource without recreating it.
func OpenSession(ctx context.Context, w *Wrapper, operation string, input any, fn OpenFunc) (*SessionHandle, *fault.Fault) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ordinal := w.host.CurrentOrdinal(w.instanceID)
	out := wrapLocked(ctx, w, operation, input, LiveFunc[string](fn))
	if out.Fault != nil {
		return nil, out.Fault
	}
	h := &SessionHandle{
		localID:   uint32(len(w.sessions)),
		remote:    out.Value,
		state:     SessionCreated,
		createdAt: ordinal,
	}
	w.sessions = append(w.sessions, h)
	return h, nil
}

// Session returns the registered handle for a local id.
func (w *Wrapper) Session(localID uint32) (*SessionHandle, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if int(localID) >= len(w.sessions) {
		return nil, false
	}
	return w.sessions[localID], true
}

// SessionCall durably executes one call against an open resource. The live
// function closes over the handle's remote reference. Calls against a handle
// this wrapper never registered are a fatal consistency violation; calls
// against a terminal handle fail with a fixed resource-no-longer-available
// fault without consuming an ordinal.
func SessionCall[T any](ctx context.Context, w *Wrapper, h *SessionHandle, operation string, input any, fn SessionFunc[T]) Outcome[T] {
	w.mu.Lock()
	defer w.mu.Unlock()

	reg, flt := w.lookupSessionLocked(h)
	if flt != nil {
		return Outcome[T]{Fault: flt}
	}
	if flt := rejectTerminal(reg); flt != nil {
		return Outcome[T]{Fault: flt}
	}

	out := wrapLocked(ctx, w, operation, sessionInput{LocalID: reg.localID, Input: input}, func(ctx context.Context) (T, *fault.Fault) {
		return fn(ctx, reg.remote)
	})
	if out.Fault == nil && reg.state == SessionCreated {
		reg.state = SessionActive
	}
	return out
}

// CloseSession durably closes a resource. Closing a terminal handle fails
// with the fixed resource fault without consuming an ordinal.
func CloseSession(ctx context.Context, w *Wrapper, h *SessionHandle, fn CloseFunc) Outcome[struct{}] {
	w.mu.Lock()
	defer w.mu.Unlock()

	reg, flt := w.lookupSessionLocked(h)
	if flt != nil {
		return Outcome[struct{}]{Fault: flt}
	}
	if flt := rejectTerminal(reg); flt != nil {
		return Outcome[struct{}]{Fault: flt}
	}

	out := wrapLocked(ctx, w, "session.close", sessionInput{LocalID: reg.localID}, func(ctx context.Context) (struct{}, *fault.Fault) {
		if fn == nil {
			return struct{}{}, nil
		}
		return struct{}{}, fn(ctx, reg.remote)
	})
	if out.Fault == nil {
		reg.state = SessionClosed
	}
	return out
}

// lookupSessionLocked verifies the handle belongs to this wrapper's arena.
// An unknown handle means the caller referenced a resource with no creation
// record, which is fatal; it must never be a silent no-op.
func (w *Wrapper) lookupSessionLocked(h *SessionHandle) (*SessionHandle, *fault.Fault) {
	if w.poisoned != nil {
		return nil, w.poisoned
	}
	if h == nil {
		return nil, w.poison(fault.New(fault.ConsistencyViolation, "nil session handle"))
	}
	if int(h.localID) >= len(w.sessions) || w.sessions[h.localID] != h {
		return nil, w.poison(fault.New(fault.ConsistencyViolation,
			"unknown session handle %d: no creation record", h.localID))
	}
	return h, nil
}

func rejectTerminal(h *SessionHandle) *fault.Fault {
	switch h.state {
	case SessionExhausted:
		return fault.New(fault.ResourceExhausted, "resource no longer available: session %d exhausted", h.localID)
	case SessionClosed:
		return fault.New(fault.ResourceClosed, "resource no longer available: session %d closed", h.localID)
	default:
		return nil
	}
}
