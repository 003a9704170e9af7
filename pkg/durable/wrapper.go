package durable

import (
	"context"
	"sync"

	"github.com/rezlab/oplog/pkg/fault"
	"github.com/rezlab/oplog/pkg/log"
)

// LiveFunc performs the real external call. It runs only when the instance
// is live; during replay the recorded outcome substitutes for it. It may use
// internal concurrency and retries as long as only the final result returns.
type LiveFunc[T any] func(ctx context.Context) (T, *fault.Fault)

// Wrapper is the per-instance durable execution façade. All wrapped calls on
// one instance are serialized; distinct instances are fully independent.
type Wrapper struct {
	host       Host
	instanceID string
	mode       ReplayMode
	logger     log.Logger
	metrics    Metrics

	mu       sync.Mutex
	sessions []*SessionHandle
	poisoned *fault.Fault
}

// Option configures a Wrapper.
type Option func(*Wrapper)

// WithReplayMode sets the mismatch policy. Default is ReplayStrict.
func WithReplayMode(mode ReplayMode) Option {
	return func(w *Wrapper) { w.mode = mode }
}

// WithLogger sets the wrapper's logger.
func WithLogger(logger log.Logger) Option {
	return func(w *Wrapper) { w.logger = logger }
}

// WithMetrics sets the call observation hook.
func WithMetrics(m Metrics) Option {
	return func(w *Wrapper) { w.metrics = m }
}

// NewWrapper binds a wrapper to one execution instance.
func NewWrapper(host Host, instanceID string, opts ...Option) *Wrapper {
	w := &Wrapper{
		host:       host,
		instanceID: instanceID,
		mode:       ReplayStrict,
		logger:     log.NewLogger(log.WithLevel(log.WarnLevel)),
		metrics:    noopMetrics{},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.WithComponent("durable").With(log.Str("instance", instanceID))
	return w
}

// InstanceID returns the bound instance id.
func (w *Wrapper) InstanceID() string { return w.instanceID }

// Mode returns the configured replay mode.
func (w *Wrapper) Mode() ReplayMode { return w.mode }

// Live reports whether the next wrapped call would execute live.
func (w *Wrapper) Live() bool { return w.host.IsLive(w.instanceID) }

// Wrap executes operation durably: live it invokes fn and persists the
// outcome at the current ordinal; replaying it returns the recorded outcome
// without invoking fn. Exactly one ordinal is consumed per call regardless
// of outcome.
func Wrap[T any](ctx context.Context, w *Wrapper, operation string, input any, fn LiveFunc[T]) Outcome[T] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return wrapLocked(ctx, w, operation, input, fn)
}

// wrapLocked is the single code path every durable call funnels through.
// Callers hold w.mu.
func wrapLocked[T any](ctx context.Context, w *Wrapper, operation string, input any, fn LiveFunc[T]) Outcome[T] {
	if w.poisoned != nil {
		return Outcome[T]{Fault: w.poisoned}
	}

	digest, err := digestInput(input)
	if err != nil {
		// Unserializable input is deterministic: the same call fails the
		// same way on replay, so no ordinal is consumed.
		return Outcome[T]{Fault: fault.New(fault.InvalidRequest, "input for %s is not serializable: %v", operation, err)}
	}

	ordinal := w.host.CurrentOrdinal(w.instanceID)
	if w.host.IsLive(w.instanceID) {
		return executeLive(ctx, w, operation, digest, ordinal, fn)
	}
	return replay(ctx, w, operation, digest, ordinal, fn)
}

func executeLive[T any](ctx context.Context, w *Wrapper, operation, digest string, ordinal uint64, fn LiveFunc[T]) Outcome[T] {
	value, flt := fn(ctx)
	out := Outcome[T]{Value: value, Fault: flt}

	payload, err := encodeOutcome(out)
	if err != nil {
		return Outcome[T]{Fault: w.poison(fault.New(fault.ConsistencyViolation,
			"outcome of %s at ordinal %d is not serializable: %v", operation, ordinal, err))}
	}
	if err := w.host.Persist(w.instanceID, ordinal, operation, digest, payload); err != nil {
		// A captured result that cannot be persisted must never be silently
		// dropped: fail fatally and non-retryably.
		return Outcome[T]{Fault: w.poison(fault.New(fault.ConsistencyViolation,
			"persist of %s at ordinal %d failed: %v", operation, ordinal, err))}
	}

	w.metrics.ObserveCall(operation, "live")
	if flt != nil {
		w.metrics.ObserveFault(flt.Kind.String())
	}
	return out
}

func replay[T any](ctx context.Context, w *Wrapper, operation, digest string, ordinal uint64, fn LiveFunc[T]) Outcome[T] {
	rec, ok, err := w.host.GetRecord(w.instanceID, ordinal)
	if err != nil {
		return Outcome[T]{Fault: w.poison(fault.New(fault.ConsistencyViolation,
			"reading record at ordinal %d failed: %v", ordinal, err))}
	}
	if !ok {
		// History is shorter than the code path being replayed, typically
		// from non-deterministic branching outside the wrapper. Fatal in
		// every mode: there is nothing sound to substitute.
		return Outcome[T]{Fault: w.poison(fault.New(fault.ConsistencyViolation,
			"no record at ordinal %d for %s: history shorter than code path", ordinal, operation))}
	}

	if rec.Operation != operation || rec.InputDigest != digest {
		if w.mode == ReplayBestEffort {
			w.logger.Warn("replay mismatch, re-executing live function",
				log.Uint64("ordinal", ordinal),
				log.Str("recorded_op", rec.Operation),
				log.Str("called_op", operation))
			value, flt := fn(ctx)
			w.metrics.ObserveCall(operation, "live")
			if flt != nil {
				w.metrics.ObserveFault(flt.Kind.String())
			}
			return Outcome[T]{Value: value, Fault: flt}
		}
		return Outcome[T]{Fault: w.poison(fault.New(fault.ConsistencyViolation,
			"replay mismatch at ordinal %d: recorded %s, called %s", ordinal, rec.Operation, operation))}
	}

	out, err := decodeOutcome[T](rec.Outcome)
	if err != nil {
		return Outcome[T]{Fault: w.poison(fault.New(fault.ConsistencyViolation,
			"recorded outcome at ordinal %d does not decode: %v", ordinal, err))}
	}
	w.metrics.ObserveCall(operation, "replay")
	return out
}

// poison marks the instance fatally failed. Every subsequent wrapped call
// returns the same consistency fault.
func (w *Wrapper) poison(f *fault.Fault) *fault.Fault {
	if w.poisoned == nil {
		w.poisoned = f
		w.logger.Error("instance poisoned", log.Err(f))
		w.metrics.ObserveFault(f.Kind.String())
	}
	return w.poisoned
}
