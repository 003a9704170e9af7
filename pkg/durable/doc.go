// Package durable is the replay-safe execution wrapper every capability
// operation passes through.
//
// # Overview
//
// A Wrapper is bound to one execution instance. Each durably wrapped call
// consumes exactly one ordinal in the instance's journal: executing live, the
// wrapper invokes the provided live function, persists its outcome verbatim,
// and returns it; replaying, it returns the recorded outcome without touching
// the provider. For a fixed (instance, ordinal) the result is always the
// same.
//
//	w := durable.NewWrapper(host, instanceID)
//	out := durable.Wrap(ctx, w, "llm.generate", req, func(ctx context.Context) (string, *fault.Fault) {
//		return provider.Generate(ctx, req)
//	})
//
// Long-lived resources (pagination sessions, generation streams, sandboxes)
// are opened with OpenSession, giving a SessionHandle whose remote reference
// was captured in the creation record; subsequent SessionCall and Cursor
// operations close over that reference. On resume the registry is rebuilt by
// re-executing creation calls against the journal, so a local handle reconnects
// to the same remote resource without recreating it.
//
// # Suspension and concurrency
//
// Execution is single-threaded and cooperative per instance: the wrapper
// serializes calls, and suspension points are exactly wrapped-call boundaries
// plus Cursor.BlockingPull. Live functions may use internal concurrency; only
// the final outcome crosses back into the wrapper. The wrapper never retries:
// retry/backoff is provider policy, and only the final result is persisted.
//
// # Failure model
//
// Failures travel as *fault.Fault values inside an Outcome and are persisted
// and replayed like successes. The only kind the wrapper itself originates is
// ConsistencyViolation (journal/ordinal mismatch, failed persistence, unknown
// session handle); it poisons the wrapper so every subsequent call on the
// instance fails the same way.
package durable
