// Package runtime is the host execution environment: it owns physical
// journal storage, determines live-vs-replay state per instance and exposes
// the persist/read primitives the durable wrapper consumes.
//
// The runtime keeps one in-memory ordinal cursor per instance, reset to zero
// on process start. While the cursor is inside the recorded history the
// instance is replaying; once it moves past, the instance is live. Distinct
// instances are fully independent.
package runtime
