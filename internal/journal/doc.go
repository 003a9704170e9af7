// Package journal implements the append-only, per-instance replay journal.
//
// # Overview
//
// Each execution instance owns one journal: the ordered sequence of
// invocation records describing every durably wrapped call it has made.
// Records are keyed by ordinal and persisted through storage.Store. Keys are
// lexicographically ordered for efficient range scans:
//   - inst/{id}/m           (journal metadata: record count)
//   - inst/{id}/e/{ord_be8} (invocation records)
//
// Records are framed as: headerLen(uvarint) | header | payload |
// crc32c(header|payload). The header is a small JSON object carrying the
// operation name, input digest and capture timestamp; the payload is the
// encoded outcome.
//
// # Invariants
//
// Ordinals are contiguous and strictly increasing from 0. Append is
// idempotent: re-appending an identical record at a recorded ordinal is a
// no-op, while a differing record or an ordinal gap is a consistency error
// the caller must treat as fatal.
//
// API surface (internal)
//
//	j, _ := Open(store, instanceID)
//	err := j.Append(ctx, ord, Header{Operation: "llm.generate", ...}, payload)
//	ent, ok, _ := j.Get(ord)
//	items, _ := j.Read(ReadOptions{From: 0, Limit: 100})
//	n, _ := j.Purge(ctx, 1024)
package journal
