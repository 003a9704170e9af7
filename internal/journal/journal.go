package journal

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/rezlab/oplog/internal/storage"
)

var (
	// ErrOrdinalGap means an append skipped past the next expected ordinal.
	ErrOrdinalGap = errors.New("journal: ordinal gap")
	// ErrRecordMismatch means an append targeted a recorded ordinal with a
	// different header or payload. History is immutable; this is fatal.
	ErrRecordMismatch = errors.New("journal: record mismatch at recorded ordinal")
	// ErrCorruptRecord means a stored record failed framing or checksum.
	ErrCorruptRecord = errors.New("journal: corrupt record")
)

// Journal provides append-only, ordinal-addressed record storage for one
// execution instance.
type Journal struct {
	store      storage.Store
	instanceID string

	mu    sync.Mutex
	count uint64 // number of records; next ordinal to append
}

// Open initializes a Journal and loads the record count from metadata (if any).
func Open(store storage.Store, instanceID string) (*Journal, error) {
	if instanceID == "" {
		return nil, errors.New("journal: instance id is required")
	}
	j := &Journal{store: store, instanceID: instanceID}
	meta, ok, err := store.Get(KeyMeta(instanceID))
	if err != nil {
		return nil, err
	}
	if ok && len(meta) >= 8 {
		j.count = binary.BigEndian.Uint64(meta[:8])
	}
	return j, nil
}

// InstanceID returns the owning instance id.
func (j *Journal) InstanceID() string { return j.instanceID }

// Count returns the number of records (equivalently, the next live ordinal).
func (j *Journal) Count() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.count
}

// Append persists a record at the given ordinal.
//
// Idempotency: appending a byte-identical record at an already recorded
// ordinal is a no-op. A differing record at a recorded ordinal returns
// ErrRecordMismatch, and an ordinal beyond the next expected one returns
// ErrOrdinalGap; both are consistency violations for the caller.
func (j *Journal) Append(ctx context.Context, ordinal uint64, header Header, payload []byte) error {
	encoded, err := EncodeRecord(header, payload)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	switch {
	case ordinal < j.count:
		existing, ok, err := j.store.Get(KeyEntry(j.instanceID, ordinal))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: ordinal %d counted but absent", ErrCorruptRecord, ordinal)
		}
		if recordsEquivalent(existing, encoded) {
			return nil
		}
		return fmt.Errorf("%w: ordinal %d", ErrRecordMismatch, ordinal)
	case ordinal > j.count:
		return fmt.Errorf("%w: ordinal %d, expected %d", ErrOrdinalGap, ordinal, j.count)
	}

	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], j.count+1)
	ops := []storage.Op{
		{Key: KeyEntry(j.instanceID, ordinal), Value: encoded},
		{Key: KeyMeta(j.instanceID), Value: meta[:]},
	}
	if err := j.store.Apply(ctx, ops); err != nil {
		return err
	}
	j.count++
	return nil
}

// Get returns the record at the given ordinal.
func (j *Journal) Get(ordinal uint64) (Entry, bool, error) {
	raw, ok, err := j.store.Get(KeyEntry(j.instanceID, ordinal))
	if err != nil || !ok {
		return Entry{}, false, err
	}
	header, payload, ok := DecodeRecord(raw)
	if !ok {
		return Entry{}, false, fmt.Errorf("%w: ordinal %d", ErrCorruptRecord, ordinal)
	}
	return Entry{Ordinal: ordinal, Header: header, Payload: payload}, true, nil
}

// recordsEquivalent compares two framed records ignoring the capture
// timestamp, which legitimately differs when a cancelled live call is
// re-captured with the same outcome.
func recordsEquivalent(a, b []byte) bool {
	if bytes.Equal(a, b) {
		return true
	}
	ha, pa, okA := DecodeRecord(a)
	hb, pb, okB := DecodeRecord(b)
	if !okA || !okB {
		return false
	}
	ha.CapturedAtMs, hb.CapturedAtMs = 0, 0
	return ha == hb && bytes.Equal(pa, pb)
}
