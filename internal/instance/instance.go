// Package instance tracks execution-instance metadata. An instance is one
// logical, checkpointable run of domain code; its metadata records when it
// was first seen and which replay mode it runs under.
package instance

import (
	"encoding/json"
	"time"

	"github.com/rezlab/oplog/internal/storage"
)

// Meta holds instance metadata.
type Meta struct {
	ID          string `json:"id"`
	CreatedAtMs int64  `json:"createdAtMs"`
	// ReplayMode is "strict" or "best-effort".
	ReplayMode string `json:"replayMode"`
}

var metaPrefix = []byte("instmeta/")

func metaKey(id string) []byte {
	k := make([]byte, 0, len(metaPrefix)+len(id))
	k = append(k, metaPrefix...)
	k = append(k, id...)
	return k
}

// Ensure creates an instance meta record if absent, returning the effective
// meta. Idempotent: returns the existing record when already present, so a
// resumed instance keeps its original replay mode.
func Ensure(store storage.Store, id, replayMode string) (Meta, error) {
	key := metaKey(id)
	if b, ok, err := store.Get(key); err != nil {
		return Meta{}, err
	} else if ok && len(b) > 0 {
		var m Meta
		if err := json.Unmarshal(b, &m); err == nil {
			return m, nil
		}
		// fall through to rewrite if corrupted
	}
	m := Meta{ID: id, CreatedAtMs: time.Now().UnixMilli(), ReplayMode: replayMode}
	b, err := json.Marshal(m)
	if err != nil {
		return Meta{}, err
	}
	if err := store.Set(key, b); err != nil {
		return Meta{}, err
	}
	return m, nil
}

// Get returns the meta record for an instance.
func Get(store storage.Store, id string) (Meta, bool, error) {
	b, ok, err := store.Get(metaKey(id))
	if err != nil || !ok {
		return Meta{}, false, err
	}
	var m Meta
	if err := json.Unmarshal(b, &m); err != nil {
		return Meta{}, false, err
	}
	return m, true, nil
}

// Delete removes the meta record for an instance.
func Delete(store storage.Store, id string) error {
	return store.Delete(metaKey(id))
}

// List returns all known instances in id order.
func List(store storage.Store) ([]Meta, error) {
	low := metaPrefix
	high := append(append([]byte(nil), metaPrefix...), 0xff)
	var out []Meta
	err := store.Scan(low, high, func(_, value []byte) bool {
		var m Meta
		if err := json.Unmarshal(value, &m); err == nil {
			out = append(out, m)
		}
		return true
	})
	return out, err
}
