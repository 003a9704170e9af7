package journal

import (
	"context"

	"github.com/rezlab/oplog/internal/storage"
)

// Purge deletes every record and the journal metadata for this instance.
// Deletes are committed in batches of up to batchLimit keys so large
// histories do not produce one giant write. Returns the number of records
// deleted.
//
// Purging a live instance destroys its ability to replay; callers gate this
// on the instance being finished or abandoned.
func (j *Journal) Purge(ctx context.Context, batchLimit int) (int, error) {
	if batchLimit <= 0 {
		batchLimit = 1024
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	low, high := KeyEntryPrefix(j.instanceID)
	deleted := 0
	for {
		var keys [][]byte
		err := j.store.Scan(low, high, func(key, _ []byte) bool {
			keys = append(keys, key)
			return len(keys) < batchLimit
		})
		if err != nil {
			return deleted, err
		}
		if len(keys) == 0 {
			break
		}
		ops := make([]storage.Op, 0, len(keys))
		for _, k := range keys {
			ops = append(ops, storage.Op{Key: k, Delete: true})
		}
		if err := j.store.Apply(ctx, ops); err != nil {
			return deleted, err
		}
		deleted += len(keys)
	}

	if err := j.store.Delete(KeyMeta(j.instanceID)); err != nil {
		return deleted, err
	}
	j.count = 0
	return deleted, nil
}
