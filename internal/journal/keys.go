package journal

import (
	"encoding/binary"
)

// Keyspace helpers.
//
// Layout (byte-wise, lexicographically sortable):
// - inst/{id}/m
// - inst/{id}/e/{ord_be8}

var (
	instPrefix = []byte("inst/")
	metaSuffix = []byte("/m")
	entrySeg   = []byte("/e/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// KeyMeta builds the journal metadata key for an instance.
func KeyMeta(instanceID string) []byte {
	k := make([]byte, 0, len(instPrefix)+len(instanceID)+2)
	k = append(k, instPrefix...)
	k = append(k, instanceID...)
	k = append(k, metaSuffix...)
	return k
}

// KeyEntry builds a record key with a big-endian ordinal for proper ordering.
func KeyEntry(instanceID string, ordinal uint64) []byte {
	k := make([]byte, 0, len(instPrefix)+len(instanceID)+len(entrySeg)+8)
	k = append(k, instPrefix...)
	k = append(k, instanceID...)
	k = append(k, entrySeg...)
	k = appendBE8(k, ordinal)
	return k
}

// KeyEntryPrefix returns scan bounds covering all records of an instance.
func KeyEntryPrefix(instanceID string) (low, high []byte) {
	low = KeyEntry(instanceID, 0)
	high = append(KeyEntry(instanceID, ^uint64(0)), 0x00)
	return low, high
}

// ordinalFromKey extracts the big-endian ordinal from an entry key.
func ordinalFromKey(key []byte) uint64 {
	if len(key) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(key[len(key)-8:])
}
