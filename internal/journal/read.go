package journal

// ReadOptions selects a forward range of records.
type ReadOptions struct {
	// From is the first ordinal to return.
	From uint64
	// Limit caps the number of returned records; 0 means no cap.
	Limit int
}

// Read returns up to Limit records starting at From (inclusive), in ordinal
// order. Used by the inspection surfaces; the wrapper itself reads records
// one ordinal at a time via Get.
func (j *Journal) Read(opts ReadOptions) ([]Entry, error) {
	low := KeyEntry(j.instanceID, opts.From)
	_, high := KeyEntryPrefix(j.instanceID)

	var items []Entry
	var decodeErr error
	err := j.store.Scan(low, high, func(key, value []byte) bool {
		header, payload, ok := DecodeRecord(value)
		if !ok {
			decodeErr = ErrCorruptRecord
			return false
		}
		items = append(items, Entry{Ordinal: ordinalFromKey(key), Header: header, Payload: payload})
		return opts.Limit == 0 || len(items) < opts.Limit
	})
	if err != nil {
		return items, err
	}
	return items, decodeErr
}
