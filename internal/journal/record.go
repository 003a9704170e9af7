package journal

import (
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
)

// Record framing: uvarint headerLen | header | payload | crc32c(header|payload)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Header describes one invocation record. It is stored as JSON so oplog
// consumers (CLI, HTTP inspection) can read it without the payload codec.
type Header struct {
	// Operation is the durably wrapped operation name, e.g. "llm.generate".
	Operation string `json:"op"`
	// InputDigest is the hex sha256 of the call's canonical input encoding.
	InputDigest string `json:"digest"`
	// CapturedAtMs is the wall-clock capture time. Diagnostic only; replay
	// never depends on it.
	CapturedAtMs int64 `json:"ts_ms"`
}

// EncodeRecord frames a header and payload for storage.
func EncodeRecord(header Header, payload []byte) ([]byte, error) {
	hb, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 10+len(hb)+len(payload)+4)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(hb)))
	out = append(out, tmp[:n]...)
	out = append(out, hb...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, hb)
	crc = crc32.Update(crc, castagnoli, payload)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	out = append(out, crcb[:]...)
	return out, nil
}

// Entry is a decoded invocation record together with its ordinal.
type Entry struct {
	Ordinal uint64
	Header  Header
	Payload []byte
}

// DecodeRecord parses a framed record. Returns false on any framing or
// checksum failure; a corrupt record must never be replayed.
func DecodeRecord(b []byte) (Header, []byte, bool) {
	if len(b) < 1+4 {
		return Header{}, nil, false
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 {
		return Header{}, nil, false
	}
	if n+int(hlen)+4 > len(b) {
		return Header{}, nil, false
	}
	hb := b[n : n+int(hlen)]
	payload := b[n+int(hlen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, hb)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return Header{}, nil, false
	}
	var header Header
	if err := json.Unmarshal(hb, &header); err != nil {
		return Header{}, nil, false
	}
	return header, append([]byte(nil), payload...), true
}
