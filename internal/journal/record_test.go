package journal

import (
	"bytes"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	h := Header{Operation: "search.next-page", InputDigest: "abc123", CapturedAtMs: 42}
	payload := []byte(`{"value":["r1","r2"]}`)
	encoded, err := EncodeRecord(h, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, gotPayload, ok := DecodeRecord(encoded)
	if !ok {
		t.Fatalf("decode failed")
	}
	if got != h || !bytes.Equal(gotPayload, payload) {
		t.Fatalf("round trip: %+v %q", got, gotPayload)
	}
}

func TestRecordEmptyPayload(t *testing.T) {
	encoded, err := EncodeRecord(Header{Operation: "session.close"}, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	h, payload, ok := DecodeRecord(encoded)
	if !ok || h.Operation != "session.close" || len(payload) != 0 {
		t.Fatalf("decode: %+v %q %v", h, payload, ok)
	}
}

func TestDecodeRejectsCorruption(t *testing.T) {
	encoded, err := EncodeRecord(Header{Operation: "op"}, []byte("payload"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// flip a payload byte; crc must catch it
	corrupt := append([]byte(nil), encoded...)
	corrupt[len(corrupt)-6] ^= 0xff
	if _, _, ok := DecodeRecord(corrupt); ok {
		t.Fatalf("corrupt record accepted")
	}
	// truncation
	if _, _, ok := DecodeRecord(encoded[:3]); ok {
		t.Fatalf("truncated record accepted")
	}
	if _, _, ok := DecodeRecord(nil); ok {
		t.Fatalf("empty record accepted")
	}
}
