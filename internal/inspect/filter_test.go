package inspect

import (
	"testing"

	"github.com/rezlab/oplog/internal/journal"
)

func entry(ord uint64, op, digest string, ts int64, payload string) journal.Entry {
	return journal.Entry{
		Ordinal: ord,
		Header: journal.Header{
			Operation:    op,
			InputDigest:  digest,
			CapturedAtMs: ts,
		},
		Payload: []byte(payload),
	}
}

func TestDisabledFilterMatchesAll(t *testing.T) {
	f, err := NewFilter("")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !f.Eval(entry(0, "chat.send", "d0", 1, `{"value":"hi"}`)) {
		t.Fatal("disabled filter must match")
	}
}

func TestCompileError(t *testing.T) {
	if _, err := NewFilter("operation =="); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestOperationAndOrdinal(t *testing.T) {
	f, err := NewFilter(`operation == "chat.send" && ordinal >= 2`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if f.Eval(entry(1, "chat.send", "d", 1, `{"value":1}`)) {
		t.Fatal("ordinal 1 must not match")
	}
	if !f.Eval(entry(2, "chat.send", "d", 1, `{"value":1}`)) {
		t.Fatal("ordinal 2 must match")
	}
	if f.Eval(entry(2, "search.query", "d", 1, `{"value":1}`)) {
		t.Fatal("other operation must not match")
	}
}

func TestFaultKind(t *testing.T) {
	f, err := NewFilter(`kind == "fault" && fault_kind == "rate-limited"`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	fault := `{"fault":{"kind":"rate-limited","message":"slow down","retryAfterMs":30000}}`
	if !f.Eval(entry(0, "chat.send", "d", 1, fault)) {
		t.Fatal("rate-limited fault must match")
	}
	if f.Eval(entry(0, "chat.send", "d", 1, `{"value":"ok"}`)) {
		t.Fatal("value record must not match")
	}
}

func TestOutcomeField(t *testing.T) {
	f, err := NewFilter(`kind == "value" && outcome.model == "m-1"`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !f.Eval(entry(0, "chat.send", "d", 1, `{"value":{"model":"m-1","text":"hi"}}`)) {
		t.Fatal("matching outcome field must match")
	}
	if f.Eval(entry(0, "chat.send", "d", 1, `{"value":{"model":"m-2"}}`)) {
		t.Fatal("other model must not match")
	}
	// Scalar outcome: field access errors count as non-matches.
	if f.Eval(entry(0, "chat.send", "d", 1, `{"value":"hi"}`)) {
		t.Fatal("scalar outcome must not match a field filter")
	}
}
