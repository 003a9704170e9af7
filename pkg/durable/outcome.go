package durable

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/rezlab/oplog/pkg/fault"
)

// Outcome is the success-or-failure result of one durably wrapped call:
// exactly one of Value or Fault is meaningful. Faults are ordinary values,
// persisted and replayed identically to successes.
type Outcome[T any] struct {
	Value T
	Fault *fault.Fault
}

// Failed reports whether the outcome carries a fault.
func (o Outcome[T]) Failed() bool { return o.Fault != nil }

// Err returns the fault as an error, or nil on success.
func (o Outcome[T]) Err() error {
	if o.Fault != nil {
		return o.Fault
	}
	return nil
}

// Unwrap returns the value and the fault-as-error.
func (o Outcome[T]) Unwrap() (T, error) {
	return o.Value, o.Err()
}

// envelope is the journal payload encoding of an Outcome.
type envelope struct {
	Value json.RawMessage `json:"value,omitempty"`
	Fault *fault.Fault    `json:"fault,omitempty"`
}

func encodeOutcome[T any](o Outcome[T]) ([]byte, error) {
	var env envelope
	if o.Fault != nil {
		env.Fault = o.Fault
	} else {
		raw, err := json.Marshal(o.Value)
		if err != nil {
			return nil, err
		}
		env.Value = raw
	}
	return json.Marshal(env)
}

func decodeOutcome[T any](b []byte) (Outcome[T], error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Outcome[T]{}, err
	}
	if env.Fault != nil {
		return Outcome[T]{Fault: env.Fault}, nil
	}
	var out Outcome[T]
	if len(env.Value) > 0 {
		if err := json.Unmarshal(env.Value, &out.Value); err != nil {
			return Outcome[T]{}, err
		}
	}
	return out, nil
}

// digestInput produces the hex sha256 of the input's canonical JSON
// encoding. encoding/json sorts map keys and fixes struct field order, so
// equal inputs digest equally across runs.
func digestInput(input any) (string, error) {
	b, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
