package inspect

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/rezlab/oplog/internal/journal"
)

// Filter wraps a compiled CEL program evaluated against invocation records.
// It is shared by the HTTP inspection API and the CLI. When disabled, Eval
// always returns true.
type Filter struct {
	prog    cel.Program
	enabled bool
}

// NewFilter compiles expr. An empty expression yields a disabled filter that
// matches everything.
func NewFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("ordinal", cel.IntType),
		cel.Variable("operation", cel.StringType),
		cel.Variable("digest", cel.StringType),
		// "value" or "fault"
		cel.Variable("kind", cel.StringType),
		// Fault kind wire name; empty for value records
		cel.Variable("fault_kind", cel.StringType),
		// Parsed outcome body (the value, or the fault object) for field filtering
		cel.Variable("outcome", cel.DynType),
		cel.Variable("ts_ms", cel.IntType),
		// Current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return Filter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return Filter{}, err
	}
	return Filter{prog: prog, enabled: true}, nil
}

// outcomeEnvelope mirrors the persisted payload shape.
type outcomeEnvelope struct {
	Value json.RawMessage `json:"value,omitempty"`
	Fault json.RawMessage `json:"fault,omitempty"`
}

// Eval evaluates the compiled expression against one journal entry. When
// disabled, returns true. Evaluation errors count as non-matches.
func (f Filter) Eval(ent journal.Entry) bool {
	if !f.enabled {
		return true
	}
	kind := "value"
	faultKind := ""
	var body json.RawMessage
	var env outcomeEnvelope
	if err := json.Unmarshal(ent.Payload, &env); err == nil {
		if env.Fault != nil {
			kind = "fault"
			body = env.Fault
			var fk struct {
				Kind string `json:"kind"`
			}
			if err := json.Unmarshal(env.Fault, &fk); err == nil {
				faultKind = fk.Kind
			}
		} else {
			body = env.Value
		}
	}
	var outcome any
	_ = json.Unmarshal(body, &outcome)

	out, _, err := f.prog.Eval(map[string]any{
		"ordinal":    int64(ent.Ordinal),
		"operation":  ent.Header.Operation,
		"digest":     ent.Header.InputDigest,
		"kind":       kind,
		"fault_kind": faultKind,
		"outcome":    outcome,
		"ts_ms":      ent.Header.CapturedAtMs,
		"now_ms":     time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
