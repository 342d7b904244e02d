package tokentree

import (
	"encoding/json"
)

// Trace records the alias chain followed while resolving a token.
type Trace struct {
	Token    string      `json:"token"`
	Resolved string      `json:"resolved,omitempty"`
	Steps    []TraceStep `json:"steps"`
}

// TraceStep is one reference followed and the token node it landed on.
type TraceStep struct {
	Ref    string `json:"ref"`
	NodeID string `json:"node_id"`
	Name   string `json:"name"`
}

// Chain returns the references followed, in order.
func (t Trace) Chain() []string {
	out := make([]string, len(t.Steps))
	for i, step := range t.Steps {
		out[i] = step.Ref
	}
	return out
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
