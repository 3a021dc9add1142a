// Package protocol parses agent decisions out of raw completion output.
//
// The completion service is asked for strict JSON in one of two shapes
// (tool_call or final_answer) but offers no guarantee of compliance. This
// package tolerates markdown fencing, surrounding prose, and one known
// misformatting pattern where the model puts the tool's own name in the
// "type" field and flattens the arguments into the top-level object.
//
// Information Hiding:
// - Extraction and repair heuristics hidden
// - Callers receive a validated Decision or an error, never a partial parse
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/libra-agent/libra/model"
)

// Decision is a validated, normalized decision from the model: exactly one
// of the two step kinds, with kind-specific fields populated.
type Decision struct {
	Type          model.StepType
	Thought       string
	ToolName      string
	ToolArguments map[string]json.RawMessage
	FinalAnswer   *model.FinalAnswer
}

// Keys with protocol-level meaning. Anything else found at the top level of
// a repaired object is treated as a flattened tool argument.
var metaKeys = map[string]bool{
	"type":           true,
	"thought":        true,
	"tool_name":      true,
	"tool_arguments": true,
	"final_answer":   true,
}

// Parse extracts, repairs, and validates one decision from raw model output.
// A non-nil error means the response is malformed; the caller decides whether
// that is recoverable.
func Parse(raw string) (Decision, error) {
	candidate := extractCandidate(raw)

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return Decision{}, fmt.Errorf("response is not a JSON object: %w", err)
	}
	if obj == nil {
		return Decision{}, fmt.Errorf("response is JSON null, not an object")
	}

	obj = normalize(obj)
	return validate(obj)
}

// normalize repairs the type-as-tool-name pattern, e.g.
//
//	{"type":"vectorSearch","thought":"...","query":"...","topK":5}
//
// becomes a canonical tool_call named vectorSearch with {query, topK} as its
// arguments, merged over any explicit tool_arguments object. Objects already
// using a canonical type pass through untouched.
func normalize(obj map[string]json.RawMessage) map[string]json.RawMessage {
	typ, ok := stringField(obj, "type")
	if !ok || typ == string(model.StepToolCall) || typ == string(model.StepFinalAnswer) {
		return obj
	}

	toolName := typ
	if explicit, ok := stringField(obj, "tool_name"); ok && explicit != "" {
		toolName = explicit
	}

	args := map[string]json.RawMessage{}
	if rawArgs, ok := obj["tool_arguments"]; ok {
		// Ignore a non-object tool_arguments; the flattened keys below are
		// the more likely intent.
		_ = json.Unmarshal(rawArgs, &args)
		if args == nil {
			args = map[string]json.RawMessage{}
		}
	}
	for k, v := range obj {
		if !metaKeys[k] {
			args[k] = v
		}
	}

	repaired := map[string]json.RawMessage{
		"type":      mustMarshal(string(model.StepToolCall)),
		"tool_name": mustMarshal(toolName),
	}
	if thought, ok := obj["thought"]; ok {
		repaired["thought"] = thought
	}
	if len(args) > 0 {
		repaired["tool_arguments"] = mustMarshal(args)
	}
	return repaired
}

// validate checks the canonical two-shape contract and builds the Decision.
func validate(obj map[string]json.RawMessage) (Decision, error) {
	typ, ok := stringField(obj, "type")
	if !ok {
		return Decision{}, fmt.Errorf("missing or non-string 'type' field")
	}

	thought, ok := stringField(obj, "thought")
	if !ok {
		return Decision{}, fmt.Errorf("missing or non-string 'thought' field")
	}

	switch model.StepType(typ) {
	case model.StepToolCall:
		name, ok := stringField(obj, "tool_name")
		if !ok || name == "" {
			return Decision{}, fmt.Errorf("tool_call requires a non-empty 'tool_name'")
		}
		args := map[string]json.RawMessage{}
		if rawArgs, present := obj["tool_arguments"]; present {
			if err := json.Unmarshal(rawArgs, &args); err != nil || args == nil {
				return Decision{}, fmt.Errorf("'tool_arguments' must be an object")
			}
		}
		return Decision{
			Type:          model.StepToolCall,
			Thought:       thought,
			ToolName:      name,
			ToolArguments: args,
		}, nil

	case model.StepFinalAnswer:
		rawFA, present := obj["final_answer"]
		if !present {
			return Decision{}, fmt.Errorf("final_answer requires a 'final_answer' object")
		}
		var fa struct {
			Summary        *string           `json:"summary"`
			DetailedAnswer *string           `json:"detailed_answer"`
			Sources        []json.RawMessage `json:"sources"`
		}
		if err := json.Unmarshal(rawFA, &fa); err != nil {
			return Decision{}, fmt.Errorf("'final_answer' must be an object: %w", err)
		}
		if fa.Summary == nil || fa.DetailedAnswer == nil {
			return Decision{}, fmt.Errorf("final_answer requires string 'summary' and 'detailed_answer'")
		}
		if fa.Sources == nil {
			return Decision{}, fmt.Errorf("final_answer requires a 'sources' array")
		}
		sources := make([]string, 0, len(fa.Sources))
		for _, s := range fa.Sources {
			var str string
			if err := json.Unmarshal(s, &str); err != nil {
				return Decision{}, fmt.Errorf("'sources' must contain only strings")
			}
			sources = append(sources, str)
		}
		return Decision{
			Type:    model.StepFinalAnswer,
			Thought: thought,
			FinalAnswer: &model.FinalAnswer{
				Summary:        *fa.Summary,
				DetailedAnswer: *fa.DetailedAnswer,
				Sources:        sources,
			},
		}, nil

	default:
		return Decision{}, fmt.Errorf("unknown decision type %q", typ)
	}
}

func stringField(obj map[string]json.RawMessage, key string) (string, bool) {
	raw, present := obj[key]
	if !present {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func mustMarshal(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err) // marshaling strings and raw maps cannot fail
	}
	return b
}
