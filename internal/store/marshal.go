package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/rulekit/internal/ir"
)

// marshalCanonical converts v to canonical JSON TEXT for storage.
func marshalCanonical(what string, v any) (string, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	return string(data), nil
}

// marshalObjects stores a nil object list as "[]".
func marshalObjects(what string, objs []ir.ObjectState) (string, error) {
	if objs == nil {
		objs = []ir.ObjectState{}
	}
	return marshalCanonical(what, objs)
}

func unmarshalObjects(what, data string) ([]ir.ObjectState, error) {
	objs := []ir.ObjectState{}
	if data == "" || data == "[]" {
		return objs, nil
	}
	if err := json.Unmarshal([]byte(data), &objs); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return objs, nil
}

func unmarshalInputs(data string) (ir.Inputs, error) {
	var in ir.Inputs
	if data == "" || data == "{}" {
		return in, nil
	}
	if err := json.Unmarshal([]byte(data), &in); err != nil {
		return ir.Inputs{}, fmt.Errorf("unmarshal inputs: %w", err)
	}
	return in, nil
}

func unmarshalResult(data string) (ir.TickResult, error) {
	var res ir.TickResult
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		return ir.TickResult{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return res, nil
}
