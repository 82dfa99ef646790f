package ir

import (
	"encoding/json"
	"fmt"
)

// Operator combines the results of a rule's conditions.
type Operator string

const (
	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"
)

// GameState is the coarse state of a play session.
type GameState string

const (
	GamePlaying GameState = "playing"
	GameSuccess GameState = "success"
	GameFailure GameState = "failure"
)

// IsTerminal reports whether no further transition is possible from s.
func (s GameState) IsTerminal() bool {
	return s == GameSuccess || s == GameFailure
}

// Rule is a single authored "when conditions hold, perform actions" unit
// bound to a target object.
type Rule struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	TargetObjectID string     `json:"targetObjectId"`
	Enabled        bool       `json:"enabled"`
	Triggers       TriggerSet `json:"triggers"`
	Actions        ActionList `json:"actions"`
}

// TriggerSet is the condition list of a rule and how it is combined.
// An empty Operator means AND.
type TriggerSet struct {
	Conditions ConditionList `json:"conditions"`
	Operator   Operator      `json:"operator"`
}

// Counter is a named, optionally bounded numeric value.
type Counter struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	InitialValue float64  `json:"initialValue"`
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	CurrentValue float64  `json:"currentValue"`
}

// Flag is a named boolean value.
type Flag struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CurrentValue bool   `json:"currentValue"`
}

// Snapshot is the project data a play session is started from.
type Snapshot struct {
	Rules    []Rule    `json:"rules"`
	Counters []Counter `json:"counters"`
	Flags    []Flag    `json:"flags"`
}

// ParseSnapshot decodes project snapshot JSON.
//
// Structural corruption (for example "rules" not being a list) is returned
// as an error. Unknown condition or action kinds are not errors; they decode
// to UnknownCondition / UnknownAction and are skipped at evaluation time.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if snap.Rules == nil {
		snap.Rules = []Rule{}
	}
	if snap.Counters == nil {
		snap.Counters = []Counter{}
	}
	if snap.Flags == nil {
		snap.Flags = []Flag{}
	}
	return &snap, nil
}

// Float returns a pointer to v, for optional numeric fields.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v, for optional integer fields.
func Int(v int) *int {
	return &v
}

// Bool returns a pointer to v, for optional boolean fields.
func Bool(v bool) *bool {
	return &v
}
