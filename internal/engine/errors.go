package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/rulekit/internal/ir"
)

// RuntimeError is a non-fatal problem found while evaluating a rule.
//
// Runtime errors include:
//   - Unknown reference: a counter, flag or object id that does not exist
//   - Range clamp: a parameter or result pulled back into its valid range
//   - Unknown kind: a condition or action type this engine does not know
//   - Invalid parameter: a parameter that makes the condition or action
//     meaningless (missing range, zero interval, empty sound id)
//   - Quota exceeded: more actions in one tick than the session allows
//
// RuntimeErrors are never returned from Tick. They are converted to
// ir.Diagnostic and reported.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RuleID identifies the rule being evaluated, if any.
	RuleID string

	// Slot is SlotCondition, SlotAction, SlotTrigger or SlotTick.
	Slot string

	// Index is the condition or action position within the rule.
	Index int

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	ErrCodeUnknownReference RuntimeErrorCode = "UNKNOWN_REFERENCE"
	ErrCodeRangeClamped     RuntimeErrorCode = "RANGE_CLAMPED"
	ErrCodeUnknownKind      RuntimeErrorCode = "UNKNOWN_KIND"
	ErrCodeInvalidParameter RuntimeErrorCode = "INVALID_PARAMETER"
	ErrCodeQuotaExceeded    RuntimeErrorCode = "QUOTA_EXCEEDED"
)

// Diagnostic slots.
const (
	SlotCondition = "condition"
	SlotAction    = "action"
	SlotTrigger   = "trigger"
	SlotTick      = "tick"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.RuleID != "" && e.Slot != "" {
		return fmt.Sprintf("%s: %s (rule=%s, %s=%d)", e.Code, e.Message, e.RuleID, e.Slot, e.Index)
	}
	if e.RuleID != "" {
		return fmt.Sprintf("%s: %s (rule=%s)", e.Code, e.Message, e.RuleID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Diagnostic converts the error to its reported form.
func (e *RuntimeError) Diagnostic() ir.Diagnostic {
	return ir.Diagnostic{
		Code:    string(e.Code),
		Message: e.Message,
		RuleID:  e.RuleID,
		Slot:    e.Slot,
		Index:   e.Index,
	}
}

// IsReferenceError returns true if the error is an unknown-reference error.
// Uses errors.As to handle wrapped errors.
func IsReferenceError(err error) bool {
	return hasCode(err, ErrCodeUnknownReference)
}

// IsRangeError returns true if the error reports a clamped value.
func IsRangeError(err error) bool {
	return hasCode(err, ErrCodeRangeClamped)
}

// IsStructuralError returns true if the error reports an unknown kind.
func IsStructuralError(err error) bool {
	return hasCode(err, ErrCodeUnknownKind)
}

// IsQuotaError returns true if the error reports an exhausted action quota.
func IsQuotaError(err error) bool {
	return hasCode(err, ErrCodeQuotaExceeded)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewReferenceError creates a RuntimeError for a missing counter, flag or
// object.
func NewReferenceError(ruleID, slot string, index int, kind, name string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownReference,
		Message: fmt.Sprintf("unknown %s %q", kind, name),
		RuleID:  ruleID,
		Slot:    slot,
		Index:   index,
		Details: map[string]string{"kind": kind, "name": name},
	}
}

// NewRangeError creates a RuntimeError for a value clamped into range.
func NewRangeError(ruleID, slot string, index int, field string, got, clamped float64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeRangeClamped,
		Message: fmt.Sprintf("%s %v out of range, clamped to %v", field, got, clamped),
		RuleID:  ruleID,
		Slot:    slot,
		Index:   index,
		Details: map[string]string{
			"field":   field,
			"value":   fmt.Sprintf("%v", got),
			"clamped": fmt.Sprintf("%v", clamped),
		},
	}
}

// NewKindError creates a RuntimeError for an unknown condition or action type.
func NewKindError(ruleID, slot string, index int, kind string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownKind,
		Message: fmt.Sprintf("unknown %s type %q", slot, kind),
		RuleID:  ruleID,
		Slot:    slot,
		Index:   index,
		Details: map[string]string{"type": kind},
	}
}

// NewParameterError creates a RuntimeError for an unusable parameter.
func NewParameterError(ruleID, slot string, index int, message string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidParameter,
		Message: message,
		RuleID:  ruleID,
		Slot:    slot,
		Index:   index,
	}
}

// NewQuotaError creates a RuntimeError for an exhausted per-tick action quota.
func NewQuotaError(ruleID string, index, maxActions int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("tick exceeded max actions (%d)", maxActions),
		RuleID:  ruleID,
		Slot:    SlotAction,
		Index:   index,
		Details: map[string]string{"max_actions": fmt.Sprintf("%d", maxActions)},
	}
}
