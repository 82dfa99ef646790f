package values

import "errors"

var (
	// ErrUnknownCounter is returned when no counter has the given name or id.
	ErrUnknownCounter = errors.New("unknown counter")

	// ErrUnknownFlag is returned when no flag has the given name or id.
	ErrUnknownFlag = errors.New("unknown flag")

	// ErrUnknownName is returned by Get and Set when the name matches
	// neither a counter nor a flag.
	ErrUnknownName = errors.New("unknown value name")

	// ErrUnknownOperation is returned by Mutate for an unsupported operation.
	ErrUnknownOperation = errors.New("unknown counter operation")

	// ErrTypeMismatch is returned by Set when the value's type does not
	// match the named entry.
	ErrTypeMismatch = errors.New("value type mismatch")

	// ErrInvalidOperand is returned for NaN or infinite operands.
	ErrInvalidOperand = errors.New("invalid operand")
)
