package dictionary

import "fmt"

// SchemaError reports a fatal defect in a dictionary source file:
// malformed field/message/component definitions, a component
// reference cycle, or an unknown field type. Schema loading never
// recovers from one; the process must not start with a broken
// dictionary.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string { return "dictionary schema error: " + e.Reason }

// NewSchemaError builds a SchemaError with a formatted reason.
func NewSchemaError(format string, args ...interface{}) *SchemaError {
	return &SchemaError{Reason: fmt.Sprintf(format, args...)}
}

// MessageParseError reports a structural wire-format violation found
// while parsing a single message: bad body length, bad checksum, a
// missing required field, a repeating group with more entries than
// its count declares, and so on. A group with fewer entries than
// declared is not detected. Offset is the byte offset into the
// original buffer where the violation was detected, for logging.
type MessageParseError struct {
	Reason string
	Offset int
}

func (e *MessageParseError) Error() string {
	return fmt.Sprintf("fix parse error at offset %d: %s", e.Offset, e.Reason)
}

// NewParseError builds a MessageParseError with a formatted reason.
func NewParseError(offset int, format string, args ...interface{}) *MessageParseError {
	return &MessageParseError{Reason: fmt.Sprintf(format, args...), Offset: offset}
}
