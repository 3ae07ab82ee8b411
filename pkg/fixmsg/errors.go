package fixmsg

import "fmt"

// FieldNotFound is returned by FieldMap.GetField when tag has not been
// set on that FieldMap (it may still exist elsewhere in the message).
type FieldNotFound struct {
	Tag int
}

func (e *FieldNotFound) Error() string { return fmt.Sprintf("field %d not found", e.Tag) }

// EncodingError reports a malformed typed-field literal: an
// UTCTIMESTAMP/UTCDATEONLY that doesn't match its fixed layout, a
// non-numeric INT/FLOAT/PRICE/QTY value, or a BOOLEAN other than Y/N.
type EncodingError struct {
	Tag    int
	Value  string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("field %d value %q: %s", e.Tag, e.Value, e.Reason)
}
