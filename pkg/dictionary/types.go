// Package dictionary implements the schema-driven FIX wire codec: it
// parses a field/message dictionary once at startup and uses it to turn
// byte streams into structured messages and back.
package dictionary

import "github.com/luxfi/fixgate/pkg/fixmsg"

// FieldType is the wire type of a single tag, drawn from the fixed set
// the FIX 4.x dictionaries declare.
type FieldType int

const (
	FieldTypeUnknown FieldType = iota
	FieldTypeInt
	FieldTypeLength
	FieldTypeNumInGroup
	FieldTypeSeqNum
	FieldTypeTagNum
	FieldTypeDayOfMonth
	FieldTypeFloat
	FieldTypeQty
	FieldTypePrice
	FieldTypePriceOffset
	FieldTypeAmt
	FieldTypePercentage
	FieldTypeChar
	FieldTypeBoolean
	FieldTypeString
	FieldTypeMultipleValueString
	FieldTypeCountry
	FieldTypeCurrency
	FieldTypeExchange
	FieldTypeMonthYear
	FieldTypeUTCTimestamp
	FieldTypeUTCTimeOnly
	FieldTypeUTCDateOnly
	FieldTypeLocalMktDate
	FieldTypeData
)

var fieldTypeNames = map[string]FieldType{
	"INT":                  FieldTypeInt,
	"LENGTH":               FieldTypeLength,
	"NUMINGROUP":           FieldTypeNumInGroup,
	"SEQNUM":               FieldTypeSeqNum,
	"TAGNUM":               FieldTypeTagNum,
	"DAYOFMONTH":           FieldTypeDayOfMonth,
	"FLOAT":                FieldTypeFloat,
	"QTY":                  FieldTypeQty,
	"PRICE":                FieldTypePrice,
	"PRICEOFFSET":          FieldTypePriceOffset,
	"AMT":                  FieldTypeAmt,
	"PERCENTAGE":           FieldTypePercentage,
	"CHAR":                 FieldTypeChar,
	"BOOLEAN":              FieldTypeBoolean,
	"STRING":               FieldTypeString,
	"MULTIPLEVALUESTRING":  FieldTypeMultipleValueString,
	"COUNTRY":              FieldTypeCountry,
	"CURRENCY":             FieldTypeCurrency,
	"EXCHANGE":             FieldTypeExchange,
	"MONTHYEAR":            FieldTypeMonthYear,
	"UTCTIMESTAMP":         FieldTypeUTCTimestamp,
	"UTCTIMEONLY":          FieldTypeUTCTimeOnly,
	"UTCDATEONLY":          FieldTypeUTCDateOnly,
	"LOCALMKTDATE":         FieldTypeLocalMktDate,
	"DATA":                 FieldTypeData,
}

// ParseFieldType resolves a dictionary-file type name to its FieldType,
// or FieldTypeUnknown with ok=false for anything not in the fixed set.
func ParseFieldType(name string) (FieldType, bool) {
	t, ok := fieldTypeNames[name]
	return t, ok
}

// IsNumInGroup reports whether t introduces a repeating group count.
func (t FieldType) IsNumInGroup() bool { return t == FieldTypeNumInGroup }

// IsLength reports whether t is the LENGTH type that precedes a DATA field.
func (t FieldType) IsLength() bool { return t == FieldTypeLength }

// FieldDef is one entry of the field-tag index: its wire type and its
// canonical (dictionary) name, used only for diagnostics.
type FieldDef struct {
	Tag  int
	Name string
	Type FieldType
}

// GroupSpec is a schema node: the set of field tags and nested group
// tags a FieldMap at this level of nesting may legally carry, plus the
// canonical order used to serialize it.
type GroupSpec struct {
	// Fields maps tag -> required.
	Fields map[int]bool
	// Groups maps the NUMINGROUP tag that introduces a nested repeating
	// group to that group's own GroupSpec.
	Groups map[int]*GroupSpec
	// Order is the canonical tag order used when Ordered is true. It
	// lists every field tag and every group-introducing tag exactly
	// once: the node's own fields in declaration order, then its own
	// groups, then the tags contributed by component references. A
	// component's tags are not interleaved at the point where the
	// component is referenced.
	Order []int
	// StrictOrder selects canonical (Order-driven) vs insertion-order
	// placement when fields are set and serialized. Exposed to fixmsg
	// via the Ordered() method. Parse does not reject fields that
	// arrive out of canonical order.
	StrictOrder bool
	// Delim is the first field tag of each group entry; required for
	// group tags only.
	Delim int
}

// NewGroupSpec returns an empty, ordered GroupSpec.
func NewGroupSpec() *GroupSpec {
	return &GroupSpec{
		Fields:      make(map[int]bool),
		Groups:      make(map[int]*GroupSpec),
		StrictOrder: true,
	}
}

// HasField reports whether tag is a plain (non-group) field of g.
func (g *GroupSpec) HasField(tag int) bool {
	_, ok := g.Fields[tag]
	return ok
}

// HasGroup reports whether tag introduces a nested group of g.
func (g *GroupSpec) HasGroup(tag int) bool {
	_, ok := g.Groups[tag]
	return ok
}

// Ordered, CanonicalOrder and GroupSchema implement fixmsg.Schema so
// that *GroupSpec can back a fixmsg.FieldMap without fixmsg importing
// this package (which would cycle back through Message).

// Ordered implements fixmsg.Schema.
func (g *GroupSpec) Ordered() bool { return g.StrictOrder }

// CanonicalOrder implements fixmsg.Schema.
func (g *GroupSpec) CanonicalOrder() []int { return g.Order }

// GroupSchema implements fixmsg.Schema.
func (g *GroupSpec) GroupSchema(tag int) fixmsg.Schema {
	child, ok := g.Groups[tag]
	if !ok {
		return nil
	}
	return child
}

// RequiredFields returns the tags marked required directly on g (not
// recursing into nested groups).
func (g *GroupSpec) RequiredFields() []int {
	var out []int
	for tag, req := range g.Fields {
		if req {
			out = append(out, tag)
		}
	}
	return out
}

// ParseOptions configures Dictionary.Parse's leniency.
type ParseOptions struct {
	// Loud is carried for callers that log parse problems; Parse
	// itself does not log.
	Loud bool
	// Strict fails parsing outright on structural violation. When
	// false, a malformed field is skipped by resyncing to the next SOH,
	// a field that fits no section or group is dropped, and BodyLength
	// and CheckSum mismatches are ignored. In either mode a message
	// with fewer than three fields, without BeginString, BodyLength,
	// MsgType as its first three fields, with an unknown MsgType, with
	// a non-numeric LENGTH value or with a DATA value overrunning the
	// buffer fails.
	Strict bool
	// ValidateRequiredFields rejects a message missing a field a
	// GroupSpec marks required.
	ValidateRequiredFields bool
}

// DefaultParseOptions matches the configuration surface's documented
// defaults (§6): loud, strict, no required-field validation.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{Loud: true, Strict: true, ValidateRequiredFields: false}
}

// Dictionary is the immutable, process-lifetime schema built once from
// a schema source file. It is safe for concurrent use by any number of
// sessions because nothing in it is mutated after Load returns.
type Dictionary struct {
	BeginString string
	Fields      map[int]FieldDef
	FieldsByName map[string]int
	Header      *GroupSpec
	Trailer     *GroupSpec
	Messages    map[string]*GroupSpec
}

// MessageSpec returns the body GroupSpec for msgType, or nil if the
// dictionary declares no such message.
func (d *Dictionary) MessageSpec(msgType string) *GroupSpec {
	return d.Messages[msgType]
}

// FieldType returns the declared type of tag, or FieldTypeUnknown if
// the dictionary does not declare it.
func (d *Dictionary) FieldType(tag int) FieldType {
	if fd, ok := d.Fields[tag]; ok {
		return fd.Type
	}
	return FieldTypeUnknown
}
