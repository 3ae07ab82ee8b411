// Package fixmsg holds the in-memory structured representation of a
// FIX message: an ordered mapping from tag to string value, plus
// nested repeating groups, with the canonical-order discipline a
// schema's GroupSpec imposes.
package fixmsg

import (
	"bytes"
	"strconv"
)

// Schema is the subset of dictionary.GroupSpec that FieldMap needs in
// order to respect canonical field order and to build correctly-typed
// nested group FieldMaps. dictionary.GroupSpec satisfies this
// interface without fixmsg importing the dictionary package, which
// would otherwise form an import cycle (dictionary.Parse/Serialize
// produce and consume *Message).
type Schema interface {
	// Ordered reports whether fields at this level must serialize in
	// CanonicalOrder rather than insertion order.
	Ordered() bool
	// CanonicalOrder lists every field and group tag this level may
	// carry, in schema declaration order.
	CanonicalOrder() []int
	// GroupSchema returns the nested Schema for the repeating group
	// introduced by tag, or nil if tag is not a group tag here.
	GroupSchema(tag int) Schema
}

// FieldMap is an ordered tag->value map plus an ordered tag->[]FieldMap
// map of repeating groups. Invariants (§3): every tag appears at most
// once as a field; every group tag appears at most once; the field-tag
// and group-tag sets are disjoint.
type FieldMap struct {
	spec   Schema
	tags   []int
	values map[int]string
	groups map[int][]*FieldMap
}

// NewFieldMap returns an empty FieldMap bound to spec. spec may be nil,
// in which case SetField always behaves as plain insertion-ordered
// append/replace regardless of respectOrder.
func NewFieldMap(spec Schema) *FieldMap {
	return &FieldMap{
		spec:   spec,
		values: make(map[int]string),
		groups: make(map[int][]*FieldMap),
	}
}

// Schema returns the GroupSpec-shaped schema this FieldMap was built
// against, or nil.
func (fm *FieldMap) Schema() Schema { return fm.spec }

// GetField returns the value stored at tag, or FieldNotFound.
func (fm *FieldMap) GetField(tag int) (string, error) {
	v, ok := fm.values[tag]
	if !ok {
		return "", &FieldNotFound{Tag: tag}
	}
	return v, nil
}

// HasField reports whether tag is set as a plain field on fm.
func (fm *FieldMap) HasField(tag int) bool {
	_, ok := fm.values[tag]
	return ok
}

// SetField sets tag's value. When respectOrder is true and fm's schema
// is Ordered, the tag is inserted so the resulting tag sequence stays
// a prefix of the schema's canonical order; otherwise the tag is
// appended (if new) or updated in place (if already present).
func (fm *FieldMap) SetField(tag int, value string, respectOrder bool) {
	if _, exists := fm.values[tag]; exists {
		fm.values[tag] = value
		return
	}
	fm.values[tag] = value

	if respectOrder && fm.spec != nil && fm.spec.Ordered() {
		fm.insertOrdered(tag)
		return
	}
	fm.tags = append(fm.tags, tag)
}

// insertOrdered places tag into fm.tags at the position consistent
// with fm.spec's canonical order relative to tags already present.
func (fm *FieldMap) insertOrdered(tag int) {
	order := fm.spec.CanonicalOrder()
	rank := make(map[int]int, len(order))
	for i, t := range order {
		rank[t] = i
	}
	tagRank, known := rank[tag]
	if !known {
		fm.tags = append(fm.tags, tag)
		return
	}
	insertAt := len(fm.tags)
	for i, t := range fm.tags {
		r, ok := rank[t]
		if !ok {
			continue
		}
		if r > tagRank {
			insertAt = i
			break
		}
	}
	fm.tags = append(fm.tags, 0)
	copy(fm.tags[insertAt+1:], fm.tags[insertAt:])
	fm.tags[insertAt] = tag
}

// AddGroup appends a new, empty child FieldMap to the repeating group
// introduced by tag and returns it. The child's schema is the nested
// Schema fm.spec declares for tag, or nil if fm has no schema or the
// schema doesn't know tag (permissive, for hand-built test messages).
func (fm *FieldMap) AddGroup(tag int) *FieldMap {
	var childSchema Schema
	if fm.spec != nil {
		childSchema = fm.spec.GroupSchema(tag)
	}
	child := NewFieldMap(childSchema)
	if _, exists := fm.groups[tag]; !exists {
		fm.tags = append(fm.tags, tag)
	}
	fm.groups[tag] = append(fm.groups[tag], child)
	return child
}

// Groups returns the repeating-group entries stored at tag, in order.
func (fm *FieldMap) Groups(tag int) []*FieldMap { return fm.groups[tag] }

// GroupCount returns len(fm.Groups(tag)).
func (fm *FieldMap) GroupCount(tag int) int { return len(fm.groups[tag]) }

// HasGroup reports whether tag has at least one group entry.
func (fm *FieldMap) HasGroup(tag int) bool { return len(fm.groups[tag]) > 0 }

// RemoveField removes tag's value if present. Idempotent.
func (fm *FieldMap) RemoveField(tag int) {
	if _, ok := fm.values[tag]; !ok {
		return
	}
	delete(fm.values, tag)
	fm.removeTag(tag)
}

// RemoveGroups removes all entries of the repeating group at tag.
// Idempotent.
func (fm *FieldMap) RemoveGroups(tag int) {
	if _, ok := fm.groups[tag]; !ok {
		return
	}
	delete(fm.groups, tag)
	fm.removeTag(tag)
}

func (fm *FieldMap) removeTag(tag int) {
	for i, t := range fm.tags {
		if t == tag {
			fm.tags = append(fm.tags[:i], fm.tags[i+1:]...)
			return
		}
	}
}

// Tags returns the tags of fm (fields and group-introducing tags) in
// their current serialization order.
func (fm *FieldMap) Tags() []int {
	out := make([]int, len(fm.tags))
	copy(out, fm.tags)
	return out
}

// ToWire serializes fm using soh as the field separator, recursing
// into nested groups. It does not compute BodyLength or CheckSum —
// that is a whole-Message operation (dictionary.Serialize).
func (fm *FieldMap) ToWire(soh byte) []byte {
	var buf bytes.Buffer
	for _, tag := range fm.tags {
		if kids, isGroup := fm.groups[tag]; isGroup {
			buf.WriteString(strconv.Itoa(tag))
			buf.WriteByte('=')
			buf.WriteString(strconv.Itoa(len(kids)))
			buf.WriteByte(soh)
			for _, kid := range kids {
				buf.Write(kid.ToWire(soh))
			}
			continue
		}
		buf.WriteString(strconv.Itoa(tag))
		buf.WriteByte('=')
		buf.WriteString(fm.values[tag])
		buf.WriteByte(soh)
	}
	return buf.Bytes()
}
