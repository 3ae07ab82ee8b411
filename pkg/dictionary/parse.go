package dictionary

import (
	"strconv"

	"github.com/luxfi/fixgate/pkg/fixmsg"
)

const soh = 0x01

// messageState tracks which of the three FieldMaps the parser is
// currently routing fields into.
type messageState int

const (
	stateHeader messageState = iota
	stateBody
	stateTrailer
)

// frame is one entry of the parser's groupStack: the GroupSpec
// currently accepting fields and the FieldMap it is filling. The
// bottom frame of each section's stack is the section's own
// header/body/trailer FieldMap; frames above it are open repeating
// group entries.
type frame struct {
	spec *GroupSpec
	fm   *fixmsg.FieldMap
}

// groupCursor tracks an in-progress repeating group: how many entries
// the NUMINGROUP field promised, how many have been opened, and the
// parent FieldMap/tag pair used to open a new entry.
type groupCursor struct {
	parent   *fixmsg.FieldMap
	tag      int
	spec     *GroupSpec
	expected int
	opened   int
}

// rawField is one (tag, value) pair as lexed directly off the wire,
// before any schema interpretation.
type rawField struct {
	tag    int
	value  string
	offset int
}

// lexFields splits buf into rawFields honoring DATA-field length
// binding: wherever the preceding field's dictionary type is LENGTH
// and the *next* field's type is DATA, that next field's value is
// exactly that many raw bytes (SOH included) rather than being
// delimited by the next SOH.
func (d *Dictionary) lexFields(buf []byte, opts ParseOptions) ([]rawField, error) {
	var fields []rawField
	pos := 0
	pendingDataLen := -1

	for pos < len(buf) {
		eq := indexByte(buf[pos:], '=')
		if eq < 0 {
			if opts.Strict {
				return nil, NewParseError(pos, "malformed field: no '=' found")
			}
			break
		}
		tagStr := string(buf[pos : pos+eq])
		tag, err := strconv.Atoi(tagStr)
		if err != nil {
			if opts.Strict {
				return nil, NewParseError(pos, "malformed tag %q", tagStr)
			}
			next := indexByte(buf[pos:], soh)
			if next < 0 {
				break
			}
			pos += next + 1
			continue
		}
		valStart := pos + eq + 1

		var valEnd int
		if pendingDataLen >= 0 && d.FieldType(tag) == FieldTypeData {
			valEnd = valStart + pendingDataLen
			if valEnd > len(buf) || valEnd >= len(buf) || buf[valEnd] != soh {
				return nil, NewParseError(valStart, "DATA field tag %d: declared length %d overruns buffer", tag, pendingDataLen)
			}
		} else {
			rel := indexByte(buf[valStart:], soh)
			if rel < 0 {
				if opts.Strict {
					return nil, NewParseError(valStart, "field tag %d has no terminating SOH", tag)
				}
				break
			}
			valEnd = valStart + rel
		}

		value := string(buf[valStart:valEnd])
		fields = append(fields, rawField{tag: tag, value: value, offset: pos})

		if d.FieldType(tag).IsLength() {
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return nil, NewParseError(pos, "LENGTH field tag %d has non-numeric value %q", tag, value)
			}
			pendingDataLen = n
		} else {
			pendingDataLen = -1
		}

		pos = valEnd + 1
	}
	return fields, nil
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

// parseState is the mutable cursor the per-field placement loop below
// advances: which section it's in, the stack of open group frames
// within that section (innermost last), and the matching stack of
// groupCursors (one per open frame above the section's base).
type parseState struct {
	section   messageState
	sectionFM [3]*fixmsg.FieldMap
	frames    []*frame
	cursors   []*groupCursor
}

// Parse runs the single-pass state machine described in §4.1: the
// first three fields must be BeginString, BodyLength, MsgType in
// order; subsequent fields are routed into header/body/trailer via
// the dictionary's GroupSpecs, honoring repeating-group nesting, and,
// under opts.Strict, the message is validated against BodyLength and
// CheckSum before being returned with CheckSum stripped.
func (d *Dictionary) Parse(buf []byte, opts ParseOptions) (*fixmsg.Message, error) {
	fields, err := d.lexFields(buf, opts)
	if err != nil {
		return nil, err
	}
	if len(fields) < 3 {
		return nil, NewParseError(0, "message has fewer than 3 fields")
	}
	if fields[0].tag != fixmsg.TagBeginString || fields[1].tag != fixmsg.TagBodyLength || fields[2].tag != fixmsg.TagMsgType {
		return nil, NewParseError(0, "first three fields must be BeginString(8), BodyLength(9), MsgType(35)")
	}

	msgType := fields[2].value
	bodySpec := d.MessageSpec(msgType)
	if bodySpec == nil {
		return nil, NewParseError(fields[2].offset, "unknown MsgType %q", msgType)
	}

	msg := fixmsg.NewMessage(d.Header, bodySpec, d.Trailer)
	msg.Header.SetField(fixmsg.TagBeginString, fields[0].value, true)
	msg.Header.SetField(fixmsg.TagBodyLength, fields[1].value, true)
	msg.Header.SetField(fixmsg.TagMsgType, fields[2].value, true)

	ps := &parseState{
		section:   stateHeader,
		sectionFM: [3]*fixmsg.FieldMap{msg.Header, msg.Body, msg.Trailer},
		frames:    []*frame{{spec: d.Header, fm: msg.Header}},
	}

	for _, f := range fields[3:] {
		if f.tag == fixmsg.TagCheckSum {
			ps.section = stateTrailer
			ps.frames = []*frame{{spec: d.Trailer, fm: msg.Trailer}}
			ps.cursors = nil
			msg.Trailer.SetField(f.tag, f.value, d.Trailer.StrictOrder)
			continue
		}
		if err := ps.place(d, f, bodySpec); err != nil {
			if opts.Strict {
				return nil, err
			}
			continue
		}
	}

	if opts.ValidateRequiredFields {
		if err := validateRequired(msg.Header, d.Header); err != nil {
			return nil, err
		}
		if err := validateRequired(msg.Body, bodySpec); err != nil {
			return nil, err
		}
		if err := validateRequired(msg.Trailer, d.Trailer); err != nil {
			return nil, err
		}
	}

	if err := verifyBodyLength(fields); err != nil && opts.Strict {
		return nil, err
	}
	if err := verifyCheckSum(buf, fields); err != nil && opts.Strict {
		return nil, err
	}

	msg.Trailer.RemoveField(fixmsg.TagCheckSum)
	return msg, nil
}

// place routes f into the deepest open frame that recognizes it,
// popping frames (and, when the whole section is exhausted,
// advancing header->body->trailer) until one does.
func (ps *parseState) place(d *Dictionary, f rawField, bodySpec *GroupSpec) error {
	for {
		top := ps.frames[len(ps.frames)-1]

		if child, isGroup := top.spec.Groups[f.tag]; isGroup {
			n, err := strconv.Atoi(f.value)
			if err != nil || n < 0 {
				return NewParseError(f.offset, "NUMINGROUP tag %d has invalid count %q", f.tag, f.value)
			}
			ps.cursors = append(ps.cursors, &groupCursor{parent: top.fm, tag: f.tag, spec: child, expected: n})
			ps.frames = append(ps.frames, &frame{spec: child, fm: nil})
			return nil
		}

		if len(ps.cursors) > 0 && top.spec != nil {
			cur := ps.cursors[len(ps.cursors)-1]
			if cur.spec == top.spec && f.tag == cur.spec.Delim {
				if cur.opened >= cur.expected {
					return NewParseError(f.offset, "repeating group tag %d: got more entries than declared count %d", cur.tag, cur.expected)
				}
				newEntry := cur.parent.AddGroup(cur.tag)
				top.fm = newEntry
				cur.opened++
				newEntry.SetField(f.tag, f.value, top.spec.StrictOrder)
				return nil
			}
		}

		if top.spec.HasField(f.tag) && top.fm != nil {
			top.fm.SetField(f.tag, f.value, top.spec.StrictOrder)
			return nil
		}

		if len(ps.frames) > 1 {
			ps.frames = ps.frames[:len(ps.frames)-1]
			ps.cursors = ps.cursors[:len(ps.cursors)-1]
			continue
		}

		switch ps.section {
		case stateHeader:
			ps.section = stateBody
			ps.frames = []*frame{{spec: bodySpec, fm: ps.sectionFM[stateBody]}}
		case stateBody:
			ps.section = stateTrailer
			ps.frames = []*frame{{spec: ps.trailerSpec(d), fm: ps.sectionFM[stateTrailer]}}
		default:
			return NewParseError(f.offset, "tag %d not recognized in trailer", f.tag)
		}
	}
}

func (ps *parseState) trailerSpec(d *Dictionary) *GroupSpec { return d.Trailer }

func validateRequired(fm *fixmsg.FieldMap, spec *GroupSpec) error {
	if spec == nil {
		return nil
	}
	for _, tag := range spec.RequiredFields() {
		if !fm.HasField(tag) {
			return NewParseError(0, "required field %d missing", tag)
		}
	}
	return nil
}

// verifyBodyLength checks that BodyLength (the 2nd field) equals the
// byte count between the SOH after BodyLength's value and the byte
// before CheckSum's tag.
func verifyBodyLength(fields []rawField) error {
	declared, err := strconv.Atoi(fields[1].value)
	if err != nil {
		return NewParseError(fields[1].offset, "BodyLength is not numeric: %q", fields[1].value)
	}
	bodyStart := fields[2].offset
	checksumIdx := -1
	for i, f := range fields {
		if f.tag == fixmsg.TagCheckSum {
			checksumIdx = i
			break
		}
	}
	if checksumIdx < 0 {
		return NewParseError(0, "message has no CheckSum field")
	}
	bodyEnd := fields[checksumIdx].offset
	actual := bodyEnd - bodyStart
	if actual != declared {
		return NewParseError(fields[1].offset, "BodyLength mismatch: declared %d, actual %d", declared, actual)
	}
	return nil
}

// verifyCheckSum recomputes sum(bytes before CheckSum tag) mod 256 and
// compares it to CheckSum's three-digit decimal value.
func verifyCheckSum(buf []byte, fields []rawField) error {
	checksumIdx := -1
	for i, f := range fields {
		if f.tag == fixmsg.TagCheckSum {
			checksumIdx = i
			break
		}
	}
	if checksumIdx < 0 {
		return NewParseError(0, "message has no CheckSum field")
	}
	end := fields[checksumIdx].offset
	var sum int
	for _, b := range buf[:end] {
		sum += int(b)
	}
	want := sum % 256
	got, err := strconv.Atoi(fields[checksumIdx].value)
	if err != nil || got != want || len(fields[checksumIdx].value) != 3 {
		return NewParseError(end, "CheckSum mismatch: declared %q, computed %03d", fields[checksumIdx].value, want)
	}
	return nil
}
