package dictionary

import (
	"fmt"

	"github.com/luxfi/fixgate/pkg/fixmsg"
)

const canonicalSOH = 0x01

// Serialize renders msg to its canonical wire form (§4.1): BodyLength
// is computed over header-without-BeginString + body +
// trailer-without-CheckSum, then CheckSum is computed last over
// everything up to (but not including) the CheckSum field, always
// using the canonical SOH regardless of what display character a
// caller might later substitute for logging.
func (d *Dictionary) Serialize(msg *fixmsg.Message) []byte {
	msg.Trailer.RemoveField(fixmsg.TagCheckSum)

	bodyBytes := headerWithoutBegin(msg.Header)
	bodyBytes = append(bodyBytes, msg.Body.ToWire(canonicalSOH)...)
	bodyBytes = append(bodyBytes, msg.Trailer.ToWire(canonicalSOH)...)

	msg.Header.SetField(fixmsg.TagBodyLength, fmt.Sprintf("%d", len(bodyBytes)), true)

	out := append([]byte{}, fieldBytes(fixmsg.TagBeginString, mustGet(msg.Header, fixmsg.TagBeginString))...)
	out = append(out, fieldBytes(fixmsg.TagBodyLength, mustGet(msg.Header, fixmsg.TagBodyLength))...)
	out = append(out, bodyBytes...)

	sum := 0
	for _, b := range out {
		sum += int(b)
	}
	checksum := fmt.Sprintf("%03d", sum%256)
	msg.Trailer.SetField(fixmsg.TagCheckSum, checksum, true)
	out = append(out, fieldBytes(fixmsg.TagCheckSum, checksum)...)
	return out
}

// headerWithoutBegin serializes the header excluding BeginString and
// BodyLength, which Serialize writes separately at the front of the
// buffer (MsgType and everything else stays, in the header's
// canonical order).
func headerWithoutBegin(header *fixmsg.FieldMap) []byte {
	// Both BeginString and BodyLength are always the first two tags of
	// an ordered header, so the cheapest correct trim is to re-render
	// without them rather than string-surgery the rendered bytes.
	trimmed := fixmsg.NewFieldMap(header.Schema())
	for _, tag := range header.Tags() {
		if tag == fixmsg.TagBeginString || tag == fixmsg.TagBodyLength {
			continue
		}
		if header.HasGroup(tag) {
			for _, kid := range header.Groups(tag) {
				child := trimmed.AddGroup(tag)
				copyFieldMap(kid, child)
			}
			continue
		}
		v, _ := header.GetField(tag)
		trimmed.SetField(tag, v, true)
	}
	return trimmed.ToWire(canonicalSOH)
}

func copyFieldMap(src, dst *fixmsg.FieldMap) {
	for _, tag := range src.Tags() {
		if src.HasGroup(tag) {
			for _, kid := range src.Groups(tag) {
				child := dst.AddGroup(tag)
				copyFieldMap(kid, child)
			}
			continue
		}
		v, _ := src.GetField(tag)
		dst.SetField(tag, v, true)
	}
}

func fieldBytes(tag int, value string) []byte {
	return []byte(fmt.Sprintf("%d=%s%c", tag, value, canonicalSOH))
}

func mustGet(fm *fixmsg.FieldMap, tag int) string {
	v, _ := fm.GetField(tag)
	return v
}

// Display renders msg using displayChar as the field separator instead
// of SOH, for human-readable logging. CheckSum must already be
// present (Serialize stamps it); Display never recomputes it.
func Display(msg *fixmsg.Message, displayChar byte) string {
	out := msg.Header.ToWire(displayChar)
	out = append(out, msg.Body.ToWire(displayChar)...)
	out = append(out, msg.Trailer.ToWire(displayChar)...)
	return string(out)
}
