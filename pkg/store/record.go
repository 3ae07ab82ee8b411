package store

import (
	"encoding/binary"
	"io"
)

// recordTag identifies which of the three record shapes follows in the
// log. The wire layout is intentionally minimal and bespoke to this
// package: no third-party serialization library buys anything over
// encoding/binary for three fixed-shape little-endian records (see
// DESIGN.md).
type recordTag uint8

const (
	tagMsg          recordTag = 0 // outbound (sent) message
	tagSenderSeqNum recordTag = 1
	tagTargetSeqNum recordTag = 2
	tagMsgIn        recordTag = 3 // inbound (received) message
)

// Record is one decoded entry from the log.
type Record struct {
	Tag   recordTag
	Seq   uint32 // Msg, SenderSeqNum, TargetSeqNum
	Bytes []byte // Msg only
}

// IsMsg, IsSenderSeqNum and IsTargetSeqNum discriminate a decoded Record.
// IsMsg is true for either direction; IsOutboundMsg/IsInboundMsg narrow
// further, since a resend only ever replays what this side sent.
func (r Record) IsMsg() bool          { return r.Tag == tagMsg || r.Tag == tagMsgIn }
func (r Record) IsOutboundMsg() bool  { return r.Tag == tagMsg }
func (r Record) IsInboundMsg() bool   { return r.Tag == tagMsgIn }
func (r Record) IsSenderSeqNum() bool { return r.Tag == tagSenderSeqNum }
func (r Record) IsTargetSeqNum() bool { return r.Tag == tagTargetSeqNum }

// encodeMsg lays out a Msg record under tag: tag(u8) seq(u32) len(u64)
// bytes[len], all little-endian.
func encodeMsg(tag recordTag, seq uint32, msg []byte) []byte {
	buf := make([]byte, 1+4+8+len(msg))
	buf[0] = byte(tag)
	binary.LittleEndian.PutUint32(buf[1:5], seq)
	binary.LittleEndian.PutUint64(buf[5:13], uint64(len(msg)))
	copy(buf[13:], msg)
	return buf
}

// encodeSenderSeqNum and encodeTargetSeqNum lay out a tag(u8) seq(u32)
// record.
func encodeSenderSeqNum(n uint32) []byte { return encodeSeqRecord(tagSenderSeqNum, n) }
func encodeTargetSeqNum(n uint32) []byte { return encodeSeqRecord(tagTargetSeqNum, n) }

func encodeSeqRecord(tag recordTag, n uint32) []byte {
	buf := make([]byte, 1+4)
	buf[0] = byte(tag)
	binary.LittleEndian.PutUint32(buf[1:5], n)
	return buf
}

// decodeRecord reads exactly one record from r, returning its decoded
// form and the number of bytes consumed (for offset bookkeeping in
// load error reporting). io.EOF on the first byte read means the log
// ended cleanly; any other error, or EOF mid-record, is a load error
// from the caller's point of view.
func decodeRecord(r io.Reader) (Record, int64, error) {
	var tagBuf [1]byte
	if _, err := io.ReadFull(r, tagBuf[:]); err != nil {
		return Record{}, 0, err
	}
	tag := recordTag(tagBuf[0])

	switch tag {
	case tagMsg, tagMsgIn:
		var head [12]byte
		if _, err := io.ReadFull(r, head[:]); err != nil {
			return Record{}, 1, io.ErrUnexpectedEOF
		}
		seq := binary.LittleEndian.Uint32(head[0:4])
		length := binary.LittleEndian.Uint64(head[4:12])
		body := make([]byte, length)
		if _, err := io.ReadFull(r, body); err != nil {
			return Record{}, 1 + 12, io.ErrUnexpectedEOF
		}
		return Record{Tag: tag, Seq: seq, Bytes: body}, int64(1 + 12 + len(body)), nil
	case tagSenderSeqNum, tagTargetSeqNum:
		var body [4]byte
		if _, err := io.ReadFull(r, body[:]); err != nil {
			return Record{}, 1, io.ErrUnexpectedEOF
		}
		return Record{Tag: tag, Seq: binary.LittleEndian.Uint32(body[:])}, 1 + 4, nil
	default:
		return Record{}, 1, io.ErrUnexpectedEOF
	}
}
