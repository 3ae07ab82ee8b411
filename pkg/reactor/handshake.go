package reactor

import (
	"bytes"
	"strconv"
)

// HandshakeFields holds the header tags an Acceptor needs to route a
// freshly-accepted connection's first message to a session, extracted
// without any dictionary: the header's shape (tag=value pairs up to
// MsgType) is the same across every FIX 4.x dictionary version.
type HandshakeFields struct {
	BeginString  string
	SenderCompID string
	TargetCompID string
}

// extractHandshakeFields scans raw for tags 8, 49, 56, stopping once
// all three are found or the buffer is exhausted. It does not
// validate BodyLength or CheckSum; that is the session's job once the
// message is handed to the dictionary parser.
func extractHandshakeFields(raw []byte) (HandshakeFields, bool) {
	var hf HandshakeFields
	pos := 0
	for pos < len(raw) {
		eq := bytes.IndexByte(raw[pos:], '=')
		if eq < 0 {
			break
		}
		tagStr := string(raw[pos : pos+eq])
		tag, err := strconv.Atoi(tagStr)
		if err != nil {
			break
		}
		valStart := pos + eq + 1
		rel := bytes.IndexByte(raw[valStart:], soh)
		if rel < 0 {
			break
		}
		value := string(raw[valStart : valStart+rel])

		switch tag {
		case 8:
			hf.BeginString = value
		case 49:
			hf.SenderCompID = value
		case 56:
			hf.TargetCompID = value
		}
		if hf.BeginString != "" && hf.SenderCompID != "" && hf.TargetCompID != "" {
			return hf, true
		}
		pos = valStart + rel + 1
	}
	return hf, hf.SenderCompID != "" && hf.TargetCompID != ""
}

// SessionID is the local identity a session registers itself under:
// its own CompID paired with the counterparty's, in
// "local:remote" form.
func SessionID(localCompID, remoteCompID string) string {
	return localCompID + ":" + remoteCompID
}
