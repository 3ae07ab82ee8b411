// Package reactor turns raw TCP byte streams into whole FIX messages
// and back (§4.5), and manages the accept/connect lifecycle of
// sessions' underlying connections. Where the source models this with
// a hand-rolled epoll multiplexor plus fixed reader/writer thread
// pools keyed by `fd mod N`, this package instead gives each
// connection its own read goroutine and write goroutine: Go's runtime
// netpoller already performs the readiness multiplexing a manual
// epoll loop exists to provide, so a dedicated multiplexor thread
// would just be redundant machinery. The InputThreads platform setting
// sizes the dispatcher pool that serializes per-session callback
// delivery; WriterThreads is loaded from configuration but not used.
package reactor

import (
	"bytes"
	"strconv"
)

const soh = 0x01

// Framer implements the per-fd byte-framing algorithm from §4.5: find
// "8=", find "9=" and its declared length, skip that many body bytes,
// then find "10=" and its terminating SOH. Bytes preceding a located
// "8=" are discarded (and warned about); a buffer that doesn't yet
// contain a whole message is preserved for the next Feed call.
type Framer struct {
	buf  []byte
	warn func(format string, args ...interface{})
}

// New creates a Framer. warn may be nil to discard framing warnings.
func New(warn func(format string, args ...interface{})) *Framer {
	if warn == nil {
		warn = func(string, ...interface{}) {}
	}
	return &Framer{warn: warn}
}

// Feed appends newly-read bytes and returns every whole message that
// can now be extracted, in wire order, each as its own copied slice.
func (f *Framer) Feed(data []byte) [][]byte {
	f.buf = append(f.buf, data...)

	var out [][]byte
	for {
		msg, ok := f.extractOne()
		if !ok {
			break
		}
		out = append(out, msg)
	}
	return out
}

// Buffered returns the number of bytes currently held, awaiting more
// data or a resync, for diagnostics.
func (f *Framer) Buffered() int { return len(f.buf) }

func (f *Framer) extractOne() ([]byte, bool) {
	for {
		idx := bytes.Index(f.buf, []byte("8="))
		if idx < 0 {
			if len(f.buf) > 1 {
				f.warn("framer: no BeginString tag in %d buffered bytes, discarding", len(f.buf)-1)
				f.buf = f.buf[len(f.buf)-1:]
			}
			return nil, false
		}
		if idx > 0 {
			f.warn("framer: discarding %d bytes preceding BeginString", idx)
			f.buf = f.buf[idx:]
		}

		bodyLenIdx := bytes.Index(f.buf, []byte("9="))
		if bodyLenIdx < 0 {
			return nil, false
		}
		valStart := bodyLenIdx + 2
		rel := bytes.IndexByte(f.buf[valStart:], soh)
		if rel < 0 {
			return nil, false
		}
		lenStr := string(f.buf[valStart : valStart+rel])
		length, err := strconv.Atoi(lenStr)
		if err != nil || length < 0 {
			f.warn("framer: malformed BodyLength %q, resyncing", lenStr)
			next := bytes.Index(f.buf[2:], []byte("8="))
			if next < 0 {
				f.buf = f.buf[len(f.buf)-1:]
				return nil, false
			}
			f.buf = f.buf[2+next:]
			continue
		}

		bodyStart := valStart + rel + 1
		bodyEnd := bodyStart + length
		if bodyEnd > len(f.buf) {
			return nil, false
		}

		checksumIdx := bytes.Index(f.buf[bodyEnd:], []byte("10="))
		if checksumIdx < 0 {
			return nil, false
		}
		absChecksum := bodyEnd + checksumIdx
		sohAfter := bytes.IndexByte(f.buf[absChecksum:], soh)
		if sohAfter < 0 {
			return nil, false
		}
		msgEnd := absChecksum + sohAfter + 1

		msg := make([]byte, msgEnd)
		copy(msg, f.buf[:msgEnd])
		f.buf = f.buf[msgEnd:]
		return msg, true
	}
}
