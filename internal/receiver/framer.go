package receiver

import (
	"bytes"

	"hivechat/internal/protocol"
)

// BufferSize bounds the bytes a peer may have pending without sending
// a terminator, terminator included.
const BufferSize = 1024

// lineBuffer accumulates the bytes of one peer and cuts them into
// terminator-delimited lines.  A line that does not fit is discarded
// in full: the rest of it is skipped up to the next terminator, after
// which framing resumes.
type lineBuffer struct {
	buf        [BufferSize - 1]byte
	n          int
	discarding bool
}

// feed consumes data.  emit receives every complete line without its
// terminator; the slice is only valid during the call.  overflow is
// called once per discarded line.
func (b *lineBuffer) feed(data []byte, emit func(line []byte), overflow func()) {
	for len(data) > 0 {
		chunk := data
		complete := false
		if i := bytes.IndexByte(data, protocol.Terminator); i >= 0 {
			chunk, data = data[:i], data[i+1:]
			complete = true
		} else {
			data = nil
		}

		if b.discarding {
			if complete {
				b.discarding = false
			}
			continue
		}

		if b.n+len(chunk) > len(b.buf) {
			overflow()
			b.n = 0
			b.discarding = !complete
			continue
		}

		b.n += copy(b.buf[b.n:], chunk)
		if complete {
			emit(b.buf[:b.n])
			b.n = 0
		}
	}
}

// pending returns how many bytes wait for a terminator.
func (b *lineBuffer) pending() int { return b.n }
