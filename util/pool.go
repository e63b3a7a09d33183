package util

import "sync"

// ReadBufSize is the chunk size used by per-connection read loops.  It
// matches the receive buffer bound, so one read never carries more than
// one buffer's worth of pending bytes.
const ReadBufSize = 1024

// readBufPool provides reusable read chunks, one per live connection.
var readBufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, ReadBufSize)
		return &buf
	},
}

// GetBuf retrieves a read buffer from the pool.  Callers must return it
// with [PutBuf] when finished.
func GetBuf() *[]byte {
	return readBufPool.Get().(*[]byte)
}

// PutBuf returns a buffer to the pool for reuse.  Buffers of the wrong
// size are dropped.
func PutBuf(buf *[]byte) {
	if buf == nil || len(*buf) != ReadBufSize {
		return
	}
	readBufPool.Put(buf)
}
