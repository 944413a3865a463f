// Package bufpool provides a sync.Pool of bytes.Buffer for the render path.
// Template execution and chart encoding each need a scratch buffer per
// document; pooling them keeps repeated generations from reallocating.
package bufpool

import (
	"bytes"
	"sync"
)

// maxBufferSize is the largest buffer kept in the pool. Full reports with
// embedded evidence images can grow far beyond this and are dropped.
const maxBufferSize = 256 * 1024

var bufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

// Get retrieves an empty buffer from the pool.
// Callers should call Put() when done.
func Get() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// GetSized retrieves a buffer with at least the given capacity.
func GetSized(size int) *bytes.Buffer {
	buf := Get()
	if buf.Cap() < size {
		buf.Grow(size)
	}
	return buf
}

// Put returns buf to the pool. Nil and oversized buffers are ignored.
// The caller must not retain buf.Bytes() after Put.
func Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxBufferSize {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}
