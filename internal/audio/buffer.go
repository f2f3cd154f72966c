package audio

import (
	"fmt"
	"sync"
	"time"
)

// Buffer holds PCM audio owned by an engine. Access goes through scoped
// views: the buffer is locked while a view callback runs and unlocked when it
// returns, including when it returns an error.
type Buffer struct {
	mu       sync.Mutex
	format   Format
	data     []byte
	written  int
	released bool
}

// NewBuffer allocates an empty buffer with room for size bytes
func NewBuffer(format Format, size int) *Buffer {
	if size < 0 {
		size = 0
	}
	return &Buffer{
		format: format,
		data:   make([]byte, size),
	}
}

// NewBufferFrom wraps a copy of pcm as a fully written buffer
func NewBufferFrom(format Format, pcm []byte) *Buffer {
	b := NewBuffer(format, len(pcm))
	b.written = copy(b.data, pcm)
	return b
}

// Format returns the sample format of the buffer
func (b *Buffer) Format() Format {
	return b.format
}

// Cap returns the number of bytes the buffer can hold
func (b *Buffer) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Len returns the number of bytes written so far
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written
}

// Duration returns the play length of the written bytes
func (b *Buffer) Duration() time.Duration {
	return b.format.Duration(b.Len())
}

// Bytes returns a copy of the written region
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, b.written)
	copy(out, b.data[:b.written])
	return out
}

// WriteView hands fn a writable view of up to n bytes at the write cursor.
// The view is shorter than n when the buffer is nearly full, and fn is not
// called at all when it is full. The cursor advances by the view length only
// if fn succeeds.
func (b *Buffer) WriteView(n int, fn func(view []byte) error) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return 0, fmt.Errorf("%w: buffer released", ErrInvalidArgument)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative view length %d", ErrInvalidArgument, n)
	}
	n = min(n, len(b.data)-b.written)
	if n == 0 {
		return 0, nil
	}

	view := b.data[b.written : b.written+n : b.written+n]
	if err := fn(view); err != nil {
		return 0, err
	}
	b.written += n
	return n, nil
}

// ReadView hands fn a read-only view of up to n written bytes starting at
// off. fn is not called when nothing is left to read.
func (b *Buffer) ReadView(off, n int, fn func(view []byte) error) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return 0, fmt.Errorf("%w: buffer released", ErrInvalidArgument)
	}
	if off < 0 || n < 0 {
		return 0, fmt.Errorf("%w: bad view [%d:+%d]", ErrInvalidArgument, off, n)
	}
	if off >= b.written {
		return 0, nil
	}
	n = min(n, b.written-off)

	if err := fn(b.data[off : off+n : off+n]); err != nil {
		return 0, err
	}
	return n, nil
}

// Release drops the backing memory. Later views fail.
func (b *Buffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = nil
	b.written = 0
	b.released = true
}

// Released reports whether Release has been called
func (b *Buffer) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}
