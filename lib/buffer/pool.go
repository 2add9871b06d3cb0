// Package buffer provides pooled byte buffers for the receive path.
package buffer

import "sync"

// DefaultMaxRetain caps the capacity of buffers that are returned to the
// pool. Oversized buffers are dropped instead to avoid memory bloat.
const DefaultMaxRetain = 1 << 20

// Pool hands out reusable byte buffers. A buffer is exclusively owned by the
// caller between Acquire and Release and must not be retained afterwards.
type Pool struct {
	pool      sync.Pool
	maxRetain int
}

// NewPool creates a pool. maxRetain limits the capacity of recycled buffers;
// zero means [DefaultMaxRetain].
func NewPool(maxRetain int) *Pool {
	if maxRetain <= 0 {
		maxRetain = DefaultMaxRetain
	}
	return &Pool{maxRetain: maxRetain}
}

// Acquire returns a buffer with length of at least sizeHint.
func (p *Pool) Acquire(sizeHint int) []byte {
	if v := p.pool.Get(); v != nil {
		b := v.([]byte)
		if cap(b) >= sizeHint {
			return b[:sizeHint]
		}
		// Too small for this checkout. Let it be collected.
	}

	return make([]byte, sizeHint)
}

// Release puts the buffer back for reuse.
func (p *Pool) Release(b []byte) {
	if cap(b) > p.maxRetain {
		return
	}
	p.pool.Put(b[:0])
}
