package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolAcquireSize(t *testing.T) {
	p := NewPool(0)

	b := p.Acquire(1024)
	assert.Len(t, b, 1024)

	p.Release(b)

	// A recycled buffer is resliced to the requested hint.
	b = p.Acquire(512)
	assert.Len(t, b, 512)
}

func TestPoolGrowsForLargerHint(t *testing.T) {
	p := NewPool(0)

	small := p.Acquire(16)
	p.Release(small)

	big := p.Acquire(4096)
	assert.Len(t, big, 4096)
}

func TestPoolDropsOversized(t *testing.T) {
	p := NewPool(64)

	b := p.Acquire(128)
	p.Release(b) // Above maxRetain, silently dropped.

	again := p.Acquire(8)
	assert.Len(t, again, 8)
}
