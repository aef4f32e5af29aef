package generic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolResetsOnPut(t *testing.T) {
	created := 0
	p := NewPool(func() map[string]int {
		created++
		return make(map[string]int)
	}, func(m map[string]int) { clear(m) })

	m := p.Get()
	m["a"] = 1
	p.Put(m)
	assert.Empty(t, m)

	// sync.Pool may drop values at any time, so only the contents are checked.
	again := p.Get()
	assert.Empty(t, again)
	assert.GreaterOrEqual(t, created, 1)
}

func TestPoolWithoutReset(t *testing.T) {
	p := NewPool(func() []int { return make([]int, 0, 4) }, nil)
	s := append(p.Get(), 1, 2)
	p.Put(s)
	assert.Len(t, s, 2)
}
