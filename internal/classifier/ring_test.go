package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingFloat_FIFOEviction(t *testing.T) {
	r := NewRingFloat(3)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Slice())

	r.Push(1)
	r.Push(2)
	assert.Equal(t, []float64{1, 2}, r.Slice())

	r.Push(3)
	r.Push(4)
	r.Push(5)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []float64{3, 4, 5}, r.Slice())
}

func TestRingFloat_Clear(t *testing.T) {
	r := NewRingFloat(2)
	r.Push(1)
	r.Push(2)
	r.Push(3)
	r.Clear()
	assert.Equal(t, 0, r.Len())

	r.Push(9)
	assert.Equal(t, []float64{9}, r.Slice())
}

func TestRingFloat_MinimumCapacity(t *testing.T) {
	r := NewRingFloat(0)
	assert.Equal(t, 1, r.Cap())
	r.Push(4)
	r.Push(6)
	assert.Equal(t, []float64{6}, r.Slice())
}
