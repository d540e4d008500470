package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitvectorSetGetPositions(t *testing.T) {
	bv := NewBitvector(130)
	for _, i := range []int{0, 63, 64, 65, 129} {
		bv.Set(i)
	}
	assert.True(t, bv.Get(64))
	assert.False(t, bv.Get(1))
	assert.Equal(t, []int32{0, 63, 64, 65, 129}, bv.Positions())
	assert.Equal(t, 5, bv.Count())
}
