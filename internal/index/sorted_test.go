package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortedInsertKeepsOrder(t *testing.T) {
	s := NewSorted()
	for _, v := range []int32{5, 1, 9, 3, 7} {
		s.Insert(v, v*100)
	}
	var values []int32
	for _, e := range s.Entries() {
		values = append(values, e.Value)
	}
	assert.Equal(t, []int32{1, 3, 5, 7, 9}, values)
}

func TestSortedRange(t *testing.T) {
	s := NewSorted()
	for i := int32(0); i < 20; i++ {
		s.Insert(i, i)
	}
	got := s.Range(5, 10)
	assert.Equal(t, []int32{5, 6, 7, 8, 9}, got)
}

func TestSortedDeleteByPositionShiftsPositions(t *testing.T) {
	s := NewSorted()
	for i := int32(0); i < 10; i++ {
		s.Insert(i, i)
	}
	s.DeleteByPosition(4)
	assert.Equal(t, int32(-1), s.Lookup(4))
	for i := int32(5); i < 10; i++ {
		assert.Equal(t, i-1, s.Lookup(i))
	}
}

func TestSortedLookupMissing(t *testing.T) {
	s := NewSorted()
	s.Insert(10, 0)
	assert.Equal(t, int32(-1), s.Lookup(5))
}
