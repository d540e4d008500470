package join

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct{ l, r int32 }

func pairSet(leftPos, rightPos []int32) map[pair]int {
	out := make(map[pair]int, len(leftPos))
	for i := range leftPos {
		out[pair{leftPos[i], rightPos[i]}]++
	}
	return out
}

func buildHalfOverlap(n int, seed int64) (vals, pos []int32) {
	rng := rand.New(rand.NewSource(seed))
	vals = make([]int32, n)
	pos = make([]int32, n)
	for i := range vals {
		vals[i] = int32(rng.Intn(n / 2))
		pos[i] = int32(i)
	}
	return vals, pos
}

func TestNestedLoopAndHashJoinAgreeAsUnorderedSets(t *testing.T) {
	leftVals, leftPos := buildHalfOverlap(1024, 1)
	rightVals, rightPos := buildHalfOverlap(1024, 2)

	nlLeft, nlRight := NestedLoopJoin(leftVals, leftPos, rightVals, rightPos)
	hjLeft, hjRight := HashJoin(leftVals, leftPos, rightVals, rightPos)

	require.Equal(t, len(nlLeft), len(hjLeft))
	assert.Equal(t, pairSet(nlLeft, nlRight), pairSet(hjLeft, hjRight))
}

func TestHashJoinCommutesOverSides(t *testing.T) {
	leftVals, leftPos := buildHalfOverlap(300, 3)
	rightVals, rightPos := buildHalfOverlap(300, 4)

	ab := pairSet(HashJoin(leftVals, leftPos, rightVals, rightPos))
	swapped := map[pair]int{}
	ba, ab2 := HashJoin(rightVals, rightPos, leftVals, leftPos)
	for i := range ba {
		swapped[pair{ab2[i], ba[i]}]++
	}
	assert.Equal(t, ab, swapped)
}

func TestHashJoinLeftPositionsNonDecreasing(t *testing.T) {
	leftVals, leftPos := buildHalfOverlap(1024, 5)
	rightVals, rightPos := buildHalfOverlap(1024, 6)
	left, _ := HashJoin(leftVals, leftPos, rightVals, rightPos)
	for i := 1; i < len(left); i++ {
		assert.LessOrEqual(t, left[i-1], left[i])
	}
}

func TestJoinEmptySideShortCircuits(t *testing.T) {
	l, r := HashJoin(nil, nil, []int32{1, 2}, []int32{0, 1})
	assert.Nil(t, l)
	assert.Nil(t, r)

	l, r = NestedLoopJoin(nil, nil, []int32{1, 2}, []int32{0, 1})
	assert.Empty(t, l)
	assert.Empty(t, r)
}
