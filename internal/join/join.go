// Package join is C6: nested-loop and radix-partitioned hash join over two
// (values, positions) result pairs produced by select+fetch.
package join

import "sort"

// joinPageSize is the L1-friendly outer-loop tiling for nested-loop join
// (§4.7, carried from original_source/.../db_join.c's page constant).
const joinPageSize = 1024

// numBuckets is B in the radix-partitioned hash join; with B=64 the
// partition mask is 0x3F (§4.7).
const numBuckets = 64
const bucketMask = numBuckets - 1

// NestedLoopJoin iterates the larger value vector page by page; for each
// outer value it scans every inner value and appends a matching
// (left position, right position) pair on equality. Output order preserves
// outer iteration order, then inner iteration order within each outer row.
func NestedLoopJoin(leftValues, leftPositions, rightValues, rightPositions []int32) (leftOut, rightOut []int32) {
	outerIsLeft := len(leftValues) >= len(rightValues)
	outerVals, outerPos := leftValues, leftPositions
	innerVals, innerPos := rightValues, rightPositions
	if !outerIsLeft {
		outerVals, outerPos = rightValues, rightPositions
		innerVals, innerPos = leftValues, leftPositions
	}

	for page := 0; page < len(outerVals); page += joinPageSize {
		end := page + joinPageSize
		if end > len(outerVals) {
			end = len(outerVals)
		}
		for i := page; i < end; i++ {
			v := outerVals[i]
			for j := range innerVals {
				if innerVals[j] != v {
					continue
				}
				if outerIsLeft {
					leftOut = append(leftOut, outerPos[i])
					rightOut = append(rightOut, innerPos[j])
				} else {
					leftOut = append(leftOut, innerPos[j])
					rightOut = append(rightOut, outerPos[i])
				}
			}
		}
	}
	return leftOut, rightOut
}

type bucketEntry struct {
	val int32
	pos int32
}

// HashJoin implements the radix-partitioned grace hash join (§4.7):
// partition both sides into 64 buckets by the value's low-order bits,
// build a chained hash table over the smaller side of each non-empty
// bucket, probe with the larger side, and insert every match into the
// output by binary search on the left position so the result is always
// left-position ascending.
func HashJoin(leftValues, leftPositions, rightValues, rightPositions []int32) (leftOut, rightOut []int32) {
	if len(leftValues) == 0 || len(rightValues) == 0 {
		return nil, nil
	}

	var leftBuckets, rightBuckets [numBuckets][]bucketEntry
	for i, v := range leftValues {
		b := v & bucketMask
		leftBuckets[b] = append(leftBuckets[b], bucketEntry{val: v, pos: leftPositions[i]})
	}
	for i, v := range rightValues {
		b := v & bucketMask
		rightBuckets[b] = append(rightBuckets[b], bucketEntry{val: v, pos: rightPositions[i]})
	}

	for b := 0; b < numBuckets; b++ {
		lb, rb := leftBuckets[b], rightBuckets[b]
		if len(lb) == 0 || len(rb) == 0 {
			continue
		}
		buildIsLeft := len(lb) <= len(rb)
		build, probe := lb, rb
		if !buildIsLeft {
			build, probe = rb, lb
		}

		table := make(map[int32][]int32, len(build))
		for _, e := range build {
			table[e.val] = append(table[e.val], e.pos)
		}
		for _, pe := range probe {
			for _, bpos := range table[pe.val] {
				var lp, rp int32
				if buildIsLeft {
					lp, rp = bpos, pe.pos
				} else {
					lp, rp = pe.pos, bpos
				}
				leftOut, rightOut = insertSortedByLeft(leftOut, rightOut, lp, rp)
			}
		}
	}
	return leftOut, rightOut
}

// insertSortedByLeft inserts (lp, rp) into leftOut/rightOut at the rank
// that keeps leftOut non-decreasing, matching spec.md §4.7's "binary
// search insertion" output guarantee.
func insertSortedByLeft(leftOut, rightOut []int32, lp, rp int32) ([]int32, []int32) {
	idx := sort.Search(len(leftOut), func(i int) bool { return leftOut[i] >= lp })
	leftOut = append(leftOut, 0)
	copy(leftOut[idx+1:], leftOut[idx:])
	leftOut[idx] = lp
	rightOut = append(rightOut, 0)
	copy(rightOut[idx+1:], rightOut[idx:])
	rightOut[idx] = rp
	return leftOut, rightOut
}
