// Package index implements the two secondary-index variants coldb supports
// over a dense integer column: a flat sorted (value, position) array and the
// custom B+tree described in SPEC_FULL.md (arena of nodes addressed by
// integer id, following the "no raw pointers" design note rather than the
// source's native-pointer tree).
package index

import "sort"

// Entry is the (value, position) pair stored by every non-clustered index.
type Entry struct {
	Value int32
	Pos   int32
}

// Sorted is a dense array of Entry kept sorted by Value, used for
// unclustered sorted indexes (§4.3). Its length always equals the owning
// table's row count and its Pos values form a permutation of [0, len).
type Sorted struct {
	entries []Entry
}

// NewSorted returns an empty sorted index.
func NewSorted() *Sorted {
	return &Sorted{}
}

// Len reports the number of entries.
func (s *Sorted) Len() int { return len(s.entries) }

// Entries exposes the backing slice for iteration and persistence. Callers
// must not retain it across mutations.
func (s *Sorted) Entries() []Entry { return s.entries }

// SetEntries replaces the backing slice wholesale, used when reloading a
// snapshot.
func (s *Sorted) SetEntries(entries []Entry) { s.entries = entries }

// Insert places (value, pos) at its sorted rank, shifting later entries up
// by one slot.
func (s *Sorted) Insert(value, pos int32) {
	idx := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].Value >= value })
	s.entries = append(s.entries, Entry{})
	copy(s.entries[idx+1:], s.entries[idx:])
	s.entries[idx] = Entry{Value: value, Pos: pos}
}

// DeleteByPosition removes the entry whose Pos equals p in a single pass,
// decrementing every other stored position greater than p so the index
// keeps tracking the post-shift row positions of the base column.
func (s *Sorted) DeleteByPosition(p int32) {
	hit := -1
	for i := range s.entries {
		switch {
		case s.entries[i].Pos == p:
			hit = i
		case s.entries[i].Pos > p:
			s.entries[i].Pos--
		}
	}
	if hit >= 0 {
		s.entries = append(s.entries[:hit], s.entries[hit+1:]...)
	}
}

// Range returns the positions of every entry with low <= value < high.
func (s *Sorted) Range(low, high int32) []int32 {
	lo := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].Value >= low })
	out := make([]int32, 0, 16)
	for i := lo; i < len(s.entries) && s.entries[i].Value < high; i++ {
		out = append(out, s.entries[i].Pos)
	}
	return out
}

// Lookup returns the position of value, or -1 if it is absent. When
// duplicate values exist this returns the first (lowest-ranked) match.
func (s *Sorted) Lookup(value int32) int32 {
	idx := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].Value >= value })
	if idx < len(s.entries) && s.entries[idx].Value == value {
		return s.entries[idx].Pos
	}
	return -1
}
