package hits

import (
	"iter"
	"slices"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"bifa-core/model"
)

// Set stores hits in an append-only arena and keeps three index vectors into
// it, one per traversal order. Every index is kept sorted on insert, so no
// traversal ever sorts.
//
// A Set is not safe for concurrent mutation.
type Set struct {
	arena    []Hit
	byPos    []int32
	byBinder []int32
	byP      []int32
}

// NewSet returns an empty set with room for n hits.
func NewSet(n int) *Set {
	return &Set{
		arena:    make([]Hit, 0, n),
		byPos:    make([]int32, 0, n),
		byBinder: make([]int32, 0, n),
		byP:      make([]int32, 0, n),
	}
}

// Len returns the number of hits.
func (s *Set) Len() int { return len(s.arena) }

func (s *Set) cmpIdx(fn func(a, b Hit) int) func(i, j int32) int {
	return func(i, j int32) int { return fn(s.arena[i], s.arena[j]) }
}

// insertSorted places idx into index after every element that does not sort
// after it, keeping insertion stable.
func (s *Set) insertSorted(index []int32, idx int32, fn func(a, b Hit) int) []int32 {
	h := s.arena[idx]
	at := sort.Search(len(index), func(k int) bool { return fn(s.arena[index[k]], h) > 0 })
	return slices.Insert(index, at, idx)
}

// Insert validates h and adds it to every index.
func (s *Set) Insert(h Hit) error {
	if err := h.Validate(); err != nil {
		return err
	}
	idx := int32(len(s.arena))
	s.arena = append(s.arena, h)
	s.byPos = s.insertSorted(s.byPos, idx, Compare)
	s.byBinder = s.insertSorted(s.byBinder, idx, CompareBinder)
	s.byP = s.insertSorted(s.byP, idx, CompareProbability)
	return nil
}

// InsertAll adds a batch and re-sorts once. Nothing is inserted when any hit
// is invalid.
func (s *Set) InsertAll(hs []Hit) error {
	for _, h := range hs {
		if err := h.Validate(); err != nil {
			return err
		}
	}
	if len(hs) == 0 {
		return nil
	}
	start := int32(len(s.arena))
	s.arena = append(s.arena, hs...)
	for i := start; i < int32(len(s.arena)); i++ {
		s.byPos = append(s.byPos, i)
		s.byBinder = append(s.byBinder, i)
		s.byP = append(s.byP, i)
	}
	s.sortIndices()
	return nil
}

func (s *Set) sortIndices() {
	slices.SortStableFunc(s.byPos, s.cmpIdx(Compare))
	slices.SortStableFunc(s.byBinder, s.cmpIdx(CompareBinder))
	slices.SortStableFunc(s.byP, s.cmpIdx(CompareProbability))
}

func (s *Set) walk(index []int32) iter.Seq[Hit] {
	return func(yield func(Hit) bool) {
		for _, i := range index {
			if !yield(s.arena[i]) {
				return
			}
		}
	}
}

// ByPosition iterates in (position, strand, length, p, binder) order.
func (s *Set) ByPosition() iter.Seq[Hit] { return s.walk(s.byPos) }

// ByBinder iterates grouped by binder, each group in position order.
func (s *Set) ByBinder() iter.Seq[Hit] { return s.walk(s.byBinder) }

// ByProbability iterates in ascending probability.
func (s *Set) ByProbability() iter.Seq[Hit] { return s.walk(s.byP) }

// Hits returns a copy of the hits in position order.
func (s *Set) Hits() []Hit {
	out := make([]Hit, 0, len(s.arena))
	for _, i := range s.byPos {
		out = append(out, s.arena[i])
	}
	return out
}

// equalRange returns the slice of byBinder holding binder b.
func (s *Set) equalRange(b model.BinderID) []int32 {
	lo := sort.Search(len(s.byBinder), func(k int) bool { return s.arena[s.byBinder[k]].Binder >= b })
	hi := sort.Search(len(s.byBinder), func(k int) bool { return s.arena[s.byBinder[k]].Binder > b })
	return s.byBinder[lo:hi]
}

// EqualRange returns the hits of binder b in position order.
func (s *Set) EqualRange(b model.BinderID) []Hit {
	r := s.equalRange(b)
	out := make([]Hit, len(r))
	for k, i := range r {
		out[k] = s.arena[i]
	}
	return out
}

// Binders returns the distinct binders present in the set.
func (s *Set) Binders() *roaring.Bitmap {
	bm := roaring.New()
	for _, h := range s.arena {
		bm.Add(uint32(h.Binder))
	}
	return bm
}

// PBindsAtLeastOnce summarises every hit of binder b as the probability that
// b binds somewhere in the sequence. A binder without hits gives 0.
func (s *Set) PBindsAtLeastOnce(b model.BinderID) float64 {
	miss := 1.0
	for _, i := range s.equalRange(b) {
		miss *= 1 - s.arena[i].P
	}
	return 1 - miss
}

// UpdateBinder replaces the probability of every hit of binder b with
// fn(hit). On error nothing is changed. All three orders are restored
// before returning.
func (s *Set) UpdateBinder(b model.BinderID, fn func(Hit) (float64, error)) (int, error) {
	ns, err := s.UpdateBinders([]model.BinderID{b}, fn)
	if err != nil {
		return 0, err
	}
	return ns[0], nil
}

// UpdateBinders is UpdateBinder over several binders at once: every new
// probability is computed first, then the indices are repaired in a single
// pass. It returns the number of hits updated per binder, aligned with bs; a
// repeated binder is updated once and counts 0 at its later positions.
// On error nothing is changed.
func (s *Set) UpdateBinders(bs []model.BinderID, fn func(Hit) (float64, error)) ([]int, error) {
	counts := make([]int, len(bs))
	var (
		touched []int32
		ps      []float64
	)
	seen := make(map[model.BinderID]bool, len(bs))
	for k, b := range bs {
		if seen[b] {
			continue
		}
		seen[b] = true
		r := s.equalRange(b)
		for _, i := range r {
			p, err := fn(s.arena[i])
			if err != nil {
				return nil, err
			}
			if err := model.CheckProbability(b, "adjusted p_binding", p); err != nil {
				return nil, err
			}
			touched = append(touched, i)
			ps = append(ps, p)
		}
		counts[k] = len(r)
	}
	if len(touched) == 0 {
		return counts, nil
	}
	for k, i := range touched {
		s.arena[i].P = ps[k]
	}

	// Only the touched binders' segments of byBinder can be out of order.
	for b := range seen {
		slices.SortStableFunc(s.equalRange(b), s.cmpIdx(CompareBinder))
	}
	mark := make([]bool, len(s.arena))
	for _, i := range touched {
		mark[i] = true
	}
	s.byPos = s.reposition(s.byPos, touched, mark, Compare)
	s.byP = s.reposition(s.byP, touched, mark, CompareProbability)
	return counts, nil
}

// reposition restores the order of index after the hits in touched changed:
// the untouched entries are still sorted, so the touched ones are sorted on
// their own and merged back in.
func (s *Set) reposition(index, touched []int32, mark []bool, fn func(a, b Hit) int) []int32 {
	moved := slices.Clone(touched)
	slices.SortStableFunc(moved, s.cmpIdx(fn))
	kept := make([]int32, 0, len(index)-len(moved))
	for _, i := range index {
		if !mark[i] {
			kept = append(kept, i)
		}
	}
	out := index[:0]
	k, m := 0, 0
	for k < len(kept) && m < len(moved) {
		if fn(s.arena[moved[m]], s.arena[kept[k]]) < 0 {
			out = append(out, moved[m])
			m++
		} else {
			out = append(out, kept[k])
			k++
		}
	}
	out = append(out, kept[k:]...)
	return append(out, moved[m:]...)
}

// Filter keeps the hits for which keep returns true and reports how many
// were removed.
func (s *Set) Filter(keep func(Hit) bool) int {
	kept := s.arena[:0]
	for _, h := range s.arena {
		if keep(h) {
			kept = append(kept, h)
		}
	}
	removed := len(s.arena) - len(kept)
	if removed == 0 {
		return 0
	}
	clear(s.arena[len(kept):])
	s.arena = kept
	s.byPos, s.byBinder, s.byP = s.byPos[:0], s.byBinder[:0], s.byP[:0]
	for i := range s.arena {
		s.byPos = append(s.byPos, int32(i))
		s.byBinder = append(s.byBinder, int32(i))
		s.byP = append(s.byP, int32(i))
	}
	s.sortIndices()
	return removed
}

// Equal reports whether both sets hold the same hits (see Hit.Equal).
func (s *Set) Equal(o *Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	for k := range s.byPos {
		if !s.arena[s.byPos[k]].Equal(o.arena[o.byPos[k]]) {
			return false
		}
	}
	return true
}
