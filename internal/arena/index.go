package arena

import (
	"github.com/google/btree"
)

// span is a free byte range [off, off+n).
type span struct {
	off int
	n   int
}

func (s span) end() int { return s.off + s.n }

func spanLess(a, b span) bool { return a.off < b.off }

// freeIndex maps offset -> length for unused ranges, ordered by offset.
// Coalescing and first-fit both depend on ascending iteration.
type freeIndex struct {
	tree    *btree.BTreeG[span]
	bytes   int
	scratch []span
}

func newFreeIndex() *freeIndex {
	return &freeIndex{
		tree: btree.NewG(16, spanLess),
	}
}

// insert adds s, replacing any region keyed at the same offset.
func (ix *freeIndex) insert(s span) {
	if old, ok := ix.tree.ReplaceOrInsert(s); ok {
		ix.bytes -= old.n
	}
	ix.bytes += s.n
}

// coalesce merges every run of touching regions into one and returns the
// number of merges. A single ascending pass reaches the fixed point because
// a merged region keeps absorbing successors until a gap appears.
func (ix *freeIndex) coalesce() int {
	if ix.tree.Len() < 2 {
		return 0
	}

	merged := 0
	runs := ix.scratch[:0]
	ix.tree.Ascend(func(s span) bool {
		if n := len(runs); n > 0 && runs[n-1].end() == s.off {
			runs[n-1].n += s.n
			merged++
			return true
		}
		runs = append(runs, s)
		return true
	})

	if merged > 0 {
		ix.tree.Clear(true)
		for _, s := range runs {
			ix.tree.ReplaceOrInsert(s)
		}
	}
	ix.scratch = runs[:0]
	return merged
}

// firstFit carves size bytes out of the lowest-offset region that can hold
// them. An exact fit removes the region; a larger one shrinks from the front.
func (ix *freeIndex) firstFit(size int) (int, bool) {
	var hit span
	found := false
	ix.tree.Ascend(func(s span) bool {
		if s.n >= size {
			hit, found = s, true
			return false
		}
		return true
	})
	if !found {
		return 0, false
	}

	ix.tree.Delete(hit)
	if hit.n > size {
		ix.tree.ReplaceOrInsert(span{off: hit.off + size, n: hit.n - size})
	}
	ix.bytes -= size
	return hit.off, true
}

// last returns the highest-offset region.
func (ix *freeIndex) last() (span, bool) {
	return ix.tree.Max()
}

func (ix *freeIndex) len() int { return ix.tree.Len() }

func (ix *freeIndex) spans() []span {
	out := make([]span, 0, ix.tree.Len())
	ix.tree.Ascend(func(s span) bool {
		out = append(out, s)
		return true
	})
	return out
}

func (ix *freeIndex) reset() {
	ix.tree.Clear(true)
	ix.bytes = 0
}
