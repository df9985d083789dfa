package genomeindex

import (
	"github.com/biogo/store/interval"
)

// Index is a per-chromosome interval tree used to test whether a read's
// aligned span overlaps any region a filter script configured. One
// interval.IntTree is kept per chromosome name, following the
// one-tree-per-subject pattern in github.com/biogo/store/interval.
type Index struct {
	trees  map[string]*interval.IntTree
	dirty  map[string]bool
	nextID uintptr
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{
		trees: make(map[string]*interval.IntTree),
		dirty: make(map[string]bool),
	}
}

// span implements interval.IntInterface over a half-open [start, end)
// genomic interval. Grounded on the subjectInterval type in
// biogo-store's own cmd/cull/main.go, generalized from "completely
// contains" overlap to ordinary half-open overlap.
type span struct {
	id         uintptr
	start, end int
}

func (s span) Overlap(b interval.IntRange) bool {
	return s.start < b.End && b.Start < s.end
}

func (s span) ID() uintptr { return s.id }

func (s span) Range() interval.IntRange {
	return interval.IntRange{Start: s.start, End: s.end}
}

// Insert adds the half-open interval [start-pad, end+pad) to the tree for
// chrom. A start that padding makes negative is clamped to zero;
// AnyOverlap does not clamp its query.
func (x *Index) Insert(chrom string, start, end, pad int) {
	start -= pad
	if start < 0 {
		start = 0
	}
	end += pad
	t, ok := x.trees[chrom]
	if !ok {
		t = &interval.IntTree{}
		x.trees[chrom] = t
	}
	x.nextID++
	// Insertion of a degenerate (empty) interval is harmless; the engine's
	// own padding/parsing layer is responsible for rejecting those earlier.
	if err := t.Insert(span{id: x.nextID, start: start, end: end}, true); err != nil {
		// Only returned for a range with end < start, which Insert/Parse
		// never produce; a panic here indicates a logic error upstream.
		panic("genomeindex: " + err.Error())
	}
	x.dirty[chrom] = true
}

// AnyOverlap reports whether [start, end) overlaps any interval previously
// Insert-ed for chrom.
func (x *Index) AnyOverlap(chrom string, start, end int) bool {
	t, ok := x.trees[chrom]
	if !ok {
		return false
	}
	if x.dirty[chrom] {
		t.AdjustRanges()
		x.dirty[chrom] = false
	}
	hits := t.Get(span{start: start, end: end})
	return len(hits) > 0
}

// Empty reports whether the index holds no intervals on any chromosome.
func (x *Index) Empty() bool {
	for _, t := range x.trees {
		if t.Len() > 0 {
			return false
		}
	}
	return true
}
