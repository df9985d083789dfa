package readfilter

import (
	"strconv"
	"sync/atomic"

	"github.com/grailbio/readfilter/genomeindex"
)

// RegionFilter pairs a genomic region (or the whole genome) with an
// ordered list of AbstractRules, per spec §4.5. Overlaps delegates to a
// genomeindex.Index built once at load time; hit counters are atomic, but
// the Index adjusts its trees lazily on the first query of each
// chromosome, so concurrent FilterCollection.Classify calls are not safe.
type RegionFilter struct {
	Name string
	// Level is the region's position among the script's top-level keys.
	// Neither classification nor the side outputs read it.
	Level uint32

	WholeGenome bool
	Index       *genomeindex.Index
	ApplyToMate bool
	Excluder    bool

	Rules []*AbstractRule

	// Entries backs GetAllRegions/SendToBED; built once from the same
	// parsed interval list as Index. Entries holds the intervals without
	// pad, while Index holds them padded.
	Entries []genomeindex.BEDEntry

	seenCount    uint64
	passedCount  uint64
	ruleCounters []uint64
}

// NewRegionFilter allocates the atomic rule-hit counters alongside rules.
func NewRegionFilter(name string, rules []*AbstractRule) *RegionFilter {
	return &RegionFilter{
		Name:         name,
		Rules:        rules,
		ruleCounters: make([]uint64, len(rules)),
	}
}

// Overlaps reports whether r (or, if ApplyToMate, r's mate) falls within
// this region, per spec §4.5.
func (f *RegionFilter) Overlaps(r Read) bool {
	if f.WholeGenome {
		return true
	}
	if f.Index.AnyOverlap(refIDKey(r.RefID()), r.Pos(), r.End()) {
		return true
	}
	if f.ApplyToMate {
		return f.Index.AnyOverlap(refIDKey(r.MateRefID()), r.MatePos(), r.MatePos()+r.Len())
	}
	return false
}

// Classify evaluates this region's rules against r in order, returning the
// first accepting rule's index. An empty Rules slice is a trivial match
// (which_rule == -1), per spec §4.5.
func (f *RegionFilter) Classify(r Read) (matched bool, ruleIdx int) {
	if len(f.Rules) == 0 {
		return true, -1
	}
	for i, rule := range f.Rules {
		if rule.Test(r) {
			return true, i
		}
	}
	return false, -1
}

// recordHit increments this region's per-read hit count (once per read)
// and, when ruleIdx is non-negative, that rule's own hit count.
func (f *RegionFilter) recordHit(ruleIdx int) {
	atomic.AddUint64(&f.passedCount, 1)
	if ruleIdx >= 0 {
		atomic.AddUint64(&f.ruleCounters[ruleIdx], 1)
	}
}

func (f *RegionFilter) recordSeen() {
	atomic.AddUint64(&f.seenCount, 1)
}

// SeenCount returns the number of reads for which this region's Overlaps
// was true (regardless of whether a rule then matched).
func (f *RegionFilter) SeenCount() uint64 { return atomic.LoadUint64(&f.seenCount) }

// PassedCount returns the number of reads this region has matched.
func (f *RegionFilter) PassedCount() uint64 { return atomic.LoadUint64(&f.passedCount) }

// RulePassedCount returns the number of reads rule i has matched.
func (f *RegionFilter) RulePassedCount(i int) uint64 { return atomic.LoadUint64(&f.ruleCounters[i]) }

// refIDKey is the genomeindex.Index chromosome key used for numeric
// reference IDs. The loader resolves each region's chromosome name to its
// header RefID once at load time (via HeaderResolver.RefID) and inserts
// intervals under refIDKey(id); Overlaps then needs no further name
// resolution per read.
func refIDKey(refID int) string {
	return strconv.Itoa(refID)
}
