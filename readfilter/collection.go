package readfilter

import (
	"sync/atomic"

	"github.com/grailbio/readfilter/genomeindex"
)

// FilterCollection is the top-level classifier: an ordered list of
// RegionFilters plus the global rule template, per spec §3/§4.6.
type FilterCollection struct {
	Regions []*RegionFilter
	// Global is the AbstractRule template merged into every parsed rule
	// before that rule's own keys override; a region with no rules
	// implicitly inherits it verbatim (spec §4.7).
	Global AbstractRule
	// FallThrough is derived at load time: true if any region is an
	// excluder (spec §4.6 step 1). The script format has no key that sets
	// it; a caller may set the field after loading.
	FallThrough bool

	seenCount   uint64
	passedCount uint64
}

// SeenCount returns the total number of records classified so far.
func (c *FilterCollection) SeenCount() uint64 { return atomic.LoadUint64(&c.seenCount) }

// PassedCount returns the total number of records that classified as
// included (passed).
func (c *FilterCollection) PassedCount() uint64 { return atomic.LoadUint64(&c.passedCount) }

// Classify implements spec §4.6's region-precedence / fall-through /
// excluder-veto decision algorithm.
func (c *FilterCollection) Classify(r Read) bool {
	atomic.AddUint64(&c.seenCount, 1)

	excluded := false
	included := false
	for _, region := range c.Regions {
		if !region.Overlaps(r) {
			continue
		}
		region.recordSeen()
		matched, ruleIdx := region.Classify(r)
		if !matched {
			continue
		}
		region.recordHit(ruleIdx)
		if region.Excluder {
			excluded = true
		} else if !excluded {
			included = true
		}
		if !c.FallThrough {
			break
		}
	}

	result := included && !excluded
	if result {
		atomic.AddUint64(&c.passedCount, 1)
	}
	return result
}

// GetAllRegions returns every region's parsed intervals, concatenated in
// declaration order. Intervals are not merged across regions
// (SendToBED writes the merged form), pad is not applied, and whole-genome
// regions contribute none. It has no effect on classification.
func (c *FilterCollection) GetAllRegions() []genomeindex.BEDEntry {
	var all []genomeindex.BEDEntry
	for _, region := range c.Regions {
		all = append(all, region.Entries...)
	}
	return all
}
