package readfilter

import (
	"fmt"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/readfilter/genomeindex"
)

// SendToBED writes the overlap-merged union of every region's intervals to
// path as BED, per spec §6 side output send_to_bed.
func (c *FilterCollection) SendToBED(path string) (err error) {
	var f *os.File
	if f, err = os.Create(path); err != nil {
		return errors.E(err, "readfilter.SendToBED: creating", path)
	}
	defer func() {
		if err2 := f.Close(); err == nil && err2 != nil {
			err = err2
		}
	}()

	unions := make([]genomeindex.BEDUnion, 0, len(c.Regions))
	for _, region := range c.Regions {
		if region.WholeGenome || len(region.Entries) == 0 {
			continue
		}
		u, uerr := genomeindex.NewBEDUnionFromEntries(region.Entries, genomeindex.NewBEDOpts{})
		if uerr != nil {
			return errors.E(uerr, "readfilter.SendToBED: region", region.Name)
		}
		unions = append(unions, u)
	}
	if len(unions) == 0 {
		return nil
	}
	merged, merr := genomeindex.MergeBEDUnions(unions...)
	if merr != nil {
		return errors.E(merr, "readfilter.SendToBED: merging regions")
	}
	if err = merged.WriteBED(f); err != nil {
		return errors.E(err, "readfilter.SendToBED: writing", path)
	}
	return nil
}

// CountsToFile writes the per-region and per-rule hit counters as TSV,
// per spec §6 side output counts_to_file and §12's header-row supplement:
// one header row, then one row per region (blank rule column), then one
// row per region's rule, in declaration order.
func (c *FilterCollection) CountsToFile(path string) (err error) {
	var f *os.File
	if f, err = os.Create(path); err != nil {
		return errors.E(err, "readfilter.CountsToFile: creating", path)
	}
	defer func() {
		if err2 := f.Close(); err == nil && err2 != nil {
			err = err2
		}
	}()

	totalSeen, totalPassed := c.SeenCount(), c.PassedCount()
	if _, err = fmt.Fprintf(f, "total_seen_count\ttotal_passed_count\tregion\tregion_passed_count\trule\trule_passed_count\n"); err != nil {
		return errors.E(err, "readfilter.CountsToFile: writing header", path)
	}
	for _, region := range c.Regions {
		if _, err = fmt.Fprintf(f, "%d\t%d\t%s\t%d\t\t\n", totalSeen, totalPassed, region.Name, region.PassedCount()); err != nil {
			return errors.E(err, "readfilter.CountsToFile: writing region row", path)
		}
		for i, rule := range region.Rules {
			if _, err = fmt.Fprintf(f, "%d\t%d\t%s\t%d\t%s\t%d\n",
				totalSeen, totalPassed, region.Name, region.PassedCount(), rule.ID, region.RulePassedCount(i)); err != nil {
				return errors.E(err, "readfilter.CountsToFile: writing rule row", path)
			}
		}
	}
	return nil
}
