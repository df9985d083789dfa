/*Package genomeindex implements the two interval data structures the
  readfilter engine needs to test region membership for a read and to
  report the set of regions a filter script covers.

  Index is a per-chromosome interval tree (backed by
  github.com/biogo/store/interval) used for the fast "does this read
  overlap any configured region" test performed once per read.

  BEDUnion is a sorted-endpoint interval-union representation (overlapping
  intervals are merged, not tracked separately) used for BED parsing,
  region-string resolution, and the engine's BED round-trip side outputs
  (SendToBED / GetAllRegions). It assumes every position fits in a
  PosType, which is currently defined as int32 since that's what BAM
  files are limited to.
*/
package genomeindex
