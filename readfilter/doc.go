/*Package readfilter implements a declarative per-read classification
  engine for aligned sequencing reads.

  A FilterCollection is built once from a JSON rule script (see
  NewFilterCollectionFromJSON) and thereafter classifies records one at a
  time via Classify, maintaining per-region and per-rule counters. The
  engine touches neither BAM I/O nor reference-header bookkeeping directly;
  callers adapt their record type to the Read interface (SAMRecord does
  this for *sam.Record) and their header to HeaderResolver.
*/
package readfilter
