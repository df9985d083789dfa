package readfilter

// Read is the record interface the engine consumes (spec §6 "Record
// interface"). SAMRecord implements this over *sam.Record; other wire
// formats can supply their own adapter without the engine ever importing
// a BAM/SAM library directly.
type Read interface {
	// RefID identifies the reference the read is aligned to. -1 means
	// unmapped.
	RefID() int
	// Pos is the 0-based leftmost aligned position.
	Pos() int
	// End is the 0-based exclusive end of the aligned span.
	End() int
	MateRefID() int
	MatePos() int
	// Len is the read's sequence length.
	Len() int
	// TemplateLen is the full insert size spanning both mates (signed; the
	// engine takes its absolute value per spec §4.4 step 3).
	TemplateLen() int
	// Flags is the raw SAM FLAG word.
	Flags() uint16
	MapQ() int

	CigarMaxInsertionRun() int
	CigarMaxDeletionRun() int
	CigarHardClipCount() int
	CigarClipCount() int
	CigarOpCount() int

	// Tag returns the value of an alignment tag (e.g. "NM", "XP") and
	// whether it was present. Absent tags are never an error; callers
	// default to zero per spec §7.
	Tag(name string) (value int, ok bool)
	// SetTag records a string-valued annotation on the read (used for the
	// GV trimmed-sequence tag).
	SetTag(name string, value string)

	NumN() int
	Seq() []byte
	Qual() []byte
	// QualTrim returns the [start, end) window remaining after trimming
	// from both ends while quality < minQual. end == -1 signals trimming
	// consumed the entire read.
	QualTrim(minQual byte) (start, end int)

	Name() string
	// ReadGroup returns the read's RG tag value and whether it was
	// present; an empty tag is reported as present=true, value="" and is
	// treated by AbstractRule as a non-match against any configured RG.
	ReadGroup() (value string, ok bool)

	PairContext() PairContext
}

// HeaderResolver resolves a chromosome name to its length, used by the
// JSON loader to expand bare chromosome names and validate loci (spec §6
// region string syntax). *sam.Header satisfies this via a small adapter;
// see cmd/readfilter-scan.
type HeaderResolver interface {
	RefLength(name string) (length int, ok bool)
	// RefID returns the same numeric reference ID a Read built from this
	// header would report via RefID()/MateRefID(), so a RegionFilter's
	// genomeindex.Index can be built once at load time and then probed
	// per-read with no further name lookups.
	RefID(name string) (id int, ok bool)
}
