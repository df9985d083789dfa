package readfilter

// FlagBit is a tri-state bit predicate: inactive (NA), or requiring the
// corresponding read property to be on or off.
type FlagBit int8

const (
	FlagNA  FlagBit = iota // predicate inactive
	FlagOn                 // require the bit/property to be set
	FlagOff                // require the bit/property to be clear
)

// String renders a FlagBit for diagnostics, in the spirit of
// sam.Flags.String()'s compact per-bit rendering.
func (b FlagBit) String() string {
	switch b {
	case FlagOn:
		return "on"
	case FlagOff:
		return "off"
	default:
		return "na"
	}
}

// Test reports whether observed satisfies the FlagBit: true when the bit
// is NA (inactive) or when observed matches the required state.
func (b FlagBit) Test(observed bool) bool {
	switch b {
	case FlagOn:
		return observed
	case FlagOff:
		return !observed
	default:
		return true
	}
}

// ParseFlagBit interprets a JSON bool as a FlagBit: true -> FlagOn,
// false -> FlagOff. Absence of the key (not represented here) leaves a
// FlagBit at its zero value, FlagNA.
func ParseFlagBit(v bool) FlagBit {
	if v {
		return FlagOn
	}
	return FlagOff
}

// PairOrientation classifies a mapped read pair's relative strand
// arrangement. IC (inter-chromosomal) applies whenever the mate maps to a
// different reference; otherwise the pair is classified by comparing the
// strand of whichever mate is more 5' (leftmost) against the other.
type PairOrientation int8

const (
	OrientationFF PairOrientation = iota
	OrientationFR
	OrientationRF
	OrientationRR
	OrientationIC
)

// PairContext carries just enough information about a read and its mate to
// compute FlagRule's orientation and pair-mapped predicates, kept separate
// from the full Read interface so orientation logic is testable in
// isolation (grounded on how cmd/bio-pamtool/cmd/filter.go isolates
// individual flag-bit tests as small pure functions over rec.Flags).
type PairContext struct {
	Paired        bool
	Mapped        bool
	MateMapped    bool
	SameChrom     bool
	Reverse       bool
	MateReverse   bool
	Pos, MatePos  int
}

// PairMapped reports whether both ends of the pair are mapped.
func (p PairContext) PairMapped() bool {
	return p.Paired && p.Mapped && p.MateMapped
}

// Orientation computes the pair's PairOrientation. Callers must only call
// this when PairMapped() is true.
func (p PairContext) Orientation() PairOrientation {
	if !p.SameChrom {
		return OrientationIC
	}
	leftReverse, rightReverse := p.Reverse, p.MateReverse
	if p.Pos > p.MatePos {
		leftReverse, rightReverse = p.MateReverse, p.Reverse
	}
	switch {
	case !leftReverse && !rightReverse:
		return OrientationFF
	case !leftReverse && rightReverse:
		return OrientationFR
	case leftReverse && !rightReverse:
		return OrientationRF
	default:
		return OrientationRR
	}
}

// FlagRule is a composite predicate over bit flags, pair orientation, and
// raw on/off masks.
type FlagRule struct {
	Duplicate, Supplementary, QCFail, HardClip FlagBit
	FwdStrand, MateFwd, MateRev                FlagBit
	Mapped, MateMapped, PairedFlag             FlagBit
	FF, FR, RF, RR, IC                         FlagBit
	OnMask, OffMask                            uint16
}

// EveryFlagRule is the inactive FlagRule: it accepts every read.
var EveryFlagRule = FlagRule{}

// Every reports whether the rule has no active bit or mask and therefore
// accepts unconditionally.
func (f FlagRule) Every() bool {
	if f.OnMask != 0 || f.OffMask != 0 {
		return false
	}
	bits := []FlagBit{
		f.Duplicate, f.Supplementary, f.QCFail, f.HardClip,
		f.FwdStrand, f.MateFwd, f.MateRev,
		f.Mapped, f.MateMapped, f.PairedFlag,
		f.FF, f.FR, f.RF, f.RR, f.IC,
	}
	for _, b := range bits {
		if b != FlagNA {
			return false
		}
	}
	return true
}

// hasOrientationBit reports whether any of the five orientation bits is
// active.
func (f FlagRule) hasOrientationBit() bool {
	return f.FF != FlagNA || f.FR != FlagNA || f.RF != FlagNA || f.RR != FlagNA || f.IC != FlagNA
}

// Test implements the FlagRule decision procedure from spec §4.2.
//
// hasHardClip reflects the record's CIGAR, not a FLAG bit (hard-clipping
// isn't one); it's only meaningful, and only tested, when cigarOpCount > 1
// (single-op alignments are treated as non-hard-clipped regardless, per
// spec's preserved quirk).
func (f FlagRule) Test(flags uint16, hasHardClip bool, cigarOpCount int, pair PairContext) bool {
	if f.Every() {
		return true
	}
	if f.OnMask != 0 && flags&f.OnMask == 0 {
		return false
	}
	if f.OffMask != 0 && flags&f.OffMask != 0 {
		return false
	}
	if !f.Duplicate.Test(flags&flagDuplicate != 0) {
		return false
	}
	if !f.Supplementary.Test(flags&flagSupplementary != 0) {
		return false
	}
	if !f.QCFail.Test(flags&flagQCFail != 0) {
		return false
	}
	if cigarOpCount > 1 {
		if !f.HardClip.Test(hasHardClip) {
			return false
		}
	}
	if !f.FwdStrand.Test(flags&flagReverse == 0) {
		return false
	}
	if !f.MateFwd.Test(flags&flagMateReverse == 0) {
		return false
	}
	if !f.MateRev.Test(flags&flagMateReverse != 0) {
		return false
	}
	if !f.Mapped.Test(flags&flagUnmapped == 0) {
		return false
	}
	if !f.MateMapped.Test(flags&flagMateUnmapped == 0) {
		return false
	}
	if !f.PairedFlag.Test(flags&flagPaired != 0) {
		return false
	}
	if f.hasOrientationBit() {
		if !pair.PairMapped() {
			return false
		}
		orient := pair.Orientation()
		if orient == OrientationIC {
			// Inter-chromosomal reads only evaluate the IC bit; the
			// FF/FR/RF/RR bits are skipped even when active.
			if !f.IC.Test(true) {
				return false
			}
		} else {
			for bit, want := range map[PairOrientation]FlagBit{
				OrientationFF: f.FF,
				OrientationFR: f.FR,
				OrientationRF: f.RF,
				OrientationRR: f.RR,
			} {
				if want == FlagNA {
					continue
				}
				matches := orient == bit
				if matches && want == FlagOff {
					return false
				}
				if !matches && want == FlagOn {
					return false
				}
			}
			// The read is intra-chromosomal, i.e. its orientation differs
			// from IC; requiring IC (On) therefore fails.
			if f.IC == FlagOn {
				return false
			}
		}
	}
	return true
}

// These mirror github.com/grailbio/hts/sam's Flags bit constants; FlagRule.Test
// takes a plain uint16 (Read.Flags()) rather than sam.Flags so the
// classification code depends only on the Read interface (see
// HeaderResolver / Read in read.go); samrecord.go is the one file in this
// package that imports grailbio/hts.
const (
	flagPaired        uint16 = 1 << 0
	flagUnmapped       uint16 = 1 << 2
	flagMateUnmapped   uint16 = 1 << 3
	flagReverse        uint16 = 1 << 4
	flagMateReverse    uint16 = 1 << 5
	flagQCFail         uint16 = 1 << 9
	flagDuplicate      uint16 = 1 << 10
	flagSupplementary  uint16 = 1 << 11
)
