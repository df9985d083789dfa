package readfilter

import (
	"strconv"

	"github.com/grailbio/hts/sam"
)

// nt16ToByte is the SAM/BAM 4-bit base encoding table (seq_nt16_str),
// used to expand a *sam.Record's doublet-packed Seq.Seq into one byte per
// base, the way pileup/snp's convertSamr unpacks samr.Seq.Seq before any
// per-base work.
var nt16ToByte = [16]byte{'=', 'A', 'C', 'M', 'G', 'R', 'S', 'V', 'T', 'W', 'Y', 'H', 'K', 'D', 'B', 'N'}

func expandSeq(packed []sam.Doublet, length int) []byte {
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		b := byte(packed[i/2])
		var nibble byte
		if i%2 == 0 {
			nibble = b >> 4
		} else {
			nibble = b & 0xf
		}
		out[i] = nt16ToByte[nibble]
	}
	return out
}

var rgTag = sam.Tag{'R', 'G'}

// SAMRecord adapts a *sam.Record to the Read interface, grounded on
// cmd/bio-pamtool/cmd/filter.go's field map (Ref.Name/ID, Pos, MateRef,
// MatePos, Seq.Length, MapQ, TempLen, Flags) and on markduplicates/
// helpers.go's AuxFields.Get/sam.NewAux tag idiom.
type SAMRecord struct {
	rec *sam.Record
	// seq caches the expanded (1 byte per base) sequence; expanded lazily
	// since most rules never inspect bases.
	seq []byte
}

// NewSAMRecord wraps rec for use with FilterCollection.Classify.
func NewSAMRecord(rec *sam.Record) *SAMRecord {
	return &SAMRecord{rec: rec}
}

// Record returns the underlying *sam.Record.
func (s *SAMRecord) Record() *sam.Record { return s.rec }

func (s *SAMRecord) RefID() int {
	if s.rec.Ref == nil {
		return -1
	}
	return s.rec.Ref.ID()
}

func (s *SAMRecord) Pos() int { return s.rec.Pos }

func (s *SAMRecord) End() int { return s.rec.End() }

func (s *SAMRecord) MateRefID() int {
	if s.rec.MateRef == nil {
		return -1
	}
	return s.rec.MateRef.ID()
}

func (s *SAMRecord) MatePos() int { return s.rec.MatePos }

func (s *SAMRecord) Len() int { return s.rec.Seq.Length }

func (s *SAMRecord) TemplateLen() int { return s.rec.TempLen }

func (s *SAMRecord) Flags() uint16 { return uint16(s.rec.Flags) }

func (s *SAMRecord) MapQ() int { return int(s.rec.MapQ) }

func (s *SAMRecord) cigarRuns() (maxIns, maxDel, hardClips, clips, ops int) {
	ops = len(s.rec.Cigar)
	for _, op := range s.rec.Cigar {
		n := op.Len()
		switch op.Type() {
		case sam.CigarInsertion:
			if n > maxIns {
				maxIns = n
			}
		case sam.CigarDeletion:
			if n > maxDel {
				maxDel = n
			}
		case sam.CigarHardClipped:
			hardClips += n
			clips += n
		case sam.CigarSoftClipped:
			clips += n
		}
	}
	return
}

func (s *SAMRecord) CigarMaxInsertionRun() int { maxIns, _, _, _, _ := s.cigarRuns(); return maxIns }

func (s *SAMRecord) CigarMaxDeletionRun() int { _, maxDel, _, _, _ := s.cigarRuns(); return maxDel }

func (s *SAMRecord) CigarHardClipCount() int { _, _, hc, _, _ := s.cigarRuns(); return hc }

func (s *SAMRecord) CigarClipCount() int { _, _, _, clips, _ := s.cigarRuns(); return clips }

func (s *SAMRecord) CigarOpCount() int { return len(s.rec.Cigar) }

func (s *SAMRecord) expandedSeq() []byte {
	if s.seq == nil && s.rec.Seq.Length > 0 {
		s.seq = expandSeq(s.rec.Seq.Seq, s.rec.Seq.Length)
	}
	return s.seq
}

func (s *SAMRecord) Seq() []byte { return s.expandedSeq() }

func (s *SAMRecord) NumN() int {
	seq := s.expandedSeq()
	n := 0
	for _, b := range seq {
		if b == 'N' || b == 'n' {
			n++
		}
	}
	return n
}

func (s *SAMRecord) Qual() []byte { return s.rec.Qual }

// QualTrim computes the half-open [start, end) window left after trimming
// from both ends while quality is below minQual, the way the original
// implementation's call site treats startpoint as a genuine out-parameter
// rather than always zero. Returns (0, -1) if every base is below minQual.
func (s *SAMRecord) QualTrim(minQual byte) (start, end int) {
	qual := s.rec.Qual
	n := len(qual)
	if n == 0 {
		return 0, -1
	}
	for start < n && qual[start] < minQual {
		start++
	}
	end = n
	for end > start && qual[end-1] < minQual {
		end--
	}
	if start >= end {
		return 0, -1
	}
	return start, end
}

func (s *SAMRecord) Name() string { return s.rec.Name }

func (s *SAMRecord) Tag(name string) (int, bool) {
	aux := s.rec.AuxFields.Get(sam.NewTag(name))
	if aux == nil {
		return 0, false
	}
	switch v := aux.Value().(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func (s *SAMRecord) SetTag(name string, value string) {
	tag := sam.NewTag(name)
	aux, err := sam.NewAux(tag, value)
	if err != nil {
		return
	}
	if existing := s.rec.AuxFields.Get(tag); existing != nil {
		for i, f := range s.rec.AuxFields {
			if f.Tag() == tag {
				s.rec.AuxFields[i] = aux
				break
			}
		}
		return
	}
	s.rec.AuxFields = append(s.rec.AuxFields, aux)
}

func (s *SAMRecord) ReadGroup() (string, bool) {
	aux := s.rec.AuxFields.Get(rgTag)
	if aux == nil {
		return "", false
	}
	v, ok := aux.Value().(string)
	return v, ok
}

func (s *SAMRecord) PairContext() PairContext {
	flags := s.rec.Flags
	return PairContext{
		Paired:      flags&sam.Paired != 0,
		Mapped:      flags&sam.Unmapped == 0,
		MateMapped:  flags&sam.MateUnmapped == 0,
		SameChrom:   s.rec.Ref != nil && s.rec.MateRef != nil && s.rec.Ref.ID() == s.rec.MateRef.ID(),
		Reverse:     flags&sam.Reverse != 0,
		MateReverse: flags&sam.MateReverse != 0,
		Pos:         s.rec.Pos,
		MatePos:     s.rec.MatePos,
	}
}

var _ Read = (*SAMRecord)(nil)
