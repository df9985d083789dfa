package readfilter

import (
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/expect"
)

func newTestRef(t *testing.T, name string, length int) *sam.Reference {
	h, err := sam.NewHeader(nil, []*sam.Reference{})
	expect.NoError(t, err)
	ref, err := sam.NewReference(name, "", "", length, nil, nil)
	expect.NoError(t, err)
	expect.NoError(t, h.AddReference(ref))
	return ref
}

func newTestRecord(t *testing.T, seq, qual string, flags sam.Flags, mapq byte, cigar sam.Cigar) *sam.Record {
	ref := newTestRef(t, "chr1", 1000)
	r := &sam.Record{
		Name:  "read1",
		Ref:   ref,
		Pos:   100,
		MapQ:  mapq,
		Flags: flags,
		Cigar: cigar,
	}
	if seq != "" {
		r.Seq = sam.NewSeq([]byte(seq))
		r.Qual = []byte(qual)
	}
	return r
}

func TestSAMRecordBasicFields(t *testing.T) {
	r := newTestRecord(t, "ACGTN", "+++++", sam.Paired|sam.Reverse, 42, nil)
	sr := NewSAMRecord(r)

	expect.EQ(t, 0, sr.RefID())
	expect.EQ(t, 100, sr.Pos())
	expect.EQ(t, 42, sr.MapQ())
	expect.EQ(t, 5, sr.Len())
	expect.EQ(t, "read1", sr.Name())
	expect.EQ(t, "ACGTN", string(sr.Seq()))
	expect.EQ(t, 1, sr.NumN())
	expect.EQ(t, uint16(sam.Paired|sam.Reverse), sr.Flags())
}

func TestSAMRecordCigarStats(t *testing.T) {
	op := func(t sam.CigarOpType, n int) sam.CigarOp { return sam.CigarOp(n)<<4 | sam.CigarOp(t) }
	cigar := sam.Cigar{
		op(sam.CigarSoftClipped, 3),
		op(sam.CigarMatch, 10),
		op(sam.CigarInsertion, 2),
		op(sam.CigarMatch, 5),
		op(sam.CigarDeletion, 4),
		op(sam.CigarHardClipped, 1),
	}
	r := newTestRecord(t, "", "", 0, 60, cigar)
	sr := NewSAMRecord(r)

	expect.EQ(t, 2, sr.CigarMaxInsertionRun())
	expect.EQ(t, 4, sr.CigarMaxDeletionRun())
	expect.EQ(t, 1, sr.CigarHardClipCount())
	expect.EQ(t, 4, sr.CigarClipCount())
	expect.EQ(t, 6, sr.CigarOpCount())
}

func TestSAMRecordTagRoundTrip(t *testing.T) {
	r := newTestRecord(t, "ACGT", "++++", 0, 60, nil)
	sr := NewSAMRecord(r)

	_, ok := sr.Tag("NM")
	expect.False(t, ok)

	aux, err := sam.NewAux(sam.NewTag("NM"), 3)
	expect.NoError(t, err)
	r.AuxFields = append(r.AuxFields, aux)
	v, ok := sr.Tag("NM")
	expect.True(t, ok)
	expect.EQ(t, 3, v)

	sr.SetTag("GV", "ACGT")
	aux2 := r.AuxFields.Get(sam.NewTag("GV"))
	expect.NotNil(t, aux2)
	expect.EQ(t, "ACGT", aux2.Value().(string))
}

func TestSAMRecordReadGroup(t *testing.T) {
	r := newTestRecord(t, "ACGT", "++++", 0, 60, nil)
	sr := NewSAMRecord(r)
	_, ok := sr.ReadGroup()
	expect.False(t, ok)

	aux, err := sam.NewAux(sam.NewTag("RG"), "RG1")
	expect.NoError(t, err)
	r.AuxFields = append(r.AuxFields, aux)
	rg, ok := sr.ReadGroup()
	expect.True(t, ok)
	expect.EQ(t, "RG1", rg)
}

func TestSAMRecordQualTrim(t *testing.T) {
	// Raw phred scores (not ASCII-offset): high quality through position 6,
	// then a low-quality 3' tail that a minQual=20 trim should clip off.
	r := newTestRecord(t, "ACGTACGTAC", "", 0, 60, nil)
	r.Qual = []byte{30, 30, 30, 30, 30, 30, 2, 2, 2, 2}
	sr := NewSAMRecord(r)
	start, end := sr.QualTrim(20)
	expect.EQ(t, 0, start)
	expect.EQ(t, 6, end)
}

func TestSAMRecordQualTrim5PrimeHead(t *testing.T) {
	// Low-quality 5' head, high quality through the rest; a two-sided trim
	// must clip the head, not just the tail.
	r := newTestRecord(t, "ACGTACGTAC", "", 0, 60, nil)
	r.Qual = []byte{2, 2, 2, 30, 30, 30, 30, 30, 30, 30}
	sr := NewSAMRecord(r)
	start, end := sr.QualTrim(20)
	expect.EQ(t, 3, start)
	expect.EQ(t, 10, end)
}

func TestSAMRecordQualTrimBothEnds(t *testing.T) {
	r := newTestRecord(t, "ACGTACGTAC", "", 0, 60, nil)
	r.Qual = []byte{2, 2, 30, 30, 30, 30, 2, 2, 2, 2}
	sr := NewSAMRecord(r)
	start, end := sr.QualTrim(20)
	expect.EQ(t, 2, start)
	expect.EQ(t, 6, end)
}

func TestSAMRecordQualTrimAllLowQuality(t *testing.T) {
	r := newTestRecord(t, "ACGTACGTAC", "", 0, 60, nil)
	r.Qual = []byte{2, 2, 2, 2, 2, 2, 2, 2, 2, 2}
	sr := NewSAMRecord(r)
	start, end := sr.QualTrim(20)
	expect.EQ(t, 0, start)
	expect.EQ(t, -1, end)
}

func TestSAMRecordPairContext(t *testing.T) {
	r := newTestRecord(t, "ACGT", "++++", sam.Paired|sam.MateReverse, 60, nil)
	r.MateRef = r.Ref
	sr := NewSAMRecord(r)
	pc := sr.PairContext()
	expect.True(t, pc.Paired)
	expect.True(t, pc.SameChrom)
	expect.True(t, pc.MateReverse)
	expect.False(t, pc.Reverse)
}
