package readfilter

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

// fakeRead is a minimal, fully-controllable Read implementation for
// AbstractRule unit tests.
type fakeRead struct {
	refID, pos, end, mateRefID, matePos int
	length, templateLen                 int
	flags                                uint16
	mapq                                 int
	insRun, delRun, hardClips, clips     int
	cigarOps                             int
	tags                                 map[string]int
	setTags                              map[string]string
	numN                                 int
	seq, qual                            []byte
	trimStart, trimEnd                   int
	name                                 string
	rg                                   string
	rgOK                                 bool
	pair                                 PairContext
}

func (r *fakeRead) RefID() int                    { return r.refID }
func (r *fakeRead) Pos() int                      { return r.pos }
func (r *fakeRead) End() int                      { return r.end }
func (r *fakeRead) MateRefID() int                { return r.mateRefID }
func (r *fakeRead) MatePos() int                  { return r.matePos }
func (r *fakeRead) Len() int                      { return r.length }
func (r *fakeRead) TemplateLen() int              { return r.templateLen }
func (r *fakeRead) Flags() uint16                 { return r.flags }
func (r *fakeRead) MapQ() int                     { return r.mapq }
func (r *fakeRead) CigarMaxInsertionRun() int     { return r.insRun }
func (r *fakeRead) CigarMaxDeletionRun() int      { return r.delRun }
func (r *fakeRead) CigarHardClipCount() int       { return r.hardClips }
func (r *fakeRead) CigarClipCount() int           { return r.clips }
func (r *fakeRead) CigarOpCount() int             { return r.cigarOps }
func (r *fakeRead) NumN() int                      { return r.numN }
func (r *fakeRead) Seq() []byte                   { return r.seq }
func (r *fakeRead) Qual() []byte                  { return r.qual }
func (r *fakeRead) Name() string                  { return r.name }
func (r *fakeRead) PairContext() PairContext      { return r.pair }

func (r *fakeRead) Tag(name string) (int, bool) {
	v, ok := r.tags[name]
	return v, ok
}

func (r *fakeRead) SetTag(name string, value string) {
	if r.setTags == nil {
		r.setTags = make(map[string]string)
	}
	r.setTags[name] = value
}

func (r *fakeRead) QualTrim(minQual byte) (int, int) {
	return r.trimStart, r.trimEnd
}

func (r *fakeRead) ReadGroup() (string, bool) {
	return r.rg, r.rgOK
}

func newFakeRead() *fakeRead {
	return &fakeRead{
		length: 60, cigarOps: 1,
		seq:  []byte("ACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGT"),
		qual: make([]byte, 60),
		name: "read1",
	}
}

func everyRuleTemplate() AbstractRule {
	return EveryAbstractRule
}

func TestAbstractRuleEveryAcceptsAll(t *testing.T) {
	rule := everyRuleTemplate()
	r := newFakeRead()
	expect.True(t, rule.Test(r))
}

// Scenario 1 from spec §8: mapq range [30, 60].
func TestAbstractRuleMapQRange(t *testing.T) {
	rule := everyRuleTemplate()
	rule.MapQ = NewRange(30, 60)

	mk := func(mapq int) *fakeRead {
		r := newFakeRead()
		r.mapq = mapq
		return r
	}
	expect.False(t, rule.Test(mk(29)))
	expect.True(t, rule.Test(mk(30)))
	expect.True(t, rule.Test(mk(60)))
	expect.False(t, rule.Test(mk(61)))
}

// Scenario 2 from spec §8: !duplicate.
func TestAbstractRuleDuplicateFlag(t *testing.T) {
	rule := everyRuleTemplate()
	rule.Flag.Duplicate = FlagOff

	dup := newFakeRead()
	dup.flags = flagDuplicate
	expect.False(t, rule.Test(dup))

	nondup := newFakeRead()
	expect.True(t, rule.Test(nondup))
}

// Scenario 5 from spec §8: phred trim interacts with length.
func TestAbstractRulePhredTrimAffectsLength(t *testing.T) {
	rule := everyRuleTemplate()
	rule.Phred = NewRange(20, 1<<62)
	rule.Len = NewRange(50, 1<<62)

	trimmed := newFakeRead()
	trimmed.trimStart, trimmed.trimEnd = 5, 50 // window of 45 bases
	expect.False(t, rule.Test(trimmed))
	expect.EQ(t, string(trimmed.seq[5:50]), trimmed.setTags["GV"])
	expect.EQ(t, 45, len(trimmed.setTags["GV"]))

	untrimmedRule := everyRuleTemplate()
	untrimmedRule.Len = NewRange(50, 1<<62)
	untrimmed := newFakeRead()
	expect.True(t, untrimmedRule.Test(untrimmed))
}

func TestAbstractRulePhredTrimFailureRejectsAndAnnotates(t *testing.T) {
	rule := everyRuleTemplate()
	rule.Phred = NewRange(20, 1<<62)
	// Phred trimming only runs when a later predicate (here length) needs
	// it; a phred-only rule accepts before trimming.
	rule.Len = NewRange(1, 1<<62)

	r := newFakeRead()
	r.trimStart, r.trimEnd = 0, -1 // trimming consumed everything
	expect.False(t, rule.Test(r))
	expect.EQ(t, string(r.seq), r.setTags["GV"])
}

func TestAbstractRuleClipPrecheckShortCircuits(t *testing.T) {
	rule := everyRuleTemplate()
	rule.Clip = NewRange(0, 5)

	r := newFakeRead()
	r.clips = 10
	expect.False(t, rule.Test(r))
}

func TestAbstractRuleReadGroup(t *testing.T) {
	rule := everyRuleTemplate()
	rule.HasReadGroup = true
	rule.ReadGroup = "RG1"

	match := newFakeRead()
	match.rg, match.rgOK = "RG1", true
	expect.True(t, rule.Test(match))

	mismatch := newFakeRead()
	mismatch.rg, mismatch.rgOK = "RG2", true
	expect.False(t, rule.Test(mismatch))

	empty := newFakeRead()
	empty.rg, empty.rgOK = "", true
	expect.False(t, rule.Test(empty))
}

func TestAbstractRuleMotif(t *testing.T) {
	rule := everyRuleTemplate()
	rule.Motif = stubMatcher(true)

	r := newFakeRead()
	expect.True(t, rule.Test(r))

	rule.MotifInverted = true
	expect.False(t, rule.Test(r))
}

type stubMatcher bool

func (s stubMatcher) Matches(seq []byte) bool { return bool(s) }

// TestSubsampleDeterminism covers spec §8's "subsample determinism"
// universal property and scenario 6.
func TestSubsampleDeterminism(t *testing.T) {
	s := Subsample{Fraction: 0.5, Seed: 42}
	names := make([]string, 10000)
	for i := range names {
		names[i] = "synthetic-read-" + itoa(i)
	}
	accepted := 0
	for _, n := range names {
		v1 := s.Accept(n)
		v2 := s.Accept(n)
		expect.EQ(t, v1, v2)
		if v1 {
			accepted++
		}
	}
	rate := float64(accepted) / float64(len(names))
	expect.True(t, rate >= 0.48 && rate <= 0.52)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
