package readfilter

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestFlagBitTest(t *testing.T) {
	expect.True(t, FlagNA.Test(true))
	expect.True(t, FlagNA.Test(false))
	expect.True(t, FlagOn.Test(true))
	expect.False(t, FlagOn.Test(false))
	expect.True(t, FlagOff.Test(false))
	expect.False(t, FlagOff.Test(true))
}

func TestFlagRuleEvery(t *testing.T) {
	expect.True(t, EveryFlagRule.Every())
	r := EveryFlagRule
	r.Duplicate = FlagOff
	expect.False(t, r.Every())
}

func TestFlagRuleEveryAcceptsAll(t *testing.T) {
	expect.True(t, EveryFlagRule.Test(0xFFFF, true, 3, PairContext{}))
	expect.True(t, EveryFlagRule.Test(0, false, 1, PairContext{}))
}

func TestFlagRuleDuplicate(t *testing.T) {
	r := EveryFlagRule
	r.Duplicate = FlagOff
	expect.True(t, r.Test(0, false, 1, PairContext{}))
	expect.False(t, r.Test(flagDuplicate, false, 1, PairContext{}))
}

func TestFlagRuleHardClipGuard(t *testing.T) {
	r := EveryFlagRule
	r.HardClip = FlagOff
	// Single-op alignment: hardclip bit is never tested, regardless of
	// hasHardClip, per spec's preserved quirk.
	expect.True(t, r.Test(0, true, 1, PairContext{}))
	// Multi-op alignment: hardclip bit is tested.
	expect.False(t, r.Test(0, true, 2, PairContext{}))
	expect.True(t, r.Test(0, false, 2, PairContext{}))
}

func TestFlagRuleMasks(t *testing.T) {
	r := EveryFlagRule
	r.OnMask = flagPaired
	expect.False(t, r.Test(0, false, 1, PairContext{}))
	expect.True(t, r.Test(flagPaired, false, 1, PairContext{}))

	r = EveryFlagRule
	r.OffMask = flagQCFail
	expect.False(t, r.Test(flagQCFail, false, 1, PairContext{}))
	expect.True(t, r.Test(0, false, 1, PairContext{}))
}

func TestPairOrientation(t *testing.T) {
	// Forward read upstream, reverse mate downstream: FR.
	p := PairContext{Paired: true, Mapped: true, MateMapped: true, SameChrom: true,
		Reverse: false, MateReverse: true, Pos: 100, MatePos: 200}
	expect.EQ(t, OrientationFR, p.Orientation())

	// Reverse read upstream, forward mate downstream: RF.
	p = PairContext{Paired: true, Mapped: true, MateMapped: true, SameChrom: true,
		Reverse: true, MateReverse: false, Pos: 100, MatePos: 200}
	expect.EQ(t, OrientationRF, p.Orientation())

	// Both forward: FF.
	p = PairContext{Paired: true, Mapped: true, MateMapped: true, SameChrom: true,
		Reverse: false, MateReverse: false, Pos: 100, MatePos: 200}
	expect.EQ(t, OrientationFF, p.Orientation())

	// Both reverse: RR.
	p = PairContext{Paired: true, Mapped: true, MateMapped: true, SameChrom: true,
		Reverse: true, MateReverse: true, Pos: 100, MatePos: 200}
	expect.EQ(t, OrientationRR, p.Orientation())

	// Different chromosomes: IC.
	p = PairContext{Paired: true, Mapped: true, MateMapped: true, SameChrom: false}
	expect.EQ(t, OrientationIC, p.Orientation())
}

func TestFlagRuleOrientationRequiresPairMapped(t *testing.T) {
	r := EveryFlagRule
	r.FR = FlagOn
	expect.False(t, r.Test(0, false, 1, PairContext{Paired: true, Mapped: true, MateMapped: false}))
}

func TestFlagRuleOrientationBits(t *testing.T) {
	r := EveryFlagRule
	r.FR = FlagOn
	frPair := PairContext{Paired: true, Mapped: true, MateMapped: true, SameChrom: true,
		Reverse: false, MateReverse: true, Pos: 100, MatePos: 200}
	rrPair := PairContext{Paired: true, Mapped: true, MateMapped: true, SameChrom: true,
		Reverse: true, MateReverse: true, Pos: 100, MatePos: 200}
	expect.True(t, r.Test(0, false, 1, frPair))
	expect.False(t, r.Test(0, false, 1, rrPair))

	r = EveryFlagRule
	r.RR = FlagOff
	expect.True(t, r.Test(0, false, 1, frPair))
	expect.False(t, r.Test(0, false, 1, rrPair))

	r = EveryFlagRule
	r.IC = FlagOn
	icPair := PairContext{Paired: true, Mapped: true, MateMapped: true, SameChrom: false}
	expect.True(t, r.Test(0, false, 1, icPair))
	expect.False(t, r.Test(0, false, 1, frPair))
}
