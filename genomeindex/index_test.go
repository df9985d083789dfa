package genomeindex

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestIndexAnyOverlap(t *testing.T) {
	x := NewIndex()
	x.Insert("chr1", 100, 200, 0)
	x.Insert("chr1", 500, 600, 0)
	x.Insert("chr2", 10, 20, 0)

	expect.True(t, x.AnyOverlap("chr1", 150, 160))
	expect.True(t, x.AnyOverlap("chr1", 190, 210))
	expect.False(t, x.AnyOverlap("chr1", 300, 400))
	expect.True(t, x.AnyOverlap("chr2", 0, 15))
	expect.False(t, x.AnyOverlap("chr3", 0, 100))
}

func TestIndexPad(t *testing.T) {
	x := NewIndex()
	x.Insert("1", 100, 200, 10)

	expect.False(t, x.AnyOverlap("1", 80, 90))
	expect.True(t, x.AnyOverlap("1", 85, 95))
	expect.True(t, x.AnyOverlap("1", 205, 215))
	expect.False(t, x.AnyOverlap("1", 211, 220))
}

func TestIndexPadClampsAtZero(t *testing.T) {
	x := NewIndex()
	x.Insert("1", 5, 10, 100)
	expect.True(t, x.AnyOverlap("1", 0, 1))
}

func TestIndexEmpty(t *testing.T) {
	x := NewIndex()
	expect.True(t, x.Empty())
	x.Insert("1", 0, 10, 0)
	expect.False(t, x.Empty())
}
