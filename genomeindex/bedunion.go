package genomeindex

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/sam"
	"github.com/klauspost/compress/gzip"
)

// PosType is a 0-based genomic coordinate. int32 is wide enough for any
// chromosome BAM/SAM can represent.
type PosType int32

// PosTypeMax is the largest value a PosType can hold.
const PosTypeMax = math.MaxInt32

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved. Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// NewBEDOpts defines behavior of this package's BED-loading functions.
type NewBEDOpts struct {
	// SAMHeader enables ID-based lookup in addition to name-based lookup.
	SAMHeader *sam.Header
	// Invert causes the complement of the interval-union to be returned.
	// The complement extends down to position -1 at the beginning of each
	// chromosome, and up to PosTypeMax-1 inclusive at the end. If SAMHeader
	// is provided, any chromosome mentioned in the header but entirely
	// absent from the BED is fully included.
	Invert bool
	// OneBasedInput interprets the BED interval boundaries as one-based
	// [start, end] instead of the usual zero-based [start, end).
	OneBasedInput bool
}

// searchPosType returns the index of x in a[], or the position where x would
// be inserted if x isn't present.
func searchPosType(a []PosType, x PosType) int {
	return sort.Search(len(a), func(i int) bool { return a[i] >= x })
}

// fwdsearchPosType checks a[idx], then a[idx+1], then a[idx+3], a[idx+7],
// etc., finishing with binary search. Usually a better choice than
// searchPosType when iterating in increasing-position order.
func fwdsearchPosType(a []PosType, x PosType, idx int) int {
	nextIncr := 1
	startIdx := idx
	endIdx := len(a)
	for idx < endIdx {
		if a[idx] >= x {
			endIdx = idx
			break
		}
		startIdx = idx + 1
		idx += nextIncr
		nextIncr *= 2
	}
	for startIdx < endIdx {
		midIdx := int(uint(startIdx+endIdx) >> 1)
		if a[midIdx] >= x {
			endIdx = midIdx
		} else {
			startIdx = midIdx + 1
		}
	}
	return startIdx
}

// BEDUnion is implemented as a collection of length-2N sequences, where N is
// the number of intervals: the (0-based) start position of interval #k is in
// element [2k] and the end position is in element [2k+1], with intervals
// stored in increasing order. This representation gives simple inversion
// code and reuses standard binary-search-style algorithms over []PosType.
type BEDUnion struct {
	// nameMap is a chromosome-keyed map with disjoint-interval-set values.
	nameMap map[string][]PosType
	// idMap is an optional slice of disjoint-interval-sets, indexed by
	// sam.Header reference ID; populated only when NewBEDOpts.SAMHeader was
	// set at construction.
	idMap [][]PosType

	lastChrIntervals []PosType
	lastChrName      string
	lastChrID        int
	lastPosPlus1     PosType
	lastIdx          int
	isSequential     bool
}

// ContainsByID checks whether the (0-based) interval [pos, pos+1) is
// contained within the BEDUnion, where chromosome is specified by
// sam.Header reference ID.
func (u *BEDUnion) ContainsByID(chrID int, pos PosType) bool {
	posPlus1 := pos + 1
	if chrID != u.lastChrID {
		u.lastChrID = chrID
		u.lastChrName = ""
		u.lastChrIntervals = u.idMap[chrID]
		if u.lastChrIntervals == nil {
			return false
		}
		u.lastIdx = searchPosType(u.lastChrIntervals, posPlus1)
		u.lastPosPlus1 = posPlus1
		u.isSequential = true
		return u.lastIdx&1 == 1
	}
	if u.lastChrIntervals == nil {
		return false
	}
	if u.isSequential {
		if posPlus1 >= u.lastPosPlus1 {
			u.lastIdx = fwdsearchPosType(u.lastChrIntervals, posPlus1, u.lastIdx)
			u.lastPosPlus1 = posPlus1
			return u.lastIdx&1 == 1
		}
		u.isSequential = false
	}
	return searchPosType(u.lastChrIntervals, posPlus1)&1 == 1
}

// ContainsByName checks whether the (0-based) interval [pos, pos+1) is
// contained within the BEDUnion, where chromosome is specified by name.
func (u *BEDUnion) ContainsByName(chrName string, pos PosType) bool {
	posPlus1 := pos + 1
	if chrName != u.lastChrName {
		u.lastChrName = chrName
		u.lastChrID = -1
		u.lastChrIntervals = u.nameMap[chrName]
		if u.lastChrIntervals == nil {
			return false
		}
		u.lastIdx = searchPosType(u.lastChrIntervals, posPlus1)
		u.lastPosPlus1 = posPlus1
		u.isSequential = true
		return u.lastIdx&1 == 1
	}
	if u.lastChrIntervals == nil {
		return false
	}
	if u.isSequential {
		if posPlus1 >= u.lastPosPlus1 {
			u.lastIdx = fwdsearchPosType(u.lastChrIntervals, posPlus1, u.lastIdx)
			u.lastPosPlus1 = posPlus1
			return u.lastIdx&1 == 1
		}
		u.isSequential = false
	}
	return searchPosType(u.lastChrIntervals, posPlus1)&1 == 1
}

// Intersects checks whether the contiguous, possibly multi-chromosome
// region [startRefID:startPos, limitRefID:limitPos) intersects the interval
// set. Chromosomes are specified by ID. Panics if the limit isn't after the
// start.
func (u *BEDUnion) Intersects(startRefID int, startPos PosType, limitRefID int, limitPos PosType) bool {
	if startRefID > limitRefID {
		panic("genomeindex: BEDUnion.Intersects requires startRefID <= limitRefID")
	}
	if startChrIntervals := u.idMap[startRefID]; startChrIntervals != nil {
		idxStart := searchPosType(startChrIntervals, startPos+1)
		if startRefID < limitRefID {
			if idxStart < len(startChrIntervals) {
				return true
			}
		} else {
			if limitPos <= startPos {
				panic("genomeindex: BEDUnion.Intersects requires limitPos > startPos when startRefID == limitRefID")
			}
			if idxStart&1 == 1 {
				return true
			}
			return (idxStart != len(startChrIntervals)) && (limitPos > startChrIntervals[idxStart])
		}
	}
	if startRefID == limitRefID {
		return false
	}
	for refID := startRefID + 1; refID < limitRefID; refID++ {
		if u.idMap[refID] != nil {
			return true
		}
	}
	if limitChrIntervals := u.idMap[limitRefID]; limitChrIntervals != nil {
		return limitChrIntervals[0] < limitPos
	}
	return false
}

func initBEDUnion() (bedUnion BEDUnion) {
	bedUnion.nameMap = make(map[string][]PosType)
	bedUnion.lastChrName = ""
	bedUnion.lastChrID = -1
	return
}

func (u *BEDUnion) nameToIDData(header *sam.Header, invert bool) {
	samRefs := header.Refs()
	nRef := len(samRefs)
	u.idMap = make([][]PosType, nRef)
	for refID, ref := range samRefs {
		if refID != ref.ID() {
			panic("genomeindex: internal error: sam.header ref.ID != array position")
		}
		refName := ref.Name()
		chrIntervals := u.nameMap[refName]
		if chrIntervals != nil {
			u.idMap[refID] = chrIntervals
		} else if invert {
			u.idMap[refID] = []PosType{-1, PosTypeMax}
		}
	}
}

func scanBEDUnion(scanner *bufio.Scanner, opts NewBEDOpts) (bedUnion BEDUnion, err error) {
	bedUnion = initBEDUnion()

	var startSubtract int
	if opts.OneBasedInput {
		startSubtract++
	}

	var tokens [3][]byte

	lineIdx := 0
	prevChr := ""
	totBases := 0
	var prevStart, prevEnd PosType
	var chrIntervals []PosType
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		nToken := getTokens(tokens[:], curLine)
		if nToken != 3 {
			if nToken == 0 {
				continue
			}
			err = fmt.Errorf("genomeindex.scanBEDUnion: line %d has fewer tokens than expected", lineIdx)
			return
		}

		curChr := tokens[0]
		var parsedStart int
		if parsedStart, err = strconv.Atoi(gunsafe.BytesToString(tokens[1])); err != nil {
			return
		}
		parsedStart -= startSubtract
		if parsedStart < 0 {
			err = fmt.Errorf("genomeindex.scanBEDUnion: negative start coordinate %v on line %d", tokens[1], lineIdx)
			return
		}
		start := PosType(parsedStart)

		var parsedEnd int
		if parsedEnd, err = strconv.Atoi(gunsafe.BytesToString(tokens[2])); err != nil {
			return
		}
		if (parsedEnd < parsedStart) || (parsedEnd >= PosTypeMax) {
			err = fmt.Errorf("genomeindex.scanBEDUnion: invalid coordinate pair on line %d", lineIdx)
			return
		}
		end := PosType(parsedEnd)
		if prevChr != gunsafe.BytesToString(curChr) {
			if prevChr != "" {
				if prevEnd != -1 {
					chrIntervals = append(chrIntervals, prevStart, prevEnd)
				}
				if opts.Invert {
					chrIntervals = append(chrIntervals, PosTypeMax)
				}
				bedUnion.nameMap[prevChr] = chrIntervals
			}
			prevChr = string(curChr)
			if _, found := bedUnion.nameMap[prevChr]; found {
				err = fmt.Errorf("genomeindex.scanBEDUnion: unsorted input (split chromosome %v)", curChr)
				return
			}
			chrIntervals = []PosType{}
			if opts.Invert {
				chrIntervals = append(chrIntervals, -1)
			}
			if end == start {
				prevStart = -1
				prevEnd = -1
			} else {
				prevStart = start
				prevEnd = end
			}
			totBases += int(end - start)
			continue
		}
		if end == start {
			continue
		}
		if start > prevEnd {
			chrIntervals = append(chrIntervals, prevStart, prevEnd)
			prevStart = start
			prevEnd = end
			totBases += int(end - start)
		} else {
			if start < prevStart {
				err = fmt.Errorf("genomeindex.scanBEDUnion: unsorted input")
				return
			}
			if end > prevEnd {
				totBases += int(end - prevEnd)
				prevEnd = end
			}
		}
	}
	if err = scanner.Err(); err != nil {
		return
	}
	log.Printf("BED loaded, %d base(s) covered.\n", totBases)
	if prevChr != "" {
		chrIntervals = append(chrIntervals, prevStart, prevEnd)
		if opts.Invert {
			chrIntervals = append(chrIntervals, PosTypeMax)
		}
		bedUnion.nameMap[prevChr] = chrIntervals
	}
	return
}

// NewBEDUnion loads just the intervals from a sorted (by first coordinate)
// interval-BED, merging touching/overlapping intervals and eliminating
// empty ones in the process.
func NewBEDUnion(reader io.Reader, opts NewBEDOpts) (bedUnion BEDUnion, err error) {
	scanner := bufio.NewScanner(reader)

	if bedUnion, err = scanBEDUnion(scanner, opts); err != nil {
		return
	}
	if opts.SAMHeader != nil {
		bedUnion.nameToIDData(opts.SAMHeader, opts.Invert)
	}
	return
}

// NewBEDUnionFromPath wraps NewBEDUnion, taking a path instead of an
// io.Reader. The path is resolved through grailbio/base/file, which is
// transparent to local paths as well as remote schemes such as s3://, and
// gzip-compressed input is detected and decompressed automatically.
func NewBEDUnionFromPath(path string, opts NewBEDOpts) (bedUnion BEDUnion, err error) {
	ctx := vcontext.Background()
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return NewBEDUnion(reader, opts)
}

// BEDEntry represents a single interval, with 0-based coordinates.
type BEDEntry struct {
	ChrName string
	Start0  PosType
	End     PosType
}

// NewBEDUnionFromEntries initializes a BEDUnion from a sorted []BEDEntry.
// This ignores opts.OneBasedInput, since Start0 is defined to be zero-based.
func NewBEDUnionFromEntries(entries []BEDEntry, opts NewBEDOpts) (bedUnion BEDUnion, err error) {
	bedUnion = initBEDUnion()
	prevChr := ""
	var prevStart, prevEnd PosType
	var chrIntervals []PosType
	for _, entry := range entries {
		curChr := entry.ChrName
		if entry.Start0 < 0 {
			err = fmt.Errorf("genomeindex.NewBEDUnionFromEntries: negative start coordinate")
			return
		}
		if (entry.End < entry.Start0) || (entry.End >= PosTypeMax) {
			err = fmt.Errorf("genomeindex.NewBEDUnionFromEntries: invalid coordinate pair [%d, %d)", entry.Start0, entry.End)
			return
		}
		if prevChr != curChr {
			if prevChr != "" {
				if prevEnd != -1 {
					chrIntervals = append(chrIntervals, prevStart, prevEnd)
				}
				if opts.Invert {
					chrIntervals = append(chrIntervals, PosTypeMax)
				}
				bedUnion.nameMap[prevChr] = chrIntervals
			}
			prevChr = curChr
			if _, found := bedUnion.nameMap[prevChr]; found {
				err = fmt.Errorf("genomeindex.NewBEDUnionFromEntries: unsorted input (split chromosome %v)", curChr)
				return
			}
			chrIntervals = []PosType{}
			if opts.Invert {
				chrIntervals = append(chrIntervals, -1)
			}
			if entry.End == entry.Start0 {
				prevStart = -1
				prevEnd = -1
				continue
			}
			prevStart = entry.Start0
			prevEnd = entry.End
			continue
		}
		if entry.End == entry.Start0 {
			continue
		}
		if entry.Start0 > prevEnd {
			if prevEnd != -1 {
				chrIntervals = append(chrIntervals, prevStart, prevEnd)
			}
			prevStart = entry.Start0
			prevEnd = entry.End
		} else {
			if entry.Start0 < prevStart {
				err = fmt.Errorf("genomeindex.NewBEDUnionFromEntries: unsorted input")
				return
			}
			if entry.End > prevEnd {
				prevEnd = entry.End
			}
		}
	}
	if prevChr != "" {
		if prevEnd != -1 {
			chrIntervals = append(chrIntervals, prevStart, prevEnd)
		}
		if opts.Invert {
			chrIntervals = append(chrIntervals, PosTypeMax)
		}
		bedUnion.nameMap[prevChr] = chrIntervals
	}
	if opts.SAMHeader != nil {
		bedUnion.nameToIDData(opts.SAMHeader, opts.Invert)
	}
	return
}

// Entries returns the union's intervals as a []BEDEntry sorted by
// chromosome name, then start. Used by region-string resolution, the
// engine's SendToBED side output, and MergeBEDUnions.
func (u BEDUnion) Entries() []BEDEntry {
	var out []BEDEntry
	for chrName, ivls := range u.nameMap {
		for i := 0; i+1 < len(ivls); i += 2 {
			start, end := ivls[i], ivls[i+1]
			if start < 0 {
				start = 0
			}
			if end <= start {
				continue
			}
			out = append(out, BEDEntry{ChrName: chrName, Start0: start, End: end})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChrName != out[j].ChrName {
			return out[i].ChrName < out[j].ChrName
		}
		return out[i].Start0 < out[j].Start0
	})
	return out
}

// WriteBED writes the union's intervals to w in sorted BED format
// (tab-separated chrom, 0-based start, end).
func (u BEDUnion) WriteBED(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, e := range u.Entries() {
		if _, err := fmt.Fprintf(bw, "%s\t%d\t%d\n", e.ChrName, e.Start0, e.End); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// MergeBEDUnions returns the union (in the set-union sense) of the interval
// sets of all the given BEDUnions, merging overlapping/touching intervals
// across inputs. Used to implement FilterCollection.SendToBED, which
// reports the coverage of every configured region collapsed into one
// non-overlapping interval set.
func MergeBEDUnions(unions ...BEDUnion) (BEDUnion, error) {
	var all []BEDEntry
	for _, u := range unions {
		all = append(all, u.Entries()...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].ChrName != all[j].ChrName {
			return all[i].ChrName < all[j].ChrName
		}
		return all[i].Start0 < all[j].Start0
	})
	return NewBEDUnionFromEntries(all, NewBEDOpts{})
}

// Clone returns a new BEDUnion which shares the interval set, but has its
// own search state, so it can be queried concurrently from multiple
// goroutines without racing on the lastXxx cursor fields.
func (u *BEDUnion) Clone() (bedUnion BEDUnion) {
	bedUnion.nameMap = u.nameMap
	bedUnion.idMap = u.idMap
	bedUnion.lastChrIntervals = nil
	bedUnion.lastChrName = ""
	bedUnion.lastChrID = -1
	return
}
