/*Package motif implements readfilter.MotifMatcher over an Aho-Corasick
  automaton, loading a newline-delimited dictionary of sequence motifs the
  way genomeindex loads a BED file: a scoped file handle, opened, drained,
  and closed before the constructor returns, transparent to gzip
  compression and to any grailbio/base/file-supported remote scheme.
*/
package motif

import (
	"bufio"
	"io"

	"github.com/cloudflare/ahocorasick"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
)

// Matcher wraps an Aho-Corasick automaton built from a fixed dictionary of
// motifs, implementing readfilter.MotifMatcher.
type Matcher struct {
	ac *ahocorasick.Matcher
}

// NewMatcher builds a Matcher over an in-memory list of motifs.
func NewMatcher(motifs []string) *Matcher {
	return &Matcher{ac: ahocorasick.NewStringMatcher(motifs)}
}

// NewMatcherFromFile loads newline-delimited motifs from path and builds a
// Matcher. Blank lines are skipped.
func NewMatcherFromFile(path string) (*Matcher, error) {
	ctx := vcontext.Background()
	infile, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "motif.NewMatcherFromFile", path)
	}
	defer func() {
		_ = infile.Close(ctx)
	}()

	reader := io.Reader(infile.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, gzErr := gzip.NewReader(reader)
		if gzErr != nil {
			return nil, errors.E(gzErr, "motif.NewMatcherFromFile: gunzip", path)
		}
		defer gz.Close()
		reader = gz
	}

	var motifs []string
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		motifs = append(motifs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.E(err, "motif.NewMatcherFromFile: reading", path)
	}
	if len(motifs) == 0 {
		return nil, errors.E("motif.NewMatcherFromFile: empty motif file", path)
	}
	return NewMatcher(motifs), nil
}

// Matches reports whether seq contains at least one dictionary motif as a
// substring.
func (m *Matcher) Matches(seq []byte) bool {
	hits := m.ac.Match(seq)
	return len(hits) > 0
}
