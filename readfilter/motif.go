package readfilter

// MotifMatcher is the boolean sequence-matching interface the engine
// consumes from an external motif dictionary (spec §4.3). The engine is
// unaware of the matcher's internal automaton state; package motif
// supplies the concrete Aho-Corasick-backed implementation.
type MotifMatcher interface {
	Matches(seq []byte) bool
}
