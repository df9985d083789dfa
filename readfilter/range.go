package readfilter

import (
	"encoding/json"
	"math"

	"github.com/grailbio/base/errors"
)

// Range is a numeric interval predicate with inversion and an "every"
// state that accepts all inputs unconditionally.
type Range struct {
	Min, Max int64
	Every    bool
	Inverted bool
}

// EveryRange is the inactive predicate: it accepts every value.
var EveryRange = Range{Every: true}

// NewRange constructs a Range over [min, max], normalizing min > max by
// swapping the bounds and toggling Inverted, per spec: a boolean-sourced
// range encodes true as [1, MAX] and false as [MAX, 1], which normalizes
// to [1, MAX] inverted.
func NewRange(min, max int64) Range {
	r := Range{Min: min, Max: max}
	if min > max {
		r.Min, r.Max = max, min
		r.Inverted = true
	}
	return r
}

// Contains reports whether v satisfies the range predicate.
func (r Range) Contains(v int64) bool {
	if r.Every {
		return true
	}
	inBand := r.Min <= v && v <= r.Max
	return inBand != r.Inverted
}

// Invert returns the logical negation of r: for any v and any non-Every r,
// r.Invert().Contains(v) == !r.Contains(v).
func (r Range) Invert() Range {
	if r.Every {
		return r
	}
	inv := r
	inv.Inverted = !inv.Inverted
	return inv
}

// ParseRange parses a JSON value into a Range, per spec §4.1:
//   - an array of length 2: explicit [min, max]
//   - a single number: lower bound, with max = math.MaxInt64
//   - a bool: true encodes as [1, MAX], false as [MAX, 1] (normalized to
//     [1, MAX] inverted, i.e. "not positive")
//
// Any other shape, or an array of length != 2, is a configuration error.
func ParseRange(v interface{}) (Range, error) {
	switch t := v.(type) {
	case bool:
		if t {
			return NewRange(1, math.MaxInt64), nil
		}
		return NewRange(math.MaxInt64, 1), nil
	case []interface{}:
		if len(t) != 2 {
			return Range{}, errors.E("readfilter.ParseRange: range array must have exactly 2 elements", t)
		}
		min, err := parseRangeInt(t[0])
		if err != nil {
			return Range{}, errors.E(err, "readfilter.ParseRange: min")
		}
		max, err := parseRangeInt(t[1])
		if err != nil {
			return Range{}, errors.E(err, "readfilter.ParseRange: max")
		}
		return NewRange(min, max), nil
	case json.Number, float64, int, int64:
		min, err := parseRangeInt(t)
		if err != nil {
			return Range{}, errors.E(err, "readfilter.ParseRange")
		}
		return NewRange(min, math.MaxInt64), nil
	default:
		return Range{}, errors.E("readfilter.ParseRange: unsupported range value", v)
	}
}

func parseRangeInt(v interface{}) (int64, error) {
	switch t := v.(type) {
	case json.Number:
		return t.Int64()
	case float64:
		return int64(t), nil
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	default:
		return 0, errors.E("readfilter.parseRangeInt: not a number", v)
	}
}
