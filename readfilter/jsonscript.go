package readfilter

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/readfilter/genomeindex"
	"github.com/grailbio/readfilter/motif"
)

// recognizedPredicateKeys is the full set from spec §6; any other key in a
// rule object is a fatal configuration error.
var recognizedPredicateKeys = map[string]bool{
	"duplicate": true, "supplementary": true, "qcfail": true, "hardclip": true,
	"fwd_strand": true, "rev_strand": true, "mate_fwd_strand": true, "mate_rev_strand": true,
	"mate_fwd": true, "mate_rev": true,
	"mapped": true, "mate_mapped": true,
	"ff": true, "fr": true, "rr": true, "rf": true, "ic": true,
	"isize": true, "clip": true, "phred": true, "length": true, "nm": true,
	"mapq": true, "nbases": true, "ins": true, "del": true, "xp": true,
	"sub": true, "rg": true, "motif": true, "!motif": true, "flag": true, "!flag": true,
	"all": true,
}

// recognizedRegionKeys is the region-block key set from spec §4.7.
var recognizedRegionKeys = map[string]bool{
	"region": true, "pad": true, "matelink": true, "exclude": true, "rules": true,
}

// orderedObject decodes a JSON object preserving the declaration order of
// its keys, since FilterCollection's region precedence depends on it and
// encoding/json's map decoding does not preserve order.
func orderedObject(data []byte) (keys []string, values map[string]json.RawMessage, err error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, errors.E(err, "readfilter: malformed JSON object")
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, nil, errors.E("readfilter: expected a JSON object")
	}
	values = map[string]json.RawMessage{}
	for dec.More() {
		keyTok, kerr := dec.Token()
		if kerr != nil {
			return nil, nil, errors.E(kerr, "readfilter: malformed JSON object key")
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, errors.E("readfilter: JSON object key is not a string")
		}
		var raw json.RawMessage
		if err = dec.Decode(&raw); err != nil {
			return nil, nil, errors.E(err, "readfilter: malformed JSON value for key", key)
		}
		keys = append(keys, key)
		values[key] = raw
	}
	return keys, values, nil
}

func decodeAny(raw json.RawMessage) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, errors.E(err, "readfilter: malformed JSON value")
	}
	return v, nil
}

func decodeBool(raw json.RawMessage, key string) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, errors.E(err, "readfilter: expected a boolean for key", key)
	}
	return b, nil
}

func decodeString(raw json.RawMessage, key string) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errors.E(err, "readfilter: expected a string for key", key)
	}
	return s, nil
}

func decodeInt(raw json.RawMessage, key string) (int64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, errors.E(err, "readfilter: expected an integer for key", key)
	}
	v, err := n.Int64()
	if err != nil {
		return 0, errors.E(err, "readfilter: expected an integer for key", key)
	}
	return v, nil
}

// motifLoader abstracts motif-file loading so jsonscript_test.go can stub
// it out without touching the filesystem.
type motifLoader func(path string) (MotifMatcher, error)

func defaultMotifLoader(path string) (MotifMatcher, error) {
	m, err := motif.NewMatcherFromFile(path)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// parseRule builds an AbstractRule by layering keys's present predicate
// keys onto base, per spec §4.7 ("global" merged into every rule before
// that rule's own keys override) and §12 ("all" short-circuits to Every,
// "!flag"/"!motif" invert the parsed predicate's sense).
func parseRule(keys map[string]json.RawMessage, base AbstractRule, loadMotif motifLoader) (AbstractRule, error) {
	for key := range keys {
		if !recognizedPredicateKeys[key] {
			return AbstractRule{}, errors.E("readfilter: unrecognized rule key", key)
		}
	}

	if raw, ok := keys["all"]; ok {
		all, err := decodeBool(raw, "all")
		if err != nil {
			return AbstractRule{}, err
		}
		if all {
			return EveryAbstractRule, nil
		}
	}

	rule := base

	boolBit := func(key string) (FlagBit, bool, error) {
		raw, ok := keys[key]
		if !ok {
			return FlagNA, false, nil
		}
		v, err := decodeBool(raw, key)
		if err != nil {
			return FlagNA, false, err
		}
		return ParseFlagBit(v), true, nil
	}

	applyRange := func(key string, dst *Range) error {
		raw, ok := keys[key]
		if !ok {
			return nil
		}
		v, err := decodeAny(raw)
		if err != nil {
			return err
		}
		r, err := ParseRange(v)
		if err != nil {
			return errors.E(err, "readfilter: key", key)
		}
		*dst = r
		return nil
	}

	if err := applyRange("isize", &rule.ISize); err != nil {
		return AbstractRule{}, err
	}
	if err := applyRange("mapq", &rule.MapQ); err != nil {
		return AbstractRule{}, err
	}
	if err := applyRange("length", &rule.Len); err != nil {
		return AbstractRule{}, err
	}
	if err := applyRange("clip", &rule.Clip); err != nil {
		return AbstractRule{}, err
	}
	if err := applyRange("phred", &rule.Phred); err != nil {
		return AbstractRule{}, err
	}
	if err := applyRange("nbases", &rule.NBases); err != nil {
		return AbstractRule{}, err
	}
	if err := applyRange("ins", &rule.Ins); err != nil {
		return AbstractRule{}, err
	}
	if err := applyRange("del", &rule.Del); err != nil {
		return AbstractRule{}, err
	}
	if err := applyRange("nm", &rule.NM); err != nil {
		return AbstractRule{}, err
	}
	if err := applyRange("xp", &rule.XP); err != nil {
		return AbstractRule{}, err
	}

	if bit, ok, err := boolBit("duplicate"); err != nil {
		return AbstractRule{}, err
	} else if ok {
		rule.Flag.Duplicate = bit
	}
	if bit, ok, err := boolBit("supplementary"); err != nil {
		return AbstractRule{}, err
	} else if ok {
		rule.Flag.Supplementary = bit
	}
	if bit, ok, err := boolBit("qcfail"); err != nil {
		return AbstractRule{}, err
	} else if ok {
		rule.Flag.QCFail = bit
	}
	if bit, ok, err := boolBit("hardclip"); err != nil {
		return AbstractRule{}, err
	} else if ok {
		rule.Flag.HardClip = bit
	}
	if bit, ok, err := boolBit("mapped"); err != nil {
		return AbstractRule{}, err
	} else if ok {
		rule.Flag.Mapped = bit
	}
	if bit, ok, err := boolBit("mate_mapped"); err != nil {
		return AbstractRule{}, err
	} else if ok {
		rule.Flag.MateMapped = bit
	}
	if bit, ok, err := boolBit("fwd_strand"); err != nil {
		return AbstractRule{}, err
	} else if ok {
		rule.Flag.FwdStrand = bit
	}
	// rev_strand is the inverse-sense alias of fwd_strand (open question
	// (i)): rev_strand: true means fwd_strand: false.
	if bit, ok, err := boolBit("rev_strand"); err != nil {
		return AbstractRule{}, err
	} else if ok {
		rule.Flag.FwdStrand = invertBit(bit)
	}
	// mate_fwd/mate_fwd_strand and mate_rev/mate_rev_strand are aliases for
	// the same two FlagRule bits (open question (i)).
	for _, key := range []string{"mate_fwd", "mate_fwd_strand"} {
		if bit, ok, err := boolBit(key); err != nil {
			return AbstractRule{}, err
		} else if ok {
			rule.Flag.MateFwd = bit
		}
	}
	for _, key := range []string{"mate_rev", "mate_rev_strand"} {
		if bit, ok, err := boolBit(key); err != nil {
			return AbstractRule{}, err
		} else if ok {
			rule.Flag.MateRev = bit
		}
	}
	if bit, ok, err := boolBit("ff"); err != nil {
		return AbstractRule{}, err
	} else if ok {
		rule.Flag.FF = bit
	}
	if bit, ok, err := boolBit("fr"); err != nil {
		return AbstractRule{}, err
	} else if ok {
		rule.Flag.FR = bit
	}
	if bit, ok, err := boolBit("rf"); err != nil {
		return AbstractRule{}, err
	} else if ok {
		rule.Flag.RF = bit
	}
	if bit, ok, err := boolBit("rr"); err != nil {
		return AbstractRule{}, err
	} else if ok {
		rule.Flag.RR = bit
	}
	if bit, ok, err := boolBit("ic"); err != nil {
		return AbstractRule{}, err
	} else if ok {
		rule.Flag.IC = bit
	}

	if raw, ok := keys["flag"]; ok {
		v, err := decodeInt(raw, "flag")
		if err != nil {
			return AbstractRule{}, err
		}
		rule.Flag.OnMask |= uint16(v)
	}
	if raw, ok := keys["!flag"]; ok {
		v, err := decodeInt(raw, "!flag")
		if err != nil {
			return AbstractRule{}, err
		}
		rule.Flag.OffMask |= uint16(v)
	}

	if raw, ok := keys["rg"]; ok {
		s, err := decodeString(raw, "rg")
		if err != nil {
			return AbstractRule{}, err
		}
		rule.HasReadGroup = true
		rule.ReadGroup = s
	}

	if raw, ok := keys["sub"]; ok {
		var s struct {
			Fraction float64 `json:"fraction"`
			Seed     uint32  `json:"seed"`
		}
		if err := json.Unmarshal(raw, &s); err != nil {
			return AbstractRule{}, errors.E(err, "readfilter: key sub")
		}
		if s.Fraction <= 0 || s.Fraction > 1 {
			return AbstractRule{}, errors.E("readfilter: sub.fraction must be in (0, 1]", s.Fraction)
		}
		rule.Subsample = Subsample{Fraction: s.Fraction, Seed: s.Seed}
	}

	if raw, ok := keys["motif"]; ok {
		path, err := decodeString(raw, "motif")
		if err != nil {
			return AbstractRule{}, err
		}
		m, err := loadMotif(path)
		if err != nil {
			return AbstractRule{}, errors.E(err, "readfilter: loading motif file", path)
		}
		rule.Motif = m
		rule.MotifInverted = false
	}
	if raw, ok := keys["!motif"]; ok {
		path, err := decodeString(raw, "!motif")
		if err != nil {
			return AbstractRule{}, err
		}
		m, err := loadMotif(path)
		if err != nil {
			return AbstractRule{}, errors.E(err, "readfilter: loading motif file", path)
		}
		rule.Motif = m
		rule.MotifInverted = true
	}

	rule.ID = deriveRuleID(keys)
	return rule, nil
}

func invertBit(b FlagBit) FlagBit {
	switch b {
	case FlagOn:
		return FlagOff
	case FlagOff:
		return FlagOn
	default:
		return FlagNA
	}
}

// deriveRuleID builds a stable, human-readable rule identifier from its
// enabled predicate keys, per spec §3's "id: String (derived from its
// enabled predicates)".
func deriveRuleID(keys map[string]json.RawMessage) string {
	if len(keys) == 0 {
		return "every"
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)
	id := ""
	for i, n := range names {
		if i > 0 {
			id += "+"
		}
		id += n
	}
	return id
}

// NewFilterCollectionFromJSON parses a rule script, per spec §4.7. header
// resolves region chromosome names (bare names, chr:start-end loci and BED
// entries) against the BAM header; it may be nil only if every region is
// whole-genome, since any other region then fails to load.
func NewFilterCollectionFromJSON(data []byte, header HeaderResolver) (*FilterCollection, error) {
	topKeys, top, err := orderedObject(data)
	if err != nil {
		return nil, err
	}

	global := EveryAbstractRule
	if raw, ok := top["global"]; ok {
		_, gvalues, gerr := orderedObject(raw)
		if gerr != nil {
			return nil, errors.E(gerr, "readfilter: parsing global rule")
		}
		global, err = parseRule(gvalues, EveryAbstractRule, defaultMotifLoader)
		if err != nil {
			return nil, errors.E(err, "readfilter: parsing global rule")
		}
	}

	var regions []*RegionFilter
	for level, name := range topKeys {
		if name == "global" {
			continue
		}
		region, rerr := parseRegionBlock(name, uint32(level), top[name], global, header)
		if rerr != nil {
			return nil, errors.E(rerr, "readfilter: parsing region", name)
		}
		regions = append(regions, region)
	}

	fallThrough := false
	hasNonExcluder := false
	for _, region := range regions {
		if region.Excluder {
			fallThrough = true
		} else {
			hasNonExcluder = true
		}
	}
	if !hasNonExcluder {
		regions = append(regions, &RegionFilter{
			Name:        "__whole_genome__",
			WholeGenome: true,
			Rules:       []*AbstractRule{copyRule(global)},
		})
	}

	return &FilterCollection{Regions: regions, Global: global, FallThrough: fallThrough}, nil
}

func copyRule(r AbstractRule) *AbstractRule {
	cp := r
	return &cp
}

func parseRegionBlock(name string, level uint32, raw json.RawMessage, global AbstractRule, header HeaderResolver) (*RegionFilter, error) {
	_, keys, err := orderedObject(raw)
	if err != nil {
		return nil, err
	}
	for key := range keys {
		if !recognizedRegionKeys[key] {
			return nil, errors.E("readfilter: unrecognized region key", key)
		}
	}

	regionStr := ""
	if raw, ok := keys["region"]; ok {
		if regionStr, err = decodeString(raw, "region"); err != nil {
			return nil, err
		}
	}
	pad := 0
	if raw, ok := keys["pad"]; ok {
		v, perr := decodeInt(raw, "pad")
		if perr != nil {
			return nil, perr
		}
		pad = int(v)
	}
	matelink := false
	if raw, ok := keys["matelink"]; ok {
		if matelink, err = decodeBool(raw, "matelink"); err != nil {
			return nil, err
		}
	}
	exclude := false
	if raw, ok := keys["exclude"]; ok {
		if exclude, err = decodeBool(raw, "exclude"); err != nil {
			return nil, err
		}
	}

	var rules []*AbstractRule
	if raw, ok := keys["rules"]; ok {
		var rawRules []json.RawMessage
		if err = json.Unmarshal(raw, &rawRules); err != nil {
			return nil, errors.E(err, "readfilter: region", name, "rules is not an array")
		}
		for i, rr := range rawRules {
			_, rkeys, rerr := orderedObject(rr)
			if rerr != nil {
				return nil, errors.E(rerr, "readfilter: region", name, "rule", i)
			}
			rule, perr := parseRule(rkeys, global, defaultMotifLoader)
			if perr != nil {
				return nil, errors.E(perr, "readfilter: region", name, "rule", i)
			}
			rules = append(rules, &rule)
		}
	}
	if len(rules) == 0 {
		// A region with no rules implicitly inherits the global rule,
		// per spec §4.7.
		rules = []*AbstractRule{copyRule(global)}
	}

	region := NewRegionFilter(name, rules)
	region.Level = level
	region.ApplyToMate = matelink
	region.Excluder = exclude

	wholeGenome, entries, err := genomeindex.ResolveRegionString(regionStr, header)
	if err != nil {
		return nil, err
	}
	region.WholeGenome = wholeGenome
	if !wholeGenome {
		idx := genomeindex.NewIndex()
		resolved := make([]genomeindex.BEDEntry, 0, len(entries))
		for _, e := range entries {
			if header == nil {
				return nil, errors.E("readfilter: region needs a BAM header to resolve", regionStr, name)
			}
			refID, ok := header.RefID(e.ChrName)
			if !ok {
				return nil, errors.E("readfilter: unknown chromosome in region", e.ChrName, name)
			}
			idx.Insert(refIDKey(refID), int(e.Start0), int(e.End), pad)
			resolved = append(resolved, e)
		}
		region.Index = idx
		region.Entries = resolved
	}

	return region, nil
}
