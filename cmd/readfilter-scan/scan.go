package main

import (
	"io"
	"io/ioutil"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	baselog "github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/readfilter/readfilter"
)

type scanFlags struct {
	scriptPath    *string
	sendToBED     *string
	countsToFile  *string
	passedOutPath *string
}

// headerResolver adapts *sam.Header to readfilter.HeaderResolver, mirroring
// bamprovider.BAMProvider.GetHeader's treatment of *sam.Header as the
// single source of truth for reference names and IDs.
type headerResolver struct {
	refs []*sam.Reference
}

func newHeaderResolver(h *sam.Header) *headerResolver {
	return &headerResolver{refs: h.Refs()}
}

func (h *headerResolver) RefLength(name string) (int, bool) {
	for _, r := range h.refs {
		if r.Name() == name {
			return r.Len(), true
		}
	}
	return 0, false
}

func (h *headerResolver) RefID(name string) (int, bool) {
	for _, r := range h.refs {
		if r.Name() == name {
			return r.ID(), true
		}
	}
	return 0, false
}

func readScript(path string) ([]byte, error) {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "readfilter-scan: opening script", path)
	}
	defer func() { _ = in.Close(ctx) }()
	data, err := ioutil.ReadAll(in.Reader(ctx))
	if err != nil {
		return nil, errors.E(err, "readfilter-scan: reading script", path)
	}
	return data, nil
}

// scan implements the single-threaded, synchronous classification loop
// from spec §5: one BAM iterator, one goroutine, records classified one at
// a time against the FilterCollection built from --script.
func scan(flags scanFlags, bamPath string) error {
	if *flags.scriptPath == "" {
		return errors.E("readfilter-scan: --script is required")
	}
	scriptData, err := readScript(*flags.scriptPath)
	if err != nil {
		return err
	}

	ctx := vcontext.Background()
	in, err := file.Open(ctx, bamPath)
	if err != nil {
		return errors.E(err, "readfilter-scan: opening", bamPath)
	}
	defer func() { _ = in.Close(ctx) }()

	reader, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return errors.E(err, "readfilter-scan: reading BAM header", bamPath)
	}
	defer func() { _ = reader.Close() }()

	header := newHeaderResolver(reader.Header())

	fc, err := readfilter.NewFilterCollectionFromJSON(scriptData, header)
	if err != nil {
		// The loader's error is the single fatal-exit boundary described
		// in spec §7/§9: a malformed script cannot be partially honored.
		baselog.Panicf("readfilter-scan: loading %s: %v", *flags.scriptPath, err)
	}

	var writer *bam.Writer
	if *flags.passedOutPath != "" {
		out, cerr := file.Create(ctx, *flags.passedOutPath)
		if cerr != nil {
			return errors.E(cerr, "readfilter-scan: creating", *flags.passedOutPath)
		}
		defer func() { _ = out.Close(ctx) }()
		if writer, err = bam.NewWriter(out.Writer(ctx), reader.Header(), 1); err != nil {
			return errors.E(err, "readfilter-scan: writing BAM header to", *flags.passedOutPath)
		}
		defer func() { _ = writer.Close() }()
	}

	for {
		rec, rerr := reader.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return errors.E(rerr, "readfilter-scan: reading", bamPath)
		}
		passed := fc.Classify(readfilter.NewSAMRecord(rec))
		if passed && writer != nil {
			if werr := writer.Write(rec); werr != nil {
				return errors.E(werr, "readfilter-scan: writing", *flags.passedOutPath)
			}
		}
	}

	if *flags.sendToBED != "" {
		if err = fc.SendToBED(*flags.sendToBED); err != nil {
			return err
		}
	}
	if *flags.countsToFile != "" {
		if err = fc.CountsToFile(*flags.countsToFile); err != nil {
			return err
		}
	}
	return nil
}
