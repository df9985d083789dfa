// Command readfilter-scan classifies the reads in a BAM/SAM file against a
// JSON rule script, per spec.md's declarative read-classification model.
//
// Usage:
//
//	readfilter-scan --script=rules.json [--send-to-bed=out.bed] \
//	    [--counts-to-file=counts.tsv] input.bam
package main

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/grail"
	"v.io/x/lib/cmdline"
)

func newCmdScan() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "readfilter-scan",
		Short:    "Classify BAM/SAM reads against a declarative rule script",
		ArgsName: "path",
		ArgsLong: "path is the BAM or SAM file to scan",
	}
	flags := scanFlags{
		scriptPath:    cmd.Flags.String("script", "", "Path to the JSON rule script (required)"),
		sendToBED:     cmd.Flags.String("send-to-bed", "", "If set, write the union of every region's intervals to this BED path"),
		countsToFile:  cmd.Flags.String("counts-to-file", "", "If set, write per-region/per-rule pass counts as TSV to this path"),
		passedOutPath: cmd.Flags.String("out", "", "If set, write reads that pass classification to this BAM path"),
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("readfilter-scan takes one input path, but got %v", argv)
		}
		return scan(flags, argv[0])
	})
	return cmd
}

func main() {
	shutdown := grail.Init()
	defer shutdown()

	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(newCmdScan())
}
