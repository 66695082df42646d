package main

import (
	"flag"
	"fmt"
	"github.com/dasnellings/svAssembly/extract"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
	"github.com/vertgenlab/gonomics/sam"
	"log"
)

func unmappedUsage(unmappedFlags *flag.FlagSet) {
	fmt.Print(
		"unmapped - export unaligned sequence of primary alignments to fastq\n\n" +
			"Usage:\n" +
			"  svassembly unmapped [options] -i input.bam -o output.fq\n\n" +
			"Options:\n")
	unmappedFlags.PrintDefaults()
}

func runUnmapped(args []string) {
	var err error
	var inputs inputFiles
	cfg := extract.DefaultConfig()
	unmappedFlags := flag.NewFlagSet("unmapped", flag.ExitOnError)
	unmappedFlags.Var(&inputs, "i", "Input bam file. May be declared more than once.")
	output := unmappedFlags.String("o", "stdout", "Output fastq file.")
	names := unmappedFlags.String("names", "", "Output file of names of exported fragments with an alignment to the reference. May contain duplicates.")
	unmappedFlags.IntVar(&cfg.MinSequenceLength, "minLen", cfg.MinSequenceLength, "Minimum length of exported sequence.")
	unmappedFlags.BoolVar(&cfg.IncludeSoftClips, "softClips", cfg.IncludeSoftClips, "Export the longest unaligned stretch of partially aligned reads.")
	unmappedFlags.BoolVar(&cfg.IncludeInternal, "internal", cfg.IncludeInternal, "Include unaligned bases flanked by chimeric alignments.")
	unmappedFlags.BoolVar(&cfg.UniqueNames, "uniqueNames", cfg.UniqueNames, "Suffix exported names with /1 or /2.")
	err = unmappedFlags.Parse(args)
	exception.PanicOnErr(err)
	unmappedFlags.Usage = func() { unmappedUsage(unmappedFlags) }

	if len(inputs) == 0 {
		unmappedFlags.Usage()
		errExit("ERROR: -i is required")
	}

	out := fileio.EasyCreate(*output)
	var namesOut *fileio.EasyWriter
	if *names != "" {
		namesOut = fileio.EasyCreate(*names)
	}
	for _, input := range inputs {
		records, _ := sam.GoReadToChan(input)
		stats, err := extract.UnmappedSequences(records, cfg, out, namesOut)
		exception.PanicOnErr(err)
		if stats.Malformed > 0 {
			log.Printf("WARNING: %s: %d records with malformed SA tags were skipped", input, stats.Malformed)
		}
		log.Printf("%s: exported %d unmapped and %d partially aligned of %d records", input, stats.Unmapped, stats.Clipped, stats.Records)
	}
	err = out.Close()
	exception.PanicOnErr(err)
	if namesOut != nil {
		err = namesOut.Close()
		exception.PanicOnErr(err)
	}
}
