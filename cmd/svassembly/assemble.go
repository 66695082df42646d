package main

import (
	"context"
	"flag"
	"fmt"
	"github.com/dasnellings/svAssembly/assembly"
	"github.com/dasnellings/svAssembly/debruijn"
	"github.com/dasnellings/svAssembly/evidence"
	"github.com/dasnellings/svAssembly/fai"
	"github.com/dasnellings/svAssembly/linear"
	"github.com/dasnellings/svAssembly/output"
	"github.com/dasnellings/svAssembly/realign"
	"github.com/dasnellings/svAssembly/repeats"
	"github.com/dasnellings/svAssembly/source"
	"github.com/dasnellings/svAssembly/summary"
	"github.com/pkg/profile"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/sam"
	"log"
	"path/filepath"
	"strings"
)

func assembleUsage(assembleFlags *flag.FlagSet) {
	fmt.Print(
		"assemble - assemble breakend contigs from structural variant evidence\n\n" +
			"Usage:\n" +
			"  svassembly assemble [options] -i input.bam -m input.mate.bam -r reference.fasta -o output.vcf\n\n" +
			"Input bam files must be coordinate sorted. Mate files hold the same records sorted by mate\n" +
			"coordinate and are paired with inputs in the order given. Each input is a separate category.\n\n" +
			"Options:\n")
	assembleFlags.PrintDefaults()
}

type assembleSettings struct {
	inputs                 inputFiles
	mates                  inputFiles
	ref                    string
	output                 string
	bamOut                 string
	fqOut                  string
	blacklist              string
	plotOut                string
	k                      int
	maxFragmentSize        int
	window                 int
	maxAnchorKmers         int
	minMapQ                int
	minClipLength          int
	maxRepeatUnit          int
	threads                int
	capacity               int
	realign                bool
	includeRemoteSoftClips bool
	includeClippedAnchors  bool
	excludeNonSupporting   bool
	summary                bool
}

func runAssemble(args []string) {
	var err error
	var s assembleSettings
	assembleFlags := flag.NewFlagSet("assemble", flag.ExitOnError)
	cpuprofile := assembleFlags.Bool("cpuprofile", false, "write cpu profile")
	memprofile := assembleFlags.Bool("memprofile", false, "write memory profile")
	assembleFlags.Var(&s.inputs, "i", "Coordinate sorted input bam file. May be declared more than once.")
	assembleFlags.Var(&s.mates, "m", "Input bam file sorted by mate coordinate. Declare once per -i, in the same order. Required for read pair evidence.")
	assembleFlags.StringVar(&s.ref, "r", "", "Fasta file with reference genome used to align input bam. Must be indexed.")
	assembleFlags.StringVar(&s.output, "o", "stdout", "Output VCF file of assembled breakends.")
	assembleFlags.StringVar(&s.bamOut, "bam", "", "Output bam file of assembled contigs.")
	assembleFlags.StringVar(&s.fqOut, "fq", "", "Output fastq file of assembled breakend sequences.")
	assembleFlags.StringVar(&s.blacklist, "blacklist", "", "Bed file of regions in which evidence is ignored.")
	assembleFlags.StringVar(&s.plotOut, "plot", "", "Output histogram of breakend lengths. Format is determined by the file extension (e.g. .png, .pdf).")
	assembleFlags.IntVar(&s.k, "k", 25, "Kmer size. Must be <= 32.")
	assembleFlags.IntVar(&s.maxFragmentSize, "maxFragmentSize", 500, "Maximum fragment size of concordant read pairs.")
	assembleFlags.IntVar(&s.window, "window", 0, "Evidence this far behind the newest evidence is assembled and released from memory. Defaults to 2x maxFragmentSize.")
	assembleFlags.IntVar(&s.maxAnchorKmers, "maxAnchorKmers", 300, "Maximum number of reference kmers in an assembly anchor.")
	assembleFlags.IntVar(&s.minMapQ, "minMapQ", 0, "Minimum mapping quality of evidence.")
	assembleFlags.IntVar(&s.minClipLength, "minClipLength", 1, "Minimum length of soft clips used as evidence.")
	assembleFlags.IntVar(&s.maxRepeatUnit, "maxRepeatUnit", repeats.DefaultMaxUnit, "Breakend sequences that are perfect repeats of a unit this size or smaller are filtered as LOW_COMPLEXITY.")
	assembleFlags.IntVar(&s.threads, "threads", 1, "Number of threads used for realignment.")
	assembleFlags.IntVar(&s.capacity, "buffer", 1000, "Number of evidence buffered ahead of assembly for each input.")
	assembleFlags.BoolVar(&s.realign, "realign", false, "Realign assembled contigs to the reference surrounding their anchor.")
	assembleFlags.BoolVar(&s.includeRemoteSoftClips, "includeRemoteSoftClips", false, "Include the remote side of split reads in assembly.")
	assembleFlags.BoolVar(&s.includeClippedAnchors, "includeClippedAnchors", false, "Extend split read anchors over soft clipped bases not explained by the split.")
	assembleFlags.BoolVar(&s.excludeNonSupporting, "excludeNonSupporting", false, "Exclude evidence that does not support the assembled breakend from the breakend quality.")
	assembleFlags.BoolVar(&s.summary, "summary", false, "Print a summary of assemblies to stderr.")
	err = assembleFlags.Parse(args)
	exception.PanicOnErr(err)
	assembleFlags.Usage = func() { assembleUsage(assembleFlags) }

	if len(s.inputs) == 0 || s.ref == "" {
		assembleFlags.Usage()
		errExit("ERROR: -i and -r are required")
	}
	if len(s.mates) > 0 && len(s.mates) != len(s.inputs) {
		assembleFlags.Usage()
		errExit("ERROR: -m must be declared once for each -i")
	}
	if s.k < 1 || s.k > 32 {
		errExit("ERROR: -k must be between 1 and 32")
	}
	if *memprofile && *cpuprofile {
		assembleFlags.Usage()
		log.Fatal("ERROR: -memprofile and -cpuprofile are mutually exclusive.")
	}
	if *memprofile {
		defer profile.Start(profile.MemProfile).Stop()
	}
	if *cpuprofile {
		defer profile.Start(profile.CPUProfile).Stop()
	}
	if len(s.mates) == 0 {
		log.Println("WARNING: -m was not declared. Read pair evidence will not be assembled.")
	}
	assemble(s)
}

func assemble(s assembleSettings) {
	ref, err := fai.OpenReference(s.ref)
	exception.PanicOnErr(err)
	defer ref.Close()
	coord := linear.NewCoordinate(ref.Dictionary(), linear.DefaultBuffer)

	evCfg := evidence.DefaultConfig()
	evCfg.MinMapQ = s.minMapQ
	evCfg.MaxFragmentSize = s.maxFragmentSize
	evCfg.MinClipLength = s.minClipLength
	evCfg.IncludeClippedAnchoringBases = s.includeClippedAnchors
	if s.blacklist != "" {
		evCfg.Blacklist = evidence.LoadBlacklist(s.blacklist)
	}
	factory := evidence.NewFactory(coord, evCfg)

	ctx := context.Background()
	sources := make([]*source.Source, len(s.inputs))
	streams := make([]<-chan evidence.DirectedEvidence, len(s.inputs))
	for i := range s.inputs {
		records, _ := sam.GoReadToChan(s.inputs[i])
		var mates <-chan sam.Sam
		if len(s.mates) > 0 {
			mates, _ = sam.GoReadToChan(s.mates[i])
		}
		srcCfg := source.DefaultConfig()
		srcCfg.Capacity = s.capacity
		srcCfg.Category = i
		srcCfg.Logger = log.Default()
		sources[i] = source.Start(ctx, records, mates, factory, srcCfg)
		streams[i] = sources[i].Evidence()
	}
	merged := source.Merge(coord, streams...)

	asmCfg := debruijn.DefaultConfig()
	asmCfg.K = s.k
	asmCfg.MaxFragmentSize = s.maxFragmentSize
	asmCfg.WindowSize = s.window
	asmCfg.MaxAnchorKmers = s.maxAnchorKmers
	asmCfg.IncludeRemoteSoftClips = s.includeRemoteSoftClips
	asmCfg.Categories = len(s.inputs)
	asmCfg.Assembly.Categories = len(s.inputs)
	asmCfg.Assembly.ExcludeNonSupportingEvidence = s.excludeNonSupporting
	asmCfg.Assembly.Logger = log.Default()
	asmCfg.Logger = log.Default()
	assembler := debruijn.NewAssembler(coord, asmCfg)

	assemblies := make(chan *assembly.Assembly, 1000)
	go func() {
		for e, ok := merged.Next(); ok; e, ok = merged.Next() {
			for _, a := range assembler.AddEvidence(e) {
				assemblies <- a
			}
		}
		for _, a := range assembler.EndOfEvidence() {
			assemblies <- a
		}
		close(assemblies)
	}()

	var stream <-chan *assembly.Assembly = assemblies
	if s.realign {
		stream = realign.GoRealign(assemblies, ref, realign.NewSmithWaterman(), s.threads, log.Default())
	}

	sample := strings.TrimSuffix(filepath.Base(s.inputs[0]), ".bam")
	vcfOut := output.NewVcfWriter(s.output, coord, sample)
	var bamOut *output.BamWriter
	var fqOut *output.FastqWriter
	if s.bamOut != "" {
		bamOut = output.NewBamWriter(s.bamOut, coord.Dictionary())
	}
	if s.fqOut != "" {
		fqOut = output.NewFastqWriter(s.fqOut)
	}
	sum := summary.New()

	for a := range stream {
		repeats.FilterLowComplexity(a, s.maxRepeatUnit)
		if !hasSupport(a) {
			a.FilterAssembly(assembly.FilterNoSupport)
		}
		vcfOut.Write(a)
		if bamOut != nil {
			bamOut.Write(a)
		}
		if fqOut != nil {
			fqOut.Write(a)
		}
		sum.Add(a)
	}

	for i := range sources {
		if err = sources[i].Wait(); err != nil {
			log.Fatalf("ERROR: problem reading %s: %s", s.inputs[i], err)
		}
		st := sources[i].Stats()
		log.Printf("%s: read %d records and %d mate records. Found %d evidence. %d read pairs had no partner.", s.inputs[i], st.Records, st.Mates, st.Evidence, st.Unpaired)
	}

	err = vcfOut.Close()
	exception.PanicOnErr(err)
	if bamOut != nil {
		err = bamOut.Close()
		exception.PanicOnErr(err)
	}
	if fqOut != nil {
		err = fqOut.Close()
		exception.PanicOnErr(err)
	}

	if s.summary {
		log.Printf("Assembly summary:\n%s", sum)
		log.Printf("\n%s", sum.Plot())
	}
	if s.plotOut != "" && sum.Assemblies > 0 {
		err = sum.SaveHistogram(s.plotOut)
		exception.PanicOnErr(err)
	}
}

// hasSupport reports whether any evidence places its breakend consistently with a.
func hasSupport(a *assembly.Assembly) bool {
	st := a.Stats()
	for i := range st.SoftClipCount {
		if st.SoftClipCount[i]+st.ReadPairCount[i]+st.RemoteCount[i] > 0 {
			return true
		}
	}
	return false
}
