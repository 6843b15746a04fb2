package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"

	"github.com/eak1mov/go-tilemark/selection"
	"github.com/google/subcommands"
)

type subdivideCmd struct {
	inputPath  string
	outputPath string
	fromLevel  uint
	toLevel    uint
	keep       bool
}

func (c *subdivideCmd) Name() string     { return "subdivide" }
func (c *subdivideCmd) Synopsis() string { return "copy selected tiles up to a finer level" }
func (c *subdivideCmd) Usage() string {
	return "tilemark subdivide -i <list> -o <list> -from <level> -to <level> [-keep=false]\n"
}
func (c *subdivideCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input tile list path (- for stdin)")
	f.StringVar(&c.outputPath, "o", "", "Output tile list path (- for stdout)")
	f.UintVar(&c.fromLevel, "from", 0, "Source level")
	f.UintVar(&c.toLevel, "to", 0, "Target level")
	f.BoolVar(&c.keep, "keep", true, "Keep intermediate levels in the output")
}

func (c *subdivideCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.toLevel <= c.fromLevel {
		log.Printf("target level %d must be greater than source level %d", c.toLevel, c.fromLevel)
		return subcommands.ExitUsageError
	}

	var input io.Reader = os.Stdin
	if c.inputPath != "-" && c.inputPath != "" {
		file, err := os.Open(c.inputPath)
		if err != nil {
			log.Println(err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		input = file
	}

	set, err := selection.ReadText(input)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	added := set.CopyUpTo(uint32(c.fromLevel), uint32(c.toLevel))
	if !c.keep {
		for level := uint32(c.fromLevel); level < uint32(c.toLevel); level++ {
			set.ClearLevel(level)
		}
	}

	var output io.Writer = os.Stdout
	if c.outputPath != "-" && c.outputPath != "" {
		file, err := os.Create(c.outputPath)
		if err != nil {
			log.Println(err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		output = file
	}

	if err := set.WriteText(output); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	log.Printf("added %d tiles, %d in total", added, set.Len())
	return subcommands.ExitSuccess
}
