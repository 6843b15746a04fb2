package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/eak1mov/go-tilemark/mb"
	"github.com/eak1mov/go-tilemark/selection"
	"github.com/eak1mov/go-tilemark/tile"
	"github.com/eak1mov/go-tilemark/xyz"
	"github.com/google/subcommands"
)

type listCmd struct {
	inputPath   string
	inputFormat string
	outputPath  string
	level       int
}

func (c *listCmd) Name() string     { return "list" }
func (c *listCmd) Synopsis() string { return "write the tiles of a tileset as a tile list" }
func (c *listCmd) Usage() string {
	return "tilemark list -i <tileset> [-if <format>] [-o <list>] [-level <n>]\n"
}
func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input tileset: mbtiles file or xyz pattern")
	f.StringVar(&c.inputFormat, "if", "", "Input format (mbtiles, xyz)")
	f.StringVar(&c.outputPath, "o", "", "Output tile list path (- for stdout)")
	f.IntVar(&c.level, "level", -1, "List the cells at this level covering the tiles; tiles above it are skipped")
}

type tileset interface {
	tile.Visitor
	tile.Reader
}

func openTileset(format, path string) (tileset, error) {
	switch deduceFormat(format, path) {
	case "mbtiles":
		return mb.NewReader(path)
	case "xyz":
		return xyz.NewReader(path)
	}
	return nil, fmt.Errorf("invalid tileset format: %q", format)
}

// listTiles collects the IDs of all tiles in the tileset. With level >= 0,
// every tile at or below level is replaced by its ancestor at level.
func listTiles(visitor tile.Visitor, level int) (s *selection.Set, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(error)
			if !ok {
				panic(r)
			}
			err = e
		}
	}()

	s = new(selection.Set)
	for tileID := range tile.IterTiles(visitor) {
		if level >= 0 {
			if int(tileID.Z) < level {
				continue
			}
			for int(tileID.Z) > level {
				tileID = tileID.Parent()
			}
		}
		s.Add(tileID)
	}
	return s, nil
}

func (c *listCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.level > tile.MaxZoom {
		log.Printf("level %d is above %d", c.level, tile.MaxZoom)
		return subcommands.ExitUsageError
	}

	reader, err := openTileset(c.inputFormat, c.inputPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	set, err := listTiles(reader, c.level)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
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

	log.Printf("listed %d tiles", set.Len())
	return subcommands.ExitSuccess
}
