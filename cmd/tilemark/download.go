package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/eak1mov/go-tilemark/download"
	"github.com/eak1mov/go-tilemark/layer"
	"github.com/eak1mov/go-tilemark/mb"
	"github.com/eak1mov/go-tilemark/tile"
	"github.com/eak1mov/go-tilemark/xyz"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type downloadCmd struct {
	inputPath    string
	layerPath    string
	layerFormat  string
	layersPath   string
	parts        string
	tms          bool
	outputPath   string
	outputFormat string
	title        string
	workers      int
}

func (c *downloadCmd) Name() string     { return "download" }
func (c *downloadCmd) Synopsis() string { return "download tiles listed in an exported selection" }
func (c *downloadCmd) Usage() string {
	return "tilemark download -i <list> -layer <key|url|path> -o <path> [-layers <path> -lf <format> -of <format> -parts a,b,c -tms -n <workers> -title <title>]\n"
}
func (c *downloadCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input tile list path")
	f.StringVar(&c.layerPath, "layer", "", "Source: layer key, tile url template, mbtiles file or xyz pattern")
	f.StringVar(&c.layerFormat, "lf", "", "Source format (key, url, mbtiles, xyz)")
	f.StringVar(&c.layersPath, "layers", "layers.yml", "Layer config path, used to resolve layer keys")
	f.StringVar(&c.parts, "parts", "", "Comma separated subdomains for {s}")
	f.BoolVar(&c.tms, "tms", false, "Url template counts rows from the bottom")
	f.StringVar(&c.outputPath, "o", "", "Output path")
	f.StringVar(&c.outputFormat, "of", "", "Output format (mbtiles, xyz)")
	f.StringVar(&c.title, "title", "", "Tileset name written to mbtiles metadata")
	f.IntVar(&c.workers, "n", 2, "Number of concurrent downloads")
}

func (c *downloadCmd) openSource() (tile.Reader, error) {
	switch deduceFormat(c.layerFormat, c.layerPath) {
	case "key":
		layers, err := layer.LoadConfig(c.layersPath)
		if err != nil {
			return nil, err
		}
		d, ok := layer.Find(layers, c.layerPath)
		if !ok {
			return nil, fmt.Errorf("layer %q not found in %s", c.layerPath, c.layersPath)
		}
		return layer.NewSource(d, layer.WithLogger(slog.Default()))
	case "url":
		d := layer.Descriptor{URL: c.layerPath, Name: c.layerPath, MinZoom: 0, MaxZoom: 30, Tms: c.tms}
		if c.parts != "" {
			d.Parts = strings.Split(c.parts, ",")
		}
		return layer.NewSource(d, layer.WithLogger(slog.Default()))
	case "mbtiles":
		return mb.NewReader(c.layerPath)
	case "xyz":
		return xyz.NewReader(c.layerPath)
	}
	return nil, fmt.Errorf("invalid layer format: %q", c.layerFormat)
}

// sourceFormat returns the MBTiles "format" value describing the source tiles.
func (c *downloadCmd) sourceFormat(reader tile.Reader) string {
	switch r := reader.(type) {
	case *layer.Source:
		return r.Format()
	case *mb.Reader:
		if metadata, err := r.ReadMetadata(); err == nil && metadata["format"] != "" {
			return metadata["format"]
		}
	}
	return layer.ImageFormat(c.layerPath)
}

func (c *downloadCmd) openWriter(format string) (tile.Writer, error) {
	switch deduceFormat(c.outputFormat, c.outputPath) {
	case "mbtiles":
		title := c.title
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(c.inputPath), filepath.Ext(c.inputPath))
		}
		return mb.NewWriter(c.outputPath,
			mb.WithMetadata(map[string]string{
				"version": "1.1",
				"name":    title,
				"format":  format,
			}),
			mb.WithLogger(slog.Default()),
		)
	case "xyz":
		return xyz.NewWriter(c.outputPath)
	}
	return nil, fmt.Errorf("invalid output format: %q", c.outputFormat)
}

func (c *downloadCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	listFile, err := os.Open(c.inputPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer listFile.Close()

	ids, skipped, err := download.ReadList(listFile, slog.Default())
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if skipped > 0 {
		log.Printf("skipped %d invalid lines", skipped)
	}

	reader, err := c.openSource()
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	writer, err := c.openWriter(c.sourceFormat(reader))
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	if closer, ok := writer.(io.Closer); ok {
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	bar := progressbar.Default(int64(len(ids)), "tiles downloaded")
	stats, err := download.Run(ctx, tile.IterIDs(ids), reader, writer,
		download.WithWorkers(c.workers),
		download.WithLogger(slog.Default()),
		download.WithProgress(func(tile.ID) { bar.Add(1) }),
	)
	bar.Finish()
	fmt.Println()

	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	if err := writer.Finalize(); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	log.Printf("requested %d, written %d, missing %d, failed %d", stats.Requested, stats.Written, stats.Missing, stats.Failed)
	return subcommands.ExitSuccess
}
