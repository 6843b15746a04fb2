package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/eak1mov/go-tilemark/layer"
	"github.com/google/subcommands"
)

type layersCmd struct {
	url        string
	configPath string
}

func (c *layersCmd) Name() string     { return "layers" }
func (c *layersCmd) Synopsis() string { return "list layers of a server or a layer config" }
func (c *layersCmd) Usage() string {
	return "tilemark layers (-url <http://host/layers> | -config <layers.yml>)\n"
}
func (c *layersCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.url, "url", "", "Layer list url")
	f.StringVar(&c.configPath, "config", "", "Layer config path")
}

func (c *layersCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	var layers []layer.Descriptor
	var err error
	switch {
	case c.url != "":
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		layers, err = layer.Fetch(ctx, http.DefaultClient, c.url)
	case c.configPath != "":
		layers, err = layer.LoadConfig(c.configPath)
	default:
		log.Println("one of -url or -config is required")
		return subcommands.ExitUsageError
	}
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tZOOM\tKIND\tURL")
	for _, d := range layers {
		kind := "base"
		if d.File {
			kind = "overlay"
		}
		url := d.URL
		if len(d.Parts) > 0 {
			url += " [" + strings.Join(d.Parts, ",") + "]"
		}
		if _, err := d.Options(); err != nil {
			kind += " (invalid)"
		}
		fmt.Fprintf(w, "%s\t%d-%d\t%s\t%s\n", d.Name, d.MinZoom, d.MaxZoom, kind, url)
	}
	if err := w.Flush(); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
