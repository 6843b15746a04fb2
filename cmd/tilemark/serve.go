package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eak1mov/go-tilemark/grid"
	"github.com/eak1mov/go-tilemark/layer"
	"github.com/eak1mov/go-tilemark/server"
	"github.com/eak1mov/go-tilemark/session"
	"github.com/google/subcommands"
)

type serveCmd struct {
	addr       string
	layersPath string
	filesDir   string
	delta      int
	filename   string
	debug      bool
}

func (c *serveCmd) Name() string     { return "serve" }
func (c *serveCmd) Synopsis() string { return "serve the selection session and layer list over http" }
func (c *serveCmd) Usage() string {
	return "tilemark serve [-addr <addr>] [-layers <path>] [-files <dir>] [-delta <n>] [-debug]\n"
}
func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", ":8888", "Listen address")
	f.StringVar(&c.layersPath, "layers", "layers.yml", "Layer config path")
	f.StringVar(&c.filesDir, "files", "", "Directory of mbtiles files served as overlay layers")
	f.IntVar(&c.delta, "delta", grid.DefaultDelta, "Selection levels below display zoom")
	f.StringVar(&c.filename, "filename", "tiles", "Export file name")
	f.BoolVar(&c.debug, "debug", false, "Debug logging")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	var h slog.Handler
	if c.debug {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	logger := slog.New(h)
	slog.SetDefault(logger)

	layers, err := layer.LoadConfig(c.layersPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	files := make([]layer.Descriptor, 0)
	if c.filesDir != "" {
		if err := os.MkdirAll(c.filesDir, 0755); err != nil {
			log.Println(err)
			return subcommands.ExitFailure
		}
		files, err = layer.LoadFiles(c.filesDir, logger)
		if err != nil {
			log.Println(err)
			return subcommands.ExitFailure
		}
	}

	s, err := session.New(
		session.WithDelta(c.delta),
		session.WithLogger(logger),
		session.WithChangeListener(func(e session.Event) {
			logger.Info("selection changed", "kind", e.Kind, "changed", e.Changed, "count", e.Count)
		}),
	)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	srv := server.New(s,
		server.WithLayers(layers),
		server.WithFiles(files),
		server.WithLogger(logger),
		server.WithExportFilename(c.filename),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Watch(ctx, c.layersPath, c.filesDir); err != nil {
			logger.Error("layer config watch stopped", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:              c.addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("listening on " + c.addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Println(err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
