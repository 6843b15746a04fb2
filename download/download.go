// Package download copies the tiles named by a selection from a source
// tileset into a destination tileset.
package download

import (
	"context"
	"iter"
	"log/slog"
	"sync"

	"github.com/eak1mov/go-tilemark/tile"
	"golang.org/x/sync/semaphore"
)

// ContextReader is implemented by sources that can cancel a read in flight,
// such as layer.Source.
type ContextReader interface {
	ReadTileContext(ctx context.Context, tileID tile.ID) ([]byte, error)
}

// Stats counts the outcome of a Run.
type Stats struct {
	Requested int
	Written   int
	Missing   int
	Failed    int
}

type config struct {
	Workers  int
	Logger   *slog.Logger
	Progress func(tile.ID)
}

type Option func(*config)

// WithWorkers sets the number of concurrent reads, 2 by default.
func WithWorkers(workers int) Option {
	return func(c *config) { c.Workers = max(workers, 1) }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

// WithProgress registers a callback invoked once per finished tile. It may
// be called from several goroutines at once.
func WithProgress(progress func(tile.ID)) Option {
	return func(c *config) { c.Progress = progress }
}

type result struct {
	tileID   tile.ID
	tileData []byte
}

// Run reads every tile in ids from src and writes the non-empty ones to dst.
// Reads run concurrently; all writes happen on a single goroutine. Failed
// reads are logged and counted, a failed write stops the run. Run does not
// call dst.Finalize.
func Run(ctx context.Context, ids iter.Seq[tile.ID], src tile.Reader, dst tile.Writer, opts ...Option) (Stats, error) {
	config := config{
		Workers:  2,
		Logger:   slog.New(slog.DiscardHandler),
		Progress: func(tile.ID) {},
	}
	for _, opt := range opts {
		opt(&config)
	}

	read := func(ctx context.Context, tileID tile.ID) ([]byte, error) {
		if r, ok := src.(ContextReader); ok {
			return r.ReadTileContext(ctx, tileID)
		}
		return src.ReadTile(tileID)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		stats    Stats
		mu       sync.Mutex
		writeErr error
	)
	results := make(chan result)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for r := range results {
			if writeErr != nil {
				continue
			}
			if err := dst.WriteTile(r.tileID, r.tileData); err != nil {
				writeErr = err
				cancel()
				continue
			}
			mu.Lock()
			stats.Written++
			mu.Unlock()
			config.Progress(r.tileID)
		}
	}()

	sem := semaphore.NewWeighted(int64(config.Workers))
	var wg sync.WaitGroup

	for tileID := range ids {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		stats.Requested++

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			tileData, err := read(ctx, tileID)
			if err != nil {
				if ctx.Err() == nil {
					config.Logger.Error("tilemark: read failed", "tile", tileID.String(), "error", err)
				}
				mu.Lock()
				stats.Failed++
				mu.Unlock()
				config.Progress(tileID)
				return
			}
			if len(tileData) == 0 {
				config.Logger.Debug("tilemark: empty tile", "tile", tileID.String())
				mu.Lock()
				stats.Missing++
				mu.Unlock()
				config.Progress(tileID)
				return
			}
			select {
			case results <- result{tileID, tileData}:
			case <-ctx.Done():
				mu.Lock()
				stats.Failed++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	close(results)
	<-writerDone

	if writeErr != nil {
		return stats, writeErr
	}
	return stats, ctx.Err()
}
