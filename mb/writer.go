package mb

import (
	"database/sql"
	"errors"
	"log/slog"
	"strconv"

	"github.com/eak1mov/go-tilemark/tile"
)

// Writer implements tile.Writer interface for MBTiles format.
type Writer struct {
	db       *sql.DB
	stmt     *sql.Stmt
	logger   *slog.Logger
	metadata map[string]string

	minZoom uint32
	maxZoom uint32
	written int
}

type writerConfig struct {
	Metadata map[string]string
	Logger   *slog.Logger
}

type WriterOption func(*writerConfig)

// WithMetadata sets metadata rows. "minzoom" and "maxzoom" default to the
// levels of the written tiles, "scheme" is always "tms".
func WithMetadata(metadata map[string]string) WriterOption {
	return func(c *writerConfig) { c.Metadata = metadata }
}

func WithLogger(logger *slog.Logger) WriterOption {
	return func(c *writerConfig) { c.Logger = logger }
}

// NewWriter creates a new Writer for writing to a MBTiles file.
// It applies given options and initializes database for writing tiles.
func NewWriter(filePath string, opts ...WriterOption) (*Writer, error) {
	config := writerConfig{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	var err error
	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	_, err = db.Exec(`
		CREATE TABLE metadata (name TEXT, value TEXT);
		CREATE TABLE tiles (
			zoom_level INTEGER NOT NULL,
			tile_column INTEGER NOT NULL,
			tile_row INTEGER NOT NULL,
			tile_data BLOB NOT NULL
		);
	`)
	if err != nil {
		return nil, err
	}

	stmt, err := db.Prepare("INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return nil, err
	}

	metadata := make(map[string]string, len(config.Metadata)+1)
	for k, v := range config.Metadata {
		metadata[k] = v
	}
	metadata["scheme"] = "tms"

	return &Writer{db: db, stmt: stmt, logger: config.Logger, metadata: metadata}, nil
}

func (w *Writer) Close() error {
	return errors.Join(w.stmt.Close(), w.db.Close())
}

func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	x, y, z := tileID.X, tileID.Y, tileID.Z
	y = (1 << z) - 1 - y // XYZ -> TMS

	if _, err := w.stmt.Exec(z, x, y, tileData); err != nil {
		return err
	}

	if w.written == 0 || z < w.minZoom {
		w.minZoom = z
	}
	if w.written == 0 || z > w.maxZoom {
		w.maxZoom = z
	}
	w.written++
	return nil
}

func (w *Writer) Finalize() error {
	if w.written > 0 {
		if _, ok := w.metadata["minzoom"]; !ok {
			w.metadata["minzoom"] = strconv.Itoa(int(w.minZoom))
		}
		if _, ok := w.metadata["maxzoom"]; !ok {
			w.metadata["maxzoom"] = strconv.Itoa(int(w.maxZoom))
		}
	}

	w.logger.Debug("tilemark: writing metadata", "rows", len(w.metadata))
	for k, v := range w.metadata {
		if _, err := w.db.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", k, v); err != nil {
			return err
		}
	}

	w.logger.Debug("tilemark: creating index", "tiles", w.written)
	_, err := w.db.Exec("CREATE UNIQUE INDEX tile_index ON tiles (zoom_level, tile_column, tile_row)")

	w.logger.Debug("tilemark: done!")
	return err
}
