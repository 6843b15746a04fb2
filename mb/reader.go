// Package mb provides API for reading and writing tiles and metadata in MBTiles format.
//
// Note: User must properly initialize the sqlite3 library generic driver
// (e.g. import _ "github.com/mattn/go-sqlite3") before using this package.
package mb

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/eak1mov/go-tilemark/tile"
)

// Reader implements tile.Reader interface for MBTiles format.
type Reader struct {
	db   *sql.DB
	stmt *sql.Stmt
	tms  bool
}

// NewReader creates a new Reader for the given MBTiles file path.
//
// The returned Reader must be closed after use to release database resources.
func NewReader(filePath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", filePath))
	if err != nil {
		return nil, err
	}

	stmt, err := db.Prepare("SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?")
	if err != nil {
		db.Close()
		return nil, err
	}

	r := &Reader{db: db, stmt: stmt, tms: true}

	// MBTiles is TMS unless the file says otherwise
	metadata, err := r.ReadMetadata()
	if err != nil {
		r.Close()
		return nil, err
	}
	if scheme, ok := metadata["scheme"]; ok && scheme != "tms" {
		r.tms = false
	}

	return r, nil
}

func (r *Reader) Close() error {
	return errors.Join(r.stmt.Close(), r.db.Close())
}

func (r *Reader) ReadMetadata() (map[string]string, error) {
	metadata := make(map[string]string)

	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		metadata[name] = value
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return metadata, nil
}

// ZoomRange returns the zoom levels covered by the tileset. Metadata values
// take precedence over the levels actually present in the tiles table.
func (r *Reader) ZoomRange() (minZoom, maxZoom int, err error) {
	var dbMin, dbMax sql.NullInt64
	if err := r.db.QueryRow("SELECT min(zoom_level), max(zoom_level) FROM tiles").Scan(&dbMin, &dbMax); err != nil {
		return 0, 0, err
	}
	minZoom, maxZoom = int(dbMin.Int64), int(dbMax.Int64)

	metadata, err := r.ReadMetadata()
	if err != nil {
		return 0, 0, err
	}
	if v, err := strconv.Atoi(metadata["minzoom"]); err == nil {
		minZoom = v
	}
	if v, err := strconv.Atoi(metadata["maxzoom"]); err == nil {
		maxZoom = v
	}
	return minZoom, maxZoom, nil
}

func (r *Reader) flipY(z, y uint32) uint32 {
	if !r.tms {
		return y
	}
	return (1 << z) - 1 - y // XYZ <-> TMS
}

func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	x, y, z := tileID.X, r.flipY(tileID.Z, tileID.Y), tileID.Z

	var tileData []byte
	if err := r.stmt.QueryRow(z, x, y).Scan(&tileData); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return make([]byte, 0), nil
		}
		return nil, err
	}

	return tileData, nil
}

func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	rows, err := r.db.Query("SELECT zoom_level, tile_column, tile_row, tile_data FROM tiles")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var x, y, z uint32
		var tileData []byte

		if err := rows.Scan(&z, &x, &y, &tileData); err != nil {
			return err
		}

		if err := visitor(tile.ID{X: x, Y: r.flipY(z, y), Z: z}, tileData); err != nil {
			return err
		}
	}

	return rows.Err()
}
