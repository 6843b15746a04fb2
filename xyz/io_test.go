package xyz_test

import (
	"maps"
	"os"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-tilemark/tile"
	"github.com/eak1mov/go-tilemark/xyz"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestWriterReader(t *testing.T) {
	rootDir := t.TempDir()
	pattern := filepath.Join(rootDir, "{z}", "{x}", "{y}.png")

	tiles := map[tile.ID][]byte{
		{X: 0, Y: 0, Z: 0}: []byte("tile000"),
		{X: 1, Y: 1, Z: 1}: []byte("tile111"),
		{X: 0, Y: 0, Z: 6}: []byte("tile006"),
		{X: 6, Y: 6, Z: 6}: []byte("tile666"),
	}

	writer, err := xyz.NewWriter(pattern)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	for tileID, tileData := range tiles {
		if err := writer.WriteTile(tileID, tileData); err != nil {
			t.Errorf("WriteTile(%v) failed: %v", tileID, err)
		}
	}

	if err := writer.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	// neither matches the pattern
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "README"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "1", "1", "5.png"), []byte("x"), 0644))

	reader, err := xyz.NewReader(pattern)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	if got, want := maps.Collect(tile.IterTiles(reader)), tiles; !cmp.Equal(got, want) {
		t.Errorf("VisitTiles data mismatch")
	}

	for tileID, tileData := range tiles {
		data, err := reader.ReadTile(tileID)
		if err != nil {
			t.Errorf("ReadTile(%v) failed: %v", tileID, err)
			continue
		}
		if !cmp.Equal(data, tileData) {
			t.Errorf("ReadTile data mismatch for %v", tileID)
		}
	}

	tileData, err := reader.ReadTile(tile.ID{X: 9, Y: 9, Z: 9})
	if err != nil {
		t.Errorf("ReadTile(missing tile) failed: %v", err)
	}
	if len(tileData) != 0 {
		t.Errorf("ReadTile(missing tile) expected empty tile, got: %v bytes", len(tileData))
	}
}

func TestPattern(t *testing.T) {
	p, err := xyz.ParsePattern("https://{s}.tile.example.org/{z}/{x}/{y}.png")
	require.NoError(t, err)
	require.True(t, p.HasSubdomain())
	require.Equal(t, "https://b.tile.example.org/13/37/25.png", p.Format(tile.ID{X: 37, Y: 25, Z: 13}, "b"))

	_, err = xyz.ParsePattern("https://tile.example.org/{z}/{x}.png")
	require.ErrorIs(t, err, xyz.ErrInvalidPattern)

	_, err = xyz.NewWriter("/tmp/{s}/{z}/{x}/{y}.png")
	require.ErrorIs(t, err, xyz.ErrInvalidPattern)
}
