package layer_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-tilemark/internal"
	"github.com/eak1mov/go-tilemark/layer"
	"github.com/eak1mov/go-tilemark/mb"
	"github.com/eak1mov/go-tilemark/tile"
	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func TestParseList(t *testing.T) {
	data := []byte(`[
		{"url": "/tiles/osm/{z}/{x}/{y}", "name": "osm", "min_zoom": 0, "max_zoom": 19, "file": false},
		{"url": "https://{s}.example.org/{z}/{x}/{y}.png", "name": "topo", "minzoom": 2, "maxzoom": 17, "parts": ["a", "b"]},
		{"url": "/tiles/local/{z}/{x}/{y}", "name": "local", "min_zoom": 5, "max_zoom": 12, "file": "true"},
		{"url": "/tiles/other/{z}/{x}/{y}", "name": "other", "minzoom": "3", "maxzoom": "9", "file": 1},
		{"url": "/tiles/sat/{z}/{x}/{y}", "name": "sat", "key": "sat", "max_zoom": 18, "tms": true, "tileType": "jpg"}
	]`)

	got, err := layer.ParseList(data)
	require.NoError(t, err)

	want := []layer.Descriptor{
		{URL: "/tiles/osm/{z}/{x}/{y}", Name: "osm", MinZoom: 0, MaxZoom: 19},
		{URL: "https://{s}.example.org/{z}/{x}/{y}.png", Name: "topo", MinZoom: 2, MaxZoom: 17, Parts: []string{"a", "b"}},
		{URL: "/tiles/local/{z}/{x}/{y}", Name: "local", MinZoom: 5, MaxZoom: 12, File: true},
		{URL: "/tiles/other/{z}/{x}/{y}", Name: "other", MinZoom: 3, MaxZoom: 9, File: true},
		{URL: "/tiles/sat/{z}/{x}/{y}", Name: "sat", Key: "sat", MaxZoom: 18, Tms: true, TileType: "jpg"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseList mismatch (-want+got):\n%v", diff)
	}
}

func TestParseListErrors(t *testing.T) {
	for _, data := range []string{
		`{"url": "x"}`,
		`[1, 2]`,
		`[{"url": `,
	} {
		_, err := layer.ParseList([]byte(data))
		require.ErrorIs(t, err, layer.ErrInvalidDescriptor, data)
	}

	got, err := layer.ParseList([]byte(`[]`))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestOptions(t *testing.T) {
	d := layer.Descriptor{URL: "https://{s}.example.org/{z}/{x}/{y}.png", Name: "topo", MinZoom: 2, MaxZoom: 17, Parts: []string{"a"}}
	options, err := d.Options()
	require.NoError(t, err)
	require.Equal(t, layer.Options{MinZoom: 2, MaxZoom: 17, Subdomains: []string{"a"}}, options)

	for _, bad := range []layer.Descriptor{
		{URL: "https://example.org/{z}/{x}.png", MaxZoom: 5},
		{URL: "https://example.org/{z}/{x}/{y}.png", MinZoom: 6, MaxZoom: 5},
		{URL: "https://example.org/{z}/{x}/{y}.png", MinZoom: -1, MaxZoom: 5},
		{URL: "https://example.org/{z}/{x}/{y}.png", MaxZoom: 31},
		{URL: "https://{s}.example.org/{z}/{x}/{y}.png", MaxZoom: 5},
	} {
		_, err := bad.Options()
		require.ErrorIs(t, err, layer.ErrInvalidDescriptor, bad.URL)
	}
}

func TestLoadConfig(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "layers.yml")
	require.NoError(t, os.WriteFile(filePath, []byte(`
- name: Topo
  key: topo
  url: https://{s}.example.org/{z}/{x}/{y}.png
  minZoom: 1
  maxZoom: 17
  serverParts: [a, b, c]
- key: osm
  url: https://tile.example.org/{z}/{x}/{y}.png
  maxZoom: 19
- name: Sat
  key: sat
  url: https://sat.example.org/{z}/{x}/{y}
  maxZoom: 18
  tms: true
  tileType: JPEG
`), 0644))

	got, err := layer.LoadConfig(filePath)
	require.NoError(t, err)

	want := []layer.Descriptor{
		{URL: "https://sat.example.org/{z}/{x}/{y}", Name: "Sat", Key: "sat", MaxZoom: 18, Tms: true, TileType: "JPEG"},
		{URL: "https://{s}.example.org/{z}/{x}/{y}.png", Name: "Topo", Key: "topo", MinZoom: 1, MaxZoom: 17, Parts: []string{"a", "b", "c"}},
		{URL: "https://tile.example.org/{z}/{x}/{y}.png", Name: "osm", Key: "osm", MaxZoom: 19},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadConfig mismatch (-want+got):\n%v", diff)
	}

	options, err := got[0].Options()
	require.NoError(t, err)
	require.Equal(t, layer.Options{MaxZoom: 18, Tms: true, TileType: "jpg"}, options)

	d, ok := layer.Find(got, "topo")
	require.True(t, ok)
	require.Equal(t, "Topo", d.Name)
	_, ok = layer.Find(got, "Topo")
	require.False(t, ok)
	_, ok = layer.Find(got, "missing")
	require.False(t, ok)

	require.NoError(t, os.WriteFile(filePath, []byte("- url: nowhere\n"), 0644))
	_, err = layer.LoadConfig(filePath)
	require.ErrorIs(t, err, layer.ErrInvalidDescriptor)
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/layers" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[{"url": "/t/{z}/{x}/{y}", "name": "a", "max_zoom": 3}]`))
	}))
	defer server.Close()

	got, err := layer.Fetch(context.Background(), server.Client(), server.URL+"/layers")
	require.NoError(t, err)
	require.Equal(t, []layer.Descriptor{{URL: "/t/{z}/{x}/{y}", Name: "a", MaxZoom: 3}}, got)

	_, err = layer.Fetch(context.Background(), server.Client(), server.URL+"/missing")
	require.ErrorContains(t, err, "404")
}

func TestSource(t *testing.T) {
	server := internal.NewTileServer(t, map[tile.ID][]byte{
		{X: 37, Y: 25, Z: 13}: []byte("tile"),
	})

	source, err := layer.NewSource(layer.Descriptor{
		URL:     server.Template(),
		Name:    "test",
		MinZoom: 10,
		MaxZoom: 14,
		Parts:   []string{"a", "b"},
	}, layer.WithHTTPClient(server.Client()))
	require.NoError(t, err)

	data, err := source.ReadTile(tile.ID{X: 37, Y: 25, Z: 13})
	require.NoError(t, err)
	require.Equal(t, []byte("tile"), data)

	data, err = source.ReadTile(tile.ID{X: 1, Y: 1, Z: 13})
	require.NoError(t, err)
	require.Empty(t, data)

	// outside of the zoom range, no request is made
	data, err = source.ReadTile(tile.ID{X: 0, Y: 0, Z: 2})
	require.NoError(t, err)
	require.Empty(t, data)

	require.Equal(t, []string{"a", "b"}, server.Subdomains())
}

func TestSourceErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	source, err := layer.NewSource(layer.Descriptor{URL: server.URL + "/{z}/{x}/{y}.png", MaxZoom: 20})
	require.NoError(t, err)

	_, err = source.ReadTile(tile.ID{X: 0, Y: 0, Z: 0})
	require.ErrorContains(t, err, "500")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = source.ReadTileContext(ctx, tile.ID{X: 0, Y: 0, Z: 0})
	require.ErrorIs(t, err, context.Canceled)

	_, err = layer.NewSource(layer.Descriptor{URL: "https://{s}.example.org/{z}/{x}/{y}.png", MaxZoom: 20})
	require.ErrorIs(t, err, layer.ErrInvalidDescriptor)
}

func TestSourceTms(t *testing.T) {
	server := internal.NewTileServer(t, map[tile.ID][]byte{
		// tms row of xyz 2/1/0
		{X: 1, Y: 3, Z: 2}: []byte("tms-row"),
	})

	source, err := layer.NewSource(layer.Descriptor{
		URL:     server.URL + "/{z}/{x}/{y}.png",
		MaxZoom: 5,
		Tms:     true,
	}, layer.WithHTTPClient(server.Client()))
	require.NoError(t, err)

	require.Equal(t, server.URL+"/2/1/3.png", source.URL(tile.ID{X: 1, Y: 0, Z: 2}))
	data, err := source.ReadTile(tile.ID{X: 1, Y: 0, Z: 2})
	require.NoError(t, err)
	require.Equal(t, "tms-row", string(data))

	require.Equal(t, server.URL+"/0/0/0.png", source.URL(tile.ID{}))
}

func TestSourceFormat(t *testing.T) {
	for _, tc := range []struct {
		URL      string
		TileType string
		Want     string
	}{
		{"https://example.org/{z}/{x}/{y}.png", "", "png"},
		{"https://example.org/{z}/{x}/{y}.JPG", "", "jpg"},
		{"https://example.org/{z}/{x}/{y}", "", "png"},
		{"https://example.org/{z}/{x}/{y}", "jpeg", "jpg"},
		{"https://example.org/{z}/{x}/{y}.png", "webp", "webp"},
	} {
		source, err := layer.NewSource(layer.Descriptor{URL: tc.URL, MaxZoom: 5, TileType: tc.TileType})
		require.NoError(t, err)
		require.Equal(t, tc.Want, source.Format(), tc)
	}

	require.Equal(t, "image/jpeg", layer.ContentType("jpeg"))
	require.Equal(t, "image/webp", layer.ContentType("webp"))
	require.Equal(t, "image/png", layer.ContentType(""))
}

func writeTileset(t *testing.T, filePath string, metadata map[string]string, tiles map[tile.ID][]byte) {
	t.Helper()
	writer, err := mb.NewWriter(filePath, mb.WithMetadata(metadata))
	require.NoError(t, err)
	defer writer.Close()
	for tileID, tileData := range tiles {
		require.NoError(t, writer.WriteTile(tileID, tileData))
	}
	require.NoError(t, writer.Finalize())
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	writeTileset(t, filepath.Join(dir, "b.mbtiles"), map[string]string{"name": "Alpha", "format": "jpg"}, map[tile.ID][]byte{
		{X: 0, Y: 0, Z: 3}:   []byte("a"),
		{X: 37, Y: 25, Z: 6}: []byte("b"),
	})
	writeTileset(t, filepath.Join(dir, "a.sqlite"), map[string]string{"minzoom": "2", "maxzoom": "9"}, map[tile.ID][]byte{
		{X: 1, Y: 1, Z: 4}: []byte("c"),
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.mbtiles"), []byte("not a database"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("5/3/7"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.mbtiles"), 0755))

	got, err := layer.LoadFiles(dir, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	want := []layer.Descriptor{
		{URL: "/tiles/b.mbtiles/{z}/{x}/{y}", Name: "Alpha", Key: "b.mbtiles", MinZoom: 3, MaxZoom: 6, File: true, TileType: "jpg", Path: filepath.Join(dir, "b.mbtiles")},
		{URL: "/tiles/a.sqlite/{z}/{x}/{y}", Name: "a.sqlite", Key: "a.sqlite", MinZoom: 2, MaxZoom: 9, File: true, Path: filepath.Join(dir, "a.sqlite")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadFiles mismatch (-want+got):\n%v", diff)
	}

	_, err = layer.LoadFiles(filepath.Join(dir, "missing"), slog.New(slog.DiscardHandler))
	require.Error(t, err)
}
