package layer

import (
	"cmp"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/eak1mov/go-tilemark/mb"
)

// IsTilesetFile reports whether the file name has an MBTiles extension.
func IsTilesetFile(name string) bool {
	return strings.HasSuffix(name, ".mbtiles") || strings.HasSuffix(name, ".sqlite")
}

// TileURL returns the URL template a file layer is served at.
func TileURL(key string) string {
	return "/tiles/" + url.PathEscape(key) + "/{z}/{x}/{y}"
}

// LoadFiles lists the MBTiles files of dir as overlay layers keyed by file
// name. Files that cannot be read are logged and skipped.
func LoadFiles(dir string, logger *slog.Logger) ([]Descriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	descriptors := make([]Descriptor, 0)
	for _, entry := range entries {
		if entry.IsDir() || !IsTilesetFile(entry.Name()) {
			continue
		}
		filePath := filepath.Join(dir, entry.Name())
		d, err := loadFile(filePath, entry.Name())
		if err != nil {
			logger.Error("tilemark: skipping tileset", "file", filePath, "error", err)
			continue
		}
		logger.Info("tilemark: loaded tileset", "file", filePath, "name", d.Name)
		descriptors = append(descriptors, d)
	}

	slices.SortStableFunc(descriptors, func(a, b Descriptor) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return descriptors, nil
}

func loadFile(filePath, key string) (Descriptor, error) {
	reader, err := mb.NewReader(filePath)
	if err != nil {
		return Descriptor{}, err
	}
	defer reader.Close()

	metadata, err := reader.ReadMetadata()
	if err != nil {
		return Descriptor{}, err
	}
	minZoom, maxZoom, err := reader.ZoomRange()
	if err != nil {
		return Descriptor{}, err
	}

	name := metadata["name"]
	if name == "" {
		name = key
	}
	d := Descriptor{
		URL:      TileURL(key),
		Name:     name,
		Key:      key,
		MinZoom:  minZoom,
		MaxZoom:  maxZoom,
		File:     true,
		TileType: metadata["format"],
		Path:     filePath,
	}
	if _, err := d.Options(); err != nil {
		return Descriptor{}, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
