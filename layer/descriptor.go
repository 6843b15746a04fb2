// Package layer describes the tile layers a map can show: the descriptor
// list served to the map shell, its YAML configuration and a tile source
// reading a layer's URL template.
package layer

import (
	"errors"
	"fmt"

	"github.com/eak1mov/go-tilemark/xyz"
	"github.com/tidwall/gjson"
)

const maxLayerZoom = 30

var ErrInvalidDescriptor = errors.New("tilemark: invalid layer descriptor")

// Descriptor is one entry of the layer list. File distinguishes overlay
// layers (local tilesets) from base layers. Tms layers count rows from the
// bottom of the world; TileType is the image format of the tiles.
type Descriptor struct {
	URL      string   `json:"url"`
	Name     string   `json:"name"`
	Key      string   `json:"key,omitempty"`
	MinZoom  int      `json:"min_zoom"`
	MaxZoom  int      `json:"max_zoom"`
	Parts    []string `json:"parts,omitempty"`
	File     bool     `json:"file"`
	Tms      bool     `json:"tms,omitempty"`
	TileType string   `json:"tile_type,omitempty"`

	// Path is the tileset file of a file layer.
	Path string `json:"-"`
}

// Options are the validated tile layer settings of a descriptor.
type Options struct {
	MinZoom    int
	MaxZoom    int
	Subdomains []string
	Tms        bool
	TileType   string
}

// Options validates the descriptor and returns its tile layer settings.
func (d Descriptor) Options() (Options, error) {
	pattern, err := xyz.ParsePattern(d.URL)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %q: %w", ErrInvalidDescriptor, d.Name, err)
	}
	if d.MinZoom < 0 || d.MaxZoom > maxLayerZoom || d.MinZoom > d.MaxZoom {
		return Options{}, fmt.Errorf("%w: %q: zoom range [%d, %d]", ErrInvalidDescriptor, d.Name, d.MinZoom, d.MaxZoom)
	}
	if pattern.HasSubdomain() && len(d.Parts) == 0 {
		return Options{}, fmt.Errorf("%w: %q: {s} without parts", ErrInvalidDescriptor, d.Name)
	}
	return Options{
		MinZoom:    d.MinZoom,
		MaxZoom:    d.MaxZoom,
		Subdomains: d.Parts,
		Tms:        d.Tms,
		TileType:   normalizeFormat(d.TileType),
	}, nil
}

// ParseList decodes a JSON array of layer descriptors. Zoom limits are read
// from either "min_zoom" or "minzoom" ("max_zoom" or "maxzoom"), and "file"
// may be a boolean, a number or a string such as "true" or "1".
func ParseList(data []byte) ([]Descriptor, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed json", ErrInvalidDescriptor)
	}
	list := gjson.ParseBytes(data)
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: want array, got %v", ErrInvalidDescriptor, list.Type)
	}

	descriptors := make([]Descriptor, 0)
	for i, item := range list.Array() {
		if !item.IsObject() {
			return nil, fmt.Errorf("%w: item %d is not an object", ErrInvalidDescriptor, i)
		}
		d := Descriptor{
			URL:      item.Get("url").String(),
			Name:     item.Get("name").String(),
			Key:      item.Get("key").String(),
			MinZoom:  int(firstOf(item, "min_zoom", "minzoom").Int()),
			MaxZoom:  int(firstOf(item, "max_zoom", "maxzoom").Int()),
			File:     item.Get("file").Bool(),
			Tms:      item.Get("tms").Bool(),
			TileType: firstOf(item, "tile_type", "tileType").String(),
		}
		for _, part := range item.Get("parts").Array() {
			d.Parts = append(d.Parts, part.String())
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

func firstOf(item gjson.Result, keys ...string) gjson.Result {
	for _, key := range keys {
		if v := item.Get(key); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}
