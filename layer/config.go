package layer

import (
	"cmp"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ConfigEntry is one layer in a layers.yml file.
type ConfigEntry struct {
	Name        string   `yaml:"name"`
	Key         string   `yaml:"key"`
	URL         string   `yaml:"url"`
	MinZoom     int      `yaml:"minZoom"`
	MaxZoom     int      `yaml:"maxZoom"`
	Tms         bool     `yaml:"tms"`
	TileType    string   `yaml:"tileType"`
	ServerParts []string `yaml:"serverParts"`
	File        bool     `yaml:"file"`
}

func (e ConfigEntry) Descriptor() Descriptor {
	name := e.Name
	if name == "" {
		name = e.Key
	}
	return Descriptor{
		URL:      e.URL,
		Name:     name,
		Key:      e.Key,
		MinZoom:  e.MinZoom,
		MaxZoom:  e.MaxZoom,
		Parts:    e.ServerParts,
		File:     e.File,
		Tms:      e.Tms,
		TileType: e.TileType,
	}
}

// ParseConfig decodes a YAML list of layers and returns valid descriptors
// sorted by name.
func ParseConfig(data []byte) ([]Descriptor, error) {
	var entries []ConfigEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDescriptor, err)
	}

	descriptors := make([]Descriptor, 0, len(entries))
	for _, e := range entries {
		d := e.Descriptor()
		if _, err := d.Options(); err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}

	slices.SortStableFunc(descriptors, func(a, b Descriptor) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return descriptors, nil
}

func LoadConfig(filePath string) ([]Descriptor, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// Find returns the descriptor with the given key, or with the given name for
// layers without a key.
func Find(descriptors []Descriptor, key string) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.Key == key || (d.Key == "" && d.Name == key) {
			return d, true
		}
	}
	return Descriptor{}, false
}
