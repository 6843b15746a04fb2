// Package xyz handles "{z}/{x}/{y}" tile templates: tile URL templates of
// remote layers and XYZ directories, where tiles are stored as individual
// files with paths like "/z/x/y.ext".
package xyz

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/eak1mov/go-tilemark/tile"
)

var ErrInvalidPattern = errors.New("tilemark: invalid tile pattern")

// Pattern is a validated tile template. An optional "{s}" placeholder is
// replaced by a subdomain.
type Pattern struct {
	template string
}

func ParsePattern(template string) (Pattern, error) {
	for _, p := range []string{"{x}", "{y}", "{z}"} {
		if !strings.Contains(template, p) {
			return Pattern{}, fmt.Errorf("%w: placeholder %v not found", ErrInvalidPattern, p)
		}
	}
	return Pattern{template}, nil
}

func (p Pattern) String() string {
	return p.template
}

// HasSubdomain reports whether the template contains "{s}".
func (p Pattern) HasSubdomain() bool {
	return strings.Contains(p.template, "{s}")
}

func (p Pattern) Format(tileID tile.ID, subdomain string) string {
	result := p.template
	result = strings.ReplaceAll(result, "{x}", strconv.FormatUint(uint64(tileID.X), 10))
	result = strings.ReplaceAll(result, "{y}", strconv.FormatUint(uint64(tileID.Y), 10))
	result = strings.ReplaceAll(result, "{z}", strconv.FormatUint(uint64(tileID.Z), 10))
	result = strings.ReplaceAll(result, "{s}", subdomain)
	return result
}
