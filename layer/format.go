package layer

import "strings"

// ImageFormat guesses the MBTiles "format" metadata value from a tile
// template or file name.
func ImageFormat(template string) string {
	template = strings.ToLower(template)
	switch {
	case strings.Contains(template, ".jpg"), strings.Contains(template, ".jpeg"):
		return "jpg"
	case strings.Contains(template, ".webp"):
		return "webp"
	case strings.Contains(template, ".pbf"), strings.Contains(template, ".mvt"):
		return "pbf"
	}
	return "png"
}

func normalizeFormat(tileType string) string {
	tileType = strings.ToLower(strings.TrimPrefix(tileType, "."))
	if tileType == "jpeg" {
		return "jpg"
	}
	return tileType
}

// ContentType returns the MIME type of tiles in the given format.
func ContentType(format string) string {
	switch normalizeFormat(format) {
	case "jpg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	case "pbf":
		return "application/x-protobuf"
	}
	return "image/png"
}
