package main

import "strings"

func deduceFormat(format, path string) string {
	if format != "" {
		return format
	}
	switch {
	case strings.HasSuffix(path, ".mbtiles"), strings.HasSuffix(path, ".sqlite"):
		return "mbtiles"
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return "url"
	case strings.Contains(path, "{z}"):
		return "xyz"
	}
	return "key"
}
