package captions

import (
	"fmt"
	"sort"
	"strings"
)

// Format identifies a caption output format.
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
	FormatASS Format = "ass"
	FormatTXT Format = "txt"
)

var knownFormats = map[Format]struct{}{
	FormatSRT: {},
	FormatVTT: {},
	FormatASS: {},
	FormatTXT: {},
}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := knownFormats[format]; !ok {
		return "", fmt.Errorf("unknown caption format %q (available: %s)", name, strings.Join(FormatNames(), ", "))
	}
	return format, nil
}

// FormatNames returns the supported format names in sorted order.
func FormatNames() []string {
	names := make([]string, 0, len(knownFormats))
	for format := range knownFormats {
		names = append(names, string(format))
	}
	sort.Strings(names)
	return names
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}
