package styles

import (
	"fmt"
	"sort"
	"strings"
)

// Alignment values match the SSA numpad convention used by libass.
const (
	AlignLeft   = 1
	AlignCenter = 2
	AlignRight  = 3
)

// Wrap modes as understood by libass WrapStyle.
const (
	WrapSmart       = 0
	WrapEndOfLine   = 1
	WrapNoWordWrap  = 2
	WrapSmartBottom = 3
)

// Descriptor is a complete visual styling recipe for rendered captions.
// Colors are "#RRGGBB" strings; margins are in PlayRes pixels.
type Descriptor struct {
	Name              string
	FontName          string
	FontSize          int
	FontColor         string
	OutlineColor      string
	ShadowColor       string
	BackgroundColor   string
	BackgroundOpacity float64
	OutlineWidth      int
	ShadowOffset      int
	Alignment         int
	MarginVertical    int
	MarginHorizontal  int
	MaxCharsPerLine   int
	LineSpacing       int
	WrapStyle         int
}

// DefaultName is the preset applied when a job does not request one.
const DefaultName = "default"

var presets = map[string]Descriptor{
	"default": {
		Name:              "default",
		FontName:          "Arial",
		FontSize:          24,
		FontColor:         "#FFFFFF",
		OutlineColor:      "#000000",
		ShadowColor:       "#000000",
		BackgroundColor:   "#000000",
		BackgroundOpacity: 0.7,
		OutlineWidth:      2,
		ShadowOffset:      1,
		Alignment:         AlignCenter,
		MarginVertical:    30,
		MarginHorizontal:  20,
		MaxCharsPerLine:   50,
		LineSpacing:       5,
		WrapStyle:         WrapSmart,
	},
	"bold": {
		Name:              "bold",
		FontName:          "Arial",
		FontSize:          28,
		FontColor:         "#FFFFFF",
		OutlineColor:      "#000000",
		ShadowColor:       "#000000",
		BackgroundColor:   "#222222",
		BackgroundOpacity: 0.85,
		OutlineWidth:      3,
		ShadowOffset:      2,
		Alignment:         AlignCenter,
		MarginVertical:    40,
		MarginHorizontal:  30,
		MaxCharsPerLine:   42,
		LineSpacing:       5,
		WrapStyle:         WrapSmart,
	},
	"elegant": {
		Name:              "elegant",
		FontName:          "Times New Roman",
		FontSize:          26,
		FontColor:         "#F5F5DC",
		OutlineColor:      "#2F2F2F",
		ShadowColor:       "#1A1A1A",
		BackgroundColor:   "#2F2F2F",
		BackgroundOpacity: 0.7,
		OutlineWidth:      1,
		ShadowOffset:      1,
		Alignment:         AlignCenter,
		MarginVertical:    50,
		MarginHorizontal:  60,
		MaxCharsPerLine:   45,
		LineSpacing:       8,
		WrapStyle:         WrapSmart,
	},
	"cinema": {
		Name:              "cinema",
		FontName:          "Arial",
		FontSize:          32,
		FontColor:         "#FFD700",
		OutlineColor:      "#000000",
		ShadowColor:       "#000000",
		BackgroundColor:   "#000000",
		BackgroundOpacity: 0.9,
		OutlineWidth:      2,
		ShadowOffset:      3,
		Alignment:         AlignCenter,
		MarginVertical:    30,
		MarginHorizontal:  20,
		MaxCharsPerLine:   38,
		LineSpacing:       4,
		WrapStyle:         WrapSmartBottom,
	},
	"modern": {
		Name:              "modern",
		FontName:          "Roboto",
		FontSize:          24,
		FontColor:         "#00FF41",
		OutlineColor:      "#1A1A1A",
		ShadowColor:       "#0A0A0A",
		BackgroundColor:   "#1A1A1A",
		BackgroundOpacity: 0.7,
		OutlineWidth:      1,
		ShadowOffset:      2,
		Alignment:         AlignCenter,
		MarginVertical:    35,
		MarginHorizontal:  40,
		MaxCharsPerLine:   50,
		LineSpacing:       6,
		WrapStyle:         WrapSmart,
	},
	"minimal": {
		Name:              "minimal",
		FontName:          "Arial",
		FontSize:          20,
		FontColor:         "#FFFFFF",
		OutlineColor:      "#000000",
		ShadowColor:       "#000000",
		BackgroundColor:   "#000000",
		BackgroundOpacity: 0.5,
		OutlineWidth:      0,
		ShadowOffset:      0,
		Alignment:         AlignCenter,
		MarginVertical:    20,
		MarginHorizontal:  10,
		MaxCharsPerLine:   55,
		LineSpacing:       3,
		WrapStyle:         WrapEndOfLine,
	},
	"terminal": {
		Name:              "terminal",
		FontName:          "Courier New",
		FontSize:          22,
		FontColor:         "#00FF00",
		OutlineColor:      "#003300",
		ShadowColor:       "#001100",
		BackgroundColor:   "#000000",
		BackgroundOpacity: 0.8,
		OutlineWidth:      0,
		ShadowOffset:      1,
		Alignment:         AlignLeft,
		MarginVertical:    25,
		MarginHorizontal:  50,
		MaxCharsPerLine:   60,
		LineSpacing:       2,
		WrapStyle:         WrapEndOfLine,
	},
}

// Lookup resolves a preset by name. Names are case-insensitive; the empty
// string resolves to the default preset. Unknown names are an error so bad
// requests fail before any stage runs.
func Lookup(name string) (Descriptor, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultName
	}
	desc, ok := presets[key]
	if !ok {
		return Descriptor{}, fmt.Errorf("unknown style preset %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return desc, nil
}

// Names returns the available preset names in sorted order.
func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
