package styles

import (
	"fmt"
	"strconv"
	"strings"
)

// ASSColor converts "#RRGGBB" (or short "#RGB") to the libass &HAABBGGRR
// form with the given alpha byte. Alpha 0x00 is fully opaque in ASS.
func ASSColor(hexColor string, alpha uint8) (string, error) {
	h := strings.TrimPrefix(strings.TrimSpace(hexColor), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return "", fmt.Errorf("invalid hex color %q", hexColor)
	}
	value, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return "", fmt.Errorf("invalid hex color %q: %w", hexColor, err)
	}
	r := uint8(value >> 16)
	g := uint8(value >> 8)
	b := uint8(value)
	return fmt.Sprintf("&H%02X%02X%02X%02X", alpha, b, g, r), nil
}

// BackgroundAlpha derives the ASS alpha byte from a descriptor opacity in
// [0,1]. The original opacity convention is "how dark the box is", so the
// value is scaled directly rather than inverted.
func (d Descriptor) BackgroundAlpha() uint8 {
	opacity := d.BackgroundOpacity
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	return uint8(opacity * 255)
}

// PrimaryASS returns the font color in libass form, fully opaque.
func (d Descriptor) PrimaryASS() (string, error) {
	return ASSColor(d.FontColor, 0)
}

// OutlineASS returns the outline color in libass form, fully opaque.
func (d Descriptor) OutlineASS() (string, error) {
	return ASSColor(d.OutlineColor, 0)
}

// BackgroundASS returns the box color in libass form with the opacity-derived
// alpha byte.
func (d Descriptor) BackgroundASS() (string, error) {
	return ASSColor(d.BackgroundColor, d.BackgroundAlpha())
}
