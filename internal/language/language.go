package language

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Supported is the closed set of ISO 639-1 codes the synthesis stage can
// speak. Caption output accepts any valid tag; dubbing is restricted to the
// voices we carry.
var supported = map[string]struct{}{
	"tr": {}, "en": {}, "es": {}, "fr": {}, "de": {}, "it": {},
	"pt": {}, "ru": {}, "ja": {}, "ko": {}, "zh": {}, "ar": {},
}

// Normalize validates a language code and reduces it to its ISO 639-1 base
// ("en-US" becomes "en"). Empty input and "auto" pass through unchanged so
// callers can signal autodetection.
func Normalize(code string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(code))
	if trimmed == "" || trimmed == "auto" {
		return "auto", nil
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid language code %q: %w", code, err)
	}
	base, _ := tag.Base()
	return base.String(), nil
}

// SynthesisSupported reports whether a normalized code has a dubbing voice.
func SynthesisSupported(code string) bool {
	_, ok := supported[code]
	return ok
}

// SynthesisCodes returns the dubbing-capable codes in sorted order.
func SynthesisCodes() []string {
	codes := make([]string, 0, len(supported))
	for code := range supported {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// DisplayName renders a human-readable English name for a code, falling back
// to the code itself when the tag is unknown.
func DisplayName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return code
	}
	return name
}

// Detect guesses the language of free text. It returns "auto" when the text
// is too short or ambiguous for a reliable call.
func Detect(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 20 {
		return "auto"
	}
	info := whatlanggo.Detect(trimmed)
	if !info.IsReliable() {
		return "auto"
	}
	code := whatlanggo.LangToStringShort(info.Lang)
	if code == "" {
		return "auto"
	}
	normalized, err := Normalize(code)
	if err != nil {
		return "auto"
	}
	return normalized
}
