package tts

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"subforge/internal/services"
)

// Engine synthesizes speech for one text fragment into an MP3 file at
// destination. Implementations are safe for concurrent use.
type Engine interface {
	Name() string
	Synthesize(ctx context.Context, text, languageCode, destination string) error
}

// voice pairs an engine locale with its default neural voice.
type voice struct {
	Locale string
	Name   string
}

// edgeVoices maps ISO 639-1 codes to the default neural voice per language.
var edgeVoices = map[string]voice{
	"tr": {"tr-TR", "tr-TR-EmelNeural"},
	"en": {"en-US", "en-US-JennyNeural"},
	"fr": {"fr-FR", "fr-FR-DeniseNeural"},
	"de": {"de-DE", "de-DE-KatjaNeural"},
	"es": {"es-ES", "es-ES-ElviraNeural"},
	"it": {"it-IT", "it-IT-ElsaNeural"},
	"pt": {"pt-BR", "pt-BR-FranciscaNeural"},
	"ru": {"ru-RU", "ru-RU-SvetlanaNeural"},
	"ja": {"ja-JP", "ja-JP-NanamiNeural"},
	"ko": {"ko-KR", "ko-KR-SunHiNeural"},
	"zh": {"zh-CN", "zh-CN-XiaoxiaoNeural"},
	"ar": {"ar-SA", "ar-SA-ZariyahNeural"},
}

// VoiceFor resolves the default voice for a language code.
func VoiceFor(languageCode string) (string, error) {
	v, ok := edgeVoices[strings.ToLower(strings.TrimSpace(languageCode))]
	if !ok {
		return "", fmt.Errorf("no voice for language %q (available: %s)", languageCode, strings.Join(VoiceLanguages(), ", "))
	}
	return v.Name, nil
}

// VoiceLanguages returns the language codes with a configured voice.
func VoiceLanguages() []string {
	codes := make([]string, 0, len(edgeVoices))
	for code := range edgeVoices {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// NewEngine builds the configured synthesis engine. The edge engine shells
// out to the edge-tts CLI; gtts calls the public Translate TTS endpoint.
func NewEngine(name, edgeBinary string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "edge", "edge_tts", "edge-tts":
		return NewEdgeEngine(edgeBinary), nil
	case "gtts":
		return NewGoogleEngine(nil), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "synthesize", "engine", fmt.Sprintf("unknown tts engine %q", name), nil)
	}
}
