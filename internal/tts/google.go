package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"subforge/internal/services"
)

const googleTTSEndpoint = "https://translate.google.com/translate_tts"

// The endpoint rejects long q parameters; fragments are chunked below this.
const googleMaxChars = 200

// GoogleEngine calls the public Translate text-to-speech endpoint.
type GoogleEngine struct {
	client   *http.Client
	endpoint string
}

// NewGoogleEngine builds the engine. A nil client gets a sensible default.
func NewGoogleEngine(client *http.Client) *GoogleEngine {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GoogleEngine{client: client, endpoint: googleTTSEndpoint}
}

// Name identifies the engine in logs and manifests.
func (g *GoogleEngine) Name() string { return "gtts" }

// Synthesize fetches MP3 audio for text. Long fragments are split on word
// boundaries and the MP3 payloads concatenated, which players and ffmpeg
// both accept.
func (g *GoogleEngine) Synthesize(ctx context.Context, text, languageCode, destination string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return services.Wrap(services.ErrValidation, "synthesize", "gtts", "empty text", nil)
	}
	lang := strings.ToLower(strings.TrimSpace(languageCode))
	if lang == "" {
		return services.Wrap(services.ErrValidation, "synthesize", "gtts", "empty language", nil)
	}

	out, err := os.Create(destination)
	if err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesize", "gtts", "create output", err)
	}

	for _, chunk := range chunkText(text, googleMaxChars) {
		if err := g.fetchChunk(ctx, chunk, lang, out); err != nil {
			out.Close()
			os.Remove(destination)
			return err
		}
	}
	return out.Close()
}

func (g *GoogleEngine) fetchChunk(ctx context.Context, chunk, lang string, out io.Writer) error {
	query := url.Values{}
	query.Set("ie", "UTF-8")
	query.Set("client", "tw-ob")
	query.Set("tl", lang)
	query.Set("q", chunk)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesize", "gtts", "build request", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesize", "gtts", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrSynthesis, "synthesize", "gtts", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesize", "gtts", "read audio", err)
	}
	return nil
}

// chunkText splits text into pieces no longer than limit, preferring word
// boundaries.
func chunkText(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	var current []string
	currentLen := 0
	for _, word := range strings.Fields(text) {
		spaceNeeded := 0
		if len(current) > 0 {
			spaceNeeded = 1
		}
		if currentLen+len(word)+spaceNeeded > limit && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
			currentLen = 0
			spaceNeeded = 0
		}
		current = append(current, word)
		currentLen += len(word) + spaceNeeded
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
