package tts

import (
	"context"
	"os/exec"
	"strings"

	"subforge/internal/services"
)

// Runner executes the edge-tts CLI, returning its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// EdgeEngine shells out to the edge-tts CLI for neural voices.
type EdgeEngine struct {
	binary string
	run    Runner
}

// NewEdgeEngine builds the engine around the given binary path. Empty falls
// back to "edge-tts" on PATH.
func NewEdgeEngine(binary string) *EdgeEngine {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "edge-tts"
	}
	return &EdgeEngine{binary: binary, run: defaultRunner}
}

// WithRunner injects a custom command runner (primarily for tests).
func (e *EdgeEngine) WithRunner(run Runner) *EdgeEngine {
	e.run = run
	return e
}

// Name identifies the engine in logs and manifests.
func (e *EdgeEngine) Name() string { return "edge" }

// Synthesize renders text to an MP3 file using the language's default voice.
func (e *EdgeEngine) Synthesize(ctx context.Context, text, languageCode, destination string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return services.Wrap(services.ErrValidation, "synthesize", "edge", "empty text", nil)
	}
	voiceName, err := VoiceFor(languageCode)
	if err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesize", "edge", "voice lookup", err)
	}

	args := []string{
		"--voice", voiceName,
		"--text", text,
		"--write-media", destination,
	}
	output, runErr := e.run(ctx, e.binary, args...)
	if runErr != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = "edge-tts failed"
		}
		return services.Wrap(services.ErrSynthesis, "synthesize", "edge", detail, runErr)
	}
	return nil
}
