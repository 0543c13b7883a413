package asr

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"subforge/internal/logging"
	"subforge/internal/services"
	"subforge/internal/transcript"
)

// Runner executes the whisper CLI, returning its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// modelLadder orders whisper models from cheapest to most expensive. Resource
// exhaustion retries one rung down.
var modelLadder = []string{"tiny", "base", "small", "medium", "large"}

// Options configure the transcriber.
type Options struct {
	Binary       string
	Model        string
	LanguageHint string
	GPUEnabled   bool
}

// Transcriber wraps the whisper CLI.
type Transcriber struct {
	opts   Options
	logger *slog.Logger
	run    Runner
}

// NewTranscriber builds a transcriber around the whisper binary.
func NewTranscriber(opts Options, logger *slog.Logger) *Transcriber {
	if strings.TrimSpace(opts.Binary) == "" {
		opts.Binary = "whisper"
	}
	if strings.TrimSpace(opts.Model) == "" {
		opts.Model = "base"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Transcriber{opts: opts, logger: logger, run: defaultRunner}
}

// WithRunner injects a custom command runner (primarily for tests).
func (t *Transcriber) WithRunner(run Runner) *Transcriber {
	t.run = run
	return t
}

type whisperWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperSegment struct {
	Text  string        `json:"text"`
	Start float64       `json:"start"`
	End   float64       `json:"end"`
	Words []whisperWord `json:"words"`
}

type whisperPayload struct {
	Language string           `json:"language"`
	Segments []whisperSegment `json:"segments"`
}

// Transcribe runs whisper against the extracted audio and returns a
// normalized transcript. An empty transcript is not an error; silence is a
// legitimate outcome the caller records as a degradation. Resource
// exhaustion retries once on the next smaller model before giving up.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath, workDir string) (transcript.Transcript, error) {
	model := t.opts.Model
	result, err := t.runModel(ctx, audioPath, workDir, model)
	if err != nil && isResourceExhaustion(err) {
		smaller, ok := nextSmallerModel(model)
		if !ok {
			return transcript.Transcript{}, services.Wrap(services.ErrTranscriptionResource, "transcribe", "whisper", "resource exhaustion on smallest model "+model, err)
		}
		t.logger.WarnContext(ctx, "transcription hit resource limits, retrying with smaller model",
			logging.String("model", model), logging.String("retry_model", smaller), logging.Error(err))
		result, err = t.runModel(ctx, audioPath, workDir, smaller)
		if err != nil && isResourceExhaustion(err) {
			return transcript.Transcript{}, services.Wrap(services.ErrTranscriptionResource, "transcribe", "whisper", "resource exhaustion persisted on model "+smaller, err)
		}
	}
	if err != nil {
		return transcript.Transcript{}, err
	}
	return result, nil
}

func (t *Transcriber) runModel(ctx context.Context, audioPath, workDir, model string) (transcript.Transcript, error) {
	args := []string{
		audioPath,
		"--model", model,
		"--output_format", "json",
		"--output_dir", workDir,
		"--verbose", "False",
	}
	if hint := strings.TrimSpace(t.opts.LanguageHint); hint != "" && hint != "auto" {
		args = append(args, "--language", hint)
	}
	if t.opts.GPUEnabled {
		args = append(args, "--device", "cuda")
	} else {
		args = append(args, "--device", "cpu", "--fp16", "False")
	}

	output, err := t.run(ctx, t.opts.Binary, args...)
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = "whisper failed"
		}
		wrapped := services.Wrap(services.ErrExternalTool, "transcribe", "whisper", detail, err)
		if containsResourceSignal(detail) {
			wrapped = services.Wrap(services.ErrTranscriptionResource, "transcribe", "whisper", detail, err)
		}
		return transcript.Transcript{}, wrapped
	}

	jsonPath := outputJSONPath(audioPath, workDir)
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return transcript.Transcript{}, services.Wrap(services.ErrExternalTool, "transcribe", "read output", "whisper produced no JSON output", err)
	}
	var payload whisperPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return transcript.Transcript{}, services.Wrap(services.ErrExternalTool, "transcribe", "parse output", "malformed whisper JSON", err)
	}

	return normalizePayload(payload), nil
}

func outputJSONPath(audioPath, workDir string) string {
	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	return filepath.Join(workDir, stem+".json")
}

func normalizePayload(payload whisperPayload) transcript.Transcript {
	segments := make([]transcript.Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" || seg.End <= seg.Start {
			continue
		}
		words := make([]transcript.Word, 0, len(seg.Words))
		for _, w := range seg.Words {
			words = append(words, transcript.Word{Text: strings.TrimSpace(w.Word), Start: w.Start, End: w.End})
		}
		segments = append(segments, transcript.Segment{Start: seg.Start, End: seg.End, Text: text, Words: words})
	}
	result := transcript.Transcript{Segments: segments, Language: strings.ToLower(strings.TrimSpace(payload.Language))}
	return result.Sorted()
}

func isResourceExhaustion(err error) bool {
	if err == nil {
		return false
	}
	return containsResourceSignal(err.Error())
}

func containsResourceSignal(detail string) bool {
	lowered := strings.ToLower(detail)
	for _, signal := range []string{"out of memory", "cuda error", "cannot allocate", "killed"} {
		if strings.Contains(lowered, signal) {
			return true
		}
	}
	return false
}

func nextSmallerModel(model string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(model))
	// Versioned large models share the large rung.
	if strings.HasPrefix(normalized, "large") {
		normalized = "large"
	}
	for i, name := range modelLadder {
		if name == normalized {
			if i == 0 {
				return "", false
			}
			return modelLadder[i-1], true
		}
	}
	return "", false
}

// processingFactors approximate seconds of processing per second of audio on
// commodity CPU hardware.
var processingFactors = map[string]float64{
	"tiny":     0.3,
	"base":     0.5,
	"small":    0.8,
	"medium":   1.2,
	"large":    2.0,
	"large-v2": 2.2,
	"large-v3": 2.0,
}

// Estimate predicts transcription wall time for the configured model.
func (t *Transcriber) Estimate(audioSeconds float64) time.Duration {
	return EstimateDuration(audioSeconds, t.opts.Model)
}

// EstimateDuration predicts how long transcription of the given audio will
// take, used for queue display and log context.
func EstimateDuration(audioSeconds float64, model string) time.Duration {
	factor, ok := processingFactors[strings.ToLower(strings.TrimSpace(model))]
	if !ok {
		factor = 1.5
	}
	return time.Duration(audioSeconds * factor * float64(time.Second))
}
