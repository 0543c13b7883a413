package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"subforge/internal/logging"
	"subforge/internal/media/ffprobe"
	"subforge/internal/services"
)

// Runner executes an external command, returning stderr-ish output on failure.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Options configure audio extraction.
type Options struct {
	FFmpegBinary string
	SampleRate   int
	Enhance      bool
}

// Extractor converts arbitrary media into the mono PCM WAV the transcription
// stage consumes.
type Extractor struct {
	opts   Options
	prober *ffprobe.Prober
	logger *slog.Logger
	run    Runner
}

// NewExtractor builds an extractor. The prober verifies input and output
// streams around the ffmpeg invocation.
func NewExtractor(opts Options, prober *ffprobe.Prober, logger *slog.Logger) *Extractor {
	if strings.TrimSpace(opts.FFmpegBinary) == "" {
		opts.FFmpegBinary = "ffmpeg"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{opts: opts, prober: prober, logger: logger, run: defaultRunner}
}

// WithRunner injects a custom command runner (primarily for tests).
func (e *Extractor) WithRunner(run Runner) *Extractor {
	e.run = run
	return e
}

// enhancementFilters is the voice-isolation chain applied before
// transcription: rumble and hiss removal, controlled loudness normalization,
// resample smoothing, a gentle boost, and soft compression.
func enhancementFilters() []string {
	return []string{
		"highpass=f=80",
		"lowpass=f=8000",
		"dynaudnorm=p=0.5",
		"aresample=async=1000",
		"volume=1.2",
		"compand=attacks=0:decays=0.3:points=-80/-80|-12/-12|0/-3",
	}
}

// Result describes the extracted track.
type Result struct {
	Path            string
	DurationSeconds float64
	SampleRate      int
	Enhanced        bool
}

// Extract pulls the first audio stream of source into a mono 16-bit PCM WAV
// at destination. When enhancement fails the extraction is retried without
// filters and the degradation is reported through the returned Result.
func (e *Extractor) Extract(ctx context.Context, source, destination string, report ffprobe.Report) (Result, error) {
	if !report.HasAudio() {
		return Result{}, services.Wrap(services.ErrNoAudioTrack, "extract", "verify input", fmt.Sprintf("no audio stream in %s", source), nil)
	}

	enhanced := e.opts.Enhance
	if err := e.runFFmpeg(ctx, source, destination, enhanced); err != nil {
		if !enhanced {
			return Result{}, err
		}
		// The filter chain can fail on unusual channel layouts. A plain
		// extraction still yields usable transcription input.
		e.logger.WarnContext(ctx, "audio enhancement failed, retrying without filters",
			logging.String("source", source), logging.Error(err))
		enhanced = false
		if err := e.runFFmpeg(ctx, source, destination, false); err != nil {
			return Result{}, err
		}
	}

	result, err := e.verifyOutput(ctx, destination)
	if err != nil {
		_ = os.Remove(destination)
		return Result{}, err
	}
	result.Enhanced = enhanced
	return result, nil
}

func (e *Extractor) runFFmpeg(ctx context.Context, source, destination string, enhance bool) error {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", source}
	if enhance {
		args = append(args, "-af", strings.Join(enhancementFilters(), ","))
	}
	args = append(args,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(e.opts.SampleRate),
		"-acodec", "pcm_s16le",
		"-fflags", "+genpts",
		"-f", "wav",
		destination,
	)

	output, err := e.run(ctx, e.opts.FFmpegBinary, args...)
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = "ffmpeg extraction failed"
		}
		return services.Wrap(services.ErrExternalTool, "extract", "ffmpeg", detail, err)
	}
	return nil
}

func (e *Extractor) verifyOutput(ctx context.Context, destination string) (Result, error) {
	info, err := os.Stat(destination)
	if err != nil || info.Size() == 0 {
		return Result{}, services.Wrap(services.ErrExternalTool, "extract", "verify output", "extraction produced no data", err)
	}

	report, err := e.prober.Inspect(ctx, destination)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "extract", "verify output", "cannot read extracted audio", err)
	}
	duration := report.DurationSeconds()
	if duration <= 0 {
		return Result{}, services.Wrap(services.ErrExternalTool, "extract", "verify output", "extracted audio has no duration", nil)
	}

	sampleRate := e.opts.SampleRate
	for _, stream := range report.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			if parsed, err := strconv.Atoi(stream.SampleRate); err == nil && parsed > 0 {
				sampleRate = parsed
			}
			break
		}
	}

	return Result{Path: destination, DurationSeconds: duration, SampleRate: sampleRate}, nil
}
