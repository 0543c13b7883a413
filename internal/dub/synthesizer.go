package dub

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"subforge/internal/logging"
	"subforge/internal/media/ffprobe"
	"subforge/internal/services"
	"subforge/internal/transcript"
	"subforge/internal/tts"
)

// Runner executes ffmpeg, returning its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Segments shorter than this carry too little speech to dub and are skipped.
const minSegmentSeconds = 0.5

// Speech faster than double speed is unintelligible; overruns beyond this
// cap are trimmed instead.
const maxTempoRatio = 2.0

// trackSampleRate is the intermediate PCM rate for assembled dub tracks.
const trackSampleRate = 24000

// Options tune synthesis behavior.
type Options struct {
	FFmpegBinary string
	// OverrunTolerance is the fraction of the caption window a synthesized
	// fragment may exceed before tempo adjustment kicks in.
	OverrunTolerance float64
	// MixRatio is the original-audio volume under the dub (0 mutes it).
	MixRatio float64
}

// Track is an assembled dub audio track for one language.
type Track struct {
	Path            string
	Language        string
	Engine          string
	SegmentCount    int
	SkippedSegments int
	TempoAdjusted   int
	Warnings        []string
}

// Synthesizer turns transcripts into time-aligned dub tracks.
type Synthesizer struct {
	engine tts.Engine
	prober *ffprobe.Prober
	opts   Options
	logger *slog.Logger
	run    Runner
}

// NewSynthesizer wires a synthesis engine with the ffmpeg plumbing used for
// timing adjustment and track assembly.
func NewSynthesizer(engine tts.Engine, prober *ffprobe.Prober, opts Options, logger *slog.Logger) *Synthesizer {
	if strings.TrimSpace(opts.FFmpegBinary) == "" {
		opts.FFmpegBinary = "ffmpeg"
	}
	if opts.OverrunTolerance <= 0 {
		opts.OverrunTolerance = 0.10
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Synthesizer{engine: engine, prober: prober, opts: opts, logger: logger, run: defaultRunner}
}

// WithRunner injects a custom ffmpeg runner (primarily for tests).
func (s *Synthesizer) WithRunner(run Runner) *Synthesizer {
	s.run = run
	return s
}

// BuildTrack synthesizes every eligible segment and assembles a single WAV
// spanning totalDuration, with silence between cues. Individual segment
// failures degrade the track and are reported as warnings; a track where no
// segment could be synthesized is a branch failure.
func (s *Synthesizer) BuildTrack(ctx context.Context, tr transcript.Transcript, languageCode string, totalDuration float64, workDir string) (Track, error) {
	if err := tr.Validate(); err != nil {
		return Track{}, services.Wrap(services.ErrSynthesis, "synthesize", "validate transcript", "invalid transcript", err)
	}
	if tr.Empty() {
		return Track{}, services.Wrap(services.ErrEmptyTranscript, "synthesize", "build track", "transcript has no segments to voice", nil)
	}
	if totalDuration <= 0 {
		return Track{}, services.Wrap(services.ErrValidation, "synthesize", "build track", "non-positive media duration", nil)
	}

	track := Track{Language: languageCode, Engine: s.engine.Name()}
	var pieces []timelinePiece
	cursor := 0.0
	eligible := 0

	for i, seg := range tr.Segments {
		window := seg.Duration()
		if window < minSegmentSeconds || strings.TrimSpace(seg.Text) == "" {
			track.SkippedSegments++
			continue
		}
		eligible++

		piecePath, adjusted, err := s.renderSegment(ctx, seg, languageCode, workDir, i)
		if err != nil {
			track.SkippedSegments++
			warning := fmt.Sprintf("segment %d (%s): %v", i, captionWindow(seg), err)
			track.Warnings = append(track.Warnings, warning)
			s.logger.WarnContext(ctx, "dub segment failed, continuing without it",
				logging.String("language", languageCode), logging.Int("segment", i), logging.Error(err))
			continue
		}
		if adjusted {
			track.TempoAdjusted++
		}
		if gap := seg.Start - cursor; gap > 0.001 {
			pieces = append(pieces, timelinePiece{silence: gap})
		}
		pieces = append(pieces, timelinePiece{path: piecePath})
		cursor = seg.End
		track.SegmentCount++
	}

	if eligible > 0 && track.SegmentCount == 0 {
		return Track{}, services.Wrap(services.ErrSynthesis, "synthesize", "build track", fmt.Sprintf("no segment could be synthesized for %s", languageCode), nil)
	}
	if tail := totalDuration - cursor; tail > 0.001 {
		pieces = append(pieces, timelinePiece{silence: tail})
	}

	trackPath := filepath.Join(workDir, fmt.Sprintf("dub_%s.wav", languageCode))
	if err := s.assembleTimeline(ctx, pieces, workDir, trackPath); err != nil {
		return Track{}, err
	}
	track.Path = trackPath
	return track, nil
}

// renderSegment synthesizes one caption window and conditions it: tempo
// adjustment when the speech overruns the window beyond tolerance, a trim at
// the window edge, short fades, and padding to the exact window length.
func (s *Synthesizer) renderSegment(ctx context.Context, seg transcript.Segment, languageCode, workDir string, index int) (string, bool, error) {
	rawPath := filepath.Join(workDir, fmt.Sprintf("seg_%04d_%s.mp3", index, languageCode))
	if err := s.engine.Synthesize(ctx, seg.Text, languageCode, rawPath); err != nil {
		return "", false, err
	}
	defer os.Remove(rawPath)

	report, err := s.prober.Inspect(ctx, rawPath)
	if err != nil {
		return "", false, err
	}
	synthSeconds := report.DurationSeconds()
	if synthSeconds <= 0 {
		return "", false, services.Wrap(services.ErrSynthesis, "synthesize", "probe segment", "engine produced empty audio", nil)
	}

	window := seg.Duration()
	adjusted := false
	filters := make([]string, 0, 4)
	if synthSeconds > window*(1+s.opts.OverrunTolerance) {
		ratio := synthSeconds / window
		if ratio > maxTempoRatio {
			ratio = maxTempoRatio
		}
		filters = append(filters, fmt.Sprintf("atempo=%.4f", ratio))
		adjusted = true
	}
	if window > 0.2 {
		filters = append(filters,
			"afade=t=in:d=0.1",
			fmt.Sprintf("afade=t=out:st=%.3f:d=0.1", window-0.1))
	}
	filters = append(filters, "apad")

	piecePath := filepath.Join(workDir, fmt.Sprintf("seg_%04d_%s.wav", index, languageCode))
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", rawPath,
		"-af", strings.Join(filters, ","),
		"-t", fmt.Sprintf("%.3f", window),
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", trackSampleRate),
		piecePath,
	}
	if output, err := s.run(ctx, s.opts.FFmpegBinary, args...); err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = "segment conditioning failed"
		}
		return "", false, services.Wrap(services.ErrSynthesis, "synthesize", "condition segment", detail, err)
	}
	return piecePath, adjusted, nil
}

func captionWindow(seg transcript.Segment) string {
	return fmt.Sprintf("%.2f-%.2f", seg.Start, seg.End)
}
