package dub

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"subforge/internal/services"
)

// timelinePiece is either a synthesized segment file or a silence gap.
type timelinePiece struct {
	path    string
	silence float64
}

// assembleTimeline concatenates segment files and generated silence into one
// continuous WAV using the concat demuxer. Silence pieces are rendered with
// anullsrc so every input shares the track sample rate.
func (s *Synthesizer) assembleTimeline(ctx context.Context, pieces []timelinePiece, workDir, destination string) error {
	if len(pieces) == 0 {
		return services.Wrap(services.ErrSynthesis, "synthesize", "assemble track", "empty timeline", nil)
	}

	var list strings.Builder
	for i, piece := range pieces {
		path := piece.path
		if piece.silence > 0 {
			silencePath := filepath.Join(workDir, fmt.Sprintf("gap_%04d.wav", i))
			if err := s.renderSilence(ctx, piece.silence, silencePath); err != nil {
				return err
			}
			path = silencePath
		}
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(path, "'", `'\''`))
	}

	listPath := filepath.Join(workDir, "timeline.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesize", "assemble track", "write concat list", err)
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", trackSampleRate),
		destination,
	}
	if output, err := s.run(ctx, s.opts.FFmpegBinary, args...); err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = "track concatenation failed"
		}
		return services.Wrap(services.ErrSynthesis, "synthesize", "assemble track", detail, err)
	}
	return nil
}

func (s *Synthesizer) renderSilence(ctx context.Context, seconds float64, destination string) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=mono", trackSampleRate),
		"-t", fmt.Sprintf("%.3f", seconds),
		destination,
	}
	if output, err := s.run(ctx, s.opts.FFmpegBinary, args...); err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = "silence generation failed"
		}
		return services.Wrap(services.ErrSynthesis, "synthesize", "render silence", detail, err)
	}
	return nil
}
