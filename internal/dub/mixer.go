package dub

import (
	"context"
	"fmt"
	"strings"

	"subforge/internal/services"
)

// Mix lays the dub track under the source video. The original audio is
// ducked to the configured mix ratio; a mix ratio of zero or a source
// without audio replaces the soundtrack entirely.
func (s *Synthesizer) Mix(ctx context.Context, videoPath, trackPath, destination string, sourceHasAudio bool) error {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-i", trackPath,
	}
	if sourceHasAudio && s.opts.MixRatio > 0 {
		filter := fmt.Sprintf(
			"[0:a]volume=%.2f[original];[1:a]volume=1.0[tts];[original][tts]amix=inputs=2:duration=first[audio]",
			s.opts.MixRatio)
		args = append(args, "-filter_complex", filter, "-map", "0:v", "-map", "[audio]")
	} else {
		args = append(args, "-map", "0:v", "-map", "1:a")
	}
	args = append(args,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		destination,
	)

	if output, err := s.run(ctx, s.opts.FFmpegBinary, args...); err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = "dub mix failed"
		}
		return services.Wrap(services.ErrSynthesis, "synthesize", "mix", detail, err)
	}
	return nil
}
