package render

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"subforge/internal/services"
	"subforge/internal/styles"
)

// Runner executes ffmpeg, returning its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Options carry the encoder settings for burn-in renders.
type Options struct {
	FFmpegBinary string
	VideoCodec   string
	Preset       string
	CRF          int
	AudioBitrate string
}

// Renderer burns captions into video and muxes dub tracks.
type Renderer struct {
	opts Options
	run  Runner
}

// NewRenderer applies defaults for unset encoder options.
func NewRenderer(opts Options) *Renderer {
	if strings.TrimSpace(opts.FFmpegBinary) == "" {
		opts.FFmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(opts.VideoCodec) == "" {
		opts.VideoCodec = "libx264"
	}
	if strings.TrimSpace(opts.Preset) == "" {
		opts.Preset = "medium"
	}
	if opts.CRF <= 0 {
		opts.CRF = 23
	}
	if strings.TrimSpace(opts.AudioBitrate) == "" {
		opts.AudioBitrate = "192k"
	}
	return &Renderer{opts: opts, run: defaultRunner}
}

// WithRunner injects a custom command runner (primarily for tests).
func (r *Renderer) WithRunner(run Runner) *Renderer {
	r.run = run
	return r
}

// Burn renders captions onto the video. ASS inputs carry their own styling;
// other formats get the descriptor applied through force_style.
func (r *Renderer) Burn(ctx context.Context, videoPath, captionPath, destination string, style styles.Descriptor) error {
	vf, err := subtitlesFilter(captionPath, style)
	if err != nil {
		return err
	}
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vf", vf,
		"-c:v", r.opts.VideoCodec,
		"-preset", r.opts.Preset,
		"-crf", fmt.Sprintf("%d", r.opts.CRF),
		"-c:a", "copy",
		"-movflags", "+faststart",
		destination,
	}
	return r.exec(ctx, "burn captions", args)
}

func subtitlesFilter(captionPath string, style styles.Descriptor) (string, error) {
	escaped := escapeFilterPath(captionPath)
	if strings.EqualFold(filepath.Ext(captionPath), ".ass") {
		return fmt.Sprintf("subtitles='%s'", escaped), nil
	}

	primary, err := style.PrimaryASS()
	if err != nil {
		return "", services.Wrap(services.ErrRender, "render", "style", "bad font color", err)
	}
	outline, err := style.OutlineASS()
	if err != nil {
		return "", services.Wrap(services.ErrRender, "render", "style", "bad outline color", err)
	}
	back, err := style.BackgroundASS()
	if err != nil {
		return "", services.Wrap(services.ErrRender, "render", "style", "bad background color", err)
	}

	forceStyle := strings.Join([]string{
		"FontName=" + style.FontName,
		fmt.Sprintf("FontSize=%d", style.FontSize),
		"PrimaryColour=" + primary,
		"BackColour=" + back,
		"OutlineColour=" + outline,
		"BorderStyle=1",
		fmt.Sprintf("Outline=%d", style.OutlineWidth),
		fmt.Sprintf("Shadow=%d", style.ShadowOffset),
		fmt.Sprintf("Alignment=%d", style.Alignment),
		fmt.Sprintf("MarginV=%d", style.MarginVertical),
		fmt.Sprintf("MarginL=%d", style.MarginHorizontal),
		fmt.Sprintf("MarginR=%d", style.MarginHorizontal),
	}, ",")
	return fmt.Sprintf("subtitles='%s':force_style='%s'", escaped, forceStyle), nil
}

// escapeFilterPath quotes the characters the ffmpeg filter parser treats
// specially in file paths.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, `\`, `\\`)
	path = strings.ReplaceAll(path, `:`, `\:`)
	return path
}

// MuxSoftCaptions attaches a caption stream to the container without
// re-encoding video. MP4 outputs get mov_text; everything else keeps SRT.
func (r *Renderer) MuxSoftCaptions(ctx context.Context, videoPath, captionPath, destination, languageCode string) error {
	codec := "srt"
	if ext := strings.ToLower(filepath.Ext(destination)); ext == ".mp4" || ext == ".m4v" || ext == ".mov" {
		codec = "mov_text"
	}
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-i", captionPath,
		"-map", "0",
		"-map", "1:0",
		"-c", "copy",
		"-c:s", codec,
	}
	if lang := strings.TrimSpace(languageCode); lang != "" && lang != "auto" {
		args = append(args, "-metadata:s:s:0", "language="+lang)
	}
	args = append(args, destination)
	return r.exec(ctx, "mux captions", args)
}

func (r *Renderer) exec(ctx context.Context, operation string, args []string) error {
	output, err := r.run(ctx, r.opts.FFmpegBinary, args...)
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = "ffmpeg failed"
		}
		return services.Wrap(services.ErrRender, "render", operation, detail, err)
	}
	return nil
}
