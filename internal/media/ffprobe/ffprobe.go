package ffprobe

import (
	"context"
	"encoding/json"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"subforge/internal/services"
)

// OutputRunner executes a command and returns its combined output. Tests
// inject a fake to avoid requiring ffprobe on the machine.
type OutputRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Prober wraps the ffprobe binary.
type Prober struct {
	binary string
	run    OutputRunner
}

// NewProber builds a prober for the given binary path. An empty path falls
// back to "ffprobe" on PATH.
func NewProber(binary string) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary, run: defaultRunner}
}

// WithRunner injects a custom output runner (primarily for tests).
func (p *Prober) WithRunner(run OutputRunner) *Prober {
	p.run = run
	return p
}

// Report is the parsed ffprobe inspection of one media file.
type Report struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
	raw     []byte
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format captures container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Inspect runs ffprobe against path and decodes the JSON response. Failures
// to execute or parse mark the media unreadable, which is fatal for the job.
func (p *Prober) Inspect(ctx context.Context, path string) (Report, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Report{}, services.Wrap(services.ErrValidation, "probe", "inspect", "empty media path", nil)
	}

	args := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path}
	output, err := p.run(ctx, p.binary, args...)
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail != "" {
			detail = "ffprobe: " + detail
		} else {
			detail = "ffprobe failed"
		}
		return Report{}, services.Wrap(services.ErrUnreadableMedia, "probe", "inspect", detail, err)
	}

	var report Report
	if err := json.Unmarshal(output, &report); err != nil {
		return Report{}, services.Wrap(services.ErrUnreadableMedia, "probe", "parse", "malformed ffprobe output", err)
	}
	report.raw = append([]byte(nil), output...)
	return report, nil
}

// RawJSON returns the raw ffprobe JSON payload.
func (r Report) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

// HasAudio reports whether the container carries at least one audio stream.
func (r Report) HasAudio() bool {
	return r.countStreams("audio") > 0
}

// HasVideo reports whether the container carries at least one video stream.
func (r Report) HasVideo() bool {
	return r.countStreams("video") > 0
}

func (r Report) countStreams(codecType string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when
// unavailable. Streams without a format-level duration fall back to the
// longest stream duration.
func (r Report) DurationSeconds() float64 {
	if d := parseFloat(r.Format.Duration); d > 0 && !math.IsNaN(d) {
		return d
	}
	longest := 0.0
	for _, stream := range r.Streams {
		if d := parseFloat(stream.Duration); !math.IsNaN(d) && d > longest {
			longest = d
		}
	}
	return longest
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Report) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
