package ffprobe_test

import (
	"context"
	"errors"
	"testing"

	"subforge/internal/media/ffprobe"
	"subforge/internal/services"
)

const samplePayload = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "48000", "channels": 2}
  ],
  "format": {
    "filename": "clip.mkv",
    "nb_streams": 2,
    "duration": "93.5",
    "size": "1048576",
    "format_name": "matroska,webm"
  }
}`

func stubRunner(payload string, err error) ffprobe.OutputRunner {
	return func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return []byte(payload), err
	}
}

func TestInspectParsesStreams(t *testing.T) {
	prober := ffprobe.NewProber("ffprobe").WithRunner(stubRunner(samplePayload, nil))
	report, err := prober.Inspect(t.Context(), "clip.mkv")
	if err != nil {
		t.Fatalf("Inspect() = %v", err)
	}
	if !report.HasAudio() || !report.HasVideo() {
		t.Fatalf("stream detection wrong: audio=%v video=%v", report.HasAudio(), report.HasVideo())
	}
	if got := report.DurationSeconds(); got != 93.5 {
		t.Fatalf("DurationSeconds() = %v, want 93.5", got)
	}
	if got := report.SizeBytes(); got != 1048576 {
		t.Fatalf("SizeBytes() = %v, want 1048576", got)
	}
}

func TestInspectFailureIsUnreadableMedia(t *testing.T) {
	prober := ffprobe.NewProber("").WithRunner(stubRunner("moov atom not found", errors.New("exit status 1")))
	_, err := prober.Inspect(t.Context(), "broken.mp4")
	if !errors.Is(err, services.ErrUnreadableMedia) {
		t.Fatalf("Inspect() = %v, want ErrUnreadableMedia", err)
	}
	if services.Classify(err) != services.SeverityFatal {
		t.Fatal("unreadable media should classify as fatal")
	}
}

func TestInspectRejectsMalformedJSON(t *testing.T) {
	prober := ffprobe.NewProber("ffprobe").WithRunner(stubRunner("not json", nil))
	_, err := prober.Inspect(t.Context(), "clip.mkv")
	if !errors.Is(err, services.ErrUnreadableMedia) {
		t.Fatalf("Inspect() = %v, want ErrUnreadableMedia", err)
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	prober := ffprobe.NewProber("ffprobe").WithRunner(stubRunner(samplePayload, nil))
	if _, err := prober.Inspect(t.Context(), "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("Inspect(blank) = %v, want ErrValidation", err)
	}
}

func TestDurationFallsBackToStreams(t *testing.T) {
	payload := `{"streams":[{"codec_type":"audio","duration":"12.25"}],"format":{"nb_streams":1}}`
	prober := ffprobe.NewProber("ffprobe").WithRunner(stubRunner(payload, nil))
	report, err := prober.Inspect(t.Context(), "voice.wav")
	if err != nil {
		t.Fatal(err)
	}
	if got := report.DurationSeconds(); got != 12.25 {
		t.Fatalf("DurationSeconds() = %v, want 12.25", got)
	}
}
