package render_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"subforge/internal/render"
	"subforge/internal/services"
	"subforge/internal/styles"
)

func recordingRunner(calls *[][]string, fail bool) render.Runner {
	return func(_ context.Context, _ string, args ...string) ([]byte, error) {
		*calls = append(*calls, args)
		if fail {
			return []byte("Error initializing filter 'subtitles'"), errors.New("exit status 1")
		}
		return nil, nil
	}
}

func cinemaStyle(t *testing.T) styles.Descriptor {
	t.Helper()
	style, err := styles.Lookup("cinema")
	if err != nil {
		t.Fatal(err)
	}
	return style
}

func TestBurnAppliesForceStyle(t *testing.T) {
	var calls [][]string
	r := render.NewRenderer(render.Options{CRF: 20, Preset: "fast"}).WithRunner(recordingRunner(&calls, false))

	if err := r.Burn(t.Context(), "in.mp4", "/work/captions.srt", "out.mp4", cinemaStyle(t)); err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(calls[0], " ")
	for _, want := range []string{
		"subtitles='/work/captions.srt'",
		"force_style=",
		"FontSize=32",
		"PrimaryColour=&H0000D7FF",
		"Alignment=2",
		"-c:v libx264",
		"-preset fast",
		"-crf 20",
		"-c:a copy",
		"-movflags +faststart",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("burn args missing %q: %s", want, joined)
		}
	}
}

func TestBurnASSKeepsEmbeddedStyling(t *testing.T) {
	var calls [][]string
	r := render.NewRenderer(render.Options{}).WithRunner(recordingRunner(&calls, false))

	if err := r.Burn(t.Context(), "in.mp4", "/work/captions.ass", "out.mp4", cinemaStyle(t)); err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(calls[0], " ")
	if strings.Contains(joined, "force_style") {
		t.Fatal("ASS burn should not force a style")
	}
}

func TestBurnEscapesFilterPath(t *testing.T) {
	var calls [][]string
	r := render.NewRenderer(render.Options{}).WithRunner(recordingRunner(&calls, false))

	if err := r.Burn(t.Context(), "in.mp4", `C:\media\captions.srt`, "out.mp4", cinemaStyle(t)); err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(calls[0], " ")
	if !strings.Contains(joined, `C\:\\media\\captions.srt`) {
		t.Fatalf("path not escaped for the filter parser: %s", joined)
	}
}

func TestBurnFailureIsRenderError(t *testing.T) {
	r := render.NewRenderer(render.Options{}).WithRunner(recordingRunner(&[][]string{}, true))
	err := r.Burn(t.Context(), "in.mp4", "c.srt", "out.mp4", cinemaStyle(t))
	if !errors.Is(err, services.ErrRender) {
		t.Fatalf("Burn() = %v, want ErrRender", err)
	}
	if !strings.Contains(err.Error(), "Error initializing filter") {
		t.Fatalf("render error should carry tool diagnostics: %v", err)
	}
	if services.Classify(err) != services.SeverityBranch {
		t.Fatal("render failure should stay branch-local")
	}
}

func TestMuxSoftCaptions(t *testing.T) {
	var calls [][]string
	r := render.NewRenderer(render.Options{}).WithRunner(recordingRunner(&calls, false))

	if err := r.MuxSoftCaptions(t.Context(), "in.mp4", "c.srt", "out.mp4", "en"); err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(calls[0], " ")
	for _, want := range []string{"-c:s mov_text", "-metadata:s:s:0 language=en", "-c copy"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("mux args missing %q: %s", want, joined)
		}
	}

	calls = nil
	if err := r.MuxSoftCaptions(t.Context(), "in.mkv", "c.srt", "out.mkv", "auto"); err != nil {
		t.Fatal(err)
	}
	joined = strings.Join(calls[0], " ")
	if !strings.Contains(joined, "-c:s srt") {
		t.Fatalf("mkv should keep srt codec: %s", joined)
	}
	if strings.Contains(joined, "language=") {
		t.Fatal("auto language should not tag the stream")
	}
}
