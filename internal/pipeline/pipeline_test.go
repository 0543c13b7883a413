package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"subforge/internal/dub"
	"subforge/internal/media/audio"
	"subforge/internal/media/ffprobe"
	"subforge/internal/outputstore"
	"subforge/internal/pipeline"
	"subforge/internal/services"
	"subforge/internal/styles"
	"subforge/internal/transcript"
)

type fakeProber struct {
	report ffprobe.Report
	err    error
}

func (f *fakeProber) Inspect(context.Context, string) (ffprobe.Report, error) {
	return f.report, f.err
}

type fakeExtractor struct {
	enhanced bool
	err      error
}

func (f *fakeExtractor) Extract(_ context.Context, _, destination string, _ ffprobe.Report) (audio.Result, error) {
	if f.err != nil {
		return audio.Result{}, f.err
	}
	if err := os.WriteFile(destination, []byte("RIFF"), 0o644); err != nil {
		return audio.Result{}, err
	}
	return audio.Result{Path: destination, DurationSeconds: 10, SampleRate: 16000, Enhanced: f.enhanced}, nil
}

type fakeTranscriber struct {
	tr  transcript.Transcript
	err error
}

func (f *fakeTranscriber) Transcribe(context.Context, string, string) (transcript.Transcript, error) {
	return f.tr, f.err
}

type fakeSynthesizer struct {
	mu        sync.Mutex
	failLangs map[string]bool
	warnings  []string
	built     []string
}

func (f *fakeSynthesizer) BuildTrack(_ context.Context, _ transcript.Transcript, lang string, _ float64, workDir string) (dub.Track, error) {
	f.mu.Lock()
	f.built = append(f.built, lang)
	f.mu.Unlock()
	if f.failLangs[lang] {
		return dub.Track{}, services.Wrap(services.ErrSynthesis, "synthesize", "fake", "voice offline", nil)
	}
	path := filepath.Join(workDir, "dub_"+lang+".wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		return dub.Track{}, err
	}
	return dub.Track{Path: path, Language: lang, Engine: "fake", SegmentCount: 2, Warnings: f.warnings}, nil
}

func (f *fakeSynthesizer) Mix(_ context.Context, _, _, destination string, _ bool) error {
	return os.WriteFile(destination, []byte("MP4"), 0o644)
}

type fakeRenderer struct {
	burnErr error
}

func (f *fakeRenderer) Burn(_ context.Context, _, _, destination string, _ styles.Descriptor) error {
	if f.burnErr != nil {
		return f.burnErr
	}
	return os.WriteFile(destination, []byte("MP4"), 0o644)
}

func (f *fakeRenderer) MuxSoftCaptions(_ context.Context, _, _, destination, _ string) error {
	return os.WriteFile(destination, []byte("MP4"), 0o644)
}

func videoReport(t *testing.T) ffprobe.Report {
	t.Helper()
	return parseReport(t, `{"streams":[{"codec_type":"video"},{"codec_type":"audio"}],"format":{"nb_streams":2,"duration":"10.0","size":"2048","format_name":"matroska"}}`)
}

func audioOnlyReport(t *testing.T) ffprobe.Report {
	t.Helper()
	return parseReport(t, `{"streams":[{"codec_type":"audio"}],"format":{"nb_streams":1,"duration":"10.0","format_name":"wav"}}`)
}

func parseReport(t *testing.T, payload string) ffprobe.Report {
	t.Helper()
	var report ffprobe.Report
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		t.Fatal(err)
	}
	return report
}

func speech() transcript.Transcript {
	return transcript.Transcript{
		Language: "en",
		Segments: []transcript.Segment{
			{Start: 0, End: 2, Text: "hello world"},
			{Start: 3, End: 5, Text: "goodbye world"},
		},
	}
}

type fixture struct {
	orchestrator *pipeline.Orchestrator
	store        *outputstore.Store
	states       *[]pipeline.State
}

func newFixture(t *testing.T, deps pipeline.Deps) fixture {
	t.Helper()
	base := t.TempDir()
	store, err := outputstore.New(filepath.Join(base, "out"), filepath.Join(base, "staging"), nil)
	if err != nil {
		t.Fatal(err)
	}
	deps.Store = store

	var states []pipeline.State
	var mu sync.Mutex
	orch, err := pipeline.New(deps, pipeline.Options{
		Workers: 2,
		OnState: func(_ context.Context, _ string, state pipeline.State) {
			mu.Lock()
			states = append(states, state)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return fixture{orchestrator: orch, store: store, states: &states}
}

func defaultDeps(t *testing.T) pipeline.Deps {
	t.Helper()
	return pipeline.Deps{
		Prober:      &fakeProber{report: videoReport(t)},
		Extractor:   &fakeExtractor{enhanced: true},
		Transcriber: &fakeTranscriber{tr: speech()},
		Synthesizer: &fakeSynthesizer{},
		Renderer:    &fakeRenderer{},
	}
}

func newJob(t *testing.T, formats, langs []string, burn bool) pipeline.Job {
	t.Helper()
	job, err := pipeline.NewJob("/media/show.mkv", formats, langs, "default", burn, false)
	if err != nil {
		t.Fatal(err)
	}
	return job
}

func TestRunFullPipeline(t *testing.T) {
	fx := newFixture(t, defaultDeps(t))
	job := newJob(t, []string{"srt", "vtt"}, []string{"fr"}, true)

	result, err := fx.orchestrator.Run(t.Context(), job)
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if result.Degraded || len(result.Warnings) != 0 {
		t.Fatalf("unexpected degradation: %+v", result)
	}
	// 2 captions + burned video + dubbed video. The manifest describes the
	// artifacts and is not one of them.
	if len(result.Artifacts) != 4 {
		t.Fatalf("got %d artifacts, want 4: %+v", len(result.Artifacts), result.Artifacts)
	}
	for _, artifact := range result.Artifacts {
		if artifact.Kind == "manifest" {
			t.Fatalf("manifest listed as artifact: %+v", artifact)
		}
	}
	if result.ManifestPath == "" {
		t.Fatal("manifest path not recorded")
	}

	want := []pipeline.State{
		pipeline.StateAccepted, pipeline.StateProbing, pipeline.StateExtracting,
		pipeline.StateTranscribing, pipeline.StateFormatting, pipeline.StateRendering,
		pipeline.StateFinalizing, pipeline.StateCompleted,
	}
	if len(*fx.states) != len(want) {
		t.Fatalf("states = %v, want %v", *fx.states, want)
	}
	for i, state := range want {
		if (*fx.states)[i] != state {
			t.Fatalf("state %d = %s, want %s", i, (*fx.states)[i], state)
		}
	}

	published, err := fx.store.List(job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(published) != 5 {
		t.Fatalf("store holds %d files, want 5", len(published))
	}
	names := make([]string, 0, len(published))
	for _, artifact := range published {
		names = append(names, filepath.Base(artifact.Path))
	}
	joined := strings.Join(names, " ")
	for _, want := range []string{"show.en.srt", "show.en.vtt", "show.subbed.mkv", "show.dub.fr.mkv", "manifest.json"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing artifact %q in %v", want, names)
		}
	}
}

func TestRunBranchFailureDegradesNotFails(t *testing.T) {
	deps := defaultDeps(t)
	deps.Synthesizer = &fakeSynthesizer{failLangs: map[string]bool{"fr": true}}
	fx := newFixture(t, deps)
	job := newJob(t, []string{"srt"}, []string{"fr", "de"}, true)

	result, err := fx.orchestrator.Run(t.Context(), job)
	if err != nil {
		t.Fatalf("branch failure must not fail the job: %v", err)
	}
	if !result.Degraded {
		t.Fatal("result should be degraded")
	}
	// caption + burn + dub de; dub fr failed.
	if len(result.Artifacts) != 3 {
		t.Fatalf("got %d artifacts, want 3: %+v", len(result.Artifacts), result.Artifacts)
	}
	foundWarning := false
	for _, warning := range result.Warnings {
		if strings.Contains(warning, "dub/fr") {
			foundWarning = true
		}
	}
	if !foundWarning {
		t.Fatalf("warnings = %v, want dub/fr failure", result.Warnings)
	}
	for _, branch := range result.Branches {
		if branch.Name == "dub/fr" && branch.OK {
			t.Fatal("failed branch recorded as OK")
		}
		if branch.Name == "dub/de" && !branch.OK {
			t.Fatal("healthy branch recorded as failed")
		}
	}
}

func TestRunCollectsAllDubTrackWarnings(t *testing.T) {
	deps := defaultDeps(t)
	deps.Synthesizer = &fakeSynthesizer{warnings: []string{
		"segment 3 (0:01-0:02): voice offline",
		"segment 7 (0:05-0:06): too short",
	}}
	fx := newFixture(t, deps)
	job := newJob(t, []string{"srt"}, []string{"fr"}, false)

	result, err := fx.orchestrator.Run(t.Context(), job)
	if err != nil {
		t.Fatal(err)
	}
	var dubWarning string
	for _, warning := range result.Warnings {
		if strings.HasPrefix(warning, "dub/fr degraded:") {
			dubWarning = warning
		}
	}
	if dubWarning == "" {
		t.Fatalf("warnings = %v, want dub/fr degradation", result.Warnings)
	}
	for _, want := range []string{"segment 3", "segment 7"} {
		if !strings.Contains(dubWarning, want) {
			t.Fatalf("warning %q lost %q", dubWarning, want)
		}
	}
}

func TestRunUnreadableMediaIsFatal(t *testing.T) {
	deps := defaultDeps(t)
	deps.Prober = &fakeProber{err: services.Wrap(services.ErrUnreadableMedia, "probe", "inspect", "moov atom not found", nil)}
	fx := newFixture(t, deps)

	_, err := fx.orchestrator.Run(t.Context(), newJob(t, []string{"srt"}, nil, false))
	if !errors.Is(err, services.ErrUnreadableMedia) {
		t.Fatalf("Run() = %v, want ErrUnreadableMedia", err)
	}
	last := (*fx.states)[len(*fx.states)-1]
	if last != pipeline.StateFailed {
		t.Fatalf("final state = %s, want failed", last)
	}
}

func TestRunNoAudioIsFatal(t *testing.T) {
	deps := defaultDeps(t)
	deps.Prober = &fakeProber{report: parseReport(t, `{"streams":[{"codec_type":"video"}],"format":{"nb_streams":1,"duration":"10"}}`)}
	fx := newFixture(t, deps)

	_, err := fx.orchestrator.Run(t.Context(), newJob(t, []string{"srt"}, nil, false))
	if !errors.Is(err, services.ErrNoAudioTrack) {
		t.Fatalf("Run() = %v, want ErrNoAudioTrack", err)
	}
}

func TestRunEmptyTranscriptDegrades(t *testing.T) {
	deps := defaultDeps(t)
	deps.Transcriber = &fakeTranscriber{tr: transcript.Transcript{Language: "en"}}
	synth := &fakeSynthesizer{}
	deps.Synthesizer = synth
	fx := newFixture(t, deps)
	job := newJob(t, []string{"srt"}, []string{"fr"}, true)

	result, err := fx.orchestrator.Run(t.Context(), job)
	if err != nil {
		t.Fatalf("empty transcript should degrade, not fail: %v", err)
	}
	if !result.Degraded {
		t.Fatal("result should be degraded")
	}
	if len(synth.built) != 0 {
		t.Fatal("dub branch should be skipped on empty transcript")
	}
	// The empty but valid caption document is the only artifact.
	if len(result.Artifacts) != 1 {
		t.Fatalf("got %d artifacts, want 1: %+v", len(result.Artifacts), result.Artifacts)
	}
}

func TestRunAudioOnlySourcePublishesDubTrack(t *testing.T) {
	deps := defaultDeps(t)
	deps.Prober = &fakeProber{report: audioOnlyReport(t)}
	fx := newFixture(t, deps)
	job, err := pipeline.NewJob("/media/podcast.wav", []string{"srt"}, []string{"de"}, "default", true, false)
	if err != nil {
		t.Fatal(err)
	}

	result, runErr := fx.orchestrator.Run(t.Context(), job)
	if runErr != nil {
		t.Fatal(runErr)
	}
	var dubArtifact bool
	for _, artifact := range result.Artifacts {
		if artifact.Kind == "audio" && strings.HasSuffix(artifact.Path, "podcast.dub.de.wav") {
			dubArtifact = true
		}
		if artifact.Kind == "video" {
			t.Fatalf("audio-only job produced video artifact: %+v", artifact)
		}
	}
	if !dubArtifact {
		t.Fatalf("missing dub audio artifact: %+v", result.Artifacts)
	}
	var burnSkipped bool
	for _, warning := range result.Warnings {
		if strings.Contains(warning, "no video stream") {
			burnSkipped = true
		}
	}
	if !burnSkipped {
		t.Fatalf("warnings = %v, want burn-in skip notice", result.Warnings)
	}
}

func TestRunManifestContents(t *testing.T) {
	fx := newFixture(t, defaultDeps(t))
	job := newJob(t, []string{"srt"}, nil, false)

	result, err := fx.orchestrator.Run(t.Context(), job)
	if err != nil {
		t.Fatal(err)
	}
	if result.ManifestPath == "" {
		t.Fatal("no manifest published")
	}
	data, err := os.ReadFile(result.ManifestPath)
	if err != nil {
		t.Fatal(err)
	}
	var manifest pipeline.Result
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("manifest not parseable: %v", err)
	}
	if manifest.JobID != job.ID || manifest.SegmentCount != 2 || manifest.Media.DurationSeconds != 10 {
		t.Fatalf("manifest = %+v", manifest)
	}
}

func TestNewJobValidation(t *testing.T) {
	if _, err := pipeline.NewJob("", []string{"srt"}, nil, "default", false, false); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty source = %v", err)
	}
	if _, err := pipeline.NewJob("/a.mkv", []string{"docx"}, nil, "default", false, false); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("bad format = %v", err)
	}
	if _, err := pipeline.NewJob("/a.mkv", []string{"srt"}, []string{"eo"}, "default", false, false); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("unsupported dub language = %v", err)
	}
	if _, err := pipeline.NewJob("/a.mkv", []string{"srt"}, []string{"auto"}, "default", false, false); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("auto dub language = %v", err)
	}
	if _, err := pipeline.NewJob("/a.mkv", []string{"srt"}, nil, "vaporwave", false, false); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("bad style = %v", err)
	}

	job, err := pipeline.NewJob("/a.mkv", []string{"srt", "SRT", "vtt"}, []string{"fr", "FR"}, "", false, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(job.Formats) != 2 || len(job.DubLanguages) != 1 {
		t.Fatalf("dedupe failed: %+v", job)
	}
	if job.Style.Name != "default" {
		t.Fatalf("style = %q, want default fallback", job.Style.Name)
	}

	empty, err := pipeline.NewJob("/a.mkv", nil, nil, "default", false, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty.Formats) != 1 || empty.Formats[0] != "srt" {
		t.Fatalf("default formats = %v, want [srt]", empty.Formats)
	}
}

func TestNewJobRenderedOutputNames(t *testing.T) {
	video, err := pipeline.NewJob("/a.mkv", []string{"video"}, nil, "", false, false)
	if err != nil {
		t.Fatal(err)
	}
	if !video.BurnCaptions {
		t.Fatal("video format should enable burn-in")
	}
	if len(video.Formats) != 1 || video.Formats[0] != "srt" {
		t.Fatalf("burn source formats = %v, want [srt]", video.Formats)
	}

	dubbed, err := pipeline.NewJob("/a.mkv", []string{"dub", "vtt"}, []string{"fr"}, "", false, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(dubbed.DubLanguages) != 1 || dubbed.DubLanguages[0] != "fr" {
		t.Fatalf("dub languages = %v", dubbed.DubLanguages)
	}

	if _, err := pipeline.NewJob("/a.mkv", []string{"dub"}, nil, "", false, false); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("dub without language = %v", err)
	}
}
