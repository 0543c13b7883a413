package workflow

import (
	"context"
	"log/slog"
	"time"

	"subforge/internal/asr"
	"subforge/internal/config"
	"subforge/internal/dub"
	"subforge/internal/media/audio"
	"subforge/internal/media/ffprobe"
	"subforge/internal/outputstore"
	"subforge/internal/pipeline"
	"subforge/internal/render"
	"subforge/internal/styles"
	"subforge/internal/transcript"
	"subforge/internal/tts"
)

// BuildDeps assembles the pipeline stages from configuration. Stages with a
// configured timeout are wrapped so a hung external tool cannot stall the
// whole job forever.
func BuildDeps(cfg *config.Config, logger *slog.Logger) (pipeline.Deps, error) {
	store, err := outputstore.New(cfg.Paths.OutputDir, cfg.Paths.StagingDir, logger)
	if err != nil {
		return pipeline.Deps{}, err
	}
	store = store.WithOverwrite(cfg.Pipeline.OverwriteExisting)

	prober := ffprobe.NewProber(cfg.Tools.FFprobe)
	extractor := audio.NewExtractor(audio.Options{
		FFmpegBinary: cfg.Tools.FFmpeg,
		SampleRate:   cfg.Audio.SampleRate,
		Enhance:      cfg.Audio.Enhance,
	}, prober, logger)
	transcriber := asr.NewTranscriber(asr.Options{
		Binary:       cfg.Tools.Whisper,
		Model:        cfg.Transcription.Model,
		LanguageHint: cfg.Transcription.LanguageHint,
		GPUEnabled:   cfg.Transcription.GPUEnabled,
	}, logger)

	engine, err := tts.NewEngine(cfg.Dub.Engine, cfg.Tools.EdgeTTS)
	if err != nil {
		return pipeline.Deps{}, err
	}
	synthesizer := dub.NewSynthesizer(engine, prober, dub.Options{
		FFmpegBinary:     cfg.Tools.FFmpeg,
		OverrunTolerance: cfg.Dub.OverrunTolerance,
		MixRatio:         cfg.Dub.MixRatio,
	}, logger)
	renderer := render.NewRenderer(render.Options{
		FFmpegBinary: cfg.Tools.FFmpeg,
		VideoCodec:   cfg.Render.VideoCodec,
		Preset:       cfg.Render.Preset,
		CRF:          cfg.Render.CRF,
		AudioBitrate: cfg.Render.AudioBitrate,
	})

	return pipeline.Deps{
		Prober:      prober,
		Extractor:   timeoutExtractor{inner: extractor, timeout: seconds(cfg.Audio.TimeoutSeconds)},
		Transcriber: timeoutTranscriber{inner: transcriber, timeout: seconds(cfg.Transcription.TimeoutSeconds)},
		Synthesizer: timeoutSynthesizer{inner: synthesizer, timeout: seconds(cfg.Dub.TimeoutSeconds)},
		Renderer:    timeoutRenderer{inner: renderer, timeout: seconds(cfg.Render.TimeoutSeconds)},
		Store:       store,
		Logger:      logger,
	}, nil
}

func seconds(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func stageContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

type timeoutExtractor struct {
	inner   pipeline.AudioExtractor
	timeout time.Duration
}

func (e timeoutExtractor) Extract(ctx context.Context, source, destination string, report ffprobe.Report) (audio.Result, error) {
	ctx, cancel := stageContext(ctx, e.timeout)
	defer cancel()
	return e.inner.Extract(ctx, source, destination, report)
}

type timeoutTranscriber struct {
	inner   pipeline.Transcriber
	timeout time.Duration
}

func (t timeoutTranscriber) Transcribe(ctx context.Context, audioPath, workDir string) (transcript.Transcript, error) {
	ctx, cancel := stageContext(ctx, t.timeout)
	defer cancel()
	return t.inner.Transcribe(ctx, audioPath, workDir)
}

func (t timeoutTranscriber) Estimate(audioSeconds float64) time.Duration {
	if estimator, ok := t.inner.(pipeline.DurationEstimator); ok {
		return estimator.Estimate(audioSeconds)
	}
	return 0
}

type timeoutSynthesizer struct {
	inner   pipeline.Synthesizer
	timeout time.Duration
}

func (s timeoutSynthesizer) BuildTrack(ctx context.Context, tr transcript.Transcript, languageCode string, totalDuration float64, workDir string) (dub.Track, error) {
	ctx, cancel := stageContext(ctx, s.timeout)
	defer cancel()
	return s.inner.BuildTrack(ctx, tr, languageCode, totalDuration, workDir)
}

func (s timeoutSynthesizer) Mix(ctx context.Context, videoPath, trackPath, destination string, sourceHasAudio bool) error {
	ctx, cancel := stageContext(ctx, s.timeout)
	defer cancel()
	return s.inner.Mix(ctx, videoPath, trackPath, destination, sourceHasAudio)
}

type timeoutRenderer struct {
	inner   pipeline.Renderer
	timeout time.Duration
}

func (r timeoutRenderer) Burn(ctx context.Context, videoPath, captionPath, destination string, style styles.Descriptor) error {
	ctx, cancel := stageContext(ctx, r.timeout)
	defer cancel()
	return r.inner.Burn(ctx, videoPath, captionPath, destination, style)
}

func (r timeoutRenderer) MuxSoftCaptions(ctx context.Context, videoPath, captionPath, destination, languageCode string) error {
	ctx, cancel := stageContext(ctx, r.timeout)
	defer cancel()
	return r.inner.MuxSoftCaptions(ctx, videoPath, captionPath, destination, languageCode)
}
