package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"subforge/internal/captions"
	"subforge/internal/dub"
	"subforge/internal/language"
	"subforge/internal/logging"
	"subforge/internal/media/audio"
	"subforge/internal/media/ffprobe"
	"subforge/internal/outputstore"
	"subforge/internal/services"
	"subforge/internal/styles"
	"subforge/internal/transcript"
)

// Prober inspects media containers.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Report, error)
}

// AudioExtractor produces the transcription input track.
type AudioExtractor interface {
	Extract(ctx context.Context, source, destination string, report ffprobe.Report) (audio.Result, error)
}

// Transcriber converts audio into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, workDir string) (transcript.Transcript, error)
}

// DurationEstimator is optionally implemented by transcribers that can
// predict wall time for a given amount of audio.
type DurationEstimator interface {
	Estimate(audioSeconds float64) time.Duration
}

// Synthesizer builds and mixes dub tracks.
type Synthesizer interface {
	BuildTrack(ctx context.Context, tr transcript.Transcript, languageCode string, totalDuration float64, workDir string) (dub.Track, error)
	Mix(ctx context.Context, videoPath, trackPath, destination string, sourceHasAudio bool) error
}

// Renderer burns captions and muxes streams.
type Renderer interface {
	Burn(ctx context.Context, videoPath, captionPath, destination string, style styles.Descriptor) error
	MuxSoftCaptions(ctx context.Context, videoPath, captionPath, destination, languageCode string) error
}

// StateFunc observes lifecycle transitions, typically to mirror them into
// the queue.
type StateFunc func(ctx context.Context, jobID string, state State)

// Deps collects the stage implementations the orchestrator drives.
type Deps struct {
	Prober      Prober
	Extractor   AudioExtractor
	Transcriber Transcriber
	Synthesizer Synthesizer
	Renderer    Renderer
	Store       *outputstore.Store
	Logger      *slog.Logger
}

// Options tune orchestration behavior.
type Options struct {
	// Workers bounds concurrent render and dub branches.
	Workers int
	// SerializeTranscription holds a process-wide lock around transcription,
	// preventing concurrent jobs from oversubscribing one GPU.
	SerializeTranscription bool
	OnState                StateFunc
}

// Orchestrator walks one job through the full pipeline.
type Orchestrator struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
	gpuMu  sync.Mutex
}

// New validates dependencies and builds an orchestrator.
func New(deps Deps, opts Options) (*Orchestrator, error) {
	if deps.Prober == nil || deps.Extractor == nil || deps.Transcriber == nil ||
		deps.Synthesizer == nil || deps.Renderer == nil || deps.Store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "missing stage dependency", nil)
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{deps: deps, opts: opts, logger: logging.NewComponentLogger(logger, "pipeline")}, nil
}

// Run executes every stage for the job. Branch failures degrade the result;
// fatal stage failures abort it. Partial results accompany errors so callers
// can persist diagnostics.
func (o *Orchestrator) Run(ctx context.Context, job Job) (Result, error) {
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, o.logger)

	result := Result{
		JobID:      job.ID,
		SourcePath: job.SourcePath,
		StartedAt:  time.Now().UTC(),
	}
	o.setState(ctx, job.ID, StateAccepted)

	fail := func(err error) (Result, error) {
		result.FinishedAt = time.Now().UTC()
		o.setState(ctx, job.ID, StateFailed)
		_ = o.deps.Store.DiscardStage(job.ID)
		return result, err
	}

	// Probe.
	o.setState(ctx, job.ID, StateProbing)
	report, err := o.deps.Prober.Inspect(ctx, job.SourcePath)
	if err != nil {
		return fail(err)
	}
	if !report.HasAudio() && !report.HasVideo() {
		return fail(services.Wrap(services.ErrUnreadableMedia, "probe", "inspect", "container has no usable streams", nil))
	}
	if !report.HasAudio() {
		return fail(services.Wrap(services.ErrNoAudioTrack, "probe", "inspect", "source carries no audio to transcribe", nil))
	}
	result.Media = MediaSummary{
		DurationSeconds: report.DurationSeconds(),
		HasVideo:        report.HasVideo(),
		HasAudio:        true,
		SizeBytes:       report.SizeBytes(),
		Container:       report.Format.FormatName,
	}
	logger.Info("media probed",
		logging.Float64("duration_seconds", result.Media.DurationSeconds),
		logging.Bool("has_video", result.Media.HasVideo))

	stageDir, err := o.deps.Store.StageDir(job.ID)
	if err != nil {
		return fail(err)
	}

	// Extract.
	o.setState(ctx, job.ID, StateExtracting)
	audioPath := filepath.Join(stageDir, "speech.wav")
	extracted, err := o.deps.Extractor.Extract(ctx, job.SourcePath, audioPath, report)
	if err != nil {
		return fail(err)
	}
	if !extracted.Enhanced {
		result.Warnings = append(result.Warnings, "audio enhancement unavailable, transcription used the raw track")
	}

	// Transcribe.
	o.setState(ctx, job.ID, StateTranscribing)
	if estimator, ok := o.deps.Transcriber.(DurationEstimator); ok && extracted.DurationSeconds > 0 {
		if estimate := estimator.Estimate(extracted.DurationSeconds); estimate > 0 {
			logger.Info("transcription started", logging.Duration("estimated_duration", estimate))
		}
	}
	tr, err := o.transcribe(ctx, extracted.Path, stageDir)
	if err != nil {
		return fail(err)
	}
	result.TranscriptLanguage = tr.Language
	result.SegmentCount = len(tr.Segments)
	if tr.Empty() {
		result.Degraded = true
		result.Warnings = append(result.Warnings, "no speech detected, outputs contain empty captions")
		logger.Warn("transcript is empty, continuing degraded")
	} else {
		result.DetectedLanguage = language.Detect(tr.Text())
	}

	// Format captions.
	o.setState(ctx, job.ID, StateFormatting)
	captionFiles := o.formatCaptions(ctx, job, tr, stageDir, &result)

	// Render and dub branches.
	o.setState(ctx, job.ID, StateRendering)
	branchFiles, err := o.runBranches(ctx, job, tr, report, captionFiles, stageDir, &result)
	if err != nil {
		return fail(err)
	}

	if len(captionFiles) == 0 && len(branchFiles) == 0 {
		return fail(services.Wrap(services.ErrFormatting, "format", "job", "every output branch failed", nil))
	}

	// Publish.
	o.setState(ctx, job.ID, StateFinalizing)
	if err := o.publish(ctx, job, tr, captionFiles, branchFiles, stageDir, &result); err != nil {
		return fail(err)
	}
	_ = o.deps.Store.DiscardStage(job.ID)

	result.FinishedAt = time.Now().UTC()
	o.setState(ctx, job.ID, StateCompleted)
	logger.Info("job completed",
		logging.Int("artifacts", len(result.Artifacts)),
		logging.Int("warnings", len(result.Warnings)),
		logging.Bool("degraded", result.Degraded))
	return result, nil
}

func (o *Orchestrator) transcribe(ctx context.Context, audioPath, stageDir string) (transcript.Transcript, error) {
	if o.opts.SerializeTranscription {
		o.gpuMu.Lock()
		defer o.gpuMu.Unlock()
	}
	if err := ctx.Err(); err != nil {
		return transcript.Transcript{}, err
	}
	tr, err := o.deps.Transcriber.Transcribe(ctx, audioPath, stageDir)
	if err != nil {
		return transcript.Transcript{}, err
	}
	tr = tr.Sorted()
	if err := tr.Validate(); err != nil {
		return transcript.Transcript{}, services.Wrap(services.ErrExternalTool, "transcribe", "validate", "engine produced invalid segment timing", err)
	}
	return tr, nil
}

// captionFile pairs a rendered caption document with its format.
type captionFile struct {
	format captions.Format
	path   string
}

func (o *Orchestrator) formatCaptions(ctx context.Context, job Job, tr transcript.Transcript, stageDir string, result *Result) []captionFile {
	logger := logging.WithContext(ctx, o.logger)
	files := make([]captionFile, 0, len(job.Formats))
	for _, format := range job.Formats {
		doc, err := captions.Render(format, tr, job.Style)
		if err == nil {
			path := filepath.Join(stageDir, "captions"+format.Extension())
			err = os.WriteFile(path, []byte(doc), 0o644)
			if err == nil {
				files = append(files, captionFile{format: format, path: path})
				result.Branches = append(result.Branches, BranchOutcome{Name: "caption/" + string(format), OK: true})
				continue
			}
		}
		result.Degraded = true
		result.Warnings = append(result.Warnings, fmt.Sprintf("caption %s failed: %v", format, err))
		result.Branches = append(result.Branches, BranchOutcome{Name: "caption/" + string(format), OK: false, Error: err.Error()})
		logger.Warn("caption format failed", logging.String(logging.FieldFormat, string(format)), logging.Error(err))
	}
	return files
}

// branchFile is a staged file a branch produced, with publication metadata.
type branchFile struct {
	stagedPath string
	name       string
	kind       string
	format     string
	language   string
}

// branchOutput carries everything one branch contributes to the result.
type branchOutput struct {
	outcome BranchOutcome
	files   []branchFile
	warning string
}

func (o *Orchestrator) runBranches(ctx context.Context, job Job, tr transcript.Transcript, report ffprobe.Report, captionFiles []captionFile, stageDir string, result *Result) ([]branchFile, error) {
	var mu sync.Mutex
	var produced []branchFile
	record := func(br branchOutput) {
		mu.Lock()
		defer mu.Unlock()
		result.Branches = append(result.Branches, br.outcome)
		if br.warning != "" {
			result.Warnings = append(result.Warnings, br.warning)
			result.Degraded = true
		}
		produced = append(produced, br.files...)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.opts.Workers)

	if job.BurnCaptions {
		group.Go(func() error {
			br, err := o.burnBranch(groupCtx, job, tr, report, captionFiles, stageDir)
			record(br)
			return err
		})
	}
	for _, lang := range job.DubLanguages {
		group.Go(func() error {
			br, err := o.dubBranch(groupCtx, job, tr, report, captionFiles, stageDir, lang)
			record(br)
			return err
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return produced, nil

}

func (o *Orchestrator) burnBranch(ctx context.Context, job Job, tr transcript.Transcript, report ffprobe.Report, captionFiles []captionFile, stageDir string) (branchResult branchOutput, fatal error) {
	const name = "burn"
	ctx = services.WithBranch(ctx, name)
	branchResult.outcome = BranchOutcome{Name: name}

	if !report.HasVideo() {
		branchResult.warning = "burn-in skipped: source has no video stream"
		return branchResult, nil
	}
	if tr.Empty() {
		branchResult.warning = "burn-in skipped: empty transcript"
		return branchResult, nil
	}
	captionPath := pickBurnSource(captionFiles)
	if captionPath == "" {
		branchResult.outcome.Error = "no caption file available to burn"
		branchResult.warning = "burn-in skipped: no caption file available"
		return branchResult, nil
	}

	destination := filepath.Join(stageDir, "burned"+filepath.Ext(job.SourcePath))
	if err := o.deps.Renderer.Burn(ctx, job.SourcePath, captionPath, destination, job.Style); err != nil {
		if services.Classify(err) == services.SeverityFatal || ctx.Err() != nil {
			return branchResult, err
		}
		branchResult.outcome.Error = err.Error()
		branchResult.warning = "burn-in failed: " + err.Error()
		return branchResult, nil
	}
	branchResult.outcome.OK = true
	branchResult.files = []branchFile{{
		stagedPath: destination,
		name:       job.Stem() + ".subbed" + filepath.Ext(job.SourcePath),
		kind:       "video",
		language:   tr.Language,
	}}
	return branchResult, nil
}

func (o *Orchestrator) dubBranch(ctx context.Context, job Job, tr transcript.Transcript, report ffprobe.Report, captionFiles []captionFile, stageDir, lang string) (branchResult branchOutput, fatal error) {
	name := "dub/" + lang
	ctx = services.WithBranch(ctx, name)
	branchResult.outcome = BranchOutcome{Name: name}

	if tr.Empty() {
		branchResult.warning = name + " skipped: empty transcript"
		return branchResult, nil
	}

	branchDir := filepath.Join(stageDir, "dub_"+lang)
	if err := os.MkdirAll(branchDir, 0o755); err != nil {
		branchResult.outcome.Error = err.Error()
		branchResult.warning = name + " failed: " + err.Error()
		return branchResult, nil
	}

	track, err := o.deps.Synthesizer.BuildTrack(ctx, tr, lang, report.DurationSeconds(), branchDir)
	if err != nil {
		if services.Classify(err) == services.SeverityFatal || ctx.Err() != nil {
			return branchResult, err
		}
		branchResult.outcome.Error = err.Error()
		branchResult.warning = name + " failed: " + err.Error()
		return branchResult, nil
	}
	branchResult.warning = joinWarnings(name, track.Warnings)

	if !report.HasVideo() {
		// Audio-only source: the assembled track is the deliverable.
		branchResult.outcome.OK = true
		branchResult.files = []branchFile{{
			stagedPath: track.Path,
			name:       fmt.Sprintf("%s.dub.%s.wav", job.Stem(), lang),
			kind:       "audio",
			language:   lang,
		}}
		return branchResult, nil
	}

	ext := filepath.Ext(job.SourcePath)
	dubbed := filepath.Join(branchDir, "dubbed"+ext)
	if err := o.deps.Synthesizer.Mix(ctx, job.SourcePath, track.Path, dubbed, report.HasAudio()); err != nil {
		if services.Classify(err) == services.SeverityFatal || ctx.Err() != nil {
			return branchResult, err
		}
		branchResult.outcome.Error = err.Error()
		branchResult.warning = name + " failed: " + err.Error()
		return branchResult, nil
	}

	final := dubbed
	if job.EmbedCaptionsInDub {
		if captionPath := pickBurnSource(captionFiles); captionPath != "" {
			withSubs := filepath.Join(branchDir, "dubbed_subbed"+ext)
			if err := o.deps.Renderer.Burn(ctx, dubbed, captionPath, withSubs, job.Style); err != nil {
				if services.Classify(err) == services.SeverityFatal || ctx.Err() != nil {
					return branchResult, err
				}
				branchResult.warning = joinWarnings(name, append(track.Warnings, "caption embed failed: "+err.Error()))
			} else {
				final = withSubs
			}
		}
	}

	branchResult.outcome.OK = true
	branchResult.files = []branchFile{{
		stagedPath: final,
		name:       fmt.Sprintf("%s.dub.%s%s", job.Stem(), lang, ext),
		kind:       "video",
		language:   lang,
	}}
	return branchResult, nil
}

// pickBurnSource prefers ASS (self-styled) over SRT over anything timed.
func pickBurnSource(files []captionFile) string {
	preference := []captions.Format{captions.FormatASS, captions.FormatSRT, captions.FormatVTT}
	for _, want := range preference {
		for _, file := range files {
			if file.format == want {
				return file.path
			}
		}
	}
	return ""
}

func joinWarnings(branch string, warnings []string) string {
	if len(warnings) == 0 {
		return ""
	}
	return branch + " degraded: " + strings.Join(warnings, "; ")
}

func (o *Orchestrator) publish(ctx context.Context, job Job, tr transcript.Transcript, captionFiles []captionFile, branchFiles []branchFile, stageDir string, result *Result) error {
	lang := tr.Language
	if lang == "" {
		lang = "und"
	}
	for _, file := range captionFiles {
		name := fmt.Sprintf("%s.%s%s", job.Stem(), lang, file.format.Extension())
		artifact, err := o.deps.Store.Publish(ctx, job.ID, file.path, name, "caption", string(file.format), tr.Language)
		if err != nil {
			return err
		}
		result.Artifacts = append(result.Artifacts, artifact)
	}
	for _, file := range branchFiles {
		artifact, err := o.deps.Store.Publish(ctx, job.ID, file.stagedPath, file.name, file.kind, file.format, file.language)
		if err != nil {
			return err
		}
		result.Artifacts = append(result.Artifacts, artifact)
	}

	// The manifest describes the artifacts, so it is published beside them
	// but never listed as one.
	manifestPath := filepath.Join(stageDir, "manifest.json")
	snapshot := *result
	snapshot.FinishedAt = time.Now().UTC()
	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrTransient, "finalize", "manifest", "encode manifest", err)
	}
	if err := os.WriteFile(manifestPath, payload, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "finalize", "manifest", "write manifest", err)
	}
	manifest, err := o.deps.Store.Publish(ctx, job.ID, manifestPath, "manifest.json", "manifest", "json", "")
	if err != nil {
		return err
	}
	result.ManifestPath = manifest.Path
	return nil
}

func (o *Orchestrator) setState(ctx context.Context, jobID string, state State) {
	o.logger.DebugContext(ctx, "state transition", logging.String(logging.FieldStage, string(state)))
	if o.opts.OnState != nil {
		o.opts.OnState(ctx, jobID, state)
	}
}
