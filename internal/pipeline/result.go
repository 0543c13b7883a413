package pipeline

import (
	"time"

	"subforge/internal/outputstore"
)

// State is the orchestrator's lifecycle position for one job.
type State string

const (
	StateAccepted     State = "accepted"
	StateProbing      State = "probing"
	StateExtracting   State = "extracting"
	StateTranscribing State = "transcribing"
	StateFormatting   State = "formatting"
	StateRendering    State = "rendering"
	StateFinalizing   State = "finalizing"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

// MediaSummary is the probe digest recorded in the result manifest.
type MediaSummary struct {
	DurationSeconds float64 `json:"duration_seconds"`
	HasVideo        bool    `json:"has_video"`
	HasAudio        bool    `json:"has_audio"`
	SizeBytes       int64   `json:"size_bytes"`
	Container       string  `json:"container,omitempty"`
}

// BranchOutcome records how one render or dub branch ended.
type BranchOutcome struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Result is the job manifest published alongside the artifacts.
type Result struct {
	JobID              string                 `json:"job_id"`
	SourcePath         string                 `json:"source_path"`
	Media              MediaSummary           `json:"media"`
	TranscriptLanguage string                 `json:"transcript_language,omitempty"`
	DetectedLanguage   string                 `json:"detected_language,omitempty"`
	SegmentCount       int                    `json:"segment_count"`
	Artifacts          []outputstore.Artifact `json:"artifacts"`
	ManifestPath       string                 `json:"-"`
	Branches           []BranchOutcome        `json:"branches,omitempty"`
	Warnings           []string               `json:"warnings,omitempty"`
	Degraded           bool                   `json:"degraded"`
	StartedAt          time.Time              `json:"started_at"`
	FinishedAt         time.Time              `json:"finished_at"`
}
