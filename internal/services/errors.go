package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers classify pipeline failures. Fatal markers abort the whole
// job; branch markers abort a single (format, language) artifact only.
var (
	// Fatal for the job.
	ErrUnreadableMedia       = errors.New("unreadable media")
	ErrNoAudioTrack          = errors.New("no audio track")
	ErrTranscriptionResource = errors.New("transcription resource exhausted")
	ErrConfiguration         = errors.New("configuration error")
	ErrValidation            = errors.New("validation error")

	// Branch-local: confined to one artifact or language.
	ErrRender          = errors.New("render error")
	ErrSynthesis       = errors.New("synthesis error")
	ErrFormatting      = errors.New("formatting error")
	ErrEmptyTranscript = errors.New("empty transcript")

	// ErrExternalTool tags failures of ffmpeg/ffprobe/whisper/TTS invocations.
	// Severity comes from the stage marker wrapped around it, not from the
	// tool marker itself.
	ErrExternalTool = errors.New("external tool error")

	ErrTransient = errors.New("transient failure")
)

// Severity describes how far a failure propagates.
type Severity int

const (
	// SeverityBranch aborts one artifact branch; siblings keep running.
	SeverityBranch Severity = iota
	// SeverityFatal aborts the whole job with zero artifacts.
	SeverityFatal
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later severity classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps a stage error to its propagation severity.
func Classify(err error) Severity {
	switch {
	case errors.Is(err, ErrUnreadableMedia),
		errors.Is(err, ErrNoAudioTrack),
		errors.Is(err, ErrTranscriptionResource),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrValidation):
		return SeverityFatal
	default:
		return SeverityBranch
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
