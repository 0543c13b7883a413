package transcript

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Word carries optional word-level timing inside a segment.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is a timed unit of transcribed text. Times are seconds from the
// start of the media.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// Duration returns the nominal segment window length.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// StartDuration returns the start offset as a time.Duration.
func (s Segment) StartDuration() time.Duration {
	return time.Duration(s.Start * float64(time.Second))
}

// EndDuration returns the end offset as a time.Duration.
func (s Segment) EndDuration() time.Duration {
	return time.Duration(s.End * float64(time.Second))
}

// Transcript is the ordered caption sequence for one job. Ordering is the
// playback order.
type Transcript struct {
	Segments []Segment
	Language string
}

// Empty reports whether the transcript carries no segments. Silent or
// non-speech input legitimately produces an empty transcript.
func (t Transcript) Empty() bool {
	return len(t.Segments) == 0
}

// Text joins all segment texts with single spaces.
func (t Transcript) Text() string {
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		if trimmed := strings.TrimSpace(seg.Text); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}

// Validate enforces the segment invariants: non-negative times, end after
// start, sorted by start time, and no overlapping windows.
func (t Transcript) Validate() error {
	prevEnd := 0.0
	for i, seg := range t.Segments {
		if seg.Start < 0 {
			return fmt.Errorf("segment %d: negative start %.3f", i, seg.Start)
		}
		if seg.End <= seg.Start {
			return fmt.Errorf("segment %d: end %.3f not after start %.3f", i, seg.End, seg.Start)
		}
		if i > 0 && seg.Start < prevEnd {
			return fmt.Errorf("segment %d: start %.3f overlaps previous end %.3f", i, seg.Start, prevEnd)
		}
		prevEnd = seg.End
	}
	return nil
}

// Sorted returns a copy of the transcript with segments ordered by start
// time. ASR engines occasionally emit out-of-order segments near VAD
// boundaries; callers normalize before validating.
func (t Transcript) Sorted() Transcript {
	segments := make([]Segment, len(t.Segments))
	copy(segments, t.Segments)
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
	return Transcript{Segments: segments, Language: t.Language}
}
