package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queued job.
type Status string

const (
	StatusPending      Status = "pending"
	StatusProbing      Status = "probing"
	StatusExtracting   Status = "extracting"
	StatusTranscribing Status = "transcribing"
	StatusFormatting   Status = "formatting"
	StatusRendering    Status = "rendering"
	StatusFinalizing   Status = "finalizing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProbing,
	StatusExtracting,
	StatusTranscribing,
	StatusFormatting,
	StatusRendering,
	StatusFinalizing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusProbing:      {},
	StatusExtracting:   {},
	StatusTranscribing: {},
	StatusFormatting:   {},
	StatusRendering:    {},
	StatusFinalizing:   {},
}

// ValidStatus reports whether the string names a known lifecycle state.
func ValidStatus(value string) bool {
	_, ok := statusSet[Status(strings.ToLower(strings.TrimSpace(value)))]
	return ok
}

// IsProcessing reports whether the status marks a job currently being worked.
func (s Status) IsProcessing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// Terminal reports whether the status ends the job lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Item is a queued job persisted in SQLite.
type Item struct {
	ID          int64
	JobID       string
	SourcePath  string
	Formats     string
	Languages   string
	StyleName   string
	BurnIn      bool
	Status      Status
	ErrorText   string
	Warnings    string
	ResultJSON  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt time.Time
}

// HealthSummary aggregates queue counts per key lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}
