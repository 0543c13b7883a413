package transcript_test

import (
	"strings"
	"testing"

	"subforge/internal/transcript"
)

func TestValidateAcceptsOrderedSegments(t *testing.T) {
	tr := transcript.Transcript{Segments: []transcript.Segment{
		{Start: 0, End: 1.5, Text: "hello"},
		{Start: 1.5, End: 3, Text: "world"},
	}}
	if err := tr.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsBadSegments(t *testing.T) {
	tests := []struct {
		name     string
		segments []transcript.Segment
		want     string
	}{
		{
			name:     "end before start",
			segments: []transcript.Segment{{Start: 2, End: 1, Text: "x"}},
			want:     "not after start",
		},
		{
			name:     "zero duration",
			segments: []transcript.Segment{{Start: 1, End: 1, Text: "x"}},
			want:     "not after start",
		},
		{
			name:     "negative start",
			segments: []transcript.Segment{{Start: -0.5, End: 1, Text: "x"}},
			want:     "negative start",
		},
		{
			name: "overlap",
			segments: []transcript.Segment{
				{Start: 0, End: 2, Text: "a"},
				{Start: 1.5, End: 3, Text: "b"},
			},
			want: "overlaps",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := transcript.Transcript{Segments: tc.segments}
			err := tr.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() = %q, want substring %q", err, tc.want)
			}
		})
	}
}

func TestSortedOrdersByStart(t *testing.T) {
	tr := transcript.Transcript{Segments: []transcript.Segment{
		{Start: 4, End: 5, Text: "later"},
		{Start: 0, End: 1, Text: "first"},
	}}
	sorted := tr.Sorted()
	if sorted.Segments[0].Text != "first" {
		t.Fatalf("first segment = %q, want %q", sorted.Segments[0].Text, "first")
	}
	if tr.Segments[0].Text != "later" {
		t.Fatal("Sorted mutated the receiver")
	}
	if err := sorted.Validate(); err != nil {
		t.Fatalf("sorted transcript failed validation: %v", err)
	}
}

func TestTextJoinsSegments(t *testing.T) {
	tr := transcript.Transcript{Segments: []transcript.Segment{
		{Start: 0, End: 1, Text: " hello "},
		{Start: 1, End: 2, Text: ""},
		{Start: 2, End: 3, Text: "world"},
	}}
	if got := tr.Text(); got != "hello world" {
		t.Fatalf("Text() = %q, want %q", got, "hello world")
	}
}

func TestEmpty(t *testing.T) {
	if !(transcript.Transcript{}).Empty() {
		t.Fatal("empty transcript reported non-empty")
	}
	tr := transcript.Transcript{Segments: []transcript.Segment{{Start: 0, End: 1, Text: "x"}}}
	if tr.Empty() {
		t.Fatal("non-empty transcript reported empty")
	}
}
