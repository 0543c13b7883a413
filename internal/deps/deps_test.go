package deps

import (
	"os"
	"path/filepath"
	"testing"

	"subforge/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("present binary reported %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("missing binary reported %#v", results[1])
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unset command reported %#v", results[2])
	}
}

func TestRequirementsEdgeOptionalForGTTS(t *testing.T) {
	cfg := config.Default()
	cfg.Dub.Engine = "gtts"
	for _, req := range Requirements(&cfg) {
		if req.Name == "edge-tts" && !req.Optional {
			t.Fatal("edge-tts should be optional when the gtts engine is configured")
		}
		if req.Name == "FFmpeg" && req.Optional {
			t.Fatal("ffmpeg must never be optional")
		}
	}
}

func TestMissingRequired(t *testing.T) {
	statuses := []Status{
		{Name: "a", Available: true},
		{Name: "b", Available: false, Optional: true},
		{Name: "c", Available: false},
	}
	missing := MissingRequired(statuses)
	if len(missing) != 1 || missing[0].Name != "c" {
		t.Fatalf("missing = %+v", missing)
	}
}
