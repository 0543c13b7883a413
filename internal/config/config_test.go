package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"subforge/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, found, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Fatalf("expected found=false for %s", path)
	}
	if cfg.Transcription.Model != "base" {
		t.Fatalf("expected default model, got %q", cfg.Transcription.Model)
	}
	if cfg.Dub.MixRatio != 0.3 {
		t.Fatalf("expected default mix ratio, got %v", cfg.Dub.MixRatio)
	}
	if cfg.Pipeline.Workers != 4 {
		t.Fatalf("expected default workers, got %d", cfg.Pipeline.Workers)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[transcription]
model = "small"
language_hint = "TR"

[dub]
engine = "gtts"
mix_ratio = 0.5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, found, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatal("expected config file to be found")
	}
	if cfg.Transcription.Model != "small" {
		t.Fatalf("model = %q, want small", cfg.Transcription.Model)
	}
	if cfg.Transcription.LanguageHint != "tr" {
		t.Fatalf("language hint not lowercased: %q", cfg.Transcription.LanguageHint)
	}
	if cfg.Dub.Engine != "gtts" {
		t.Fatalf("engine = %q, want gtts", cfg.Dub.Engine)
	}
	if cfg.Dub.MixRatio != 0.5 {
		t.Fatalf("mix ratio = %v, want 0.5", cfg.Dub.MixRatio)
	}
	// Untouched sections keep defaults.
	if cfg.Render.CRF != 23 {
		t.Fatalf("crf = %d, want default 23", cfg.Render.CRF)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*config.Config)
		fragment string
	}{
		{"bad model", func(c *config.Config) { c.Transcription.Model = "enormous" }, "transcription.model"},
		{"bad engine", func(c *config.Config) { c.Dub.Engine = "shout" }, "dub.engine"},
		{"mix ratio above one", func(c *config.Config) { c.Dub.MixRatio = 1.5 }, "mix_ratio"},
		{"negative mix ratio", func(c *config.Config) { c.Dub.MixRatio = -0.1 }, "mix_ratio"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"colliding dirs", func(c *config.Config) {
			c.Paths.OutputDir = "/tmp/same"
			c.Paths.StagingDir = "/tmp/same"
		}, "atomic"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.fragment) {
				t.Fatalf("error %q missing fragment %q", err, tc.fragment)
			}
		})
	}
}

func TestWriteSampleRefusesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error on second write")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[transcription]") {
		t.Fatal("sample config missing transcription section")
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(dir, "out")
	cfg.Paths.StagingDir = filepath.Join(dir, "staging")
	cfg.Paths.WorkDir = filepath.Join(dir, "work")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, sub := range []string{"out", "staging", "work", "logs"} {
		if _, err := os.Stat(filepath.Join(dir, sub)); err != nil {
			t.Fatalf("missing directory %s: %v", sub, err)
		}
	}
}
