package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir  string `toml:"output_dir"`
	StagingDir string `toml:"staging_dir"`
	WorkDir    string `toml:"work_dir"`
	LogDir     string `toml:"log_dir"`
}

// Tools contains the external binaries the pipeline shells out to.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	Whisper string `toml:"whisper"`
	EdgeTTS string `toml:"edge_tts"`
}

// Input constrains accepted media files.
type Input struct {
	MaxSizeMiB int64 `toml:"max_size_mib"`
}

// Transcription contains ASR settings.
type Transcription struct {
	Model          string `toml:"model"` // tiny|base|small|medium|large
	LanguageHint   string `toml:"language_hint"`
	GPUEnabled     bool   `toml:"gpu_enabled"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Audio contains extraction settings.
type Audio struct {
	Enhance        bool `toml:"enhance"`
	SampleRate     int  `toml:"sample_rate"`
	TimeoutSeconds int  `toml:"timeout_seconds"`
}

// Dub contains multilingual synthesis settings.
type Dub struct {
	Engine           string  `toml:"engine"` // edge|gtts
	MixRatio         float64 `toml:"mix_ratio"`
	OverrunTolerance float64 `toml:"overrun_tolerance"`
	EmbedSubtitles   bool    `toml:"embed_subtitles"`
	TimeoutSeconds   int     `toml:"timeout_seconds"`
}

// Render contains transcode settings for burn-in and muxing.
type Render struct {
	VideoCodec     string `toml:"video_codec"`
	Preset         string `toml:"preset"`
	CRF            int    `toml:"crf"`
	AudioBitrate   string `toml:"audio_bitrate"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Pipeline contains fan-out and output bookkeeping settings.
type Pipeline struct {
	Workers           int  `toml:"workers"`
	OverwriteExisting bool `toml:"overwrite_existing"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tools         Tools         `toml:"tools"`
	Input         Input         `toml:"input"`
	Transcription Transcription `toml:"transcription"`
	Audio         Audio         `toml:"audio"`
	Dub           Dub           `toml:"dub"`
	Render        Render        `toml:"render"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() string {
	return "~/.config/subforge/config.toml"
}

// Load reads configuration from path (or the default location when path is
// empty), layering the file over built-in defaults. It reports the resolved
// path and whether a config file was found.
func Load(path string) (*Config, string, bool, error) {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		resolved = DefaultConfigPath()
	}
	expanded, err := ExpandPath(resolved)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()

	data, err := os.ReadFile(expanded)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg.normalize()
		if err := cfg.Validate(); err != nil {
			return nil, expanded, false, err
		}
		return &cfg, expanded, false, nil
	case err != nil:
		return nil, expanded, false, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, expanded, true, fmt.Errorf("parse config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, expanded, true, err
	}
	return &cfg, expanded, true, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// clobber an existing file.
func WriteSample(path string) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists: %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StagingDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ExpandPath resolves a leading ~ against the current user's home directory.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Clean(trimmed), nil
}
