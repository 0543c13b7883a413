package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"subforge/internal/config"
)

var allowedExtensions = map[string]struct{}{
	".mp4": {}, ".avi": {}, ".mov": {}, ".mkv": {}, ".webm": {}, ".flv": {},
	".m4v": {}, ".mpg": {}, ".mpeg": {},
	".mp3": {}, ".wav": {}, ".flac": {}, ".aac": {}, ".ogg": {}, ".m4a": {},
	".opus": {},
}

// resolveSource validates that the media path exists, is a regular file of a
// supported container type, and respects the configured size ceiling. It
// returns the absolute path.
func resolveSource(cfg *config.Config, path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("source path is required")
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat source file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("source path %q is a directory", absPath)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("unsupported file extension %q", ext)
	}
	if limit := cfg.Input.MaxSizeMiB; limit > 0 {
		if info.Size() > limit*1024*1024 {
			return "", fmt.Errorf("source file exceeds the %d MiB limit", limit)
		}
	}
	return absPath, nil
}

// expandSources resolves a path to the media files it names: a regular file
// yields itself, a directory yields its supported media files in name order.
func expandSources(cfg *config.Config, path string) ([]string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("source path is required")
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat source path: %w", err)
	}
	if !info.IsDir() {
		resolved, err := resolveSource(cfg, absPath)
		if err != nil {
			return nil, err
		}
		return []string{resolved}, nil
	}

	entries, err := os.ReadDir(absPath)
	if err != nil {
		return nil, fmt.Errorf("read source directory: %w", err)
	}
	var sources []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := allowedExtensions[ext]; !ok {
			continue
		}
		resolved, err := resolveSource(cfg, filepath.Join(absPath, entry.Name()))
		if err != nil {
			return nil, err
		}
		sources = append(sources, resolved)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no supported media files in %q", absPath)
	}
	return sources, nil
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "unknown"
	}
	return time.Duration(seconds * float64(time.Second)).Round(time.Millisecond).String()
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
