package config

import "strings"

// normalize fills blank values with defaults and expands filesystem paths.
// Called after unmarshalling and before validation.
func (c *Config) normalize() {
	def := Default()

	c.Paths.OutputDir = normalizePath(c.Paths.OutputDir, def.Paths.OutputDir)
	c.Paths.StagingDir = normalizePath(c.Paths.StagingDir, def.Paths.StagingDir)
	c.Paths.WorkDir = normalizePath(c.Paths.WorkDir, def.Paths.WorkDir)
	c.Paths.LogDir = normalizePath(c.Paths.LogDir, def.Paths.LogDir)

	c.Tools.FFmpeg = fallback(c.Tools.FFmpeg, def.Tools.FFmpeg)
	c.Tools.FFprobe = fallback(c.Tools.FFprobe, def.Tools.FFprobe)
	c.Tools.Whisper = fallback(c.Tools.Whisper, def.Tools.Whisper)
	c.Tools.EdgeTTS = fallback(c.Tools.EdgeTTS, def.Tools.EdgeTTS)

	if c.Input.MaxSizeMiB <= 0 {
		c.Input.MaxSizeMiB = def.Input.MaxSizeMiB
	}

	c.Transcription.Model = strings.ToLower(fallback(c.Transcription.Model, def.Transcription.Model))
	c.Transcription.LanguageHint = strings.ToLower(fallback(c.Transcription.LanguageHint, def.Transcription.LanguageHint))
	if c.Transcription.TimeoutSeconds <= 0 {
		c.Transcription.TimeoutSeconds = def.Transcription.TimeoutSeconds
	}

	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = def.Audio.SampleRate
	}
	if c.Audio.TimeoutSeconds <= 0 {
		c.Audio.TimeoutSeconds = def.Audio.TimeoutSeconds
	}

	c.Dub.Engine = strings.ToLower(fallback(c.Dub.Engine, def.Dub.Engine))
	if c.Dub.OverrunTolerance <= 0 {
		c.Dub.OverrunTolerance = def.Dub.OverrunTolerance
	}
	if c.Dub.TimeoutSeconds <= 0 {
		c.Dub.TimeoutSeconds = def.Dub.TimeoutSeconds
	}

	c.Render.VideoCodec = fallback(c.Render.VideoCodec, def.Render.VideoCodec)
	c.Render.Preset = fallback(c.Render.Preset, def.Render.Preset)
	if c.Render.CRF <= 0 {
		c.Render.CRF = def.Render.CRF
	}
	c.Render.AudioBitrate = fallback(c.Render.AudioBitrate, def.Render.AudioBitrate)
	if c.Render.TimeoutSeconds <= 0 {
		c.Render.TimeoutSeconds = def.Render.TimeoutSeconds
	}

	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = def.Pipeline.Workers
	}

	c.Logging.Format = strings.ToLower(fallback(c.Logging.Format, def.Logging.Format))
	c.Logging.Level = strings.ToLower(fallback(c.Logging.Level, def.Logging.Level))
}

func normalizePath(value, def string) string {
	expanded, err := ExpandPath(fallback(value, def))
	if err != nil {
		return fallback(value, def)
	}
	return expanded
}

func fallback(value, def string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return def
}
