package config

const (
	defaultOutputDir  = "~/.local/share/subforge/output"
	defaultStagingDir = "~/.local/share/subforge/staging"
	defaultWorkDir    = "~/.local/share/subforge/work"
	defaultLogDir     = "~/.local/share/subforge/logs"

	defaultFFmpegCommand  = "ffmpeg"
	defaultFFprobeCommand = "ffprobe"
	defaultWhisperCommand = "whisper"
	defaultEdgeTTSCommand = "edge-tts"

	defaultMaxSizeMiB = 2048

	defaultWhisperModel         = "base"
	defaultLanguageHint         = "auto"
	defaultTranscribeTimeoutSec = 1800

	defaultAudioSampleRate   = 16000
	defaultExtractTimeoutSec = 300

	defaultTTSEngine        = "edge"
	defaultMixRatio         = 0.3
	defaultOverrunTolerance = 0.10
	defaultSynthTimeoutSec  = 120

	defaultVideoCodec       = "libx264"
	defaultRenderPreset     = "medium"
	defaultRenderCRF        = 23
	defaultAudioBitrate     = "192k"
	defaultRenderTimeoutSec = 1800

	defaultWorkers = 4

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			StagingDir: defaultStagingDir,
			WorkDir:    defaultWorkDir,
			LogDir:     defaultLogDir,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegCommand,
			FFprobe: defaultFFprobeCommand,
			Whisper: defaultWhisperCommand,
			EdgeTTS: defaultEdgeTTSCommand,
		},
		Input: Input{
			MaxSizeMiB: defaultMaxSizeMiB,
		},
		Transcription: Transcription{
			Model:          defaultWhisperModel,
			LanguageHint:   defaultLanguageHint,
			TimeoutSeconds: defaultTranscribeTimeoutSec,
		},
		Audio: Audio{
			Enhance:        true,
			SampleRate:     defaultAudioSampleRate,
			TimeoutSeconds: defaultExtractTimeoutSec,
		},
		Dub: Dub{
			Engine:           defaultTTSEngine,
			MixRatio:         defaultMixRatio,
			OverrunTolerance: defaultOverrunTolerance,
			EmbedSubtitles:   true,
			TimeoutSeconds:   defaultSynthTimeoutSec,
		},
		Render: Render{
			VideoCodec:     defaultVideoCodec,
			Preset:         defaultRenderPreset,
			CRF:            defaultRenderCRF,
			AudioBitrate:   defaultAudioBitrate,
			TimeoutSeconds: defaultRenderTimeoutSec,
		},
		Pipeline: Pipeline{
			Workers:           defaultWorkers,
			OverwriteExisting: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
