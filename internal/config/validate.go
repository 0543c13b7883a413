package config

import (
	"fmt"
	"strings"
)

var validWhisperModels = map[string]struct{}{
	"tiny":   {},
	"base":   {},
	"small":  {},
	"medium": {},
	"large":  {},
}

var validTTSEngines = map[string]struct{}{
	"edge": {},
	"gtts": {},
}

var validLogFormats = map[string]struct{}{
	"console": {},
	"json":    {},
}

// Validate checks semantic constraints that normalization cannot repair.
func (c *Config) Validate() error {
	var problems []string

	if _, ok := validWhisperModels[c.Transcription.Model]; !ok {
		problems = append(problems, fmt.Sprintf("transcription.model: unknown model %q (tiny, base, small, medium, large)", c.Transcription.Model))
	}
	if _, ok := validTTSEngines[c.Dub.Engine]; !ok {
		problems = append(problems, fmt.Sprintf("dub.engine: unknown engine %q (edge, gtts)", c.Dub.Engine))
	}
	if c.Dub.MixRatio < 0 || c.Dub.MixRatio > 1 {
		problems = append(problems, fmt.Sprintf("dub.mix_ratio: %.2f outside [0.0, 1.0]", c.Dub.MixRatio))
	}
	if c.Dub.OverrunTolerance < 0 || c.Dub.OverrunTolerance > 1 {
		problems = append(problems, fmt.Sprintf("dub.overrun_tolerance: %.2f outside [0.0, 1.0]", c.Dub.OverrunTolerance))
	}
	if c.Render.CRF < 0 || c.Render.CRF > 51 {
		problems = append(problems, fmt.Sprintf("render.crf: %d outside [0, 51]", c.Render.CRF))
	}
	if _, ok := validLogFormats[c.Logging.Format]; !ok {
		problems = append(problems, fmt.Sprintf("logging.format: unknown format %q (console, json)", c.Logging.Format))
	}
	if c.Paths.OutputDir == c.Paths.StagingDir && c.Paths.OutputDir != "" {
		problems = append(problems, "paths: output_dir and staging_dir must differ for atomic publication")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}
