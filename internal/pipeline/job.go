package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"subforge/internal/captions"
	"subforge/internal/language"
	"subforge/internal/services"
	"subforge/internal/styles"
)

// Job is one media processing request.
type Job struct {
	ID         string
	SourcePath string
	// Formats are the caption documents to produce.
	Formats []captions.Format
	// DubLanguages are the synthesis branches to run.
	DubLanguages []string
	Style        styles.Descriptor
	// BurnCaptions renders a hard-subtitled video alongside the caption files.
	BurnCaptions bool
	// EmbedCaptionsInDub burns captions onto each dubbed video copy.
	EmbedCaptionsInDub bool
}

// NewJob validates raw request parameters into a Job. Validation failures
// are fatal before any stage runs.
func NewJob(sourcePath string, formatNames, dubLanguages []string, styleName string, burn, embedInDub bool) (Job, error) {
	sourcePath = strings.TrimSpace(sourcePath)
	if sourcePath == "" {
		return Job{}, services.Wrap(services.ErrValidation, "accept", "job", "empty source path", nil)
	}

	if len(formatNames) == 0 {
		formatNames = []string{string(captions.FormatSRT)}
	}
	formats := make([]captions.Format, 0, len(formatNames))
	seen := map[captions.Format]struct{}{}
	dubRequested := false
	for _, name := range formatNames {
		// "video" and "dub" request rendered outputs rather than caption
		// documents.
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "video":
			burn = true
			continue
		case "dub":
			dubRequested = true
			continue
		}
		format, err := captions.ParseFormat(name)
		if err != nil {
			return Job{}, services.Wrap(services.ErrValidation, "accept", "job", "caption format", err)
		}
		if _, dup := seen[format]; dup {
			continue
		}
		seen[format] = struct{}{}
		formats = append(formats, format)
	}

	langs := make([]string, 0, len(dubLanguages))
	seenLang := map[string]struct{}{}
	for _, raw := range dubLanguages {
		code, err := language.Normalize(raw)
		if err != nil {
			return Job{}, services.Wrap(services.ErrValidation, "accept", "job", "dub language", err)
		}
		if code == "auto" {
			return Job{}, services.Wrap(services.ErrValidation, "accept", "job", "dub language cannot be auto", nil)
		}
		if !language.SynthesisSupported(code) {
			return Job{}, services.Wrap(services.ErrValidation, "accept", "job",
				"no synthesis voice for "+code+" (available: "+strings.Join(language.SynthesisCodes(), ", ")+")", nil)
		}
		if _, dup := seenLang[code]; dup {
			continue
		}
		seenLang[code] = struct{}{}
		langs = append(langs, code)
	}

	if dubRequested && len(langs) == 0 {
		return Job{}, services.Wrap(services.ErrValidation, "accept", "job", "dub output requires at least one target language", nil)
	}
	if len(formats) == 0 && burn {
		// Burn-in needs a timed caption document to render from.
		formats = append(formats, captions.FormatSRT)
	}

	style, err := styles.Lookup(styleName)
	if err != nil {
		return Job{}, services.Wrap(services.ErrValidation, "accept", "job", "style preset", err)
	}

	return Job{
		ID:                 uuid.NewString(),
		SourcePath:         sourcePath,
		Formats:            formats,
		DubLanguages:       langs,
		Style:              style,
		BurnCaptions:       burn,
		EmbedCaptionsInDub: embedInDub,
	}, nil
}

// Stem is the output base name derived from the source file.
func (j Job) Stem() string {
	base := filepath.Base(j.SourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
