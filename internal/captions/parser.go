package captions

import (
	"fmt"
	"regexp"
	"strings"

	"subforge/internal/transcript"
)

var (
	htmlTagPattern = regexp.MustCompile(`<[^>]+>`)
	assTagPattern  = regexp.MustCompile(`\{[^}]+\}`)
)

// ParseSRT reads SRT cue blocks back into a transcript. Malformed blocks are
// skipped, matching how tolerant players behave; a file with no parseable
// cues yields an empty transcript.
func ParseSRT(content string) (transcript.Transcript, error) {
	return parseCues(content, false)
}

// ParseVTT reads WebVTT content back into a transcript. The WEBVTT header is
// required; NOTE and STYLE blocks are ignored.
func ParseVTT(content string) (transcript.Transcript, error) {
	content = strings.TrimPrefix(content, utf8BOM)
	if !strings.HasPrefix(strings.TrimSpace(content), "WEBVTT") {
		return transcript.Transcript{}, fmt.Errorf("missing WEBVTT header")
	}
	return parseCues(content, true)
}

// ParseASS reads the [Events] dialogue lines of an ASS script back into a
// transcript. Style definitions and override tags are discarded; malformed
// dialogue lines are skipped.
func ParseASS(content string) (transcript.Transcript, error) {
	content = strings.TrimPrefix(content, utf8BOM)
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var segments []transcript.Segment
	inEvents := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			inEvents = strings.EqualFold(trimmed, "[Events]")
			continue
		}
		if !inEvents || !strings.HasPrefix(trimmed, "Dialogue:") {
			continue
		}

		// Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text.
		// Only the text field may contain commas.
		fields := strings.SplitN(strings.TrimPrefix(trimmed, "Dialogue:"), ",", 10)
		if len(fields) != 10 {
			continue
		}
		start, errStart := ParseTimestamp(fields[1])
		end, errEnd := ParseTimestamp(fields[2])
		if errStart != nil || errEnd != nil || end <= start {
			continue
		}
		text := strings.ReplaceAll(fields[9], `\N`, " ")
		text = strings.ReplaceAll(text, `\n`, " ")
		text = cleanCueText(text)
		if text == "" {
			continue
		}
		segments = append(segments, transcript.Segment{Start: start, End: end, Text: text})
	}

	result := transcript.Transcript{Segments: segments}.Sorted()
	if err := result.Validate(); err != nil {
		return transcript.Transcript{}, fmt.Errorf("parsed dialogue invalid: %w", err)
	}
	return result, nil
}

var txtLinePattern = regexp.MustCompile(`^\[([0-9:.,]+) --> ([0-9:.,]+)\] (.*)$`)

// ParseTXT reads the timestamped plain-text export back into a transcript.
// Lines without a timestamp prefix are skipped.
func ParseTXT(content string) (transcript.Transcript, error) {
	content = strings.TrimPrefix(content, utf8BOM)
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var segments []transcript.Segment
	for _, line := range strings.Split(content, "\n") {
		match := txtLinePattern.FindStringSubmatch(strings.TrimSpace(line))
		if match == nil {
			continue
		}
		start, errStart := ParseTimestamp(match[1])
		end, errEnd := ParseTimestamp(match[2])
		text := collapseWhitespace(match[3])
		if errStart != nil || errEnd != nil || end <= start || text == "" {
			continue
		}
		segments = append(segments, transcript.Segment{Start: start, End: end, Text: text})
	}

	result := transcript.Transcript{Segments: segments}.Sorted()
	if err := result.Validate(); err != nil {
		return transcript.Transcript{}, fmt.Errorf("parsed lines invalid: %w", err)
	}
	return result, nil
}

func parseCues(content string, vtt bool) (transcript.Transcript, error) {
	content = strings.TrimPrefix(content, utf8BOM)
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var segments []transcript.Segment
	for _, block := range strings.Split(strings.TrimSpace(content), "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		timingIdx := -1
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				timingIdx = i
				break
			}
		}
		if timingIdx < 0 {
			continue
		}
		if vtt {
			head := strings.TrimSpace(lines[0])
			if strings.HasPrefix(head, "NOTE") || strings.HasPrefix(head, "STYLE") || strings.HasPrefix(head, "REGION") {
				continue
			}
		}

		parts := strings.SplitN(lines[timingIdx], "-->", 2)
		if len(parts) != 2 {
			continue
		}
		start, errStart := ParseTimestamp(parts[0])
		// VTT timing lines may carry cue settings after the end timestamp.
		endField := strings.Fields(strings.TrimSpace(parts[1]))
		if len(endField) == 0 {
			continue
		}
		end, errEnd := ParseTimestamp(endField[0])
		if errStart != nil || errEnd != nil || end <= start {
			continue
		}

		text := cleanCueText(strings.Join(lines[timingIdx+1:], " "))
		if text == "" {
			continue
		}
		segments = append(segments, transcript.Segment{Start: start, End: end, Text: text})
	}

	result := transcript.Transcript{Segments: segments}.Sorted()
	if err := result.Validate(); err != nil {
		return transcript.Transcript{}, fmt.Errorf("parsed cues invalid: %w", err)
	}
	return result, nil
}

func cleanCueText(text string) string {
	text = htmlTagPattern.ReplaceAllString(text, "")
	text = assTagPattern.ReplaceAllString(text, "")
	return collapseWhitespace(text)
}
