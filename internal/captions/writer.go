package captions

import (
	"fmt"
	"strings"

	"subforge/internal/services"
	"subforge/internal/styles"
	"subforge/internal/transcript"
)

// utf8BOM prefixes subtitle files so legacy players detect the encoding.
const utf8BOM = "\ufeff"

// Render produces the caption document for one format. Empty transcripts
// yield a structurally valid document with zero cues rather than an error.
func Render(format Format, tr transcript.Transcript, style styles.Descriptor) (string, error) {
	if err := tr.Validate(); err != nil {
		return "", services.Wrap(services.ErrFormatting, "format", string(format), "invalid transcript", err)
	}
	switch format {
	case FormatSRT:
		return renderSRT(tr, style), nil
	case FormatVTT:
		return renderVTT(tr, style), nil
	case FormatASS:
		return renderASS(tr, style)
	case FormatTXT:
		return renderTXT(tr), nil
	default:
		return "", services.Wrap(services.ErrFormatting, "format", string(format), "unknown caption format", nil)
	}
}

func renderSRT(tr transcript.Transcript, style styles.Descriptor) string {
	var b strings.Builder
	b.WriteString(utf8BOM)
	for i, seg := range tr.Segments {
		lines := WrapText(collapseWhitespace(seg.Text), style.MaxCharsPerLine)
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", FormatSRTTime(seg.Start), FormatSRTTime(seg.End))
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n\n")
	}
	return b.String()
}

func renderVTT(tr transcript.Transcript, style styles.Descriptor) string {
	var b strings.Builder
	b.WriteString(utf8BOM)
	b.WriteString("WEBVTT\n\n")
	for i, seg := range tr.Segments {
		lines := WrapText(collapseWhitespace(seg.Text), style.MaxCharsPerLine)
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", FormatVTTTime(seg.Start), FormatVTTTime(seg.End))
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n\n")
	}
	return b.String()
}

// ASS script geometry. Margins and font sizes in the presets assume this
// reference resolution; libass scales to the actual video.
const (
	assPlayResX = 384
	assPlayResY = 288
)

func renderASS(tr transcript.Transcript, style styles.Descriptor) (string, error) {
	primary, err := style.PrimaryASS()
	if err != nil {
		return "", services.Wrap(services.ErrFormatting, "format", "ass", "bad font color", err)
	}
	outline, err := style.OutlineASS()
	if err != nil {
		return "", services.Wrap(services.ErrFormatting, "format", "ass", "bad outline color", err)
	}
	back, err := style.BackgroundASS()
	if err != nil {
		return "", services.Wrap(services.ErrFormatting, "format", "ass", "bad background color", err)
	}

	var b strings.Builder
	b.WriteString(utf8BOM)
	b.WriteString("[Script Info]\n")
	b.WriteString("Title: Generated Captions\n")
	b.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(&b, "WrapStyle: %d\n", style.WrapStyle)
	b.WriteString("ScaledBorderAndShadow: yes\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", assPlayResX)
	fmt.Fprintf(&b, "PlayResY: %d\n\n", assPlayResY)

	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, ")
	b.WriteString("Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, ")
	b.WriteString("Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: Default,%s,%d,%s,%s,%s,%s,0,0,0,0,100,100,0,0,1,%d,%d,%d,%d,%d,%d,1\n\n",
		style.FontName, style.FontSize, primary, primary, outline, back,
		style.OutlineWidth, style.ShadowOffset, style.Alignment,
		style.MarginHorizontal, style.MarginHorizontal, style.MarginVertical)

	b.WriteString("[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, seg := range tr.Segments {
		lines := WrapText(collapseWhitespace(seg.Text), style.MaxCharsPerLine)
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			FormatASSTime(seg.Start), FormatASSTime(seg.End), strings.Join(lines, `\N`))
	}
	return b.String(), nil
}

func renderTXT(tr transcript.Transcript) string {
	var b strings.Builder
	for _, seg := range tr.Segments {
		fmt.Fprintf(&b, "[%s --> %s] %s\n",
			FormatSRTTime(seg.Start), FormatSRTTime(seg.End), collapseWhitespace(seg.Text))
	}
	return b.String()
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
