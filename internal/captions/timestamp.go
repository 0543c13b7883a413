package captions

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatSRTTime renders seconds as the SRT form 00:01:02,345.
func FormatSRTTime(seconds float64) string {
	return formatTimestamp(seconds, ",")
}

// FormatVTTTime renders seconds as the WebVTT form 00:01:02.345.
func FormatVTTTime(seconds float64) string {
	return formatTimestamp(seconds, ".")
}

// FormatASSTime renders seconds as the ASS dialogue form 0:01:02.34
// (centisecond precision, single-digit hours).
func FormatASSTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	centis := int((seconds-float64(total))*100 + 0.5)
	if centis >= 100 {
		centis -= 100
		total++
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centis)
}

func formatTimestamp(seconds float64, millisSep string) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	millis := int((seconds-float64(total))*1000 + 0.5)
	if millis >= 1000 {
		millis -= 1000
		total++
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", hours, minutes, secs, millisSep, millis)
}

// ParseTimestamp converts an SRT or VTT timestamp into seconds. Both the
// comma and the period millisecond separator are accepted.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ",", ".")
	dot := strings.LastIndex(value, ".")
	millis := 0
	timePart := value
	if dot >= 0 {
		timePart = value[:dot]
		msText := value[dot+1:]
		// Pad or truncate to millisecond precision.
		for len(msText) < 3 {
			msText += "0"
		}
		parsed, err := strconv.Atoi(msText[:3])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		millis = parsed
	}
	hms := strings.Split(timePart, ":")
	if len(hms) == 2 {
		// VTT permits MM:SS.mmm.
		hms = append([]string{"0"}, hms...)
	}
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	if errH != nil || errM != nil || errS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}
