package captions

import (
	"strings"
	"unicode/utf8"
)

// WrapText splits caption text into display lines respecting word
// boundaries. Words longer than the limit are hard-split on rune
// boundaries so no line ever exceeds maxChars characters.
func WrapText(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}

	var lines []string
	var current []string
	currentLen := 0

	for _, word := range strings.Fields(text) {
		wordLen := utf8.RuneCountInString(word)
		if wordLen > maxChars {
			if len(current) > 0 {
				lines = append(lines, strings.Join(current, " "))
				current = nil
				currentLen = 0
			}
			for wordLen > maxChars {
				cut := runeIndex(word, maxChars)
				lines = append(lines, word[:cut])
				word = word[cut:]
				wordLen -= maxChars
			}
			current = []string{word}
			currentLen = wordLen
			continue
		}

		spaceNeeded := 0
		if len(current) > 0 {
			spaceNeeded = 1
		}
		if currentLen+wordLen+spaceNeeded > maxChars {
			lines = append(lines, strings.Join(current, " "))
			current = []string{word}
			currentLen = wordLen
		} else {
			current = append(current, word)
			currentLen += wordLen + spaceNeeded
		}
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}
	return lines
}

// runeIndex returns the byte offset of the n-th rune in s.
func runeIndex(s string, n int) int {
	offset := 0
	for i := 0; i < n; i++ {
		_, size := utf8.DecodeRuneInString(s[offset:])
		offset += size
	}
	return offset
}
