// Package language normalizes language codes, enumerates the dubbing-capable
// set, and detects the language of transcript text.
package language
