// Package audio extracts and conditions the speech track that feeds
// transcription.
package audio
