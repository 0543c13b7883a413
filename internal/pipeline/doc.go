// Package pipeline orchestrates a job through probing, extraction,
// transcription, caption formatting, render and dub fan-out, and atomic
// publication. Branch failures degrade a job; fatal stage failures abort it.
package pipeline
