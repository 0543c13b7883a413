// Package transcript defines the timed-text model shared by the
// transcription, caption, and dubbing stages.
package transcript
