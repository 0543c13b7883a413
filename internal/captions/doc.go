// Package captions renders transcripts into SRT, WebVTT, ASS, and plain-text
// documents, and parses the timed formats back for round-trip checks and
// dubbing from existing subtitle files.
package captions
