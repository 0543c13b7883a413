// Package dub synthesizes speech for each caption cue, reconciles it with
// the cue timing, and mixes the assembled track under the source video.
package dub
