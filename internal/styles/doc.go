// Package styles holds the closed set of caption styling presets and the
// color conversions needed by the ASS writer and the burn-in renderer.
package styles
