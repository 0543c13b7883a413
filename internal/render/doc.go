// Package render drives the ffmpeg invocations that burn captions into
// video or attach them as soft subtitle streams.
package render
