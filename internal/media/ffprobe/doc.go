// Package ffprobe shells out to ffprobe and exposes the container facts the
// pipeline gates on: stream presence, duration, and size.
package ffprobe
