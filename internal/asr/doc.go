// Package asr runs speech recognition over extracted audio and normalizes
// the result into the shared transcript model.
package asr
