// Package tts synthesizes speech fragments for the dubbing stage.
package tts
