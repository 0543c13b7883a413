package tts

import "testing"

// SetGoogleEndpoint redirects the engine at a test server.
func SetGoogleEndpoint(t *testing.T, engine *GoogleEngine, endpoint string) {
	t.Helper()
	engine.endpoint = endpoint
}
