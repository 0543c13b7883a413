// Package deps verifies the external tool binaries the pipeline depends on.
package deps
