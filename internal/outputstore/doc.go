// Package outputstore stages job outputs and publishes them atomically into
// per-job output directories.
package outputstore
