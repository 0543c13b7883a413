// Package workflow drives queued jobs through the processing pipeline.
//
// A Runner claims pending jobs from the SQLite queue, executes them with the
// pipeline orchestrator, and mirrors every lifecycle transition back into the
// queue so external observers see live progress. A file lock on the work
// directory keeps concurrent runners off the same queue.
package workflow
