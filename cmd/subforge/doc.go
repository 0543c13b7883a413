// Command subforge is the CLI entry point for the subtitle and dubbing
// pipeline: process files directly, manage the job queue, and inspect
// configuration and tooling.
package main
