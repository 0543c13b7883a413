// Package queue persists batch jobs in SQLite and mediates their lifecycle
// transitions. The schema is embedded and version-checked on open; to add
// statuses or columns, update schema.sql and bump schemaVersion.
package queue
