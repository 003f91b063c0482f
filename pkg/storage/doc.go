/*
Package storage provides persistent state storage for the Loft control plane.

State is stored in an embedded BoltDB database: one bucket per entity type,
JSON-encoded values, upsert write semantics. Workspaces are keyed by
"<agent-id>/<name>" so that all workspaces of one agent occupy a contiguous
key range and can be scanned with a cursor prefix seek.

Each read or write runs in its own BoltDB transaction. Concurrent
reconciliation requests therefore get last-write-wins semantics per
workspace row, which is acceptable because every workspace update is
derived from the latest agent-reported state rather than a read-modify-write
diff.

Lookups for missing records return an error wrapping ErrNotFound; callers
distinguish "does not exist" from I/O failures with errors.Is.
*/
package storage
