// Package jobs persists production job history in SQLite.
//
// Every render job gets a row that follows it from segment allocation through
// rendering to consumption (or failure/release). The store uses the pure-Go
// modernc.org/sqlite driver in WAL mode and retries briefly on SQLITE_BUSY so
// the CLI and a long-running producer can share one database file.
package jobs
