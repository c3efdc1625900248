// Package sqlite provides a SQLite-backed implementation of the ingest
// ledger driven port.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation
// that requires no CGO, enabling easy cross-compilation. The ledger is
// local bookkeeping only: the index itself lives in the search service.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in
// the migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.docqa/data/ledger.db
//
// # Thread Safety
//
// All operations are thread-safe. The ledger relies on database-level
// locking provided by SQLite in WAL mode.
package sqlite
