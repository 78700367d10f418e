// Package sqliteexternal provides the optional CGO SQLite driver.
//
// This package is part of the main github.com/FocuswithJustin/ttldict module
// and registers github.com/mattn/go-sqlite3 when built with:
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite
//
// By default the store uses a pure Go SQLite implementation that requires no
// CGO; see github.com/FocuswithJustin/ttldict/core/sqlite for details.
//
// Use the CGO driver when raw throughput matters more than easy
// cross-compilation; use the default pure Go driver when a single static
// binary is the priority.
package sqliteexternal
