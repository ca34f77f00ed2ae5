// Package duckdb links the DuckDB database/sql driver so store.NewStore can
// open store.DriverDuckDB databases. Import it for its side effect; it needs
// cgo.
package duckdb

import (
	_ "github.com/duckdb/duckdb-go/v2"
)
