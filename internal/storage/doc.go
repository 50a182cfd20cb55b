// Package storage is the recipient directory: per-tenant recipient rows with
// locale and reachability, the tenant admin table used for permission checks,
// and an append-only audit log.
//
// Drivers:
//   - "sqlite": modernc.org/sqlite file database (default)
//   - "postgres": lib/pq, DSN from config or CASTBOT_STORAGE_DSN
//   - "memory": process-local maps, for dry runs and tests
//
// The SQL drivers share one sqlx repository; queries are written with "?"
// placeholders and rebound per driver.
package storage
