// Package adapters provides database adapter implementations for the
// PostgreSQL circulation store.
//
// The adapter pattern supports multiple PostgreSQL client libraries:
// pgxpool.Pool, sql.DB, and sqlx.DB. All adapters provide equivalent
// functionality through a common DBAdapter interface, so the circulation
// store works the same with any supported connection type.
package adapters
