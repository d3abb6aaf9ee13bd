// Package postgres provides PostgreSQL connection configuration for
// circulation store testing.
//
// It contains factory functions for each supported database adapter
// (pgxpool.Pool, sql.DB, sqlx.DB) with pre-configured pool settings and a
// test database DSN that can be overridden via the POSTGRES_TEST_DSN
// environment variable.
package postgres
