// Package postgresengine provides the PostgreSQL implementation of the
// engine's collaborator contracts.
//
// Circulation records (checkouts and renewals) live in a single
// append-only table with a jsonb payload; windowed history queries filter
// with jsonb containment predicates. The catalog lives in a separate
// table keyed by item and edition name. Multiple database client
// libraries are supported through internal adapters (pgx, sql.DB, sqlx).
//
// Expected schema:
//
//	CREATE TABLE circulation_records (
//	    record_type TEXT        NOT NULL,
//	    occurred_at TIMESTAMPTZ NOT NULL,
//	    payload     JSONB       NOT NULL
//	);
//	CREATE INDEX circulation_records_payload_idx ON circulation_records USING GIN (payload);
//	CREATE INDEX circulation_records_occurred_at_idx ON circulation_records (occurred_at);
//
//	CREATE TABLE catalog_editions (
//	    item_name    TEXT  NOT NULL,
//	    edition_name TEXT  NOT NULL,
//	    payload      JSONB NOT NULL,
//	    PRIMARY KEY (item_name, edition_name)
//	);
//
// Usage:
//
//	pool, _ := pgxpool.New(context.Background(), dsn)
//	store, _ := postgresengine.NewCirculationStoreFromPGXPool(
//		pool,
//		postgresengine.WithTableName("circulation_records"),
//		postgresengine.WithLogger(logger),
//	)
//	engine, _ := lending.NewEngine(hierarchy, store, store, lending.DefaultConfig())
package postgresengine
