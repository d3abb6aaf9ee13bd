package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/patronflow/lending-eligibility-go/lending/postgresengine"
)

// Adapter type constants, selected via the ADAPTER_TYPE environment variable.
const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"
)

// Wrapper abstracts over the different database adapter types so the same
// test suite can run against each of them.
type Wrapper interface {
	GetStore() postgresengine.CirculationStore
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing.
type PGXPoolWrapper struct {
	pool  *pgxpool.Pool
	store postgresengine.CirculationStore
}

func (w *PGXPoolWrapper) GetStore() postgresengine.CirculationStore {
	return w.store
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing.
type SQLDBWrapper struct {
	db    *sql.DB
	store postgresengine.CirculationStore
}

func (w *SQLDBWrapper) GetStore() postgresengine.CirculationStore {
	return w.store
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing.
type SQLXWrapper struct {
	db    *sqlx.DB
	store postgresengine.CirculationStore
}

func (w *SQLXWrapper) GetStore() postgresengine.CirculationStore {
	return w.store
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// CreateWrapperWithTestConfig creates the wrapper for the adapter type
// selected by the ADAPTER_TYPE environment variable (default: pgx.pool).
func CreateWrapperWithTestConfig(t testing.TB, options ...postgresengine.Option) Wrapper {
	t.Helper()

	adapterTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	switch adapterTypeFromEnv {
	case typePGXPool, "":
		connPool, err := pgxpool.NewWithConfig(context.Background(), PGXPoolTestConfig())
		require.NoError(t, err, "error connecting to DB pool in test setup")

		store, err := postgresengine.NewCirculationStoreFromPGXPool(connPool, options...)
		require.NoError(t, err, "error creating circulation store in test setup")

		return &PGXPoolWrapper{pool: connPool, store: store}

	case typeSQLDB:
		db := SQLDBTestConfig()

		store, err := postgresengine.NewCirculationStoreFromSQLDB(db, options...)
		require.NoError(t, err, "error creating circulation store in test setup")

		return &SQLDBWrapper{db: db, store: store}

	case typeSQLXDB:
		db := SQLXTestConfig()

		store, err := postgresengine.NewCirculationStoreFromSQLX(db, options...)
		require.NoError(t, err, "error creating circulation store in test setup")

		return &SQLXWrapper{db: db, store: store}

	default:
		panic(fmt.Sprintf("unsupported adapter type from env: %s", adapterTypeFromEnv))
	}
}
