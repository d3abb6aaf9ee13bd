package postgresengine

import (
	"github.com/patronflow/lending-eligibility-go/lending"
)

// Option defines a functional option for configuring a CirculationStore.
type Option func(*CirculationStore) error

// WithTableName sets the circulation records table name.
func WithTableName(tableName string) Option {
	return func(cs *CirculationStore) error {
		if tableName == "" {
			return lending.ErrEmptyTableNameSupplied
		}

		cs.recordsTableName = tableName

		return nil
	}
}

// WithCatalogTableName sets the catalog editions table name.
func WithCatalogTableName(tableName string) Option {
	return func(cs *CirculationStore) error {
		if tableName == "" {
			return lending.ErrEmptyTableNameSupplied
		}

		cs.catalogTableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the CirculationStore.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: record counts and durations (production-safe)
// Warn level: non-critical issues like cleanup failures
// Error level: critical failures that cause operation failures.
func WithLogger(logger lending.Logger) Option {
	return func(cs *CirculationStore) error {
		cs.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the CirculationStore.
// The collector receives query and append durations per operation and a
// counter of database errors.
func WithMetrics(collector lending.MetricsCollector) Option {
	return func(cs *CirculationStore) error {
		cs.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the CirculationStore.
// The collector receives a span per database query and record append,
// labeled with the store operation and finished with the outcome.
func WithTracing(collector lending.TracingCollector) Option {
	return func(cs *CirculationStore) error {
		cs.tracingCollector = collector
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the CirculationStore.
// The contextual logger receives log messages with context information,
// enabling automatic trace/span correlation when tracing is configured.
func WithContextualLogger(logger lending.ContextualLogger) Option {
	return func(cs *CirculationStore) error {
		cs.contextualLogger = logger
		return nil
	}
}
