// Package testdoubles provides spy implementations of the observability
// interfaces for testing logging and metrics instrumentation.
package testdoubles
