// Package memoryengine provides an in-memory implementation of the lending
// collaborator contracts (HistoryQuery, CatalogLookup, LoanRecorder) for
// tests, examples and demos.
//
// The store is deterministic and safe for concurrent use. Failures can be
// injected per collaborator method to exercise the engine's fail-closed
// behavior.
package memoryengine
