// Package lending provides the borrowing eligibility core for a
// library-style item lending system.
//
// The central type is Engine, a pure decision component: given a patron, a
// proposed checkout batch, and an evaluation date, it runs an ordered
// pipeline of policy rules against the patron's loan history and the item
// catalog and returns a single allow/deny Decision. A sibling extension
// policy decides whether an existing loan may be renewed.
//
// The engine owns no state and performs no writes. Historical data and
// catalog data are reached through the HistoryQuery and CatalogLookup
// collaborator contracts; recording an approved checkout is the caller's
// job via LoanRecorder (see the circulation package). All thresholds are
// supplied as an immutable Config at construction time.
//
// Key types:
//   - Engine: six-rule checkout pipeline plus the renewal policy
//   - Config: tunable policy thresholds, validated at construction
//   - CategoryHierarchy: category forest with ancestor-path lookups
//   - Decision: allow/deny outcome identifying the failed rule
//
// Common usage pattern:
//
//	engine, err := lending.NewEngine(hierarchy, history, catalog, lending.DefaultConfig())
//	if err != nil {
//		// handle error
//	}
//
//	decision, err := engine.Evaluate(ctx, lending.CheckoutRequest{
//		PatronID: patronID,
//		Role:     lending.RoleRegular,
//		Items:    []lending.RequestedItem{{ItemName: "Dune", EditionName: "Paperback"}},
//		AsOf:     time.Now(),
//	})
package lending
