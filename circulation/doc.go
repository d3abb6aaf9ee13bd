// Package circulation provides the imperative shell around the pure
// eligibility engine: command handlers that evaluate a checkout or renewal
// and persist a record when it is allowed.
//
// The handlers own the two concerns the engine deliberately leaves to its
// callers. First, per-patron serialization: concurrent commands for the
// same patron are processed one at a time, so a decision's view of the
// patron's history cannot be invalidated by a concurrent write. Second,
// resilience: transient collaborator failures are retried with exponential
// backoff before surfacing as errors, and a denied or failed command never
// records anything.
//
// Usage:
//
//	handler, _ := circulation.NewCheckoutHandler(engine, store, store)
//	decision, err := handler.Handle(ctx, circulation.CheckoutCommand{
//		PatronID:   "patron-42",
//		Role:       lending.RoleRegular,
//		Items:      []lending.RequestedItem{{ItemName: "Dune", EditionName: "Paperback"}},
//		OccurredAt: time.Now().UTC(),
//	})
package circulation
