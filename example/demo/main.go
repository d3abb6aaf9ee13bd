// Command demo wires the eligibility engine with the in-memory store and
// runs a small checkout scenario: a patron borrows until the active-loan
// ceiling denies them, then renews one of the loans.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/patronflow/lending-eligibility-go/circulation"
	"github.com/patronflow/lending-eligibility-go/lending"
	"github.com/patronflow/lending-eligibility-go/lending/memoryengine"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "demo failed:", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	hierarchy := lending.BuildCategoryHierarchy(
		lending.Category{ID: "fiction", Name: "Fiction"},
		lending.Category{ID: "scifi", Name: "Science Fiction", ParentID: "fiction"},
		lending.Category{ID: "poetry", Name: "Poetry"},
		lending.Category{ID: "science", Name: "Science"},
		lending.Category{ID: "physics", Name: "Physics", ParentID: "science"},
	)

	store := memoryengine.NewStore()
	seedCatalog(store)

	// tightened ceiling so the third batch runs into a denial
	config := lending.DefaultConfig()
	config.MaxActiveLoans = 3

	engine, err := lending.NewEngine(hierarchy, store, store, config,
		lending.WithLogger(logger))
	if err != nil {
		return err
	}

	checkout, err := circulation.NewCheckoutHandler(engine, store, store)
	if err != nil {
		return err
	}

	renewal, err := circulation.NewRenewalHandler(engine, store)
	if err != nil {
		return err
	}

	ctx := context.Background()
	now := time.Now().UTC()
	patronID := "patron-42"

	batches := [][]lending.RequestedItem{
		{
			{ItemName: "Dune", EditionName: "Paperback"},
			{ItemName: "Hamlet", EditionName: "Folio"},
		},
		{
			{ItemName: "Cosmos", EditionName: "Hardcover"},
		},
		{
			{ItemName: "Solaris", EditionName: "Paperback"},
		},
	}

	var firstLoanID string
	for _, items := range batches {
		decision, handleErr := checkout.Handle(ctx, circulation.CheckoutCommand{
			PatronID:   patronID,
			Role:       lending.RoleRegular,
			Items:      items,
			OccurredAt: now,
		})
		if handleErr != nil {
			return handleErr
		}

		printDecision("checkout", items, decision)

		if decision.Allowed && firstLoanID == "" {
			firstLoanID = fmt.Sprintf("loan-%s", patronID)
		}
	}

	renewalDecision, err := renewal.Handle(ctx, circulation.RenewalCommand{
		PatronID:   patronID,
		Role:       lending.RoleRegular,
		LoanID:     firstLoanID,
		OccurredAt: now,
	})
	if err != nil {
		return err
	}

	if renewalDecision.Allowed {
		fmt.Println("renewal allowed")
	} else {
		fmt.Printf("renewal denied by %s: %s\n", renewalDecision.FailedRule, renewalDecision.Reason)
	}

	return nil
}

func seedCatalog(store *memoryengine.Store) {
	capacity := lending.EditionCapacity{TotalCopies: 20, ReservedOnSiteCopies: 2}

	store.AddCatalogEntry(memoryengine.CatalogEntry{
		ItemName: "Dune", EditionName: "Paperback",
		CategoryIDs: []lending.CategoryID{"scifi"}, Capacity: capacity,
	})
	store.AddCatalogEntry(memoryengine.CatalogEntry{
		ItemName: "Solaris", EditionName: "Paperback",
		CategoryIDs: []lending.CategoryID{"scifi"}, Capacity: capacity,
	})
	store.AddCatalogEntry(memoryengine.CatalogEntry{
		ItemName: "Hamlet", EditionName: "Folio",
		CategoryIDs: []lending.CategoryID{"poetry"}, Capacity: capacity,
	})
	store.AddCatalogEntry(memoryengine.CatalogEntry{
		ItemName: "Cosmos", EditionName: "Hardcover",
		CategoryIDs: []lending.CategoryID{"physics"}, Capacity: capacity,
	})
}

func printDecision(operation string, items []lending.RequestedItem, decision lending.Decision) {
	if decision.Allowed {
		fmt.Printf("%s allowed (%d items)\n", operation, len(items))
		return
	}

	fmt.Printf("%s denied by %s: %s\n", operation, decision.FailedRule, decision.Reason)
}
