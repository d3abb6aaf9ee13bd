package lending

import (
	"context"
	"time"
)

// EditionCapacity describes how many physical copies exist for one edition
// and how many of them are reserved for on-site use.
type EditionCapacity struct {
	TotalCopies          int
	ReservedOnSiteCopies int
}

// Edition is one printing of an item with its own independent capacity.
type Edition struct {
	ID       string
	Name     string
	Capacity EditionCapacity
}

// ResolvedItem is a requested item/edition pair resolved against the
// catalog, carrying the item's categories for the category-based rules.
type ResolvedItem struct {
	ItemName    string
	Edition     Edition
	CategoryIDs []CategoryID
}

// CatalogLookup is the collaborator contract for resolving requested item
// names against the persisted catalog.
type CatalogLookup interface {
	// ResolveEdition resolves an item/edition name pair. Implementations
	// return an error wrapping ErrUnknownItem when the pair is not known.
	ResolveEdition(ctx context.Context, itemName string, editionName string) (ResolvedItem, error)

	// ActiveLoanCount counts loan records containing this edition whose
	// date lies strictly before asOf. Future-dated loans do not count
	// against current stock.
	ActiveLoanCount(ctx context.Context, itemName string, editionName string, asOf time.Time) (int, error)
}
