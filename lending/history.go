package lending

import (
	"context"
	"time"
)

// LoanedItem is one item of a historical loan record, with the categories
// it carried at checkout time and the date of the loan.
type LoanedItem struct {
	ItemName    string
	EditionName string
	CategoryIDs []CategoryID
	LoanedAt    time.Time
}

// LoanRecord represents one checkout transaction: one or more items lent
// to a patron on one date. The record's date is immutable once created;
// there is no modeled return, a record counts as an active loan forever
// once its date is in the past.
type LoanRecord struct {
	RecordID   string
	PatronID   string
	IssuedBy   string
	Items      []LoanedItem
	OccurredAt time.Time
}

// RenewalRecord represents one approved extension of an existing loan.
type RenewalRecord struct {
	RecordID   string
	LoanID     string
	PatronID   string
	OccurredAt time.Time
}

// HistoryQuery is the collaborator contract for windowed retrieval of a
// patron's historical loan and renewal records.
//
// All windows are half-open on the left: a record is inside the window
// when its date lies in (asOf-window, asOf]. Date-based methods count
// records on the same UTC calendar day as the given date.
type HistoryQuery interface {
	// ItemsLoanedWithin returns the items of all loan records of this
	// patron whose date lies within the window before asOf.
	ItemsLoanedWithin(ctx context.Context, patronID string, window time.Duration, asOf time.Time) ([]LoanedItem, error)

	// ItemsLoanedOnDate counts the items this patron checked out on the
	// given calendar day.
	ItemsLoanedOnDate(ctx context.Context, patronID string, date time.Time) (int, error)

	// ItemsIssuedByStaffOnDate counts the items the given staff member
	// issued to anyone on the given calendar day.
	ItemsIssuedByStaffOnDate(ctx context.Context, staffID string, date time.Time) (int, error)

	// RenewalsWithin counts this patron's renewals within the window
	// before asOf, across all their loans.
	RenewalsWithin(ctx context.Context, patronID string, window time.Duration, asOf time.Time) (int, error)
}

// LoanRecorder is the persistence side of the collaborator contract.
// A LoanRecord is created only after an allowed checkout decision and a
// RenewalRecord only after an allowed extension decision; nothing deletes
// either kind of record.
type LoanRecorder interface {
	RecordCheckout(ctx context.Context, record LoanRecord) error
	RecordRenewal(ctx context.Context, record RenewalRecord) error
}
