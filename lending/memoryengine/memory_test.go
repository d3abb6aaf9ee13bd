package memoryengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patronflow/lending-eligibility-go/lending"
	"github.com/patronflow/lending-eligibility-go/lending/memoryengine"
)

var countDate = time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)

func givenRecordedCheckout(t *testing.T, store *memoryengine.Store, at time.Time, items ...lending.LoanedItem) {
	t.Helper()

	err := store.RecordCheckout(context.Background(), lending.LoanRecord{
		RecordID:   uuid.NewString(),
		PatronID:   "patron-1",
		IssuedBy:   "patron-1",
		Items:      items,
		OccurredAt: at,
	})
	require.NoError(t, err)
}

func Test_Store_ActiveLoanCount_CountsRecordsNotItemOccurrences(t *testing.T) {
	// arrange - one record carrying the same edition twice
	store := memoryengine.NewStore()

	dune := lending.LoanedItem{ItemName: "Dune", EditionName: "Paperback"}
	givenRecordedCheckout(t, store, countDate.AddDate(0, 0, -2), dune, dune)
	givenRecordedCheckout(t, store, countDate.AddDate(0, 0, -1), dune)

	// act
	count, err := store.ActiveLoanCount(context.Background(), "Dune", "Paperback", countDate)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, count, "each record counts once regardless of duplicate items")
}

func Test_Store_ActiveLoanCount_IgnoresFutureRecords(t *testing.T) {
	// arrange
	store := memoryengine.NewStore()

	dune := lending.LoanedItem{ItemName: "Dune", EditionName: "Paperback"}
	givenRecordedCheckout(t, store, countDate.AddDate(0, 0, -1), dune)
	givenRecordedCheckout(t, store, countDate.AddDate(0, 0, 1), dune)

	// act
	count, err := store.ActiveLoanCount(context.Background(), "Dune", "Paperback", countDate)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
