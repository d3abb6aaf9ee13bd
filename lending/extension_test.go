package lending_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patronflow/lending-eligibility-go/lending"
	"github.com/patronflow/lending-eligibility-go/lending/memoryengine"
)

func givenRecordedRenewal(t *testing.T, store *memoryengine.Store, patronID string, at time.Time) {
	t.Helper()

	require.NoError(t, store.RecordRenewal(context.Background(), lending.RenewalRecord{
		RecordID:   uuid.NewString(),
		LoanID:     uuid.NewString(),
		PatronID:   patronID,
		OccurredAt: at,
	}))
}

func renewalRequestFor(patronID string, role lending.Role) lending.RenewalRequest {
	return lending.RenewalRequest{
		PatronID: patronID,
		Role:     role,
		LoanID:   uuid.NewString(),
		AsOf:     evalDate,
	}
}

func Test_EvaluateExtension_AllowsWithinAllowance(t *testing.T) {
	// arrange - ExtensionLimit=1, one prior renewal in the window
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	givenRecordedRenewal(t, store, "patron-1", evalDate.AddDate(0, 0, -30))

	// act
	decision, err := engine.EvaluateExtension(context.Background(), renewalRequestFor("patron-1", lending.RoleRegular))

	// assert
	assertAllowed(t, decision, err)
}

func Test_EvaluateExtension_DeniesWhenAllowanceExceeded(t *testing.T) {
	// arrange - two prior renewals exceed the allowance of one
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	givenRecordedRenewal(t, store, "patron-1", evalDate.AddDate(0, 0, -30))
	givenRecordedRenewal(t, store, "patron-1", evalDate.AddDate(0, 0, -10))

	// act
	decision, err := engine.EvaluateExtension(context.Background(), renewalRequestFor("patron-1", lending.RoleRegular))

	// assert
	assertDeniedAt(t, decision, err, lending.RuleExtensionLimit)
}

func Test_EvaluateExtension_StaffAllowanceIsDoubled(t *testing.T) {
	// arrange - the same two renewals stay within the doubled staff allowance
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	givenRecordedRenewal(t, store, "staff-1", evalDate.AddDate(0, 0, -30))
	givenRecordedRenewal(t, store, "staff-1", evalDate.AddDate(0, 0, -10))

	// act
	decision, err := engine.EvaluateExtension(context.Background(), renewalRequestFor("staff-1", lending.RoleStaff))

	// assert
	assertAllowed(t, decision, err)
}

func Test_EvaluateExtension_IgnoresRenewalsOutsideWindow(t *testing.T) {
	// arrange - renewals older than the 90-day window do not count
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	givenRecordedRenewal(t, store, "patron-1", evalDate.AddDate(0, 0, -100))
	givenRecordedRenewal(t, store, "patron-1", evalDate.AddDate(0, 0, -95))
	givenRecordedRenewal(t, store, "patron-1", evalDate.AddDate(0, 0, -30))

	// act
	decision, err := engine.EvaluateExtension(context.Background(), renewalRequestFor("patron-1", lending.RoleRegular))

	// assert
	assertAllowed(t, decision, err)
}

func Test_EvaluateExtension_FailsClosed_WhenHistoryUnavailable(t *testing.T) {
	// arrange
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	store.FailHistory(errors.New("connection refused"))

	// act
	_, err := engine.EvaluateExtension(context.Background(), renewalRequestFor("patron-1", lending.RoleRegular))

	// assert
	assert.ErrorIs(t, err, lending.ErrHistoryUnavailable)
}

func Test_RenewalWindow_IsNinetyDays(t *testing.T) {
	assert.Equal(t, 90*24*time.Hour, lending.RenewalWindow())
}
