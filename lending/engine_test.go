package lending_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patronflow/lending-eligibility-go/lending"
	"github.com/patronflow/lending-eligibility-go/lending/memoryengine"
)

var evalDate = time.Date(2026, 5, 20, 10, 0, 0, 0, time.UTC)

// thresholds kept small so single tests can reach each ceiling
func givenTestConfig(t *testing.T) lending.Config {
	t.Helper()

	return lending.Config{
		MaxActiveLoans:                3,
		ActiveWindowDays:              30,
		MaxBatchDistinctCategoryItems: 4,
		MaxPerRootCategory:            2,
		RootCategoryWindowMonths:      3,
		SameItemCooldownDays:          14,
		MaxPerDay:                     5,
		StaffDailyIssueCap:            10,
		ExtensionLimit:                1,
	}
}

func givenStoreWithCatalog(t *testing.T) *memoryengine.Store {
	t.Helper()

	store := memoryengine.NewStore()

	plenty := lending.EditionCapacity{TotalCopies: 100}

	store.AddCatalogEntry(memoryengine.CatalogEntry{
		ItemName: "Dune", EditionName: "Paperback",
		CategoryIDs: []lending.CategoryID{"scifi"}, Capacity: plenty,
	})
	store.AddCatalogEntry(memoryengine.CatalogEntry{
		ItemName: "Solaris", EditionName: "Paperback",
		CategoryIDs: []lending.CategoryID{"scifi"}, Capacity: plenty,
	})
	store.AddCatalogEntry(memoryengine.CatalogEntry{
		ItemName: "Neuromancer", EditionName: "Paperback",
		CategoryIDs: []lending.CategoryID{"scifi"}, Capacity: plenty,
	})
	store.AddCatalogEntry(memoryengine.CatalogEntry{
		ItemName: "Hamlet", EditionName: "Folio",
		CategoryIDs: []lending.CategoryID{"poetry"}, Capacity: plenty,
	})
	store.AddCatalogEntry(memoryengine.CatalogEntry{
		ItemName: "Cosmos", EditionName: "Hardcover",
		CategoryIDs: []lending.CategoryID{"physics"}, Capacity: plenty,
	})
	store.AddCatalogEntry(memoryengine.CatalogEntry{
		ItemName: "Anthology", EditionName: "Paperback",
		CategoryIDs: []lending.CategoryID{"scifi", "poetry"}, Capacity: plenty,
	})
	store.AddCatalogEntry(memoryengine.CatalogEntry{
		ItemName: "Tangled", EditionName: "Paperback",
		CategoryIDs: []lending.CategoryID{"scifi", "fiction"}, Capacity: plenty,
	})
	store.AddCatalogEntry(memoryengine.CatalogEntry{
		ItemName: "Scarce", EditionName: "Paperback",
		CategoryIDs: []lending.CategoryID{"physics"},
		Capacity:    lending.EditionCapacity{TotalCopies: 12, ReservedOnSiteCopies: 10},
	})

	return store
}

func givenEngine(t *testing.T, store *memoryengine.Store, config lending.Config) *lending.Engine {
	t.Helper()

	engine, err := lending.NewEngine(givenFixtureHierarchy(t), store, store, config)
	require.NoError(t, err)

	return engine
}

func givenHistoricalLoan(t *testing.T, store *memoryengine.Store, patronID string, at time.Time, itemNames ...string) {
	t.Helper()

	givenIssuedLoan(t, store, patronID, patronID, at, itemNames...)
}

func givenIssuedLoan(t *testing.T, store *memoryengine.Store, patronID string, issuedBy string, at time.Time, itemNames ...string) {
	t.Helper()

	items := make([]lending.LoanedItem, 0, len(itemNames))
	for _, name := range itemNames {
		resolved, err := store.ResolveEdition(context.Background(), name, editionNameFor(name))
		require.NoError(t, err)

		items = append(items, lending.LoanedItem{
			ItemName:    resolved.ItemName,
			EditionName: resolved.Edition.Name,
			CategoryIDs: resolved.CategoryIDs,
			LoanedAt:    at,
		})
	}

	require.NoError(t, store.RecordCheckout(context.Background(), lending.LoanRecord{
		RecordID:   uuid.NewString(),
		PatronID:   patronID,
		IssuedBy:   issuedBy,
		Items:      items,
		OccurredAt: at,
	}))
}

func editionNameFor(itemName string) string {
	switch itemName {
	case "Hamlet":
		return "Folio"
	case "Cosmos":
		return "Hardcover"
	default:
		return "Paperback"
	}
}

func requestFor(patronID string, role lending.Role, itemNames ...string) lending.CheckoutRequest {
	items := make([]lending.RequestedItem, 0, len(itemNames))
	for _, name := range itemNames {
		items = append(items, lending.RequestedItem{ItemName: name, EditionName: editionNameFor(name)})
	}

	return lending.CheckoutRequest{
		PatronID: patronID,
		Role:     role,
		Items:    items,
		AsOf:     evalDate,
	}
}

func assertAllowed(t *testing.T, decision lending.Decision, err error) {
	t.Helper()
	require.NoError(t, err)
	assert.True(t, decision.Allowed, "expected allow, got deny at rule %q", decision.FailedRule)
}

func assertDeniedAt(t *testing.T, decision lending.Decision, err error, rule lending.Rule) {
	t.Helper()
	require.NoError(t, err)
	assert.False(t, decision.Allowed, "expected denial at rule %q", rule)
	assert.Equal(t, rule, decision.FailedRule)
	assert.NotEmpty(t, decision.Reason)
}

func Test_Evaluate_Allows_SingleItemWithZeroHistory(t *testing.T) {
	// arrange
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	// act
	decision, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Dune"))

	// assert
	assertAllowed(t, decision, err)
}

func Test_Evaluate_RejectsEmptyBatch(t *testing.T) {
	// arrange
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	// act
	_, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular))

	// assert
	assert.ErrorIs(t, err, lending.ErrValidation)
	assert.ErrorIs(t, err, lending.ErrEmptyBatch)
}

func Test_Evaluate_RejectsUnknownItemName(t *testing.T) {
	// arrange
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	// act
	_, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Unlisted"))

	// assert - the whole batch is rejected as a validation error
	assert.ErrorIs(t, err, lending.ErrValidation)
	assert.ErrorIs(t, err, lending.ErrUnknownItem)
}

func Test_Evaluate_Denies_ItemWithRedundantCategories(t *testing.T) {
	// arrange - Tangled carries scifi plus its ancestor fiction
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	// act
	decision, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Tangled"))

	// assert
	assertDeniedAt(t, decision, err, lending.RuleItemResolution)
}

func Test_Evaluate_Denies_WhenStockBufferExhausted(t *testing.T) {
	// arrange - Scarce: leftover = 12-0-10-1 = 1, 1/12 < 0.10
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	// act - one healthy item does not save the batch
	decision, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Dune", "Scarce"))

	// assert
	assertDeniedAt(t, decision, err, lending.RuleStockAvailability)
}

func Test_Evaluate_ActiveLoanCeiling(t *testing.T) {
	// arrange - MaxActiveLoans=3: three single-item loans inside the window
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	givenHistoricalLoan(t, store, "patron-1", evalDate.AddDate(0, 0, -5), "Dune")
	givenHistoricalLoan(t, store, "patron-1", evalDate.AddDate(0, 0, -4), "Hamlet")
	givenHistoricalLoan(t, store, "patron-1", evalDate.AddDate(0, 0, -3), "Cosmos")

	// act
	decision, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Solaris"))

	// assert
	assertDeniedAt(t, decision, err, lending.RuleActiveLoanCeiling)
}

func Test_Evaluate_ActiveLoanCeiling_IgnoresLoansOutsideWindow(t *testing.T) {
	// arrange - same history, but shifted beyond the 30-day window
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	givenHistoricalLoan(t, store, "patron-1", evalDate.AddDate(0, 0, -40), "Dune")
	givenHistoricalLoan(t, store, "patron-1", evalDate.AddDate(0, 0, -35), "Hamlet")
	givenHistoricalLoan(t, store, "patron-1", evalDate.AddDate(0, 0, -31), "Cosmos")

	// act
	decision, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Solaris"))

	// assert
	assertAllowed(t, decision, err)
}

func Test_Evaluate_StaffMultiplier_LoosensActiveLoanCeiling(t *testing.T) {
	// arrange - identical history and batch for both roles
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	for patron := range map[string]struct{}{"regular-1": {}, "staff-1": {}} {
		givenHistoricalLoan(t, store, patron, evalDate.AddDate(0, 0, -5), "Dune")
		givenHistoricalLoan(t, store, patron, evalDate.AddDate(0, 0, -4), "Hamlet")
		givenHistoricalLoan(t, store, patron, evalDate.AddDate(0, 0, -3), "Cosmos")
	}

	// act
	regularDecision, regularErr := engine.Evaluate(context.Background(), requestFor("regular-1", lending.RoleRegular, "Solaris"))
	staffDecision, staffErr := engine.Evaluate(context.Background(), requestFor("staff-1", lending.RoleStaff, "Solaris"))

	// assert - the multiplier only loosens constraints
	assertDeniedAt(t, regularDecision, regularErr, lending.RuleActiveLoanCeiling)
	assertAllowed(t, staffDecision, staffErr)
}

func Test_Evaluate_BatchDiversity_DeniesAtBatchCapRegardlessOfCategories(t *testing.T) {
	// arrange - cap 4: a four-item batch across three category trees
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	// act
	decision, err := engine.Evaluate(context.Background(),
		requestFor("patron-1", lending.RoleRegular, "Dune", "Hamlet", "Cosmos", "Solaris"))

	// assert
	assertDeniedAt(t, decision, err, lending.RuleBatchDiversity)
}

func Test_Evaluate_BatchDiversity_LargeSingleCategoryBatchDenied(t *testing.T) {
	// arrange - raise the batch cap so only the diversity clause can fire
	store := givenStoreWithCatalog(t)
	config := givenTestConfig(t)
	config.MaxBatchDistinctCategoryItems = 8
	config.MaxActiveLoans = 10
	config.MaxPerRootCategory = 10
	config.MaxPerDay = 10
	engine := givenEngine(t, store, config)

	// act - four items, all of them scifi only
	decision, err := engine.Evaluate(context.Background(),
		requestFor("patron-1", lending.RoleRegular, "Dune", "Solaris", "Neuromancer", "Dune"))

	// assert
	assertDeniedAt(t, decision, err, lending.RuleBatchDiversity)
}

func Test_Evaluate_BatchDiversity_LargeBatchWithTwoCategoriesPasses(t *testing.T) {
	// arrange
	store := givenStoreWithCatalog(t)
	config := givenTestConfig(t)
	config.MaxBatchDistinctCategoryItems = 8
	config.MaxActiveLoans = 10
	config.MaxPerRootCategory = 10
	config.MaxPerDay = 10
	engine := givenEngine(t, store, config)

	// act - Anthology adds poetry to the union
	decision, err := engine.Evaluate(context.Background(),
		requestFor("patron-1", lending.RoleRegular, "Dune", "Solaris", "Neuromancer", "Anthology"))

	// assert
	assertAllowed(t, decision, err)
}

func Test_Evaluate_RootCategorySaturation(t *testing.T) {
	// arrange - MaxPerRootCategory=2: two recent fiction-tree loans
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	givenHistoricalLoan(t, store, "patron-1", evalDate.AddDate(0, -1, 0), "Dune")
	givenHistoricalLoan(t, store, "patron-1", evalDate.AddDate(0, 0, -20), "Hamlet")

	// act - a third item under the fiction root
	decision, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Solaris"))

	// assert
	assertDeniedAt(t, decision, err, lending.RuleRootCategorySaturation)
}

func Test_Evaluate_RootCategorySaturation_CollapsesItemCategoriesPerRoot(t *testing.T) {
	// arrange - Anthology carries scifi and poetry, both under fiction:
	// it must count once for the fiction root, not twice
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	givenHistoricalLoan(t, store, "patron-1", evalDate.AddDate(0, -1, 0), "Dune")

	// act
	decision, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Anthology"))

	// assert - fiction root count is 2, not above the cap of 2
	assertAllowed(t, decision, err)
}

func Test_Evaluate_RootCategorySaturation_OtherTreeUnaffected(t *testing.T) {
	// arrange
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	givenHistoricalLoan(t, store, "patron-1", evalDate.AddDate(0, -1, 0), "Dune")
	givenHistoricalLoan(t, store, "patron-1", evalDate.AddDate(0, 0, -20), "Solaris")

	// act - Cosmos lives under the science root
	decision, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Cosmos"))

	// assert
	assertAllowed(t, decision, err)
}

func Test_Evaluate_SameItemCooldown(t *testing.T) {
	// arrange - config tuned so only the cooldown can fire
	store := givenStoreWithCatalog(t)
	config := givenTestConfig(t)
	config.MaxActiveLoans = 10
	config.MaxPerRootCategory = 10
	engine := givenEngine(t, store, config)

	givenHistoricalLoan(t, store, "patron-1", evalDate.AddDate(0, 0, -10), "Dune")

	// act - the same item again, 10 days into the 14-day cooldown
	decision, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Dune"))

	// assert
	assertDeniedAt(t, decision, err, lending.RuleSameItemCooldown)
}

func Test_Evaluate_SameItemCooldown_ElapsedWindowAllowsAgain(t *testing.T) {
	// arrange
	store := givenStoreWithCatalog(t)
	config := givenTestConfig(t)
	config.MaxActiveLoans = 10
	config.MaxPerRootCategory = 10
	engine := givenEngine(t, store, config)

	givenHistoricalLoan(t, store, "patron-1", evalDate.AddDate(0, 0, -15), "Dune")

	// act - one day past the cooldown window
	decision, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Dune"))

	// assert
	assertAllowed(t, decision, err)
}

func Test_Evaluate_DailyIssueCap_Regular(t *testing.T) {
	// arrange - config tuned so only the daily cap can fire
	store := givenStoreWithCatalog(t)
	config := givenTestConfig(t)
	config.MaxActiveLoans = 20
	config.MaxPerRootCategory = 20
	config.SameItemCooldownDays = 1
	engine := givenEngine(t, store, config)

	// five items already loaned earlier the same day
	morning := evalDate.Add(-4 * time.Hour)
	givenHistoricalLoan(t, store, "patron-1", morning, "Dune", "Hamlet", "Cosmos", "Solaris", "Neuromancer")

	// act
	decision, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Anthology"))

	// assert
	assertDeniedAt(t, decision, err, lending.RuleDailyIssueCap)
}

func Test_Evaluate_DailyIssueCap_StaffCountsIssuedItems(t *testing.T) {
	// arrange - the staff member issued ten items to other patrons today
	store := givenStoreWithCatalog(t)
	config := givenTestConfig(t)
	config.MaxActiveLoans = 20
	config.MaxPerRootCategory = 20
	config.SameItemCooldownDays = 1
	engine := givenEngine(t, store, config)

	morning := evalDate.Add(-4 * time.Hour)
	for i := 0; i < 5; i++ {
		patron := fmt.Sprintf("other-%d", i)
		givenIssuedLoan(t, store, patron, "staff-1", morning, "Dune", "Hamlet")
	}

	// act
	decision, err := engine.Evaluate(context.Background(), requestFor("staff-1", lending.RoleStaff, "Cosmos"))

	// assert - 10 issued + 1 requested > StaffDailyIssueCap of 10
	assertDeniedAt(t, decision, err, lending.RuleDailyIssueCap)
}

func Test_Evaluate_RuleOrder_FirstFailureIdentifiesDenial(t *testing.T) {
	// arrange - the request trips both the stock check and the cooldown;
	// the earlier pipeline stage must name the denial
	store := givenStoreWithCatalog(t)
	config := givenTestConfig(t)
	config.MaxActiveLoans = 10
	config.MaxPerRootCategory = 10
	engine := givenEngine(t, store, config)

	givenHistoricalLoan(t, store, "patron-1", evalDate.AddDate(0, 0, -2), "Scarce")

	// act
	decision, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Scarce"))

	// assert
	assertDeniedAt(t, decision, err, lending.RuleStockAvailability)
}

func Test_Evaluate_IsIdempotent(t *testing.T) {
	// arrange
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	givenHistoricalLoan(t, store, "patron-1", evalDate.AddDate(0, 0, -5), "Dune")
	request := requestFor("patron-1", lending.RoleRegular, "Solaris")

	// act - no persistence in between
	first, firstErr := engine.Evaluate(context.Background(), request)
	second, secondErr := engine.Evaluate(context.Background(), request)

	// assert
	require.NoError(t, firstErr)
	require.NoError(t, secondErr)
	assert.Equal(t, first, second)
}

func Test_Evaluate_Monotonicity_RaisingThresholdNeverFlipsAllowToDeny(t *testing.T) {
	// arrange - a denial at the active-loan ceiling
	store := givenStoreWithCatalog(t)

	givenHistoricalLoan(t, store, "patron-1", evalDate.AddDate(0, 0, -5), "Dune")
	givenHistoricalLoan(t, store, "patron-1", evalDate.AddDate(0, 0, -4), "Hamlet")
	givenHistoricalLoan(t, store, "patron-1", evalDate.AddDate(0, 0, -3), "Cosmos")

	tight := givenEngine(t, store, givenTestConfig(t))

	raised := givenTestConfig(t)
	raised.MaxActiveLoans = 4
	loose := givenEngine(t, store, raised)

	request := requestFor("patron-1", lending.RoleRegular, "Solaris")

	// act
	tightDecision, tightErr := tight.Evaluate(context.Background(), request)
	looseDecision, looseErr := loose.Evaluate(context.Background(), request)

	// assert
	assertDeniedAt(t, tightDecision, tightErr, lending.RuleActiveLoanCeiling)
	assertAllowed(t, looseDecision, looseErr)
}

func Test_Evaluate_FailsClosed_WhenHistoryUnavailable(t *testing.T) {
	// arrange
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	store.FailHistory(errors.New("connection refused"))

	// act
	_, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Dune"))

	// assert - never a default allow under uncertainty
	assert.ErrorIs(t, err, lending.ErrHistoryUnavailable)
}

func Test_Evaluate_FailsClosed_WhenCatalogUnavailable(t *testing.T) {
	// arrange
	store := givenStoreWithCatalog(t)
	engine := givenEngine(t, store, givenTestConfig(t))

	store.FailResolve(errors.New("connection refused"))

	// act
	_, err := engine.Evaluate(context.Background(), requestFor("patron-1", lending.RoleRegular, "Dune"))

	// assert
	assert.ErrorIs(t, err, lending.ErrCatalogUnavailable)
}

func Test_NewEngine_RejectsNilCollaborators(t *testing.T) {
	store := givenStoreWithCatalog(t)

	_, err := lending.NewEngine(nil, store, store, givenTestConfig(t))
	assert.ErrorIs(t, err, lending.ErrNilCollaborator)

	_, err = lending.NewEngine(givenFixtureHierarchy(t), nil, store, givenTestConfig(t))
	assert.ErrorIs(t, err, lending.ErrNilCollaborator)

	_, err = lending.NewEngine(givenFixtureHierarchy(t), store, nil, givenTestConfig(t))
	assert.ErrorIs(t, err, lending.ErrNilCollaborator)
}

func Test_NewEngine_RejectsInvalidConfig(t *testing.T) {
	store := givenStoreWithCatalog(t)

	config := givenTestConfig(t)
	config.MaxPerDay = 0

	_, err := lending.NewEngine(givenFixtureHierarchy(t), store, store, config)
	assert.ErrorIs(t, err, lending.ErrInvalidConfig)
}
