package memoryengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patronflow/lending-eligibility-go/lending"
)

// CatalogEntry describes one item/edition pair of the in-memory catalog.
type CatalogEntry struct {
	ItemName    string
	EditionName string
	CategoryIDs []lending.CategoryID
	Capacity    lending.EditionCapacity
}

// Store is an in-memory implementation of the lending collaborator
// contracts. All methods are safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	catalog  map[string]CatalogEntry
	loans    []lending.LoanRecord
	renewals []lending.RenewalRecord

	failResolve error
	failCount   error
	failHistory error
	failRecord  error
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		catalog: make(map[string]CatalogEntry),
	}
}

func catalogKey(itemName, editionName string) string {
	return itemName + "\x00" + editionName
}

// AddCatalogEntry registers an item/edition pair with its categories and capacity.
func (s *Store) AddCatalogEntry(entry CatalogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.catalog[catalogKey(entry.ItemName, entry.EditionName)] = entry
}

// FailResolve makes ResolveEdition return the given error until reset with nil.
func (s *Store) FailResolve(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failResolve = err
}

// FailActiveLoanCount makes ActiveLoanCount return the given error until reset with nil.
func (s *Store) FailActiveLoanCount(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCount = err
}

// FailHistory makes all HistoryQuery methods return the given error until reset with nil.
func (s *Store) FailHistory(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failHistory = err
}

// FailRecord makes all LoanRecorder methods return the given error until reset with nil.
func (s *Store) FailRecord(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRecord = err
}

// ResolveEdition implements lending.CatalogLookup.
func (s *Store) ResolveEdition(_ context.Context, itemName string, editionName string) (lending.ResolvedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failResolve != nil {
		return lending.ResolvedItem{}, s.failResolve
	}

	entry, ok := s.catalog[catalogKey(itemName, editionName)]
	if !ok {
		return lending.ResolvedItem{}, fmt.Errorf("%w: %s / %s", lending.ErrUnknownItem, itemName, editionName)
	}

	return lending.ResolvedItem{
		ItemName: entry.ItemName,
		Edition: lending.Edition{
			ID:       catalogKey(entry.ItemName, entry.EditionName),
			Name:     entry.EditionName,
			Capacity: entry.Capacity,
		},
		CategoryIDs: entry.CategoryIDs,
	}, nil
}

// ActiveLoanCount implements lending.CatalogLookup. It counts loan records
// containing the edition whose date lies strictly before asOf.
func (s *Store) ActiveLoanCount(_ context.Context, itemName string, editionName string, asOf time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failCount != nil {
		return 0, s.failCount
	}

	count := 0
	for _, record := range s.loans {
		if !record.OccurredAt.Before(asOf) {
			continue
		}
		// a record counts once however often it contains the edition
		for _, item := range record.Items {
			if item.ItemName == itemName && item.EditionName == editionName {
				count++
				break
			}
		}
	}

	return count, nil
}

// ItemsLoanedWithin implements lending.HistoryQuery.
func (s *Store) ItemsLoanedWithin(_ context.Context, patronID string, window time.Duration, asOf time.Time) ([]lending.LoanedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failHistory != nil {
		return nil, s.failHistory
	}

	from := asOf.Add(-window)
	items := make([]lending.LoanedItem, 0)

	for _, record := range s.loans {
		if record.PatronID != patronID {
			continue
		}
		if !record.OccurredAt.After(from) || record.OccurredAt.After(asOf) {
			continue
		}
		items = append(items, record.Items...)
	}

	return items, nil
}

// ItemsLoanedOnDate implements lending.HistoryQuery.
func (s *Store) ItemsLoanedOnDate(_ context.Context, patronID string, date time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failHistory != nil {
		return 0, s.failHistory
	}

	count := 0
	for _, record := range s.loans {
		if record.PatronID == patronID && sameCalendarDay(record.OccurredAt, date) {
			count += len(record.Items)
		}
	}

	return count, nil
}

// ItemsIssuedByStaffOnDate implements lending.HistoryQuery.
func (s *Store) ItemsIssuedByStaffOnDate(_ context.Context, staffID string, date time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failHistory != nil {
		return 0, s.failHistory
	}

	count := 0
	for _, record := range s.loans {
		if record.IssuedBy == staffID && sameCalendarDay(record.OccurredAt, date) {
			count += len(record.Items)
		}
	}

	return count, nil
}

// RenewalsWithin implements lending.HistoryQuery.
func (s *Store) RenewalsWithin(_ context.Context, patronID string, window time.Duration, asOf time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failHistory != nil {
		return 0, s.failHistory
	}

	from := asOf.Add(-window)
	count := 0

	for _, record := range s.renewals {
		if record.PatronID != patronID {
			continue
		}
		if record.OccurredAt.After(from) && !record.OccurredAt.After(asOf) {
			count++
		}
	}

	return count, nil
}

// RecordCheckout implements lending.LoanRecorder.
func (s *Store) RecordCheckout(_ context.Context, record lending.LoanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failRecord != nil {
		return s.failRecord
	}

	s.loans = append(s.loans, record)

	return nil
}

// RecordRenewal implements lending.LoanRecorder.
func (s *Store) RecordRenewal(_ context.Context, record lending.RenewalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failRecord != nil {
		return s.failRecord
	}

	s.renewals = append(s.renewals, record)

	return nil
}

// LoanCount returns the number of recorded checkout transactions.
func (s *Store) LoanCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.loans)
}

// RenewalCount returns the number of recorded renewals.
func (s *Store) RenewalCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.renewals)
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()

	return ay == by && am == bm && ad == bd
}

// interface guards
var (
	_ lending.CatalogLookup = (*Store)(nil)
	_ lending.HistoryQuery  = (*Store)(nil)
	_ lending.LoanRecorder  = (*Store)(nil)
)
