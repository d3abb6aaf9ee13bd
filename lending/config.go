package lending

import (
	"errors"
	"fmt"
)

// Config holds the tunable policy thresholds for the eligibility engine.
// All values are positive integers and independently configurable. The
// Config is supplied once at Engine construction and never read from the
// ambient environment per call.
type Config struct {
	// MaxActiveLoans caps the items a patron may hold within the active window.
	MaxActiveLoans int

	// ActiveWindowDays is the look-back window for the active-loan ceiling.
	ActiveWindowDays int

	// MaxBatchDistinctCategoryItems caps the size of one checkout batch.
	MaxBatchDistinctCategoryItems int

	// MaxPerRootCategory caps loans per root category within its window.
	MaxPerRootCategory int

	// RootCategoryWindowMonths is the look-back window for root-category
	// saturation, using the fixed average month length.
	RootCategoryWindowMonths int

	// SameItemCooldownDays is the minimum gap between two checkouts of the
	// same item by the same patron.
	SameItemCooldownDays int

	// MaxPerDay caps the items a regular patron may check out per calendar day.
	MaxPerDay int

	// StaffDailyIssueCap caps the items a staff member may issue to anyone
	// per calendar day, replacing the personal daily cap for staff.
	StaffDailyIssueCap int

	// ExtensionLimit caps renewals per patron within the renewal window.
	ExtensionLimit int
}

// DefaultConfig returns a Config with moderate library-scale thresholds.
func DefaultConfig() Config {
	return Config{
		MaxActiveLoans:                10,
		ActiveWindowDays:              30,
		MaxBatchDistinctCategoryItems: 5,
		MaxPerRootCategory:            4,
		RootCategoryWindowMonths:      3,
		SameItemCooldownDays:          14,
		MaxPerDay:                     5,
		StaffDailyIssueCap:            40,
		ExtensionLimit:                2,
	}
}

// Validate checks that every threshold is a positive integer.
func (c Config) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"MaxActiveLoans", c.MaxActiveLoans},
		{"ActiveWindowDays", c.ActiveWindowDays},
		{"MaxBatchDistinctCategoryItems", c.MaxBatchDistinctCategoryItems},
		{"MaxPerRootCategory", c.MaxPerRootCategory},
		{"RootCategoryWindowMonths", c.RootCategoryWindowMonths},
		{"SameItemCooldownDays", c.SameItemCooldownDays},
		{"MaxPerDay", c.MaxPerDay},
		{"StaffDailyIssueCap", c.StaffDailyIssueCap},
		{"ExtensionLimit", c.ExtensionLimit},
	}

	for _, field := range fields {
		if field.value <= 0 {
			return errors.Join(ErrInvalidConfig, fmt.Errorf("%s must be positive, got %d", field.name, field.value))
		}
	}

	return nil
}
