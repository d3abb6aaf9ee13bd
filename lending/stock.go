package lending

// stockBufferRatio is the share of an edition's total copies that must
// remain available after lending one more copy.
const stockBufferRatio = 0.10

// HasLendableCopy reports whether one more copy of the edition can be lent
// given the currently active loans. One copy is reserved for the pending
// request; the remainder, after subtracting active loans and on-site
// reserved copies, must exceed the stock buffer relative to total copies.
// An edition with no copies at all is never lendable.
func HasLendableCopy(edition Edition, activeLoans int) bool {
	total := edition.Capacity.TotalCopies
	if total <= 0 {
		return false
	}

	leftover := total - activeLoans - edition.Capacity.ReservedOnSiteCopies - 1

	return float64(leftover)/float64(total) > stockBufferRatio
}
