package lending

// Rule identifies one rule of the eligibility pipeline for observability.
// A denial reports which rule failed; callers must not infer further
// meaning from the identifier (e.g. retry with different timing to beat a
// cooldown).
type Rule string

const (
	// RuleItemResolution rejects batches containing an item whose
	// requested categories are redundant.
	RuleItemResolution Rule = "ItemResolution"

	// RuleStockAvailability rejects batches when an edition's stock buffer
	// would be exhausted.
	RuleStockAvailability Rule = "StockAvailability"

	// RuleActiveLoanCeiling rejects batches exceeding the patron's active
	// loan allowance within the active window.
	RuleActiveLoanCeiling Rule = "ActiveLoanCeiling"

	// RuleBatchDiversity rejects oversized batches and large single
	// category batches.
	RuleBatchDiversity Rule = "BatchDiversity"

	// RuleRootCategorySaturation rejects batches saturating one root
	// category over the saturation window.
	RuleRootCategorySaturation Rule = "RootCategorySaturation"

	// RuleSameItemCooldown rejects batches re-requesting an item too soon
	// after a prior loan of the same item.
	RuleSameItemCooldown Rule = "SameItemCooldown"

	// RuleDailyIssueCap rejects batches exceeding the per-day cap
	// (personal for regular patrons, issuing-agent cap for staff).
	RuleDailyIssueCap Rule = "DailyIssueCap"

	// RuleExtensionLimit rejects renewals exceeding the extension allowance.
	RuleExtensionLimit Rule = "ExtensionLimit"
)

// Decision is the outcome of an eligibility evaluation. A denial is a
// valid negative decision, not an error; no partial effects are recorded
// for a denied request.
//
// Decision should only be constructed with the provided factory methods:
// AllowDecision() or DenyDecision(rule, reason).
type Decision struct {
	Allowed    bool
	FailedRule Rule   // empty for allowed decisions
	Reason     string // human-readable denial reason, empty for allowed decisions
}

// AllowDecision creates a Decision permitting the request.
func AllowDecision() Decision {
	return Decision{Allowed: true}
}

// DenyDecision creates a Decision rejecting the request, identifying the
// failed rule.
func DenyDecision(rule Rule, reason string) Decision {
	return Decision{
		Allowed:    false,
		FailedRule: rule,
		Reason:     reason,
	}
}
