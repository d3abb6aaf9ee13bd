package lending

import (
	"context"
	"errors"
	"time"
)

const (
	// renewalWindowDays is the fixed look-back window for counting a
	// patron's renewals across all their loans.
	renewalWindowDays = 90

	failureReasonExtensionLimit = "renewal allowance exhausted"

	logMsgRenewalAllowed = "renewal allowed"
	logMsgRenewalDenied  = "renewal denied"
	logAttrLoanID        = "loan_id"
)

// EvaluateExtension decides whether an existing loan may be renewed. It is
// independent of the checkout rule pipeline and reuses the same windowed
// count pattern: the patron's renewals within the renewal window must not
// exceed the effective extension allowance. Renewals only attach to an
// existing loan record; appending the renewal is the caller's job after an
// allowed decision.
func (e *Engine) EvaluateExtension(ctx context.Context, request RenewalRequest) (Decision, error) {
	start := time.Now()

	ctx, span := e.startTraceSpan(ctx, spanNameEvaluateExtension, map[string]string{
		logAttrPatronID: request.PatronID,
		logAttrRole:     request.Role.String(),
	})

	factors := request.Role.Factors()
	effectiveLimit := e.config.ExtensionLimit * factors.Count

	renewals, err := e.history.RenewalsWithin(ctx, request.PatronID, daysWindow(renewalWindowDays), request.AsOf)
	if err != nil {
		joined := errors.Join(ErrHistoryUnavailable, err)
		e.finishDecisionSpan(span, Decision{}, joined, time.Since(start))

		return Decision{}, joined
	}

	decision := AllowDecision()
	if renewals > effectiveLimit {
		decision = DenyDecision(RuleExtensionLimit, failureReasonExtensionLimit)
	}

	e.observeExtensionDecision(ctx, request, decision)
	e.finishDecisionSpan(span, decision, nil, time.Since(start))

	return decision, nil
}

func (e *Engine) observeExtensionDecision(ctx context.Context, request RenewalRequest, decision Decision) {
	if decision.Allowed {
		e.logInfo(ctx, logMsgRenewalAllowed,
			logAttrPatronID, request.PatronID,
			logAttrLoanID, request.LoanID,
		)
	} else {
		e.logInfo(ctx, logMsgRenewalDenied,
			logAttrPatronID, request.PatronID,
			logAttrLoanID, request.LoanID,
			logAttrFailedRule, string(decision.FailedRule),
		)
	}

	if e.metricsCollector != nil {
		labels := map[string]string{
			labelStatus: statusAllowed,
			labelRole:   request.Role.String(),
		}
		if !decision.Allowed {
			labels[labelStatus] = statusDenied
			labels[labelFailedRule] = string(decision.FailedRule)
		}

		recordCounter(ctx, e.metricsCollector, ExtensionDecisionsMetric, labels)
	}
}

// RenewalWindow exposes the fixed renewal look-back window for callers
// that need to align reporting with the policy.
func RenewalWindow() time.Duration {
	return daysWindow(renewalWindowDays)
}
