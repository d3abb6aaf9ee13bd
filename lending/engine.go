package lending

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// averageMonthLengthDays is the fixed average Gregorian month length
	// used for the root-category saturation window.
	averageMonthLengthDays = 30.436875

	dayLength = 24 * time.Hour

	failureReasonRedundantCategories   = "item carries redundant categories"
	failureReasonStockExhausted        = "edition stock buffer exhausted"
	failureReasonTooManyActiveLoans    = "patron has too many active loans"
	failureReasonBatchTooLarge         = "checkout batch is too large"
	failureReasonBatchNotDiverse       = "large batch must span at least two categories"
	failureReasonRootCategorySaturated = "root category allowance exhausted"
	failureReasonSameItemTooSoon       = "item was loaned to this patron too recently"
	failureReasonDailyCapReached       = "daily issue cap reached"

	logMsgCheckoutDenied  = "checkout denied"
	logMsgCheckoutAllowed = "checkout allowed"
	logAttrPatronID       = "patron_id"
	logAttrRole           = "role"
	logAttrFailedRule     = "failed_rule"
	logAttrItemCount      = "item_count"
	logAttrDurationMS     = "duration_ms"
	labelStatus           = "status"
	labelFailedRule       = "failed_rule"
	labelRole             = "role"
	statusAllowed         = "allowed"
	statusDenied          = "denied"
	statusError           = "error"

	spanNameEvaluate          = "eligibility.evaluate"
	spanNameEvaluateExtension = "eligibility.evaluate_extension"
)

// CheckoutRequest describes a proposed checkout batch: who wants which
// item editions, in which role, on which date.
type CheckoutRequest struct {
	PatronID string
	Role     Role
	Items    []RequestedItem
	AsOf     time.Time
}

// RequestedItem names one item/edition pair of a checkout batch.
type RequestedItem struct {
	ItemName    string
	EditionName string
}

// RenewalRequest describes a proposed extension of an existing loan.
type RenewalRequest struct {
	PatronID string
	Role     Role
	LoanID   string
	AsOf     time.Time
}

// Engine evaluates checkout batches against an ordered pipeline of policy
// rules, short-circuiting on the first failure. It is a pure decision
// component: all reads go through the collaborator contracts at the moment
// of evaluation and nothing is written. Evaluation for different patrons
// is fully parallelizable; the decide-then-persist sequence for a single
// patron must be serialized by the caller (see the circulation package).
type Engine struct {
	hierarchy        *CategoryHierarchy
	history          HistoryQuery
	catalog          CatalogLookup
	config           Config
	logger           Logger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
	contextualLogger ContextualLogger
}

// Option defines a functional option for configuring an Engine.
type Option func(*Engine) error

// WithLogger sets the logger for the Engine. Denied decisions are logged
// at info level with the failed rule; collaborator failures at error level.
func WithLogger(logger Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine. The collector
// receives evaluation durations and decision counters labeled with the
// outcome and the failed rule.
func WithMetrics(collector MetricsCollector) Option {
	return func(e *Engine) error {
		e.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Engine. Each evaluation
// runs inside a span carrying the patron, role and outcome.
func WithTracing(collector TracingCollector) Option {
	return func(e *Engine) error {
		e.tracingCollector = collector
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Engine, enabling
// automatic trace correlation when tracing is configured.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}

// NewEngine creates an Engine with the given category hierarchy,
// collaborators and thresholds. The Config is validated once here and
// treated as immutable afterwards.
func NewEngine(
	hierarchy *CategoryHierarchy,
	history HistoryQuery,
	catalog CatalogLookup,
	config Config,
	options ...Option,
) (*Engine, error) {

	if hierarchy == nil || history == nil || catalog == nil {
		return nil, ErrNilCollaborator
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	engine := &Engine{
		hierarchy: hierarchy,
		history:   history,
		catalog:   catalog,
		config:    config,
	}

	for _, option := range options {
		if err := option(engine); err != nil {
			return nil, err
		}
	}

	return engine, nil
}

// Evaluate runs the rule pipeline for a checkout request and returns a
// single allow/deny Decision. The pipeline order is fixed: item resolution
// and stock, active-loan ceiling, batch diversity, root-category
// saturation, same-item cooldown, daily issuance cap. The first failing
// rule short-circuits the pipeline.
//
// A malformed request (empty batch, unresolvable item name) is returned as
// an error wrapping ErrValidation. A failed collaborator call is returned
// as an error wrapping ErrHistoryUnavailable or ErrCatalogUnavailable; the
// engine never defaults to allow under uncertainty.
func (e *Engine) Evaluate(ctx context.Context, request CheckoutRequest) (Decision, error) {
	start := time.Now()

	ctx, span := e.startTraceSpan(ctx, spanNameEvaluate, map[string]string{
		logAttrPatronID: request.PatronID,
		logAttrRole:     request.Role.String(),
	})

	decision, err := e.evaluate(ctx, request)
	duration := time.Since(start)

	e.observeDecision(ctx, request, decision, err, duration)
	e.finishDecisionSpan(span, decision, err, duration)

	return decision, err
}

func (e *Engine) evaluate(ctx context.Context, request CheckoutRequest) (Decision, error) {
	resolved, decision, err := e.resolveBatch(ctx, request)
	if err != nil || !decision.Allowed {
		return decision, err
	}

	checks := []func(context.Context, CheckoutRequest, []ResolvedItem) (Decision, error){
		e.checkActiveLoanCeiling,
		e.checkBatchDiversity,
		e.checkRootCategorySaturation,
		e.checkSameItemCooldown,
		e.checkDailyIssueCap,
	}

	for _, check := range checks {
		decision, err = check(ctx, request, resolved)
		if err != nil || !decision.Allowed {
			return decision, err
		}
	}

	return AllowDecision(), nil
}

// resolveBatch resolves every requested item/edition pair against the
// catalog and runs the per-edition stock check. Unresolvable names reject
// the whole batch as a validation error; a failed stock check denies it.
func (e *Engine) resolveBatch(ctx context.Context, request CheckoutRequest) ([]ResolvedItem, Decision, error) {
	if len(request.Items) == 0 {
		return nil, Decision{}, errors.Join(ErrValidation, ErrEmptyBatch)
	}

	resolved := make([]ResolvedItem, 0, len(request.Items))

	for _, requested := range request.Items {
		item, resolveErr := e.catalog.ResolveEdition(ctx, requested.ItemName, requested.EditionName)
		if resolveErr != nil {
			if errors.Is(resolveErr, ErrUnknownItem) {
				return nil, Decision{}, errors.Join(
					ErrValidation,
					fmt.Errorf("%w: %s / %s", ErrUnknownItem, requested.ItemName, requested.EditionName),
				)
			}

			return nil, Decision{}, errors.Join(ErrCatalogUnavailable, resolveErr)
		}

		if e.hierarchy.ContainsRedundantCategory(item.CategoryIDs) {
			return nil, DenyDecision(RuleItemResolution, failureReasonRedundantCategories), nil
		}

		activeLoans, countErr := e.catalog.ActiveLoanCount(ctx, item.ItemName, item.Edition.Name, request.AsOf)
		if countErr != nil {
			return nil, Decision{}, errors.Join(ErrCatalogUnavailable, countErr)
		}

		if !HasLendableCopy(item.Edition, activeLoans) {
			return nil, DenyDecision(RuleStockAvailability, failureReasonStockExhausted), nil
		}

		resolved = append(resolved, item)
	}

	return resolved, AllowDecision(), nil
}

// checkActiveLoanCeiling denies when the patron's historical loan items
// within the effective window, plus the requested items, exceed the
// effective active-loan allowance.
func (e *Engine) checkActiveLoanCeiling(ctx context.Context, request CheckoutRequest, resolved []ResolvedItem) (Decision, error) {
	factors := request.Role.Factors()
	effectiveMax := e.config.MaxActiveLoans * factors.Count
	effectiveWindow := daysWindow(e.config.ActiveWindowDays / factors.Window)

	historical, err := e.history.ItemsLoanedWithin(ctx, request.PatronID, effectiveWindow, request.AsOf)
	if err != nil {
		return Decision{}, errors.Join(ErrHistoryUnavailable, err)
	}

	if len(historical)+len(resolved) > effectiveMax {
		return DenyDecision(RuleActiveLoanCeiling, failureReasonTooManyActiveLoans), nil
	}

	return AllowDecision(), nil
}

// checkBatchDiversity denies batches reaching the effective batch cap, and
// batches of more than three items drawn from a single category.
func (e *Engine) checkBatchDiversity(_ context.Context, request CheckoutRequest, resolved []ResolvedItem) (Decision, error) {
	factors := request.Role.Factors()
	effectiveBatchCap := e.config.MaxBatchDistinctCategoryItems * factors.Count

	if len(resolved) >= effectiveBatchCap {
		return DenyDecision(RuleBatchDiversity, failureReasonBatchTooLarge), nil
	}

	if len(resolved) > 3 {
		distinct := make(map[CategoryID]struct{})
		for _, item := range resolved {
			for _, categoryID := range item.CategoryIDs {
				distinct[categoryID] = struct{}{}
			}
		}

		if len(distinct) < 2 {
			return DenyDecision(RuleBatchDiversity, failureReasonBatchNotDiverse), nil
		}
	}

	return AllowDecision(), nil
}

// checkRootCategorySaturation denies when any root category's count across
// the patron's recent history unioned with the requested items exceeds the
// effective per-root allowance. An item's categories are collapsed to
// their distinct roots, so one item counts at most once per root.
func (e *Engine) checkRootCategorySaturation(ctx context.Context, request CheckoutRequest, resolved []ResolvedItem) (Decision, error) {
	factors := request.Role.Factors()
	effectiveCap := e.config.MaxPerRootCategory * factors.Count
	window := monthsWindow(e.config.RootCategoryWindowMonths)

	historical, err := e.history.ItemsLoanedWithin(ctx, request.PatronID, window, request.AsOf)
	if err != nil {
		return Decision{}, errors.Join(ErrHistoryUnavailable, err)
	}

	rootCounts := make(map[CategoryID]int)

	countItem := func(categoryIDs []CategoryID) {
		roots := make(map[CategoryID]struct{})
		for _, categoryID := range categoryIDs {
			roots[e.hierarchy.Root(categoryID)] = struct{}{}
		}
		for root := range roots {
			rootCounts[root]++
		}
	}

	for _, item := range historical {
		countItem(item.CategoryIDs)
	}
	for _, item := range resolved {
		countItem(item.CategoryIDs)
	}

	for _, count := range rootCounts {
		if count > effectiveCap {
			return DenyDecision(RuleRootCategorySaturation, failureReasonRootCategorySaturated), nil
		}
	}

	return AllowDecision(), nil
}

// checkSameItemCooldown denies when a requested item was already loaned to
// this patron within the effective cooldown window.
func (e *Engine) checkSameItemCooldown(ctx context.Context, request CheckoutRequest, resolved []ResolvedItem) (Decision, error) {
	factors := request.Role.Factors()
	effectiveCooldown := daysWindow(e.config.SameItemCooldownDays / factors.Window)

	recent, err := e.history.ItemsLoanedWithin(ctx, request.PatronID, effectiveCooldown, request.AsOf)
	if err != nil {
		return Decision{}, errors.Join(ErrHistoryUnavailable, err)
	}

	recentNames := make(map[string]struct{}, len(recent))
	for _, item := range recent {
		recentNames[item.ItemName] = struct{}{}
	}

	for _, item := range resolved {
		if _, tooSoon := recentNames[item.ItemName]; tooSoon {
			return DenyDecision(RuleSameItemCooldown, failureReasonSameItemTooSoon), nil
		}
	}

	return AllowDecision(), nil
}

// checkDailyIssueCap denies when the day's issue volume plus the requested
// items exceeds the applicable cap. Regular patrons are capped on their
// own checkouts; staff act as issuing agents and are capped on the items
// they issued to anyone that day.
func (e *Engine) checkDailyIssueCap(ctx context.Context, request CheckoutRequest, resolved []ResolvedItem) (Decision, error) {
	if request.Role == RoleStaff {
		issued, err := e.history.ItemsIssuedByStaffOnDate(ctx, request.PatronID, request.AsOf)
		if err != nil {
			return Decision{}, errors.Join(ErrHistoryUnavailable, err)
		}

		if issued+len(resolved) > e.config.StaffDailyIssueCap {
			return DenyDecision(RuleDailyIssueCap, failureReasonDailyCapReached), nil
		}

		return AllowDecision(), nil
	}

	loanedToday, err := e.history.ItemsLoanedOnDate(ctx, request.PatronID, request.AsOf)
	if err != nil {
		return Decision{}, errors.Join(ErrHistoryUnavailable, err)
	}

	if loanedToday+len(resolved) > e.config.MaxPerDay {
		return DenyDecision(RuleDailyIssueCap, failureReasonDailyCapReached), nil
	}

	return AllowDecision(), nil
}

// observeDecision reports the evaluation outcome to the configured logger
// and metrics collector.
func (e *Engine) observeDecision(ctx context.Context, request CheckoutRequest, decision Decision, err error, duration time.Duration) {
	if err != nil {
		e.logError(ctx, "checkout evaluation failed",
			logAttrPatronID, request.PatronID,
			logAttrRole, request.Role.String(),
			"error", err.Error(),
		)
		return
	}

	if decision.Allowed {
		e.logInfo(ctx, logMsgCheckoutAllowed,
			logAttrPatronID, request.PatronID,
			logAttrRole, request.Role.String(),
			logAttrItemCount, len(request.Items),
			logAttrDurationMS, durationToMilliseconds(duration),
		)
	} else {
		e.logInfo(ctx, logMsgCheckoutDenied,
			logAttrPatronID, request.PatronID,
			logAttrRole, request.Role.String(),
			logAttrFailedRule, string(decision.FailedRule),
			logAttrDurationMS, durationToMilliseconds(duration),
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

		recordCounter(ctx, e.metricsCollector, DecisionsMetric, labels)
		recordDuration(ctx, e.metricsCollector, EvaluateDurationMetric, duration, labels)
	}
}

func (e *Engine) logInfo(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.InfoContext(ctx, msg, args...)
		return
	}
	if e.logger != nil {
		e.logger.Info(msg, args...)
	}
}

func (e *Engine) logError(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.ErrorContext(ctx, msg, args...)
		return
	}
	if e.logger != nil {
		e.logger.Error(msg, args...)
	}
}

// startTraceSpan starts a tracing span if the tracing collector is configured.
func (e *Engine) startTraceSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext) {
	if e.tracingCollector == nil {
		return ctx, nil
	}

	return e.tracingCollector.StartSpan(ctx, name, attrs)
}

// finishDecisionSpan finishes an evaluation span with the decision outcome.
func (e *Engine) finishDecisionSpan(span SpanContext, decision Decision, err error, duration time.Duration) {
	if e.tracingCollector == nil || span == nil {
		return
	}

	attrs := map[string]string{
		logAttrDurationMS: fmt.Sprintf("%.3f", durationToMilliseconds(duration)),
	}

	if err != nil {
		e.tracingCollector.FinishSpan(span, statusError, attrs)
		return
	}

	status := statusAllowed
	if !decision.Allowed {
		status = statusDenied
		attrs[logAttrFailedRule] = string(decision.FailedRule)
	}

	e.tracingCollector.FinishSpan(span, status, attrs)
}

// recordCounter prefers the context-aware collector methods when available.
func recordCounter(ctx context.Context, collector MetricsCollector, metric string, labels map[string]string) {
	if contextual, ok := collector.(ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}
	collector.IncrementCounter(metric, labels)
}

// recordDuration prefers the context-aware collector methods when available.
func recordDuration(ctx context.Context, collector MetricsCollector, metric string, duration time.Duration, labels map[string]string) {
	if contextual, ok := collector.(ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, duration, labels)
		return
	}
	collector.RecordDuration(metric, duration, labels)
}

// daysWindow converts a day count to a look-back window.
func daysWindow(days int) time.Duration {
	return time.Duration(days) * dayLength
}

// monthsWindow converts a month count to a look-back window using the
// fixed average month length.
func monthsWindow(months int) time.Duration {
	return time.Duration(float64(months) * averageMonthLengthDays * float64(dayLength))
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
