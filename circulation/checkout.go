package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/patronflow/lending-eligibility-go/lending"
)

// CheckoutCommand describes one checkout transaction to process: which
// patron wants which item editions, who is issuing them, and when.
type CheckoutCommand struct {
	PatronID   string
	Role       lending.Role
	IssuedBy   string // staff member issuing the batch; empty for self-service
	Items      []lending.RequestedItem
	OccurredAt time.Time
}

// CheckoutHandler orchestrates the complete checkout workflow:
// Evaluate -> Record. The eligibility decision is pure; this handler owns
// the two impure concerns around it: serializing the decide-then-persist
// sequence per patron, and retrying transient collaborator failures with
// exponential backoff.
type CheckoutHandler struct {
	engine       *lending.Engine
	catalog      lending.CatalogLookup
	recorder     lending.LoanRecorder
	locks        *patronLocks
	retryOptions []RetryOption
}

// Option configures a handler.
type Option func(*handlerConfig)

type handlerConfig struct {
	retryOptions []RetryOption
}

// WithRetryOptions sets a custom retry configuration for the handler.
func WithRetryOptions(opts ...RetryOption) Option {
	return func(c *handlerConfig) {
		c.retryOptions = opts
	}
}

// NewCheckoutHandler creates a CheckoutHandler with optional configuration.
func NewCheckoutHandler(
	engine *lending.Engine,
	catalog lending.CatalogLookup,
	recorder lending.LoanRecorder,
	options ...Option,
) (*CheckoutHandler, error) {

	if engine == nil || catalog == nil || recorder == nil {
		return nil, lending.ErrNilCollaborator
	}

	config := &handlerConfig{}
	for _, option := range options {
		option(config)
	}

	return &CheckoutHandler{
		engine:       engine,
		catalog:      catalog,
		recorder:     recorder,
		locks:        newPatronLocks(),
		retryOptions: config.retryOptions,
	}, nil
}

// Handle evaluates the checkout command and, when it is allowed, records a
// new loan. The returned decision is the engine's verdict; a denied
// request records nothing.
//
// Concurrent calls for the same patron are serialized so the recorded
// history a decision is based on cannot change underneath it. Transient
// collaborator failures are retried with exponential backoff; when retries
// are exhausted the error is returned and nothing is recorded.
func (h *CheckoutHandler) Handle(ctx context.Context, command CheckoutCommand) (lending.Decision, error) {
	lock := h.locks.lockFor(command.PatronID)
	lock.Lock()
	defer lock.Unlock()

	var decision lending.Decision

	err := RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		var execErr error
		decision, execErr = h.executeCheckout(retryCtx, command)

		return execErr
	}, h.retryOptions...)

	if err != nil {
		return lending.Decision{}, err
	}

	return decision, nil
}

// executeCheckout contains the decide-then-persist sequence that can be retried.
func (h *CheckoutHandler) executeCheckout(ctx context.Context, command CheckoutCommand) (lending.Decision, error) {
	request := lending.CheckoutRequest{
		PatronID: command.PatronID,
		Role:     command.Role,
		Items:    command.Items,
		AsOf:     command.OccurredAt,
	}

	decision, err := h.engine.Evaluate(ctx, request)
	if err != nil {
		return lending.Decision{}, err
	}

	if !decision.Allowed {
		return decision, nil
	}

	record, err := h.buildLoanRecord(ctx, command)
	if err != nil {
		return lending.Decision{}, err
	}

	if err := h.recorder.RecordCheckout(ctx, record); err != nil {
		return lending.Decision{}, err
	}

	return decision, nil
}

// buildLoanRecord resolves the requested items once more to snapshot their
// categories into the record. Category assignments may change in the
// catalog later; the record keeps what was true at checkout time.
func (h *CheckoutHandler) buildLoanRecord(ctx context.Context, command CheckoutCommand) (lending.LoanRecord, error) {
	items := make([]lending.LoanedItem, 0, len(command.Items))

	for _, requested := range command.Items {
		resolved, err := h.catalog.ResolveEdition(ctx, requested.ItemName, requested.EditionName)
		if err != nil {
			return lending.LoanRecord{}, err
		}

		items = append(items, lending.LoanedItem{
			ItemName:    resolved.ItemName,
			EditionName: resolved.Edition.Name,
			CategoryIDs: resolved.CategoryIDs,
			LoanedAt:    command.OccurredAt,
		})
	}

	issuedBy := command.IssuedBy
	if issuedBy == "" {
		issuedBy = command.PatronID
	}

	return lending.LoanRecord{
		RecordID:   uuid.NewString(),
		PatronID:   command.PatronID,
		IssuedBy:   issuedBy,
		Items:      items,
		OccurredAt: command.OccurredAt,
	}, nil
}
