package circulation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/patronflow/lending-eligibility-go/lending"
)

// RenewalCommand describes one renewal request for an existing loan.
type RenewalCommand struct {
	PatronID   string
	Role       lending.Role
	LoanID     string
	OccurredAt time.Time
}

// RenewalHandler orchestrates the renewal workflow: EvaluateExtension ->
// Record. Like checkouts, renewals for one patron are serialized and
// transient collaborator failures are retried.
type RenewalHandler struct {
	engine       *lending.Engine
	recorder     lending.LoanRecorder
	locks        *patronLocks
	retryOptions []RetryOption
}

// NewRenewalHandler creates a RenewalHandler with optional configuration.
func NewRenewalHandler(
	engine *lending.Engine,
	recorder lending.LoanRecorder,
	options ...Option,
) (*RenewalHandler, error) {

	if engine == nil || recorder == nil {
		return nil, lending.ErrNilCollaborator
	}

	config := &handlerConfig{}
	for _, option := range options {
		option(config)
	}

	return &RenewalHandler{
		engine:       engine,
		recorder:     recorder,
		locks:        newPatronLocks(),
		retryOptions: config.retryOptions,
	}, nil
}

// Handle evaluates the renewal command and, when it is allowed, appends a
// renewal record to the patron's history. A denied request records
// nothing.
func (h *RenewalHandler) Handle(ctx context.Context, command RenewalCommand) (lending.Decision, error) {
	lock := h.locks.lockFor(command.PatronID)
	lock.Lock()
	defer lock.Unlock()

	var decision lending.Decision

	err := RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		var execErr error
		decision, execErr = h.executeRenewal(retryCtx, command)

		return execErr
	}, h.retryOptions...)

	if err != nil {
		return lending.Decision{}, err
	}

	return decision, nil
}

func (h *RenewalHandler) executeRenewal(ctx context.Context, command RenewalCommand) (lending.Decision, error) {
	request := lending.RenewalRequest{
		PatronID: command.PatronID,
		Role:     command.Role,
		LoanID:   command.LoanID,
		AsOf:     command.OccurredAt,
	}

	decision, err := h.engine.EvaluateExtension(ctx, request)
	if err != nil {
		return lending.Decision{}, err
	}

	if !decision.Allowed {
		return decision, nil
	}

	record := lending.RenewalRecord{
		RecordID:   uuid.NewString(),
		LoanID:     command.LoanID,
		PatronID:   command.PatronID,
		OccurredAt: command.OccurredAt,
	}

	if err := h.recorder.RecordRenewal(ctx, record); err != nil {
		return lending.Decision{}, err
	}

	return decision, nil
}
