package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/aggregate"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/journal"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type CheckoutService interface {
	Run(ctx context.Context, request *domain.CheckoutRequest) (*domain.Confirmation, error)
	Resume(ctx context.Context, runID string) (*domain.Confirmation, error)
	GetRun(ctx context.Context, runID string) (*RunStatus, error)
}

type CartOperations interface {
	GetItems(ctx context.Context, cartID string) ([]domain.CartItem, error)
	EmptyCart(ctx context.Context, cartID string) error
}

type OrderRecorder interface {
	CreateOrders(ctx context.Context, ordersID string) error
	AddOrder(ctx context.Context, ordersID string, order *domain.Order) (bool, error)
}

// RunStatus is the inspectable view of a checkout run. The run input is left
// out because it carries card data.
type RunStatus struct {
	ID           string                `json:"id"`
	CartID       string                `json:"cart_id"`
	OrdersID     string                `json:"orders_id"`
	Status       domain.CheckoutStatus `json:"status"`
	LastError    string                `json:"last_error,omitempty"`
	OrderID      string                `json:"order_id,omitempty"`
	Attempts     int                   `json:"attempts"`
	Confirmation *domain.Confirmation  `json:"confirmation,omitempty"`
	Steps        []*journal.StepRecord `json:"steps"`
}

type CheckoutServiceImpl struct {
	runs     repository.CheckoutRunRepository
	journal  *journal.Journal
	carts    CartOperations
	orders   OrderRecorder
	shipping *ShippingHandler
	payment  *PaymentHandler
	locks    *aggregate.KeyedMutex
	logger   *zap.Logger
}

func NewCheckoutService(
	runs repository.CheckoutRunRepository,
	j *journal.Journal,
	carts CartOperations,
	orders OrderRecorder,
	shipping *ShippingHandler,
	payment *PaymentHandler,
	logger *zap.Logger,
) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		runs:     runs,
		journal:  j,
		carts:    carts,
		orders:   orders,
		shipping: shipping,
		payment:  payment,
		locks:    aggregate.NewKeyedMutex(),
		logger:   logger,
	}
}

// Run executes the checkout identified by request.RunID, generating one when
// empty. Repeating a run id never repeats a completed step: a completed run
// returns its stored confirmation and an unfinished run continues from its
// first incomplete step with the input it was first registered with.
func (s *CheckoutServiceImpl) Run(ctx context.Context, request *domain.CheckoutRequest) (*domain.Confirmation, error) {
	if err := validateCheckout(request); err != nil {
		return nil, err
	}
	if request.RunID == "" {
		request.RunID = uuid.NewString()
	}

	unlock := s.locks.Lock(request.RunID)
	defer unlock()

	input, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal checkout input: %w", err)
	}

	created, err := s.runs.CreateCheckoutRun(ctx, &repository.CheckoutRun{
		ID:       request.RunID,
		CartID:   request.CartID,
		OrdersID: request.OrdersID,
		Input:    input,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register checkout run: %w", err)
	}
	if created {
		s.logger.Info("checkout started", zap.String("run_id", request.RunID), zap.String("cart_id", request.CartID))
		return s.drive(ctx, request)
	}

	s.logger.Info("duplicate checkout request", zap.String("run_id", request.RunID))
	return s.continueRun(ctx, request.RunID)
}

// Resume drives an existing run forward. Settled runs are returned as they are.
func (s *CheckoutServiceImpl) Resume(ctx context.Context, runID string) (*domain.Confirmation, error) {
	unlock := s.locks.Lock(runID)
	defer unlock()

	return s.continueRun(ctx, runID)
}

func (s *CheckoutServiceImpl) GetRun(ctx context.Context, runID string) (*RunStatus, error) {
	run, err := s.runs.GetCheckoutRun(ctx, runID)
	if errors.Is(err, repository.ErrCheckoutRunNotFound) {
		return nil, status.Errorf(codes.NotFound, "checkout run %s not found", runID)
	}
	if err != nil {
		return nil, err
	}

	steps, err := s.journal.Steps(ctx, runID)
	if err != nil {
		return nil, err
	}

	rs := &RunStatus{
		ID:        run.ID,
		CartID:    run.CartID,
		OrdersID:  run.OrdersID,
		Status:    run.Status,
		LastError: run.LastError,
		OrderID:   run.OrderID,
		Attempts:  run.Attempts,
		Steps:     steps,
	}
	if run.Status == domain.CheckoutStatusCompleted {
		if rs.Confirmation, err = decodeConfirmation(run.Result); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// continueRun must be called with the run lock held.
func (s *CheckoutServiceImpl) continueRun(ctx context.Context, runID string) (*domain.Confirmation, error) {
	run, err := s.runs.GetCheckoutRun(ctx, runID)
	if errors.Is(err, repository.ErrCheckoutRunNotFound) {
		return nil, status.Errorf(codes.NotFound, "checkout run %s not found", runID)
	}
	if err != nil {
		return nil, err
	}

	switch run.Status {
	case domain.CheckoutStatusCompleted:
		return decodeConfirmation(run.Result)
	case domain.CheckoutStatusFailed:
		return nil, status.Errorf(codes.FailedPrecondition, "checkout %s failed: %s", runID, run.LastError)
	}

	var request domain.CheckoutRequest
	if err := json.Unmarshal(run.Input, &request); err != nil {
		return nil, fmt.Errorf("unmarshal checkout input: %w", err)
	}
	s.logger.Info("resuming checkout", zap.String("run_id", runID), zap.Int("attempts", run.Attempts))
	return s.drive(ctx, &request)
}

// drive runs the steps and settles the run. Failures that a retry cannot
// change fail the run; anything else leaves it RUNNING for the next attempt.
func (s *CheckoutServiceImpl) drive(ctx context.Context, request *domain.CheckoutRequest) (*domain.Confirmation, error) {
	if err := s.runs.MarkCheckoutRunAttempt(ctx, request.RunID); err != nil {
		return nil, fmt.Errorf("failed to mark checkout attempt: %w", err)
	}

	confirmation, err := s.execute(ctx, request)
	if err != nil {
		s.settleFailure(ctx, request.RunID, err)
		return nil, err
	}

	result, err := json.Marshal(confirmation)
	if err != nil {
		return nil, fmt.Errorf("marshal confirmation: %w", err)
	}
	if err := s.runs.CompleteCheckoutRun(ctx, request.RunID, confirmation.Order.OrderID, result); err != nil {
		return nil, fmt.Errorf("failed to complete checkout run: %w", err)
	}

	s.logger.Info("checkout completed",
		zap.String("run_id", request.RunID),
		zap.String("order_id", confirmation.Order.OrderID),
		zap.Int64("total_cents", confirmation.Order.TotalCents))
	return confirmation, nil
}

func (s *CheckoutServiceImpl) settleFailure(ctx context.Context, runID string, cause error) {
	ctx = context.WithoutCancel(ctx)

	var recorded *journal.RecordedFailure
	if errors.Is(cause, ErrEmptyCart) || errors.As(cause, &recorded) {
		s.logger.Warn("checkout failed", zap.String("run_id", runID), zap.Error(cause))
		if err := s.runs.FailCheckoutRun(ctx, runID, cause.Error()); err != nil {
			s.logger.Error("failed to mark checkout failed", zap.String("run_id", runID), zap.Error(err))
		}
		return
	}

	s.logger.Warn("checkout interrupted", zap.String("run_id", runID), zap.Error(cause))
	if err := s.runs.SetCheckoutRunError(ctx, runID, cause.Error()); err != nil {
		s.logger.Error("failed to record checkout error", zap.String("run_id", runID), zap.Error(err))
	}
}

func validateCheckout(request *domain.CheckoutRequest) error {
	if request == nil {
		return invalidArgument("checkout request is required")
	}
	if request.CartID == "" {
		return invalidArgument("cart id is required")
	}
	if request.OrdersID == "" {
		return invalidArgument("orders id is required")
	}
	if request.Card.Number == "" {
		return invalidArgument("card number is required")
	}
	return nil
}

func decodeConfirmation(data []byte) (*domain.Confirmation, error) {
	var c domain.Confirmation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal confirmation: %w", err)
	}
	return &c, nil
}
