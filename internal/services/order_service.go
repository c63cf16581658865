package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/mealbox/internal/models"
	"github.com/example/mealbox/internal/repository"
)

const orderNumberAttempts = 3

// Actor is whoever asks for an order operation. Customers are scoped to their own orders.
type Actor struct {
	AccountID uuid.UUID
	Operator  bool
}

// CustomerActor returns an Actor bound to accountID.
func CustomerActor(accountID uuid.UUID) Actor {
	return Actor{AccountID: accountID}
}

// OperatorActor returns an Actor allowed to act on any order.
func OperatorActor() Actor {
	return Actor{Operator: true}
}

func (a Actor) scope() *uuid.UUID {
	if a.Operator {
		return nil
	}
	id := a.AccountID
	return &id
}

// DeliveryAddress is where an order ships. Empty fields fall back to the account profile.
type DeliveryAddress struct {
	Recipient  string `validate:"max=120"`
	Phone      string `validate:"max=20"`
	Line       string `validate:"max=255"`
	City       string `validate:"max=120"`
	State      string `validate:"max=120"`
	PostalCode string `validate:"max=20"`
}

// CreateOrderInput holds the fields a customer supplies when ordering.
type CreateOrderInput struct {
	ItemID       uuid.UUID `validate:"required"`
	Quantity     int       `validate:"gt=0,lte=100"`
	TotalAmount  float64   `validate:"gt=0"`
	Currency     string    `validate:"omitempty,len=3,alpha"`
	PaymentProof string    `validate:"max=128"`
	Notes        string    `validate:"max=1000"`
	Address      DeliveryAddress
}

// OrderAlerter tells operators about order events.
type OrderAlerter interface {
	NotifyNewOrder(ctx context.Context, order OrderNotification) error
	NotifyOrderCancelled(ctx context.Context, orderNumber string) error
}

// OrderService owns the order lifecycle.
type OrderService struct {
	orders   repository.OrderRepository
	accounts repository.AccountRepository
	plans    repository.MealPlanRepository
	notifier Notifier
	alerter  OrderAlerter
	now      func() time.Time
	logger   *zerolog.Logger
}

// NewOrderService constructs an OrderService. alerter may be nil.
func NewOrderService(
	orders repository.OrderRepository,
	accounts repository.AccountRepository,
	plans repository.MealPlanRepository,
	notifier Notifier,
	alerter OrderAlerter,
	now func() time.Time,
	logger *zerolog.Logger,
) *OrderService {
	if now == nil {
		now = time.Now
	}
	return &OrderService{
		orders:   orders,
		accounts: accounts,
		plans:    plans,
		notifier: notifier,
		alerter:  alerter,
		now:      now,
		logger:   logger,
	}
}

// CreateOrder places an order for accountID. The order starts confirmed when a payment
// proof is supplied and pending otherwise.
func (s *OrderService) CreateOrder(ctx context.Context, accountID uuid.UUID, input CreateOrderInput) (*models.Order, error) {
	input.PaymentProof = strings.TrimSpace(input.PaymentProof)
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(ErrUnauthorized, "unknown_account", "session does not match an account")
	}
	if err != nil {
		return nil, err
	}

	plan, err := s.plans.Get(ctx, input.ItemID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, validationError("unknown_item", "meal plan does not exist")
	}
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, validationError("item_unavailable", "meal plan is not available")
	}

	address := resolveAddress(input.Address, account)
	if address.Line == "" || address.City == "" {
		return nil, validationError("address_required", "delivery address line and city are required")
	}

	currency := input.Currency
	if currency == "" {
		currency = plan.Currency
	}

	now := s.now()
	order := &models.Order{
		AccountID:           account.ID,
		ItemID:              plan.ID,
		ItemName:            plan.Name,
		Quantity:            input.Quantity,
		TotalAmount:         input.TotalAmount,
		Currency:            currency,
		Status:              models.InitialOrderStatus(input.PaymentProof),
		PlacedAt:            now,
		PaymentProof:        input.PaymentProof,
		Notes:               strings.TrimSpace(input.Notes),
		DeliveryRecipient:   address.Recipient,
		DeliveryPhone:       address.Phone,
		DeliveryAddressLine: address.Line,
		DeliveryCity:        address.City,
		DeliveryState:       address.State,
		DeliveryPostalCode:  address.PostalCode,
	}
	order.CreatedAt = now
	order.UpdatedAt = now

	if err := s.insert(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Str("status", string(order.Status)).
		Msg("order created")

	if err := s.notifier.SendOrderConfirmation(ctx, account.Email, order); err != nil {
		s.logger.Warn().Err(err).Str("order_number", order.OrderNumber).Msg("order confirmation email failed")
	}
	s.alertNewOrder(ctx, order, account)

	return order, nil
}

// insert stores order, drawing a fresh order number when one collides.
func (s *OrderService) insert(ctx context.Context, order *models.Order) error {
	var err error
	for range orderNumberAttempts {
		order.OrderNumber = generateOrderNumber(order.PlacedAt)
		err = s.orders.Create(ctx, order)
		if !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
	}
	return fmt.Errorf("allocate order number: %w", err)
}

// TransitionOrder moves an order to next if the transition table allows it.
// Customers may only cancel their own pending orders.
func (s *OrderService) TransitionOrder(ctx context.Context, actor Actor, orderID uuid.UUID, next models.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, validationError("invalid_status", fmt.Sprintf("unknown order status %q", next))
	}

	order, err := s.orders.UpdateStatus(ctx, orderID, actor.scope(), func(o *models.Order) error {
		if !o.Status.CanTransitionTo(next) {
			return invalidTransitionError(o.Status, next)
		}
		if !actor.Operator && !o.Status.CustomerCanTransitionTo(next) {
			return operatorOnlyTransitionError(o.Status, next)
		}
		o.Status = next
		o.UpdatedAt = s.now()
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, orderNotFoundError()
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("status", string(order.Status)).
		Bool("operator", actor.Operator).
		Msg("order status changed")

	if next == models.OrderStatusCancelled {
		s.alertCancelled(ctx, order.OrderNumber)
	}

	return order, nil
}

// GetOrder returns an order visible to actor.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.Get(ctx, orderID, actor.scope())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, orderNotFoundError()
	}
	return order, err
}

// ListOrders pages through the orders visible to actor.
func (s *OrderService) ListOrders(ctx context.Context, actor Actor, filter repository.OrderFilter) ([]models.Order, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, validationError("invalid_status", fmt.Sprintf("unknown order status %q", filter.Status))
	}
	filter.AccountID = actor.scope()
	filter.Search = strings.TrimSpace(filter.Search)
	return s.orders.List(ctx, filter)
}

// StatusCounts reports how many orders sit in each status.
func (s *OrderService) StatusCounts(ctx context.Context) (map[models.OrderStatus]int64, error) {
	return s.orders.CountByStatus(ctx)
}

func (s *OrderService) alertNewOrder(ctx context.Context, order *models.Order, account *models.Account) {
	if s.alerter == nil {
		return
	}

	notification := OrderNotification{
		OrderNumber:  order.OrderNumber,
		ItemName:     order.ItemName,
		Quantity:     order.Quantity,
		TotalAmount:  order.TotalAmount,
		Currency:     order.Currency,
		CustomerName: account.Name,
		Email:        account.Email,
		City:         order.DeliveryCity,
		Status:       string(order.Status),
		Paid:         order.IsPaid(),
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.alerter.NotifyNewOrder(ctx, notification); err != nil {
			s.logger.Warn().Err(err).Str("order_number", notification.OrderNumber).Msg("operator alert failed")
		}
	}()
}

func (s *OrderService) alertCancelled(ctx context.Context, orderNumber string) {
	if s.alerter == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.alerter.NotifyOrderCancelled(ctx, orderNumber); err != nil {
			s.logger.Warn().Err(err).Str("order_number", orderNumber).Msg("operator alert failed")
		}
	}()
}

func resolveAddress(in DeliveryAddress, account *models.Account) DeliveryAddress {
	pick := func(v, fallback string) string {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
		return fallback
	}
	return DeliveryAddress{
		Recipient:  pick(in.Recipient, account.Name),
		Phone:      pick(in.Phone, account.PhoneValue()),
		Line:       pick(in.Line, account.Address),
		City:       pick(in.City, account.City),
		State:      pick(in.State, account.State),
		PostalCode: pick(in.PostalCode, account.PostalCode),
	}
}

// generateOrderNumber returns a human-legible number such as MB-20240501-1A2B3C4D.
func generateOrderNumber(placedAt time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("MB-%s-%s", placedAt.UTC().Format("20060102"), suffix)
}

func orderNotFoundError() *Error {
	return newError(ErrNotFound, "order_not_found", "order not found")
}
