package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusPacked     OrderStatus = "packed"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// orderTransitions lists the only legal status edges.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing},
	OrderStatusProcessing: {OrderStatusPacked},
	OrderStatusPacked:     {OrderStatusShipped},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// customerTransitions is the subset of orderTransitions an order's owner may take.
// Every other edge belongs to operators.
var customerTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusCancelled},
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusPacked,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows moving from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CustomerCanTransitionTo reports whether the order's owner may move it from s to next.
func (s OrderStatus) CustomerCanTransitionTo(next OrderStatus) bool {
	for _, allowed := range customerTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// InitialOrderStatus returns the status a new order starts in.
func InitialOrderStatus(paymentProof string) OrderStatus {
	if paymentProof != "" {
		return OrderStatusConfirmed
	}
	return OrderStatusPending
}

type Order struct {
	BaseModel
	AccountID   uuid.UUID   `gorm:"type:uuid;index" json:"account_id"`
	Account     *Account    `json:"account,omitempty"`
	OrderNumber string      `gorm:"uniqueIndex" json:"order_number"`
	ItemID      uuid.UUID   `gorm:"type:uuid;index" json:"item_id"`
	ItemName    string      `json:"item_name"`
	Quantity    int         `json:"quantity"`
	TotalAmount float64     `json:"total_amount"`
	Currency    string      `json:"currency"`
	Status      OrderStatus `gorm:"type:varchar(20);index" json:"status"`
	PlacedAt    time.Time   `json:"placed_at"`

	PaymentProof string `json:"payment_proof"`
	Notes        string `json:"notes"`

	DeliveryRecipient   string `json:"delivery_recipient"`
	DeliveryPhone       string `json:"delivery_phone"`
	DeliveryAddressLine string `json:"delivery_address_line"`
	DeliveryCity        string `json:"delivery_city"`
	DeliveryState       string `json:"delivery_state"`
	DeliveryPostalCode  string `json:"delivery_postal_code"`
}

// IsPaid reports whether the order was created with a payment proof.
func (o *Order) IsPaid() bool {
	return o.PaymentProof != ""
}
