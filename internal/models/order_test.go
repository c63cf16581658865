package models

import "testing"

func TestOrderStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusProcessing, true},
		{OrderStatusProcessing, OrderStatusPacked, true},
		{OrderStatusPacked, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},

		{OrderStatusPending, OrderStatusProcessing, false},
		{OrderStatusConfirmed, OrderStatusCancelled, false},
		{OrderStatusConfirmed, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusShipped, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusPending, OrderStatusPending, false},
		{OrderStatusPending, OrderStatus("refunded"), false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s: expected %v, got %v", tt.from, tt.to, tt.want, got)
		}
	}
}

func TestOrderStatus_CustomerTransitions(t *testing.T) {
	for from, targets := range orderTransitions {
		for _, to := range targets {
			want := from == OrderStatusPending && to == OrderStatusCancelled
			if got := from.CustomerCanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: expected customer allowed=%v, got %v", from, to, want, got)
			}
		}
	}

	for from, targets := range customerTransitions {
		for _, to := range targets {
			if !from.CanTransitionTo(to) {
				t.Errorf("Customer edge %s -> %s is not in the transition table", from, to)
			}
		}
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	if !OrderStatusDelivered.IsTerminal() || !OrderStatusCancelled.IsTerminal() {
		t.Errorf("Expected delivered and cancelled to be terminal")
	}
	if OrderStatusPending.IsTerminal() {
		t.Errorf("Expected pending to be non-terminal")
	}
	if OrderStatus("refunded").Valid() {
		t.Errorf("Expected unknown status to be invalid")
	}
}

func TestInitialOrderStatus(t *testing.T) {
	if got := InitialOrderStatus("TXN123"); got != OrderStatusConfirmed {
		t.Errorf("Expected confirmed with payment proof, got %s", got)
	}
	if got := InitialOrderStatus(""); got != OrderStatusPending {
		t.Errorf("Expected pending without payment proof, got %s", got)
	}
}
