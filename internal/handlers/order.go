package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/mealbox/internal/middleware"
	"github.com/example/mealbox/internal/models"
	"github.com/example/mealbox/internal/repository"
	"github.com/example/mealbox/internal/services"
	"github.com/example/mealbox/internal/utils"
)

// OrderHandler manages customer order endpoints.
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type deliveryAddressRequest struct {
	Recipient  string `json:"recipient"`
	Phone      string `json:"phone"`
	Line       string `json:"address_line"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

type createOrderRequest struct {
	ItemID       string                 `json:"item_id"`
	Quantity     int                    `json:"quantity"`
	TotalAmount  float64                `json:"total_amount"`
	Currency     string                 `json:"currency"`
	PaymentProof string                 `json:"payment_proof"`
	Notes        string                 `json:"notes"`
	Delivery     deliveryAddressRequest `json:"delivery_address"`
}

// CreateOrder allows authenticated customers to place an order.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	accountID, ok := middleware.GetCurrentAccountID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid item_id")
	}

	order, err := h.orders.CreateOrder(c.UserContext(), accountID, services.CreateOrderInput{
		ItemID:       itemID,
		Quantity:     req.Quantity,
		TotalAmount:  req.TotalAmount,
		Currency:     req.Currency,
		PaymentProof: req.PaymentProof,
		Notes:        req.Notes,
		Address: services.DeliveryAddress{
			Recipient:  req.Delivery.Recipient,
			Phone:      req.Delivery.Phone,
			Line:       req.Delivery.Line,
			City:       req.Delivery.City,
			State:      req.Delivery.State,
			PostalCode: req.Delivery.PostalCode,
		},
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": order})
}

// ListOrders returns the authenticated customer's orders.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	accountID, ok := middleware.GetCurrentAccountID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return listOrders(c, h.orders, services.CustomerActor(accountID))
}

// GetOrder returns a single order owned by the authenticated customer.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	accountID, ok := middleware.GetCurrentAccountID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	order, err := h.orders.GetOrder(c.UserContext(), services.CustomerActor(accountID), id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// CancelOrder cancels one of the customer's pending orders.
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	accountID, ok := middleware.GetCurrentAccountID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return transition(c, h.orders, services.CustomerActor(accountID), models.OrderStatusCancelled)
}

func transition(c *fiber.Ctx, orders *services.OrderService, actor services.Actor, next models.OrderStatus) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	order, err := orders.TransitionOrder(c.UserContext(), actor, id, next)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

func listOrders(c *fiber.Ctx, orders *services.OrderService, actor services.Actor) error {
	pg := utils.ParsePagination(c)

	list, total, err := orders.ListOrders(c.UserContext(), actor, repository.OrderFilter{
		Status: models.OrderStatus(c.Query("status")),
		Search: c.Query("search"),
		Limit:  pg.Limit,
		Offset: pg.Offset,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    list,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}
