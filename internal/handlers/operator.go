package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/mealbox/internal/models"
	"github.com/example/mealbox/internal/services"
)

// OperatorHandler manages operator-only endpoints.
type OperatorHandler struct {
	orders  *services.OrderService
	catalog *services.CatalogService
}

// NewOperatorHandler constructs OperatorHandler.
func NewOperatorHandler(orders *services.OrderService, catalog *services.CatalogService) *OperatorHandler {
	return &OperatorHandler{orders: orders, catalog: catalog}
}

// ListOrders returns every order, optionally filtered by status or search term.
func (h *OperatorHandler) ListOrders(c *fiber.Ctx) error {
	return listOrders(c, h.orders, services.OperatorActor())
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus moves any order through the transition table.
func (h *OperatorHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return transition(c, h.orders, services.OperatorActor(), models.OrderStatus(req.Status))
}

// DashboardStats returns order counts per status.
func (h *OperatorHandler) DashboardStats(c *fiber.Ctx) error {
	counts, err := h.orders.StatusCounts(c.UserContext())
	if err != nil {
		return err
	}

	var total int64
	byStatus := make(map[string]int64, len(counts))
	for status, n := range counts {
		byStatus[string(status)] = n
		total += n
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_orders":     total,
			"orders_by_status": byStatus,
		},
	})
}

type mealPlanRequest struct {
	Slug         string  `json:"slug"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	MealsPerWeek int     `json:"meals_per_week"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	IsActive     *bool   `json:"is_active"`
}

func (r mealPlanRequest) input() services.MealPlanInput {
	return services.MealPlanInput{
		Slug:         r.Slug,
		Name:         r.Name,
		Description:  r.Description,
		MealsPerWeek: r.MealsPerWeek,
		Price:        r.Price,
		Currency:     r.Currency,
		IsActive:     r.IsActive,
	}
}

// CreateMealPlan persists a new meal plan.
func (h *OperatorHandler) CreateMealPlan(c *fiber.Ctx) error {
	var req mealPlanRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	plan, err := h.catalog.CreateMealPlan(c.UserContext(), req.input())
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": plan})
}

// UpdateMealPlan replaces an existing meal plan.
func (h *OperatorHandler) UpdateMealPlan(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req mealPlanRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	plan, err := h.catalog.UpdateMealPlan(c.UserContext(), id, req.input())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": plan})
}
