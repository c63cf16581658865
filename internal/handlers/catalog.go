package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/mealbox/internal/services"
)

// CatalogHandler serves the public meal plan catalog.
type CatalogHandler struct {
	catalog *services.CatalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListMealPlans returns the active meal plans.
func (h *CatalogHandler) ListMealPlans(c *fiber.Ctx) error {
	plans, err := h.catalog.ListMealPlans(c.UserContext(), true)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": plans})
}

// GetMealPlan returns a single active meal plan.
func (h *CatalogHandler) GetMealPlan(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	plan, err := h.catalog.GetMealPlan(c.UserContext(), id, false)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": plan})
}
