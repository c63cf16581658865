package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/mealbox/internal/middleware"
	"github.com/example/mealbox/internal/services"
)

// ProfileHandler manages account profile endpoints.
type ProfileHandler struct {
	identities *services.IdentityService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(identities *services.IdentityService) *ProfileHandler {
	return &ProfileHandler{identities: identities}
}

// GetProfile returns the authenticated account.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	accountID, ok := middleware.GetCurrentAccountID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	account, err := h.identities.GetAccount(c.UserContext(), accountID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": accountResponse(account)})
}

// UpdateProfile overwrites the supplied, non-empty profile fields.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	accountID, ok := middleware.GetCurrentAccountID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	account, err := h.identities.UpdateProfile(c.UserContext(), accountID, req.profile())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": accountResponse(account)})
}
