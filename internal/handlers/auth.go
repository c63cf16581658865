package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/mealbox/internal/models"
	"github.com/example/mealbox/internal/services"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	auth *services.AuthService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type challengeRequest struct {
	Email string `json:"email"`
}

// RequestChallenge emails a one-time sign-in code.
func (h *AuthHandler) RequestChallenge(c *fiber.Ctx) error {
	var req challengeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	receipt, err := h.auth.RequestChallenge(c.UserContext(), req.Email)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success":    true,
		"message":    "verification code sent",
		"expires_at": receipt.ExpiresAt,
	})
}

type profileRequest struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

func (r profileRequest) profile() services.Profile {
	return services.Profile{
		Name:       r.Name,
		Phone:      r.Phone,
		Address:    r.Address,
		City:       r.City,
		State:      r.State,
		PostalCode: r.PostalCode,
	}
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	profileRequest
}

// Verify exchanges a one-time code for a session token.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.auth.VerifyAndAuthenticate(c.UserContext(), req.Email, req.Code, req.profile())
	if err != nil {
		return err
	}

	status := fiber.StatusOK
	if result.Created {
		status = fiber.StatusCreated
	}

	return c.Status(status).JSON(fiber.Map{
		"success":    true,
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
		"created":    result.Created,
		"account":    accountResponse(result.Account),
	})
}

func accountResponse(account *models.Account) fiber.Map {
	return fiber.Map{
		"id":          account.ID,
		"email":       account.Email,
		"name":        account.Name,
		"phone":       account.PhoneValue(),
		"address":     account.Address,
		"city":        account.City,
		"state":       account.State,
		"postal_code": account.PostalCode,
		"created_at":  account.CreatedAt,
		"updated_at":  account.UpdatedAt,
	}
}
