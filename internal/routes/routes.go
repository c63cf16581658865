package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/example/mealbox/internal/handlers"
	"github.com/example/mealbox/internal/middleware"
	"github.com/example/mealbox/internal/services"
)

// Dependencies are the services the HTTP layer is built on.
type Dependencies struct {
	Auth            *services.AuthService
	Identities      *services.IdentityService
	Orders          *services.OrderService
	Catalog         *services.CatalogService
	OperatorKeyHash string
	// AuthRateLimit caps auth requests per IP per minute. Zero disables the limiter.
	AuthRateLimit int
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.Auth)
	profileHandler := handlers.NewProfileHandler(deps.Identities)
	catalogHandler := handlers.NewCatalogHandler(deps.Catalog)
	orderHandler := handlers.NewOrderHandler(deps.Orders)
	operatorHandler := handlers.NewOperatorHandler(deps.Orders, deps.Catalog)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	})

	api := app.Group("/api")

	// Auth routes
	var authLimits []fiber.Handler
	if deps.AuthRateLimit > 0 {
		authLimits = append(authLimits, limiter.New(limiter.Config{
			Max:        deps.AuthRateLimit,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "too many requests, slow down")
			},
		}))
	}
	auth := api.Group("/auth", authLimits...)
	auth.Post("/challenge", authHandler.RequestChallenge)
	auth.Post("/verify", authHandler.Verify)

	// Catalog routes
	plans := api.Group("/meal-plans")
	plans.Get("/", catalogHandler.ListMealPlans)
	plans.Get("/:id", catalogHandler.GetMealPlan)

	// Operator routes
	operator := api.Group("/operator", middleware.OperatorMiddleware(deps.OperatorKeyHash))
	operator.Get("/orders", operatorHandler.ListOrders)
	operator.Post("/orders/:id/status", operatorHandler.UpdateOrderStatus)
	operator.Get("/stats", operatorHandler.DashboardStats)
	operator.Post("/meal-plans", operatorHandler.CreateMealPlan)
	operator.Put("/meal-plans/:id", operatorHandler.UpdateMealPlan)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(deps.Auth))

	protected.Post("/orders", orderHandler.CreateOrder)
	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)
	protected.Post("/orders/:id/cancel", orderHandler.CancelOrder)

	protected.Get("/profile", profileHandler.GetProfile)
	protected.Put("/profile", profileHandler.UpdateProfile)
}
