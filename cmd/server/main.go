package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/example/mealbox/internal/config"
	"github.com/example/mealbox/internal/database"
	"github.com/example/mealbox/internal/handlers"
	"github.com/example/mealbox/internal/repository"
	"github.com/example/mealbox/internal/routes"
	"github.com/example/mealbox/internal/services"
	"github.com/example/mealbox/internal/utils"
)

type stores struct {
	challenges repository.ChallengeRepository
	accounts   repository.AccountRepository
	orders     repository.OrderRepository
	plans      repository.MealPlanRepository
}

func main() {
	log := newLogger()
	cfg := config.Load(&log)
	log = configureLogger(log, cfg)

	repos := openStores(cfg, &log)

	challenges := services.NewChallengeService(repos.challenges, services.ChallengeConfig{
		TTL:            cfg.OTPTTL,
		ResendInterval: cfg.OTPResendInterval,
		MaxAttempts:    cfg.OTPMaxAttempts,
	}, time.Now, &log)
	identities := services.NewIdentityService(repos.accounts, time.Now, &log)
	sessions := utils.NewSessionTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.SessionTTL, time.Now)
	notifier := services.NewNotifier(cfg, &log)

	telegramLog := log.With().Str("component", "telegram").Logger()
	telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, &telegramLog)

	catalog := services.NewCatalogService(repos.plans, &log)
	if err := catalog.SeedDefaults(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to seed meal plans")
	}

	app := fiber.New(fiber.Config{
		AppName:      "Mealbox Backend",
		ErrorHandler: handlers.ErrorHandler(&log),
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, routes.Dependencies{
		Auth:            services.NewAuthService(challenges, identities, sessions, notifier, time.Now, &log),
		Identities:      identities,
		Orders:          services.NewOrderService(repos.orders, repos.accounts, repos.plans, notifier, telegram, time.Now, &log),
		Catalog:         catalog,
		OperatorKeyHash: cfg.OperatorKeyHash,
		AuthRateLimit:   cfg.AuthRateLimit,
	})

	if cfg.OperatorKeyHash == "" {
		log.Warn().Msg("OPERATOR_KEY_HASH not set, operator API will reject every request")
	}

	log.Info().Str("port", cfg.AppPort).Str("storage", cfg.StorageDriver).Msg("starting server")
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatal().Err(err).Msg("fiber.Listen error")
	}
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

func configureLogger(log zerolog.Logger, cfg *config.Config) zerolog.Logger {
	if cfg.IsProduction() {
		log = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown LOG_LEVEL, using info")
		level = zerolog.InfoLevel
	}
	return log.Level(level).With().Str("service", "mealbox").Logger()
}

func openStores(cfg *config.Config, log *zerolog.Logger) stores {
	if cfg.StorageDriver == config.StorageDriverMemory {
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		mem := repository.NewMemoryStore()
		return stores{
			challenges: mem.Challenges(),
			accounts:   mem.Accounts(),
			orders:     mem.Orders(),
			plans:      mem.MealPlans(),
		}
	}

	db, err := database.Connect(cfg.DatabaseURL, !cfg.IsProduction() && cfg.LogLevel == "debug", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	log.Info().Msg("database connection established")

	return stores{
		challenges: repository.NewChallengeGormRepository(db),
		accounts:   repository.NewAccountGormRepository(db),
		orders:     repository.NewOrderGormRepository(db),
		plans:      repository.NewMealPlanGormRepository(db),
	}
}
