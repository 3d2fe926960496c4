package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/merchantpay/merchantpay/internal/config"
	"github.com/merchantpay/merchantpay/internal/flow"
	"github.com/merchantpay/merchantpay/internal/merchant"
	"github.com/merchantpay/merchantpay/internal/middleware"
	"github.com/merchantpay/merchantpay/internal/notification"
	"github.com/merchantpay/merchantpay/internal/qr"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// store picks the merchant-store backend: Postgres when a database is
// configured, Redis when only a cache is, otherwise the JSON file.
func (d Deps) store() merchant.Store {
	switch {
	case d.DB != nil:
		return merchant.NewPostgresStore(d.DB)
	case d.Cache != nil:
		return merchant.NewRedisStore(d.Cache)
	default:
		return merchant.NewFileStore(d.Cfg.StorePath)
	}
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	store := d.store()
	notifier := notification.NewLoggerNotifier(d.Logger)
	opts := flow.Options{
		Store:          store,
		Notifier:       notifier,
		Logger:         d.Logger,
		ResendCooldown: d.Cfg.ResendCooldown,
		RevealDelay:    d.Cfg.RevealDelay,
	}

	flows := newFlowHandler(opts)
	dashboard := newDashboardHandler(store)
	payments := newQRHandler(store, qr.NewBuilder())

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	otpLimiter := middleware.RateLimit(d.Cache, "otp", 5)
	RegisterFlowRoutes(api, flows, otpLimiter)
	RegisterDashboardRoutes(api, dashboard)
	RegisterQRRoutes(api, payments, middleware.RateLimit(d.Cache, "qr", 10))

	return nil
}
