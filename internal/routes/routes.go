package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/unitedunion/uubank/internal/auth"
	"github.com/unitedunion/uubank/internal/cards"
	"github.com/unitedunion/uubank/internal/config"
	"github.com/unitedunion/uubank/internal/identity"
	"github.com/unitedunion/uubank/internal/ledger"
	"github.com/unitedunion/uubank/internal/middleware"
	"github.com/unitedunion/uubank/internal/notification"
	"github.com/unitedunion/uubank/internal/payments"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger

	// Notifier replaces the configured delivery channel when set.
	Notifier notification.Notifier
	// AuthOptions are passed to the session manager.
	AuthOptions []auth.Option
	// AccessLog enables the plain text access log.
	AccessLog bool
}

// Setup configures middlewares and all application routes. Without a
// database or Redis the in-memory stores are used, which is only allowed
// in development.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(cors.New(cors.Config{
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Idempotency-Key, X-Request-ID",
		ExposeHeaders: "X-Request-ID",
	}))
	if d.AccessLog {
		// [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var (
		ledgerStore  ledger.Store
		identityRepo identity.Repository
		cardRepo     cards.Repository
		sessionStore auth.Store
	)
	if d.DB != nil {
		ledgerStore = ledger.NewPostgresLedger(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
		cardRepo = cards.NewPostgresRepository(d.DB)
	} else {
		mem := ledger.NewInMemory()
		ledgerStore = mem
		identityRepo = identity.NewMemoryRepository(mem)
		cardRepo = cards.NewMemoryRepository()
	}
	if d.Cache != nil {
		sessionStore = auth.NewRedisStore(d.Cache, d.Cfg.SessionTTL)
	} else {
		sessionStore = auth.NewMemoryStore()
	}

	notifier := d.Notifier
	if notifier == nil {
		notifier = notification.NewAsync(deliveryChannel(d), d.Logger)
	}

	identitySvc := identity.NewService(identityRepo,
		identity.NewNumberGenerator(d.Cfg.AccountNumberPrefix, d.Cfg.AccountNumberRetries), d.Logger)
	engine := ledger.NewEngine(ledgerStore, identitySvc, d.Cfg.Limits, d.Logger)
	paymentSvc := payments.NewService(engine, identitySvc, notifier, d.Logger)
	cardSvc := cards.NewService(cardRepo, d.Logger)

	authOpts := d.AuthOptions
	if limiter := middleware.NewLoginRateLimit(d.Cache, d.Cfg.LoginAttemptsPerMinute, d.Logger); limiter != nil {
		authOpts = append([]auth.Option{auth.WithLimiter(limiter)}, authOpts...)
	}
	manager := auth.NewManager(sessionStore, identitySvc, notifier, d.Cfg.OTPTTL, d.Logger, authOpts...)
	tokens := auth.NewTokens(d.Cfg.SessionSecret, d.Cfg.SessionTTL)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	identityHandler := identity.NewHandler(identitySvc)
	RegisterIdentityRoutes(api, identityHandler)
	RegisterAuthRoutes(api, auth.NewHandler(manager, tokens))

	protected := api.Group("", middleware.SessionAuth(manager, tokens))
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	protected.Get("/me", identityHandler.Me)
	RegisterPaymentRoutes(protected, payments.NewHandler(paymentSvc))
	RegisterCardRoutes(protected, cards.NewHandler(cardSvc))

	return nil
}

func deliveryChannel(d Deps) notification.Notifier {
	if d.Cfg.NotifyWebhookURL != "" {
		return notification.NewWebhookNotifier(d.Cfg.NotifyWebhookURL)
	}
	return notification.NewLoggerNotifier(d.Logger)
}
