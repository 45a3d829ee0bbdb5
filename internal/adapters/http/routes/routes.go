package routes

import (
	"context"
	"time"

	"perpus-loan/internal/adapters/http/handlers"
	"perpus-loan/internal/adapters/http/middleware"
	"perpus-loan/internal/adapters/persistence/repositories"
	"perpus-loan/internal/config"
	"perpus-loan/internal/core/services"
	"perpus-loan/internal/pkg/ratelimiter"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Version is reported by the root and health endpoints
const Version = "1.0.0"

// Setup wires repositories, services and handlers onto app and returns the
// loan engine so the caller can schedule its background sweep.
func Setup(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config, log *zap.Logger) *services.LoanService {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	historyRepo := repositories.NewHistoryRepository(db)

	// Initialize services
	notifyService := services.NewNotificationService(rdb, cfg.Redis.Channel, log.Named("events"))
	authService := services.NewAuthService(userRepo, cfg.JWT, log)
	loanService := services.NewLoanService(db, loanRepo, bookRepo, historyRepo, notifyService, cfg.Loan, log)

	requestLimiter := ratelimiter.New(
		rdb,
		cfg.RateLimit.LoanRequestRPS,
		cfg.RateLimit.LoanRequestBurst,
		cfg.RateLimit.TTL,
		log.Named("ratelimit"),
	)

	// Initialize handlers
	checks := map[string]handlers.Pinger{"database": config.HealthCheck}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		checks["redis"] = nil
	}
	healthHandler := handlers.NewHealthHandler(cfg.AppMode, Version, checks)
	authHandler := handlers.NewAuthHandler(authService, cfg)
	loanHandler := handlers.NewLoanHandler(loanService)
	adminLoanHandler := handlers.NewAdminLoanHandler(loanService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	if cfg.IsDev() {
		app.Get("/swagger/*", swagger.HandlerDefault)
	}

	apiV1 := app.Group("/api/v1")
	setupAPIV1Routes(apiV1, authHandler, loanHandler, adminLoanHandler, requestLimiter, cfg)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Route not found",
		})
	})

	return loanService
}

func setupAPIV1Routes(
	router fiber.Router,
	authHandler *handlers.AuthHandler,
	loanHandler *handlers.LoanHandler,
	adminLoanHandler *handlers.AdminLoanHandler,
	requestLimiter *ratelimiter.RateLimiter,
	cfg *config.Config,
) {
	requireAuth := middleware.AuthMiddleware(cfg.JWT.Secret)

	// Auth routes
	auth := router.Group("/auth")
	auth.Post("/login", middleware.AuthRateLimiter(), authHandler.Login)
	auth.Post("/logout", authHandler.Logout)
	auth.Get("/me", requireAuth, authHandler.Me)

	// Borrower routes
	borrow := router.Group("/borrow", requireAuth, middleware.NoStore())
	borrow.Post("/request", requestLimiter.Middleware(middleware.UserKey), loanHandler.Request)
	borrow.Get("/my", loanHandler.My)
	borrow.Get("/:id", loanHandler.Get)
	borrow.Get("/:id/history", loanHandler.History)
	borrow.Post("/:id/return", loanHandler.Return)
	borrow.Post("/:id/extend", loanHandler.Extend)

	// Librarian routes
	admin := router.Group("/admin/borrow", requireAuth, middleware.AdminOnly())
	admin.Get("/all", middleware.NoStore(), adminLoanHandler.All)
	admin.Get("/pending", middleware.NoStore(), adminLoanHandler.Pending)
	admin.Get("/stats", middleware.PrivateCache(30*time.Second), adminLoanHandler.Stats)
	admin.Post("/sweep-overdue", adminLoanHandler.SweepOverdue)
	admin.Post("/:id/approve", adminLoanHandler.Approve)
	admin.Post("/:id/reject", adminLoanHandler.Reject)
}
