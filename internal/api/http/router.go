package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/book-review-service/internal/api/http/handlers"
	"github.com/spec-kit/book-review-service/internal/auth"
	"github.com/spec-kit/book-review-service/internal/config"
	"github.com/spec-kit/book-review-service/internal/observability"
)

// BodyLimit leaves room for a base64 encoded image at the decoded size cap.
const BodyLimit = 15 << 20

// NewApp builds the fiber application with middlewares and routes attached.
func NewApp(appCfg config.AppConfig, logger *zap.Logger, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               appCfg.Name,
		BodyLimit:             BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(logger, routes.Metrics),
	})
	RegisterMiddlewares(app, logger, routes.Metrics, appCfg.RequestTimeout())
	RegisterRoutes(app, routes)
	return app
}

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Books   *handlers.BooksHandler
	Gate    *auth.Gate
	Metrics *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Handler())
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	books := app.Group("/books", cfg.Gate.Handle, auth.RequireIdentity())
	books.Post("/", cfg.Books.Create)
	books.Get("/", cfg.Books.List)
	// must precede /:id
	books.Get("/user", cfg.Books.ListOwned)
	books.Delete("/:id", cfg.Books.Delete)
}
