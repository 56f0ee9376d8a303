package main

import (
	"context"
	"fmt"
	"log"

	common_api "go-viz/internal/common/api"
	"go-viz/internal/config"
	"go-viz/internal/database"
	"go-viz/internal/features/dataset"
	"go-viz/internal/features/session"
	"go-viz/internal/features/system"
	"go-viz/internal/format"
	"go-viz/internal/logger"
	"go-viz/internal/middleware"
	"go-viz/pkg/utils"

	_ "go-viz/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             32 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware(cfg.IsProduction()))

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route, logger *zap.Logger) {
	for _, route := range routes {
		logger.Debug("setting up route", zap.String("route", fmt.Sprintf("%T", route)))
		route.Setup(app)
	}
	logger.Info("routes registered", zap.Int("count", len(routes)))
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`, ``),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// ManageSessions runs the idle-session cleanup and closes every live
// session on shutdown.
func ManageSessions(lc fx.Lifecycle, cleanup *session.Cleanup, registry *session.Registry) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return cleanup.Start()
		},
		OnStop: func(ctx context.Context) error {
			cleanup.Stop()
			registry.Close()
			return nil
		},
	})
}

// @title           go-viz API
// @version         1.0
// @description     Dataset transformation configuration service.

// @host            localhost:8080
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,
			func(db *database.MongodbDB) system.Pinger { return db },

			// Preview formatting
			format.New,

			// Dataset
			dataset.NewDatasetRepository,
			dataset.NewSQLSchemaReader,
			dataset.NewDatasetService,
			dataset.NewDatasetController,
			AsRoute(dataset.NewDatasetApi),
			func(s dataset.DatasetService) session.DatasetLookup { return s },

			// Session
			session.NewSessionRepository,
			session.NewHub,
			func(h *session.Hub) session.Notifier { return h },
			session.NewRegistry,
			func(r *session.Registry) system.SessionCounter { return r },
			session.NewSessionService,
			session.NewSessionController,
			session.NewWebSocketController,
			session.NewCleanup,
			AsRoute(session.NewSessionApi),

			// System
			system.NewDebugController,
			AsRoute(system.NewDebugApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) { utils.SetSecret(cfg.JWTSecret) },
			RegisterAllRoutesWithAnnotation,
			StartServer,
			ManageSessions,
		),
	)

	app.Run()
}
