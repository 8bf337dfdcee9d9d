// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "dreamio/docs" // swagger docs
	"dreamio/internal/authz"
	"dreamio/internal/cache"
	"dreamio/internal/config"
	"dreamio/internal/database"
	"dreamio/internal/middleware"
	"dreamio/internal/models"
	"dreamio/internal/notifications"
	"dreamio/internal/repository"
	"dreamio/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// multipart overhead allowed on top of the largest upload
const bodyLimitSlack = 10 * 1024 * 1024

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	enforcer       *authz.Enforcer
	userRepo       repository.UserRepository
	eventRepo      repository.EventRepository
	streamRepo     repository.LiveStreamRepository
	media          *service.MediaService
	authService    *service.AuthService
	userService    *service.UserService
	eventService   *service.EventService
	streamService  *service.LiveStreamService
	editorService  *service.EditorService
	statsService   *service.StatsService
	notifier       *notifications.Notifier
	viewerHub      *notifications.ViewerHub
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis is optional: without it caching, revocation and cross-instance fan-out are off.
	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	cache.SetClient(redisClient)

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return nil, fmt.Errorf("authorization setup failed: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	streamRepo := repository.NewLiveStreamRepository(db)
	sessions := repository.NewEditorSessionStore(redisClient, 0)

	media := service.NewMediaService(cfg)
	notifier := notifications.NewNotifier(redisClient)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("dreamio-api"),
		enforcer:       enforcer,
		userRepo:       userRepo,
		eventRepo:      eventRepo,
		streamRepo:     streamRepo,
		media:          media,
		authService:    service.NewAuthService(userRepo, cfg.JWTSecret, cfg.AllowAdminSignup),
		userService:    service.NewUserService(userRepo, media),
		eventService:   service.NewEventService(eventRepo, media, enforcer),
		streamService:  service.NewLiveStreamService(streamRepo, media, enforcer),
		editorService:  service.NewEditorService(sessions, enforcer),
		statsService:   service.NewStatsService(userRepo, eventRepo, streamRepo),
		notifier:       notifier,
		viewerHub:      notifications.NewViewerHub(streamRepo, notifier),
	}
	return s, nil
}

// NewApp builds the Fiber app with the shared error handler and upload-sized body limit.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:   "Dreamio API",
		BodyLimit: int(service.StreamVideoMaxBytes) + bodyLimitSlack,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return models.RespondWithError(c, fe.Code, errors.New(fe.Message))
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(middleware.TracingMiddleware())

	// Uploaded media is embedded by the frontend from another origin.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, If-Match, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		ExposeHeaders:    "ETag",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static(service.PublicUploadPrefix, s.media.Root(), fiber.Static{
		MaxAge: 3600,
	})

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Dreamio Backend Metrics Dashboard",
	}))

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Get("/profile", s.AuthRequired(), s.GetProfile)
	auth.Post("/upload-profile-image", s.AuthRequired(), s.UploadProfileImage)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	events := api.Group("/events")
	events.Get("/", s.GetEvents)
	events.Post("/", s.AuthRequired(), s.CreateEvent)
	events.Post("/create", s.AuthRequired(), s.CreateEvent)
	events.Get("/:id", s.GetEvent)
	events.Put("/:id", s.AuthRequired(), s.UpdateEvent)
	events.Delete("/:id", s.AuthRequired(), s.DeleteEvent)

	// Specific routes before the generic /:id route
	streams := api.Group("/live-streams")
	streams.Get("/", s.GetLiveStreams)
	streams.Get("/live/current", s.GetCurrentLiveStreams)
	streams.Get("/user/:userId", s.GetUserLiveStreams)
	streams.Post("/", s.AuthRequired(), s.CreateLiveStream)
	streams.Patch("/:id/start", s.AuthRequired(), s.StartLiveStream)
	streams.Patch("/:id/stop", s.AuthRequired(), s.StopLiveStream)
	streams.Patch("/:id/viewers", s.UpdateViewerCount)
	streams.Patch("/:id/like", s.UpdateLikeCount)
	streams.Get("/:id", s.GetLiveStream)
	streams.Put("/:id", s.AuthRequired(), s.UpdateLiveStream)
	streams.Delete("/:id", s.AuthRequired(), s.DeleteLiveStream)

	users := api.Group("/users", s.AuthRequired())
	users.Get("/", s.RoleRequired(authz.ObjUsers, authz.ActRead), s.GetUsers)
	users.Put("/:id", s.RoleRequired(authz.ObjUsers, authz.ActUpdate), s.UpdateUser)
	users.Delete("/:id", s.RoleRequired(authz.ObjUsers, authz.ActDelete), s.DeleteUser)

	admin := api.Group("/admin", s.AuthRequired())
	admin.Get("/stats", s.RoleRequired(authz.ObjStats, authz.ActRead), s.GetAdminStats)

	editor := api.Group("/editor/sessions", s.AuthRequired())
	editor.Post("/", s.CreateEditorSession)
	editor.Post("/:id/ops", s.ApplyEditorOperation)
	editor.Get("/:id", s.GetEditorSession)
	editor.Delete("/:id", s.DeleteEditorSession)

	ws := api.Group("/ws")
	ws.Get("/live-streams/:id", s.WebSocketUpgrade, s.WebSocketViewerHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional, so
// its absence does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"service": "dreamio-api",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start builds the app, wires the viewer hub to Redis and listens on the configured port.
func (s *Server) Start() error {
	if err := s.media.EnsureDirs(); err != nil {
		return fmt.Errorf("upload directories: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := NewApp()
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if err := s.viewerHub.StartWiring(s.shutdownCtx); err != nil {
		middleware.Logger.Warn("viewer hub wiring failed, delivering locally only",
			slog.String("error", err.Error()))
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	// Closing sockets first lets the read pumps release their viewer counts.
	if err := s.viewerHub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down viewer hub", slog.String("error", err.Error()))
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing Redis client", slog.String("error", err.Error()))
		}
	}

	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				middleware.Logger.Error("error closing database", slog.String("error", err.Error()))
			}
		}
	}

	return nil
}
