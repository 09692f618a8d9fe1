// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "hongdating/docs" // swagger docs
	"hongdating/internal/cache"
	"hongdating/internal/config"
	"hongdating/internal/database"
	"hongdating/internal/featureflags"
	"hongdating/internal/middleware"
	"hongdating/internal/models"
	"hongdating/internal/notifications"
	"hongdating/internal/push"
	"hongdating/internal/repository"
	"hongdating/internal/service"
	"hongdating/internal/storage"

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

const flagRefreshInterval = 15 * time.Second

// wireableHub is implemented by every WebSocket hub that can be wired to
// Redis pub/sub and gracefully shut down.
type wireableHub interface {
	Name() string
	StartWiring(ctx context.Context, n *notifications.Notifier) error
	Shutdown(ctx context.Context) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	store        storage.Store
	notifier     *notifications.Notifier
	presence     *notifications.Presence
	hub          *notifications.Hub
	roomHub      *notifications.RoomHub
	hubs         []wireableHub
	featureFlags *featureflags.Manager
	dispatcher   *push.Dispatcher

	authService       *service.AuthService
	userService       *service.UserService
	requestService    *service.RequestService
	chatService       *service.ChatService
	inboxService      *service.InboxService
	icebreakerService *service.IcebreakerService
	postService       *service.PostService
	moderationService *service.ModerationService
	activityService   *service.ActivityService
	flagService       *service.FlagService
	pushService       *service.PushService
}

// NewServer connects to the database and Redis and wires every service.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// A nil client is fine; every Redis-backed feature degrades locally.
	redisClient := cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	store, err := storage.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}
	questions, err := service.LoadIcebreakerQuestions(cfg.IcebreakerQuestionsFile)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	chatRepo := repository.NewChatRepository(db)
	postRepo := repository.NewPostRepository(db)
	pushRepo := repository.NewPushRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("hongdating-api"),
		store:          store,
		notifier:       notifications.NewNotifier(redisClient),
		presence:       notifications.NewPresence(redisClient),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags).WithRedis(redisClient),
	}
	s.hub = notifications.NewHub(s.presence)
	s.roomHub = notifications.NewRoomHub(s.presence)
	s.hubs = []wireableHub{s.hub, s.roomHub}

	var sender push.Sender = push.NoopSender{}
	if cfg.PushGatewayURL != "" {
		sender = push.NewGatewaySender(cfg.PushGatewayURL, cfg.PushAPIKey)
	}
	s.dispatcher = push.NewDispatcher(sender, pushRepo)

	media := service.NewMediaService(store, cfg)
	s.authService = service.NewAuthService(userRepo, redisClient, cfg)
	s.userService = service.NewUserService(userRepo, media, s.notifier)
	s.requestService = service.NewRequestService(requestRepo, userRepo, s.notifier, s.dispatcher,
		cfg.RequestsDailyLimit, cfg.Location())
	s.chatService = service.NewChatService(chatRepo, s.notifier, s.dispatcher, s.hub)
	s.inboxService = service.NewInboxService(chatRepo, requestRepo)
	s.icebreakerService = service.NewIcebreakerService(repository.NewIcebreakerRepository(db),
		s.chatService, s.notifier, questions)
	s.postService = service.NewPostService(postRepo, userRepo, media)
	s.moderationService = service.NewModerationService(repository.NewModerationRepository(db),
		userRepo, postRepo, chatRepo, media)
	s.activityService = service.NewActivityService(repository.NewActivityRepository(db), redisClient, cfg.Location())
	s.flagService = service.NewFlagService(repository.NewFlagRepository(db), s.featureFlags,
		cfg.MaintenanceMessage, service.Notice{Version: cfg.NoticeVersion, Text: cfg.NoticeText})
	s.pushService = service.NewPushService(pushRepo)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		// Uploaded photos are embedded by the web client on another origin.
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry the headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				models.NewRateLimitedError("Too many requests, please try again later."))
		},
	}))
}

// SetupRoutes configures all routes for the application. Public routes are
// registered before the authenticated group because a group middleware
// applies to every later route under its prefix.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if local, ok := s.store.(*storage.LocalStore); ok {
		app.Static("/uploads", local.Root(), fiber.Static{MaxAge: 3600})
	}

	// Websockets authenticate with a ticket and live outside /api so the
	// maintenance switch does not cut open sessions.
	ws := app.Group("/ws", s.AuthRequired())
	ws.Get("/inbox", s.upgradeOnly, s.InboxWebsocketHandler())
	ws.Get("/rooms/:id", s.upgradeOnly, s.roomSocketGuard, s.RoomWebsocketHandler())

	api := app.Group("/api", s.MaintenanceGuard())
	api.Get("/", s.HealthCheck)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "HongDating Backend Metrics",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	api.Get("/app/status", s.GetAppStatus)
	api.Get("/icebreakers/questions", s.GetIcebreakerQuestions)

	auth := api.Group("/auth")
	auth.Post("/anonymous", middleware.RateLimit(s.redis, 10, time.Minute, "auth_anonymous"), s.Anonymous)
	auth.Post("/resume", middleware.RateLimit(s.redis, 20, time.Minute, "auth_resume"), s.Resume)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Post("/ws-ticket", s.AuthRequired(), s.IssueWSTicket)

	protected := api.Group("", s.AuthRequired(), s.TrackActivity())

	// Specific /me routes before the generic /:id routes
	users := protected.Group("/users")
	users.Get("/me", s.GetMe)
	users.Delete("/me", s.DeleteMe)
	users.Put("/me/profile", s.UpdateProfile)
	users.Get("/me/flags", s.GetMyFlags)
	users.Put("/me/flags", s.SetMyFlags)
	users.Post("/me/photo/upload-url", s.PhotoUploadURL)
	users.Post("/me/photo", s.UploadPhoto)
	users.Put("/me/photo", s.SetPhoto)
	users.Get("/", s.GetFeed)
	users.Post("/:id/reactions", s.ReactToUser)
	users.Post("/:id/block", s.BlockUser)
	users.Delete("/:id/block", s.UnblockUser)
	users.Get("/:id", s.GetUserProfile)

	requests := protected.Group("/requests")
	requests.Post("/", middleware.RateLimit(s.redis, 10, time.Minute, "send_request"), s.SendRequest)
	requests.Get("/received", s.GetReceivedRequests)
	requests.Get("/sent", s.GetSentRequests)
	requests.Get("/quota", s.GetRequestQuota)
	requests.Post("/:id/accept", s.AcceptRequest)
	requests.Post("/:id/reject", s.RejectRequest)

	protected.Get("/inbox", s.GetInbox)

	rooms := protected.Group("/rooms")
	rooms.Get("/", s.GetRooms)
	rooms.Get("/:id/messages", s.GetMessages)
	rooms.Post("/:id/messages", middleware.RateLimit(s.redis, 30, time.Minute, "send_message"), s.SendMessage)
	rooms.Post("/:id/read", s.MarkRead)
	rooms.Get("/:id/icebreaker", s.GetIcebreaker)
	rooms.Put("/:id/icebreaker", s.SubmitIcebreaker)
	rooms.Delete("/:id", s.LeaveRoom)
	rooms.Get("/:id", s.GetRoom)

	posts := protected.Group("/posts")
	posts.Post("/images/upload-url", s.PostImageUploadURL)
	posts.Post("/images", s.UploadPostImage)
	posts.Post("/", middleware.RateLimit(s.redis, 5, time.Minute, "create_post"), s.CreatePost)
	posts.Get("/", s.GetPosts)
	posts.Post("/:id/reactions", s.ReactToPost)
	posts.Post("/:id/comments", middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Put("/:id/comments/:commentId", s.UpdateComment)
	posts.Delete("/:id/comments/:commentId", s.DeleteComment)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	protected.Post("/reports/attachments", s.UploadReportAttachment)
	protected.Post("/reports", middleware.RateLimit(s.redis, 10, time.Minute, "report"), s.CreateReport)
	protected.Post("/complaints", s.CreateComplaint)
	protected.Get("/complaints/me", s.GetMyComplaints)

	protected.Post("/push/subscriptions", s.SubscribePush)
	protected.Delete("/push/subscriptions", s.UnsubscribePush)

	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/reports", s.AdminListReports)
	admin.Post("/reports/:id/resolve", s.AdminResolveReport)
	admin.Get("/complaints", s.AdminListComplaints)
	admin.Post("/complaints/:id/answer", s.AdminAnswerComplaint)
	admin.Get("/stats/daily", s.AdminDailyStats)
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Put("/feature-flags", s.SetFeatureFlag)
}

// HealthCheck is a short alias for ReadinessCheck
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so
// only the database decides readiness.
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
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overall := "healthy"
	switch {
	case dbStatus != "healthy":
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	case redisStatus != "healthy":
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// NewApp builds the Fiber app with the server's middleware and routes.
func (s *Server) NewApp() *fiber.App {
	bodyLimit := s.config.ImageMaxUploadSizeMB
	if bodyLimit < 1 {
		bodyLimit = service.DefaultImageMaxUploadSizeMB
	}
	app := fiber.New(fiber.Config{
		AppName:      "HongDating API",
		BodyLimit:    (bodyLimit + 1) * 1024 * 1024,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return models.RespondWithError(c, fe.Code, err)
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithAppError(c, err)
}

// startBackground wires the hubs to the notifier and starts the push
// dispatcher and flag refresher. Everything stops when ctx is cancelled.
func (s *Server) startBackground(ctx context.Context) {
	for _, h := range s.hubs {
		if err := h.StartWiring(ctx, s.notifier); err != nil {
			middleware.Logger.Error("hub wiring failed",
				slog.String("hub", h.Name()), slog.String("error", err.Error()))
		}
	}
	s.dispatcher.Start(ctx)
	if s.redis != nil {
		if err := s.featureFlags.Refresh(ctx); err != nil {
			middleware.Logger.Warn("initial feature flag load failed", slog.String("error", err.Error()))
		}
	}
	s.featureFlags.StartRefresher(ctx, flagRefreshInterval)
}

// Start starts the server
func (s *Server) Start() error {
	s.shutdownCtx, s.shutdownFn = context.WithCancel(context.Background())
	s.app = s.NewApp()
	s.startBackground(s.shutdownCtx)

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	for _, h := range s.hubs {
		if err := h.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub",
				slog.String("hub", h.Name()), slog.String("error", err.Error()))
		}
	}
	s.dispatcher.Stop()

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
