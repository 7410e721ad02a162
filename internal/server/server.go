// Package server contains the HTTP and WebSocket handlers for the API.
package server

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"discussify/internal/cache"
	"discussify/internal/config"
	"discussify/internal/database"
	"discussify/internal/middleware"
	"discussify/internal/models"
	"discussify/internal/notifications"
	"discussify/internal/repository"
	"discussify/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server owns the application dependencies and exposes the HTTP handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo         repository.UserRepository
	communityRepo    repository.CommunityRepository
	postRepo         repository.PostRepository
	notificationRepo repository.NotificationRepository

	notifier *notifications.Notifier
	hub      *notifications.Hub
	sink     *notifications.Sink

	membershipService   *service.MembershipService
	communityService    *service.CommunityService
	notificationService *service.NotificationService
	adminService        *service.AdminService
}

// NewServer creates a server instance, establishing the database and Redis
// connections itself.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	server := newServerWith(cfg, db, redisClient)
	server.promMiddleware = middleware.InitMetrics("discussify-api")
	return server, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this when a bootstrap layer establishes DB/Redis first.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	server := newServerWith(cfg, db, redisClient)
	server.promMiddleware = middleware.InitMetrics("discussify-api")
	return server, nil
}

// newServerWith wires repositories, the notification pipeline, and services.
// Metrics registration is left to the exported constructors so tests can build
// servers without touching the global Prometheus registry.
func newServerWith(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	server := &Server{
		config:           cfg,
		db:               db,
		redis:            redisClient,
		userRepo:         repository.NewUserRepository(db),
		communityRepo:    repository.NewCommunityRepository(db),
		postRepo:         repository.NewPostRepository(db),
		notificationRepo: repository.NewNotificationRepository(db),
	}

	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
		server.hub = notifications.NewHub()
	}
	server.sink = notifications.NewSink(server.notificationRepo, server.notifier)

	server.membershipService = service.NewMembershipService(
		server.communityRepo, server.userRepo, server.notificationRepo, server.sink)
	server.communityService = service.NewCommunityService(
		server.communityRepo, server.userRepo, server.postRepo, server.membershipService, server.sink)
	server.notificationService = service.NewNotificationService(server.notificationRepo)
	server.adminService = service.NewAdminService(
		server.communityRepo, server.userRepo, server.postRepo, server.notificationRepo,
		server.membershipService)

	return server
}

// SetupMiddleware installs the shared middleware stack. Order matters:
// requestid and the context middleware run before the logger so log lines
// carry IDs, and CORS runs before the limiter so throttled browser requests
// still get CORS headers.
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

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Coarse per-IP limit over the whole surface; sensitive writes carry
	// their own tighter limits on the route.
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Preflight requests are never throttled.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, slow down.",
			})
		},
	}))
}

// SetupRoutes registers the full route table.
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Community routes. Specific paths before the generic /:idOrSlug routes.
	communities := api.Group("/communities")
	communities.Get("/popular", s.GetPopularCommunities)
	communities.Get("/my-communities", s.AuthRequired(), s.GetMyCommunities)
	communities.Get("/recommended", s.AuthRequired(), s.GetRecommendedCommunities)
	communities.Get("/discover/:userId", s.AuthRequired(), s.DiscoverCommunities)
	communities.Post("/create", s.AuthRequired(), middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "create_community"), s.CreateCommunity)
	communities.Post("/:idOrSlug/join", s.AuthRequired(), s.JoinCommunity)
	communities.Post("/:idOrSlug/leave", s.AuthRequired(), s.LeaveCommunity)
	communities.Post("/:idOrSlug/invite", s.AuthRequired(), middleware.RateLimit(
		s.redis, 10, time.Minute, "community_invite"), s.InviteToCommunity)
	communities.Patch("/:idOrSlug", s.AuthRequired(), s.UpdateCommunity)
	// Detail and discussions take optional auth: anonymous callers get the
	// public projection, members the full one.
	communities.Get("/:idOrSlug/discussions", s.GetCommunityDiscussions)
	communities.Get("/:idOrSlug", s.GetCommunity)

	notificationRoutes := api.Group("/notifications", s.AuthRequired())
	notificationRoutes.Get("/", s.GetNotifications)
	notificationRoutes.Post("/:id/read", s.MarkNotificationRead)

	// Realtime notification delivery.
	api.Get("/ws", s.AuthRequired(), s.WebsocketHandler())

	admin := api.Group("/admin", s.AuthRequired(), s.AdminRequired())
	admin.Get("/analytics", s.GetAdminAnalytics)
	admin.Get("/activity", s.GetAdminActivity)
	admin.Get("/users", s.GetAdminUsers)
	admin.Patch("/users/:id", s.UpdateAdminUser)
	admin.Delete("/users/:id", s.DeleteAdminUser)
	admin.Get("/communities", s.GetAdminCommunities)
	admin.Get("/communities/:id/posts", s.GetAdminCommunityPosts)
	admin.Patch("/communities/:id", s.UpdateAdminCommunity)
	admin.Delete("/communities/:id", s.DeleteAdminCommunity)
	admin.Patch("/posts/:id", s.UpdateAdminPost)
	admin.Delete("/posts/:id", s.DeleteAdminPost)
	admin.Post("/posts/:id/report", s.ReportAdminPost)
	admin.Post("/posts/:id/resolve-reports", s.ResolveAdminPostReports)
}

// LivenessCheck answers the orchestrator's liveness probe.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck pings the database and Redis and reports per-dependency
// status. Anything short of fully healthy answers 503.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
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
		// Redis is required for realtime delivery and rate limits.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "Discussify",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AdminRequired gates a route on the platform admin role. It reads the
// caller's row on every request so a demotion or deactivation applies
// immediately, not at token expiry. Runs after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(uint)

		user, err := s.userRepo.GetByID(c.UserContext(), userID)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		if !user.IsAdmin() || !user.IsActive {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}

		return c.Next()
	}
}

// AuthRequired returns the authentication middleware. Tokens are issued by the
// external identity service; this only validates them and checks the Redis
// revocation list.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// Browsers cannot set headers on websocket upgrades, so the token may
		// also arrive as a query parameter.
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		userID, ok := s.validateToken(c, tokenString)
		if !ok {
			// validateToken already wrote the response.
			return nil
		}

		c.Locals("userID", userID)
		// Mirror into the user context so logs and services see the caller.
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, userID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// validateToken parses and validates a JWT, returning the subject user ID.
// On failure it writes the 401 response and returns ok=false.
func (s *Server) validateToken(c *fiber.Ctx, tokenString string) (uint, bool) {
	fail := func(message string) (uint, bool) {
		_ = models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError(message))
		return 0, false
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return fail("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return fail("Invalid token claims")
	}

	if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != s.config.JWTIssuer {
		return fail("Invalid token issuer")
	}
	if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != s.config.JWTAudience {
		return fail("Invalid token audience")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return fail("Invalid subject claim")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return fail("Invalid user ID in token")
	}

	// Revoked tokens are tracked by JTI until they expire.
	if jti, exists := claims["jti"].(string); exists && jti != "" && s.redis != nil {
		isBlacklisted, err := s.redis.Exists(c.Context(), "blacklist:"+jti).Result()
		if err == nil && isBlacklisted > 0 {
			return fail("Token has been revoked")
		}
	}

	return uint(userID), true
}

// optionalUserID attempts to extract userID from the Authorization header but
// does not enforce it. Used by endpoints whose projection depends on identity.
func (s *Server) optionalUserID(c *fiber.Ctx) (uint, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return 0, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, false
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, false
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(userID), true
}

// Start builds the fiber app, connects the notification hub to Redis, and
// blocks serving requests.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "Discussify API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("unhandled handler error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				log.Printf("notification hub wiring: %v", err)
			}
		}()
	}

	log.Printf("Listening on :%s", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown drains the HTTP listener, closes every websocket, and releases
// the database and Redis connections. Errors are logged, not returned, so a
// partial failure never aborts the rest of the teardown.
func (s *Server) Shutdown(ctx context.Context) error {
	// Stops the hub wiring goroutine.
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("HTTP shutdown: %v", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			log.Printf("hub shutdown: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("closing database: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("closing redis: %v", rerr)
		}
	}

	log.Println("Shutdown complete")
	return nil
}
