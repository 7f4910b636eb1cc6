package router

import (
	"net/http"
	"time"

	"slimechat/backend/internal/api"
	"slimechat/backend/internal/chat"
	"slimechat/backend/internal/store"
	"slimechat/backend/pkg/config"
	"slimechat/backend/pkg/errors"
	"slimechat/backend/pkg/logger"
	"slimechat/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Track server start time for uptime reporting
var startTime = time.Now()

// Router composes the gin engine, the websocket endpoint and the REST surface
type Router struct {
	Engine *gin.Engine
	Hub    *chat.Hub
	Logger *logger.Logger
	Config *config.Config

	messages store.MessageRepository
	limiter  *middleware.RateLimiter
}

// New builds the router around an already-constructed hub and storage gateway
func New(cfg *config.Config, hub *chat.Hub, messages store.MessageRepository, log *logger.Logger) *Router {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(logger.Middleware(log))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(api.CORS(cfg.API.AllowedOrigins))

	rateLimiter := middleware.NewRateLimiter(log, middleware.RateLimiterOptions{
		Limit:          rate.Limit(cfg.API.RateLimit),
		Burst:          cfg.API.RateLimitBurst,
		ExpiryDuration: time.Hour,
		KeyFunc:        middleware.DefaultRateLimiterOptions().KeyFunc,
	})
	engine.Use(rateLimiter.Middleware())

	return &Router{
		Engine:   engine,
		Hub:      hub,
		Logger:   log,
		Config:   cfg,
		messages: messages,
		limiter:  rateLimiter,
	}
}

// SetupRoutes wires every endpoint onto the engine
func (r *Router) SetupRoutes() {
	cfg := r.Config

	// Persistent channel
	r.Engine.GET("/ws", chat.ServeWS(r.Hub, cfg.API.AllowedOrigins, r.Logger))

	// Request/response surface
	sanitizer := chat.NewSanitizer(cfg.Chat.MaxNameLength, cfg.Chat.MaxMessageLength)
	messageController := api.NewMessageController(r.messages, r.Hub, sanitizer, cfg.Chat.MessageHistoryMax, cfg.API.Key, r.Logger)
	messageController.RegisterRoutes(r.Engine)

	systemController := api.NewSystemController(r.messages, r.Hub, cfg.API.Key, r.Logger)
	systemController.RegisterRoutes(r.Engine)

	// Live presence snapshot
	r.Engine.GET("/api/users", func(c *gin.Context) {
		c.JSON(http.StatusOK, r.Hub.Registry().ActiveUsers())
	})

	// Operational endpoints
	r.Engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(startTime).String(),
		})
	})
	r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
