package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/telehealth-api/internal/middleware"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
)

// Handler mounts a resource's routes on a group.
type Handler interface {
	RegisterRoutes(gin.IRouter)
}

// AdminHandler has routes that need the admin guard.
type AdminHandler interface {
	RegisterRoutes(r gin.IRouter, adminOnly gin.HandlerFunc)
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	bookingH AdminHandler
	patientH Handler
	queueH   Handler
	healthH  Handler
	metricsH gin.HandlerFunc
}

type RouterConfig struct {
	Mode             string
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	CORSConfig       middleware.CORSConfig
	RequestTimeout   time.Duration
	MaxBodySize      int64
	Metrics          *metrics.Metrics
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	bookingH AdminHandler,
	patientH Handler,
	queueH Handler,
	healthH Handler,
	metricsH gin.HandlerFunc,
	config RouterConfig,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = middleware.DefaultMaxBodySize
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     auth,
		bookingH: bookingH,
		patientH: patientH,
		queueH:   queueH,
		healthH:  healthH,
		metricsH: metricsH,
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
	)
	if config.Metrics != nil {
		engine.Use(middleware.Metrics(config.Metrics))
	}
	if config.RequestTimeout > 0 {
		engine.Use(middleware.Timeout(config.RequestTimeout))
	}
	engine.Use(
		middleware.CORS(config.CORSConfig),
		middleware.SizeLimit(config.MaxBodySize),
	)

	if config.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	r.healthH.RegisterRoutes(r.engine)
	if r.metricsH != nil {
		r.engine.GET("/metrics", r.metricsH)
	}

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())

	r.bookingH.RegisterRoutes(protected, r.auth.RequireAdmin())
	r.patientH.RegisterRoutes(protected)
	r.queueH.RegisterRoutes(protected)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
