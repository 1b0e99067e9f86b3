package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	formathandler "github.com/nexpat/clinicq/internal/handler/format"
	"github.com/nexpat/clinicq/internal/middleware"
	"github.com/nexpat/clinicq/pkg/auth"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
	CacheTTL       time.Duration
	CORSConfig     middleware.CORSConfig
	MetricsPrefix  string
}

type Router struct {
	engine        *gin.Engine
	authMW        *middleware.AuthMiddleware
	healthH       Handler
	userH         Handler
	patientH      Handler
	visitH        Handler
	queueH        Handler
	prescriptionH Handler
	formatH       *formathandler.Handler
	metrics       *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func New(
	authMW *middleware.AuthMiddleware,
	healthH Handler,
	userH Handler,
	patientH Handler,
	visitH Handler,
	queueH Handler,
	prescriptionH Handler,
	formatH *formathandler.Handler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:        engine,
		authMW:        authMW,
		healthH:       healthH,
		userH:         userH,
		patientH:      patientH,
		visitH:        visitH,
		queueH:        queueH,
		prescriptionH: prescriptionH,
		formatH:       formatH,
		metrics:       newRouterMetrics(config.MetricsPrefix),
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
		middleware.CORS(config.CORSConfig),
	)

	if config.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(config.RateLimitRPS, config.RateLimitBurst)
		engine.Use(limiter.RateLimit())
	}

	r.setup(config)
	return r
}

func (r *Router) setup(config Config) {
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.healthH.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(r.authMW.Authenticate())

	// The cache keys on request URI alone. /me varies per caller, so it is
	// registered before the cached group.
	r.userH.RegisterRoutes(protected)

	cached := protected.Group("")
	if config.CacheTTL > 0 {
		responseCache := middleware.NewResponseCache(config.CacheTTL)
		cached.Use(responseCache.Middleware())
	}

	// Day-to-day queue operations are open to both roles.
	clinical := cached.Group("")
	clinical.Use(r.authMW.RequireRole(auth.RoleDoctor, auth.RoleAssistant))
	r.patientH.RegisterRoutes(clinical)
	r.visitH.RegisterRoutes(clinical)
	r.queueH.RegisterRoutes(clinical)
	r.prescriptionH.RegisterRoutes(clinical)

	// Both roles may read the active format; reconfiguring it rewrites
	// every patient record, so writes stay doctor-only.
	clinical.GET("/registration_number_format", r.formatH.GetFormat)
	admin := cached.Group("")
	admin.Use(r.authMW.RequireRole(auth.RoleDoctor))
	admin.PUT("/registration_number_format", r.formatH.ReplaceFormat)
	admin.PATCH("/registration_number_format", r.formatH.AmendFormat)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func newRouterMetrics(prefix string) *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
