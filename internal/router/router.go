package router

import (
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/hospital-api/internal/handler"
	"github.com/jwalitptl/hospital-api/internal/handler/catalog"
	"github.com/jwalitptl/hospital-api/internal/middleware"
	"github.com/jwalitptl/hospital-api/pkg/validator"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine   *gin.Engine
	config   RouterConfig
	handlers Handlers
	metrics  *routerMetrics
}

// Handlers are the route owners. Audit may be nil when no audit store is
// configured.
type Handlers struct {
	Base      *handler.Handler
	Doctors   Handler
	Patients  Handler
	Surgeries Handler
	Audit     Handler
	Catalog   *catalog.Handler
	Templates *template.Template
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type RouterConfig struct {
	Mode           string
	RateLimit      rate.Limit
	RateBurst      int
	RateIdle       time.Duration
	CORSConfig     middleware.CORSConfig
	Security       *middleware.SecurityConfig
	RequestTimeout time.Duration
	BodyLimit      int64
	MetricsEnabled bool
	MetricsPath    string
	MetricsPrefix  string
	Registerer     prometheus.Registerer
}

func NewRouter(handlers Handlers, config RouterConfig) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}

	security := middleware.DefaultSecurityConfig()
	if config.Security != nil {
		security = *config.Security
	}

	// Binding reports the same field errors the services produce.
	binding.Validator = validator.NewStructValidator()

	engine := gin.New()
	if handlers.Templates != nil {
		engine.SetHTMLTemplate(handlers.Templates)
	}

	r := &Router{
		engine:   engine,
		config:   config,
		handlers: handlers,
		metrics:  initRouterMetrics(config.Registerer, config.MetricsPrefix),
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.SecurityHeaders(security),
		middleware.Compress(middleware.DefaultCompressConfig()),
		middleware.CORS(config.CORSConfig),
	)

	if config.RateLimit > 0 {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:        config.RateLimit,
			Burst:       config.RateBurst,
			IdleTimeout: config.RateIdle,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	engine.Use(
		middleware.SizeLimit(middleware.SizeLimitConfig{
			MaxBodySize:   config.BodyLimit,
			MaxHeaderSize: middleware.DefaultSizeLimitConfig().MaxHeaderSize,
		}),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		r.metricsMiddleware(),
		middleware.ErrorHandler(),
	)

	return r
}

func (r *Router) Setup() {
	if r.config.MetricsEnabled && r.handlers.Base != nil {
		r.engine.GET(r.config.MetricsPath, r.handlers.Base.MetricsHandler())
	}

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})
	api.Use(middleware.Cache(middleware.DefaultCacheConfig()))

	if r.handlers.Base != nil {
		r.handlers.Base.RegisterRoutes(api)
	}
	for _, h := range []Handler{r.handlers.Doctors, r.handlers.Patients, r.handlers.Surgeries, r.handlers.Audit} {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}

	if r.handlers.Catalog != nil {
		r.handlers.Catalog.RegisterRoutes(api)
		if r.handlers.Templates != nil {
			r.handlers.Catalog.RegisterViews(r.engine.Group("/catalog"))
			r.engine.GET("/", func(c *gin.Context) {
				c.Redirect(http.StatusSeeOther, "/catalog")
			})
		}
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(reg prometheus.Registerer, prefix string) *routerMetrics {
	if prefix == "" {
		prefix = "hospital"
	}
	factory := promauto.With(reg)
	return &routerMetrics{
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		switch {
		case c.Writer.Status() >= 500:
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "server").Inc()
		case c.Writer.Status() >= 400:
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "client").Inc()
		}
	}
}
