// Package api exposes the reward engine, the campaign config store and batch settlement over HTTP.
package api

import (
	_ "github.com/buildersacademyai/prompto-sub000/docs"
	"github.com/buildersacademyai/prompto-sub000/internal/cache"
	"github.com/buildersacademyai/prompto-sub000/internal/database"
	apperrors "github.com/buildersacademyai/prompto-sub000/internal/errors"
	"github.com/buildersacademyai/prompto-sub000/internal/middleware"
	"github.com/buildersacademyai/prompto-sub000/internal/monitoring"
	"github.com/buildersacademyai/prompto-sub000/internal/ratelimit"
	"github.com/buildersacademyai/prompto-sub000/internal/security"
	"github.com/buildersacademyai/prompto-sub000/internal/settlement"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Options tunes the HTTP surface
type Options struct {
	Version            string
	EnableHSTS         bool
	MaxBatchRecords    int
	ComputeLimitPerMin int
	// CompressionMinBytes is the smallest response body that is gzipped. Zero keeps the default.
	CompressionMinBytes int
}

// Deps are the collaborators built by the caller. Redis may be a disabled client.
type Deps struct {
	DB       *database.DB
	Settler  *settlement.Settler
	Cache    *cache.Cache
	Redis    *ratelimit.RedisClient
	Limiter  *ratelimit.RateLimiter
	Auth     *security.OperatorAuth
	Security *security.SecurityMiddleware
	Metrics  *monitoring.Metrics
	Logger   *monitoring.Logger
}

// Server holds everything the handlers need
type Server struct {
	opts     Options
	db       *database.DB
	repo     *database.Repository
	configs  *database.ConfigService
	settler  *settlement.Settler
	cache    *cache.Cache
	redis    *ratelimit.RedisClient
	limiter  *ratelimit.RateLimiter
	auth     *security.OperatorAuth
	security *security.SecurityMiddleware
	metrics  *monitoring.Metrics
	logger   *monitoring.Logger

	compression *middleware.CompressionMiddleware
}

// New creates a Server
func New(opts Options, deps Deps) *Server {
	if opts.MaxBatchRecords <= 0 {
		opts.MaxBatchRecords = 10000
	}
	if opts.ComputeLimitPerMin <= 0 {
		opts.ComputeLimitPerMin = 600
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	compression := middleware.DefaultCompressionConfig()
	if opts.CompressionMinBytes > 0 {
		compression.MinSize = opts.CompressionMinBytes
	}

	repo := database.NewRepository(deps.DB)
	return &Server{
		opts:     opts,
		db:       deps.DB,
		repo:     repo,
		configs:  database.NewConfigService(repo),
		settler:  deps.Settler,
		cache:    deps.Cache,
		redis:    deps.Redis,
		limiter:  deps.Limiter,
		auth:     deps.Auth,
		security: deps.Security,
		metrics:  deps.Metrics,
		logger:   deps.Logger,

		compression: middleware.NewCompressionMiddleware(compression),
	}
}

// Router builds the gin engine with the full middleware chain
func (s *Server) Router() *gin.Engine {
	r := gin.New()

	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger))
	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryHandler())

	r.Use(security.SecurityHeadersMiddleware(s.opts.EnableHSTS))
	r.Use(monitoring.SecurityMonitoringMiddleware(s.logger, s.security.Config().MaxBodyBytes))
	r.Use(s.security.CORS())
	r.Use(s.security.LimitBody, s.security.ValidateContentType, s.security.RequestTimeout)
	r.Use(s.limiter.IPRateLimitMiddleware())
	r.Use(s.compression.Handler())

	r.GET("/health", s.health)
	r.GET("/metrics", s.metricsStats)
	r.GET("/cache/stats", s.cacheStats)
	r.GET("/pools/database", s.databasePoolStats)
	r.GET("/pools/redis", s.redisPoolStats)
	r.GET("/ratelimit/status", s.limiter.HandleRateLimitStatus())
	r.GET("/compression/stats", s.compressionStats)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/v1")
	v1.POST("/rewards/compute",
		s.limiter.EndpointRateLimitMiddleware("compute", s.opts.ComputeLimitPerMin),
		s.cache.Middleware(s.metrics),
		s.computeReward,
	)

	campaigns := v1.Group("/campaigns/:campaignId")
	campaigns.GET("/configs", s.listConfigs)
	campaigns.GET("/configs/latest", s.latestConfig)
	campaigns.GET("/configs/:version", s.getConfig)
	campaigns.POST("/configs", s.auth.Middleware(), s.limiter.OperatorRateLimitMiddleware(), s.publishConfig)

	v1.POST("/settlements", s.auth.Middleware(), s.limiter.OperatorRateLimitMiddleware(), s.settleBatch)
	v1.GET("/settlements/:batchId", s.getSettlement)

	return r
}

func (s *Server) fail(c *gin.Context, appErr *apperrors.AppError) {
	appErr.RequestID = c.GetHeader("X-Request-ID")
	apperrors.LogError(c, appErr)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
}
