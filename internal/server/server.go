package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sgericke98/beacon-l2c-sub000/internal/config"
	flowdomain "github.com/sgericke98/beacon-l2c-sub000/internal/flow/domain"
	ingestdomain "github.com/sgericke98/beacon-l2c-sub000/internal/ingest/domain"
	kpidomain "github.com/sgericke98/beacon-l2c-sub000/internal/kpi/domain"
	"github.com/sgericke98/beacon-l2c-sub000/internal/observability/logger"
	"github.com/sgericke98/beacon-l2c-sub000/internal/observability/metrics"
	"github.com/sgericke98/beacon-l2c-sub000/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Server holds the HTTP handler dependencies.
type Server struct {
	cfg       config.Config
	db        *gorm.DB
	log       *zap.Logger
	engine    *gin.Engine
	flowSvc   flowdomain.Service
	kpiSvc    kpidomain.Service
	ingestSvc ingestdomain.Service
	limiter   *rateLimiter
}

type Params struct {
	fx.In

	Config    config.Config
	DB        *gorm.DB
	Log       *zap.Logger
	Engine    *gin.Engine
	FlowSvc   flowdomain.Service
	KPISvc    kpidomain.Service
	IngestSvc ingestdomain.Service
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:       p.Config,
		db:        p.DB,
		log:       p.Log.Named("server"),
		engine:    p.Engine,
		flowSvc:   p.FlowSvc,
		kpiSvc:    p.KPISvc,
		ingestSvc: p.IngestSvc,
		limiter:   newRateLimiter(p.Config.RateLimit.Requests, p.Config.RateLimit.Window),
	}
}

// NewEngine builds the gin engine with recovery, request logging, and
// HTTP metrics applied to every route.
func NewEngine(cfg config.Config, log *zap.Logger, httpMetrics *metrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(tracing.GinMiddleware())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		Logger:    log,
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	engine.Use(metrics.GinMiddleware(httpMetrics))
	return engine
}

func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/healthz", s.Health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api", s.rateLimit())
	api.GET("/metrics/flow", s.GetFlowMetrics)
	api.POST("/metrics/flow", s.GetFlowMetrics)
	api.POST("/metrics/:name", s.GetMetric)
	api.POST("/salesforce/sync/:entity", s.SyncSalesforce)
	api.POST("/netsuite/sync/:entity", s.SyncNetSuite)
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
			return
		}
		c.Next()
	}
}

func (s *Server) Health(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "database_unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTP.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
