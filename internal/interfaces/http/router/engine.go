package router

import (
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig configures the shared middleware chain
type EngineConfig struct {
	ServiceName    string
	ReleaseMode    bool
	TrustedProxies []string
	MaxBodySize    int64
	TracingEnabled bool
	// Meter may be nil, which disables HTTP metrics
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewEngine builds a gin engine with request ids, logging, recovery,
// tracing, metrics, security headers and the body limit applied in that order
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	if cfg.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(cfg.Logger, logger.GinOptions{
		RequestIDKey:  middleware.ContextRequestID,
		CompanyHeader: middleware.HeaderCompanyID,
		QuietPaths:    []string{"/health"},
	}))
	engine.Use(logger.Recovery(cfg.Logger))
	engine.Use(middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled))
	engine.Use(middleware.SpanEnricher())
	engine.Use(middleware.HTTPMetrics(cfg.Meter, cfg.Logger))
	engine.Use(middleware.Secure())
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	return engine, nil
}
