package handler

import (
	"net/http"

	"nbp-rates-service/internal/metrics"
	"nbp-rates-service/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
)

type RouterConfig struct {
	AllowedOrigins []string
	// Limiter is optional; nil disables rate limiting of /api.
	Limiter  *limiter.Limiter
	Gatherer prometheus.Gatherer
	Metrics  *metrics.RateMetrics
}

func NewRouter(cfg RouterConfig, rates *ExchangeRateHandler, health *HealthHandler, logger *logrus.Logger) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestLogger(logger, cfg.Metrics))
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.WithField(middleware.RequestIDKey, c.GetString(middleware.RequestIDKey)).
			Errorf("Recovered from panic: %v", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}))

	corsConfig := cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: false,
	}
	if len(cfg.AllowedOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	r.GET("/health", health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	if cfg.Limiter != nil {
		api.Use(middleware.RateLimit(cfg.Limiter, logger))
	}
	api.GET("/exchangeRates/:currencyCode/:effectiveDate", rates.GetExchangeRate)

	return r
}
