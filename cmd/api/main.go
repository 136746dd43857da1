package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"nbp-rates-service/internal/adapter/nbp"
	"nbp-rates-service/internal/adapter/postgres"
	"nbp-rates-service/internal/entity"
	"nbp-rates-service/internal/handler"
	"nbp-rates-service/internal/metrics"
	"nbp-rates-service/internal/middleware"
	"nbp-rates-service/internal/service"
	"nbp-rates-service/internal/usecase"
	"nbp-rates-service/pkg/config"
	"nbp-rates-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log := logger.Init(cfg.Log.Level, cfg.Log.Format)
	gin.SetMode(gin.ReleaseMode)

	log.Info("Starting app...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// db
	dbPool, err := postgres.InitDBPool(ctx, *cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize db pool: %v", err)
	}
	defer dbPool.Close()

	if err := postgres.RunMigrations(postgres.BuildDSN(*cfg), log); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := postgres.NewPostgresRepo(dbPool, log)
	seeded, err := db.SeedCurrencyCodes(ctx, entity.SeedCurrencyCodes())
	if err != nil {
		log.Fatalf("Failed to seed currency codes: %v", err)
	}
	if len(seeded.Skipped) > 0 {
		log.Warnf("Skipped %d invalid currency codes: %v", len(seeded.Skipped), seeded.Skipped)
	}
	log.Info("Initialized database")

	// adapters
	nbpClient := nbp.NewClient(nbp.OptionsFromConfig(*cfg), log)
	log.Info("Initialized NBP client")

	rateMetrics := metrics.NewRateMetrics(prometheus.DefaultRegisterer)

	rateService := service.NewRateService(db, nbpClient, rateMetrics, log)
	log.Info("Initialized service layer")

	rateUsecase := usecase.NewExchangeRateUsecase(rateService, cfg.WarmUp.Currencies, log)
	log.Info("Initialized usecase layer")

	rateLimiter, err := middleware.NewLimiter(cfg.HTTP.RateLimit)
	if err != nil {
		log.Fatalf("Invalid rate limit %q: %v", cfg.HTTP.RateLimit, err)
	}

	r := handler.NewRouter(
		handler.RouterConfig{
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			Limiter:        rateLimiter,
			Gatherer:       prometheus.DefaultGatherer,
			Metrics:        rateMetrics,
		},
		handler.NewExchangeRateHandler(rateUsecase, log),
		handler.NewHealthHandler(db, log),
		log,
	)

	// NBP publishes table C shortly before noon on business days
	c := cron.New()
	if cfg.WarmUp.Enabled {
		warmUp := func() {
			warmCtx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			if err := rateUsecase.WarmUp(warmCtx); err != nil {
				log.Errorf("Warm-up finished with errors: %v", err)
				return
			}
			log.Info("Warm-up finished")
		}

		if _, err := c.AddFunc(cfg.WarmUp.Schedule, warmUp); err != nil {
			log.Fatalf("Error adding warm-up task to schedule: %v", err)
		}
		c.Start()
		log.Infof("Scheduler initialized with %q", cfg.WarmUp.Schedule)

		go warmUp()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("Server starting on port %s...", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s", err)
		}
	}()

	<-ctx.Done()
	log.Info("Got shutdown signal...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Error on server shutdown: %v", err)
	}
	log.Info("Server stopped")

	<-c.Stop().Done()
	log.Info("Scheduler stopped")

	log.Info("Gracefully shut down")
}
