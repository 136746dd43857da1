package postgres

import (
	"context"
	"fmt"
	"time"

	"nbp-rates-service/pkg/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

const connectAttempts = 5

func InitDBPool(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(BuildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	poolConfig.MaxConnIdleTime = 1 * time.Minute
	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	var pool *pgxpool.Pool
	attempt := 0
	backoff := retry.WithMaxRetries(connectAttempts-1, retry.NewFibonacci(time.Second))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		logger.Infof("DB connection attempt #%d", attempt)

		attemptCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		p, err := pgxpool.NewWithConfig(attemptCtx, poolConfig)
		if err != nil {
			logger.Warnf("failed to create DB pool on attempt #%d: %v", attempt, err)
			return retry.RetryableError(err)
		}
		if err := p.Ping(attemptCtx); err != nil {
			logger.Warnf("failed to ping DB on attempt #%d: %v", attempt, err)
			p.Close()
			return retry.RetryableError(err)
		}

		pool = p
		return nil
	})
	if err != nil {
		logger.Errorf("Failed to create and ping DB pool after %d attempts: %v", attempt, err)
		return nil, fmt.Errorf("failed to create and ping DB pool after %d attempts: %w", attempt, err)
	}

	logger.Infof("successfully connected to DB on attempt #%d", attempt)
	return pool, nil
}
