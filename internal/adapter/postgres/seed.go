package postgres

import (
	"context"
	"fmt"

	"nbp-rates-service/internal/entity"

	"github.com/jackc/pgx/v5"
	"go.uber.org/multierr"
	"golang.org/x/text/currency"
)

// SeedReport summarizes one run of SeedCurrencyCodes.
type SeedReport struct {
	Inserted int64
	// Skipped holds codes rejected by validation; they are not stored.
	Skipped []string
	// Unrecognized holds stored codes missing from the CLDR currency table
	// shipped with golang.org/x/text, usually currencies newer than that table.
	Unrecognized []string
}

// SeedCurrencyCodes fills an empty currency registry with codes in a single
// transaction. A registry that already holds rows is left untouched.
func (r *PostgresRepo) SeedCurrencyCodes(ctx context.Context, codes []string) (SeedReport, error) {
	var report SeedReport

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("currency_codes").ToSql()
	if err != nil {
		return SeedReport{}, fmt.Errorf("build count: %w", err)
	}

	var existing int64
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&existing); err != nil {
		r.logger.WithError(err).Error("Failed to count currency codes")
		return SeedReport{}, fmt.Errorf("count currency codes: %w", err)
	}
	if existing > 0 {
		r.logger.Infof("Currency registry already holds %d codes, skipping seed", existing)
		return report, nil
	}

	r.logger.Infof("Seeding %d currency codes", len(codes))

	batch := &pgx.Batch{}
	for _, code := range codes {
		c, err := entity.NewCurrencyCode(code)
		if err != nil {
			r.logger.WithError(err).WithField("iso_code", code).Warn("Skipping invalid currency code")
			report.Skipped = append(report.Skipped, code)
			continue
		}
		if _, err := currency.ParseISO(code); err != nil {
			report.Unrecognized = append(report.Unrecognized, code)
		}

		query, args, err := psql.Insert("currency_codes").
			Columns("id", "iso_code").
			Values(c.ID, c.IsoCode).
			Suffix("ON CONFLICT (iso_code) DO NOTHING").
			ToSql()
		if err != nil {
			return SeedReport{}, fmt.Errorf("build insert for %s: %w", code, err)
		}
		batch.Queue(query, args...)
	}

	if batch.Len() == 0 {
		return report, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.WithError(err).Error("Failed to begin transaction for currency seed")
		return SeedReport{}, fmt.Errorf("begin tx: %w", err)
	}

	br := tx.SendBatch(ctx, batch)

	var batchErrs error
	var inserted int64
	for i := 0; i < batch.Len(); i++ {
		ct, err := br.Exec()
		if err != nil {
			batchErrs = multierr.Append(batchErrs, err)
			r.logger.WithError(err).Errorf("Failed batch exec for currency code %d", i)
		} else {
			inserted += ct.RowsAffected()
		}
	}

	if err := br.Close(); err != nil {
		batchErrs = multierr.Append(batchErrs, err)
		r.logger.WithError(err).Error("Failed to close batch results for currency seed")
	}

	if batchErrs != nil {
		r.rollback(ctx, tx)
		return SeedReport{}, fmt.Errorf("batch exec/close errors for currency seed: %w", batchErrs)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.WithError(err).Error("Failed to commit currency seed tx")
		return SeedReport{}, fmt.Errorf("commit tx: %w", err)
	}

	report.Inserted = inserted
	if len(report.Unrecognized) > 0 {
		r.logger.WithField("iso_codes", report.Unrecognized).Warn("Seeded currency codes missing from the CLDR currency table")
	}
	r.logger.Infof("Successfully seeded %d currency codes", inserted)
	return report, nil
}
