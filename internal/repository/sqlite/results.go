package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"cardwatch/internal/models"
)

// UpsertHourlyBatch writes a batch of scan results in one transaction.
// Rows are keyed by (product, shop, hour bucket), so a shop polled every
// few minutes still produces at most one stored row per hour; a later
// observation in the same bucket replaces the earlier one.
func (r *Repository) UpsertHourlyBatch(ctx context.Context, results []models.ProductResult) error {
	const opn = "repository.sqlite.UpsertHourlyBatch"

	if len(results) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", opn, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after a successful commit only returns sql.ErrTxDone

	stmt, err := tx.PrepareContext(
		ctx,
		`INSERT OR REPLACE INTO product_results
		(product_id, shop_id, hour_bucket, url, price, available, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to prepare upsert statement: %w", opn, err)
	}
	defer stmt.Close()

	for _, res := range results {
		var price sql.NullFloat64
		if res.Price != nil {
			price = sql.NullFloat64{Float64: *res.Price, Valid: true}
		}

		_, err = stmt.ExecContext(
			ctx,
			res.ProductID, res.ShopID, res.HourBucket(),
			res.URL, price, res.Available, res.CheckedAt,
		)
		if err != nil {
			return fmt.Errorf("%s: failed to upsert result for %s: %w", opn, res.Key(), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", opn, err)
	}

	r.log.DebugContext(ctx, "Result batch persisted", "op", opn, "count", len(results))

	return nil
}

// GetResults returns the stored hourly history for one (product, shop)
// pair, newest first.
func (r *Repository) GetResults(ctx context.Context, productID, shopID string) ([]models.ProductResult, error) {
	const opn = "repository.sqlite.GetResults"

	rows, err := r.db.QueryContext(
		ctx,
		`SELECT product_id, shop_id, url, price, available, checked_at
		FROM product_results
		WHERE product_id = ? AND shop_id = ?
		ORDER BY hour_bucket DESC`,
		productID, shopID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query results: %w", opn, err)
	}
	defer rows.Close()

	var results []models.ProductResult
	for rows.Next() {
		var (
			res   models.ProductResult
			price sql.NullFloat64
		)
		if err = rows.Scan(&res.ProductID, &res.ShopID, &res.URL, &price, &res.Available, &res.CheckedAt); err != nil {
			return nil, fmt.Errorf("%s: failed to scan result: %w", opn, err)
		}
		if price.Valid {
			res.Price = &price.Float64
		}
		results = append(results, res)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	return results, nil
}
