package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cardwatch/internal/models"
)

// GetAll returns every persisted notification state, one row per
// (product, shop) pair that has already fired an alert.
func (r *Repository) GetAll(ctx context.Context) ([]models.NotificationState, error) {
	const opn = "repository.sqlite.GetAll"

	rows, err := r.db.QueryContext(
		ctx,
		"SELECT product_id, shop_id, notified_at, last_price, available FROM notification_states",
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query notification states: %w", opn, err)
	}
	defer rows.Close()

	var states []models.NotificationState
	for rows.Next() {
		var (
			state models.NotificationState
			price sql.NullFloat64
		)
		if err = rows.Scan(&state.ProductID, &state.ShopID, &state.NotifiedAt, &price, &state.Available); err != nil {
			return nil, fmt.Errorf("%s: failed to scan notification state: %w", opn, err)
		}
		if price.Valid {
			state.LastPrice = &price.Float64
		}
		states = append(states, state)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	return states, nil
}

// SetBatch upserts the given notification states in one transaction.
func (r *Repository) SetBatch(ctx context.Context, states []models.NotificationState) error {
	const opn = "repository.sqlite.SetBatch"

	if len(states) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", opn, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after a successful commit only returns sql.ErrTxDone

	stmt, err := tx.PrepareContext(
		ctx,
		`INSERT OR REPLACE INTO notification_states
		(product_id, shop_id, notified_at, last_price, available)
		VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to prepare upsert statement: %w", opn, err)
	}
	defer stmt.Close()

	for _, state := range states {
		var price sql.NullFloat64
		if state.LastPrice != nil {
			price = sql.NullFloat64{Float64: *state.LastPrice, Valid: true}
		}

		_, err = stmt.ExecContext(ctx, state.ProductID, state.ShopID, state.NotifiedAt, price, state.Available)
		if err != nil {
			return fmt.Errorf("%s: failed to upsert state for %s: %w", opn, state.Key(), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", opn, err)
	}

	return nil
}

// DeleteBatch removes the states for the given "productID:shopID" keys,
// re-arming those pairs for future alerts.
func (r *Repository) DeleteBatch(ctx context.Context, keys []string) error {
	const opn = "repository.sqlite.DeleteBatch"

	if len(keys) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", opn, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after a successful commit only returns sql.ErrTxDone

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM notification_states WHERE product_id = ? AND shop_id = ?")
	if err != nil {
		return fmt.Errorf("%s: failed to prepare delete statement: %w", opn, err)
	}
	defer stmt.Close()

	for _, key := range keys {
		productID, shopID, found := strings.Cut(key, ":")
		if !found {
			r.log.WarnContext(ctx, "Skipping malformed state key", "op", opn, "key", key)
			continue
		}

		if _, err = stmt.ExecContext(ctx, productID, shopID); err != nil {
			return fmt.Errorf("%s: failed to delete state for %s: %w", opn, key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", opn, err)
	}

	return nil
}
