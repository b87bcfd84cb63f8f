package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cardwatch/internal/models"
	"cardwatch/internal/repository"
)

// Tracker remembers which (product, shop) pairs already fired an alert, so
// a qualifying offer that persists across polls alerts exactly once. A pair
// is re-armed only when the premise of the last alert stops holding: the
// product went out of stock, or the price rose above the alerted one.
//
// The map is guarded by a mutex because static-cycle workers observe
// results concurrently; keys are partitioned by (product, shop), so two
// workers never fight over the same entry within a cycle.
type Tracker struct {
	log  *slog.Logger
	repo repository.NotificationStateRepository

	mu            sync.Mutex
	states        map[string]models.NotificationState
	pendingSet    map[string]models.NotificationState
	pendingDelete map[string]struct{}
}

// New creates a tracker. The repository may be nil, in which case state
// lives only for the lifetime of the process.
func New(log *slog.Logger, repo repository.NotificationStateRepository) *Tracker {
	return &Tracker{
		log:           log,
		repo:          repo,
		states:        make(map[string]models.NotificationState),
		pendingSet:    make(map[string]models.NotificationState),
		pendingDelete: make(map[string]struct{}),
	}
}

// Load seeds the in-memory map from the repository, so a restart does not
// re-alert every pair that already fired.
func (t *Tracker) Load(ctx context.Context) error {
	const opn = "tracker.Load"

	if t.repo == nil {
		return nil
	}

	states, err := t.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to load notification states: %w", opn, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.states = make(map[string]models.NotificationState, len(states))
	for _, state := range states {
		t.states[state.Key()] = state
	}

	t.log.InfoContext(ctx, "Notification states loaded", "op", opn, "count", len(states))

	return nil
}

// ShouldNotify reports whether the pair is armed, i.e. no alert has fired
// since the last reset.
func (t *Tracker) ShouldNotify(productID, shopID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, fired := t.states[models.StateKey(productID, shopID)]

	return !fired
}

// MarkNotified records that an alert went out for the result, muting the
// pair until a reset condition re-arms it.
func (t *Tracker) MarkNotified(result models.ProductResult) {
	state := models.NotificationState{
		ProductID:  result.ProductID,
		ShopID:     result.ShopID,
		NotifiedAt: result.CheckedAt,
		LastPrice:  result.Price,
		Available:  result.Available,
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := state.Key()
	t.states[key] = state
	t.pendingSet[key] = state
	delete(t.pendingDelete, key)

	t.log.Debug("Pair marked as notified", "key", key, "price", result.Price)
}

// Observe evaluates a fresh result against the tracked state. A fired pair
// is re-armed when the product became unavailable or its price rose above
// the alerted price; anything else, including a further price drop, leaves
// the state untouched. Unknown pairs are ignored.
func (t *Tracker) Observe(result models.ProductResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := result.Key()
	state, fired := t.states[key]
	if !fired {
		return
	}

	becameUnavailable := state.Available && !result.Available
	priceRose := state.LastPrice != nil && result.Price != nil && *result.Price > *state.LastPrice

	if !becameUnavailable && !priceRose {
		return
	}

	delete(t.states, key)
	delete(t.pendingSet, key)
	t.pendingDelete[key] = struct{}{}

	t.log.Debug("Pair re-armed", "key", key, "became_unavailable", becameUnavailable, "price_rose", priceRose)
}

// Flush persists the buffered state changes in two batches. Pending
// changes survive a failed flush so the next run can retry them.
func (t *Tracker) Flush(ctx context.Context) error {
	const opn = "tracker.Flush"

	if t.repo == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.pendingSet) == 0 && len(t.pendingDelete) == 0 {
		return nil
	}

	var errs []error

	if len(t.pendingSet) > 0 {
		states := make([]models.NotificationState, 0, len(t.pendingSet))
		for _, state := range t.pendingSet {
			states = append(states, state)
		}

		if err := t.repo.SetBatch(ctx, states); err != nil {
			errs = append(errs, fmt.Errorf("%s: failed to persist states: %w", opn, err))
		} else {
			t.pendingSet = make(map[string]models.NotificationState)
		}
	}

	if len(t.pendingDelete) > 0 {
		keys := make([]string, 0, len(t.pendingDelete))
		for key := range t.pendingDelete {
			keys = append(keys, key)
		}

		if err := t.repo.DeleteBatch(ctx, keys); err != nil {
			errs = append(errs, fmt.Errorf("%s: failed to delete states: %w", opn, err))
		} else {
			t.pendingDelete = make(map[string]struct{})
		}
	}

	return errors.Join(errs...)
}
