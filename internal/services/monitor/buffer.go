package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cardwatch/internal/models"
	"cardwatch/internal/repository"
)

// Buffer collects scan results during a cycle for one batched write at the
// end. Results are deduplicated by (product, shop, hour bucket) already in
// memory, so a shop polled every few minutes costs one stored row per hour.
type Buffer struct {
	log  *slog.Logger
	repo repository.ResultRepository

	mu      sync.Mutex
	results map[string]models.ProductResult
}

func NewBuffer(log *slog.Logger, repo repository.ResultRepository) *Buffer {
	return &Buffer{
		log:     log,
		repo:    repo,
		results: make(map[string]models.ProductResult),
	}
}

// Add buffers one result. Within the same hour bucket the later
// observation wins.
func (b *Buffer) Add(result models.ProductResult) {
	key := bufferKey(result)

	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.results[key]; ok && existing.CheckedAt.After(result.CheckedAt) {
		return
	}
	b.results[key] = result
}

// Len reports the number of buffered rows.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.results)
}

// Flush writes the buffered results in one batch. The buffer is cleared
// only on success; a failed batch stays buffered for the next attempt and
// the error escalates to the caller.
func (b *Buffer) Flush(ctx context.Context) error {
	const opn = "monitor.Buffer.Flush"

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.results) == 0 {
		return nil
	}

	batch := make([]models.ProductResult, 0, len(b.results))
	for _, result := range b.results {
		batch = append(batch, result)
	}

	if err := b.repo.UpsertHourlyBatch(ctx, batch); err != nil {
		return fmt.Errorf("%s: failed to persist %d results: %w", opn, len(batch), err)
	}

	b.log.InfoContext(ctx, "Result buffer flushed", "op", opn, "count", len(batch))
	b.results = make(map[string]models.ProductResult)

	return nil
}

func bufferKey(result models.ProductResult) string {
	return fmt.Sprintf("%s:%s", result.Key(), result.HourBucket().Format(time.RFC3339))
}
