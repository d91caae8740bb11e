package eta

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/chrisdamba/foodeta/internal/models"
)

const (
	// maxPerformanceWindow caps how much history one runner contributes.
	maxPerformanceWindow = 20
	// outlier bounds for a single delivery duration, in minutes. Values
	// outside (0, 60) are clock skew or abandoned orders, not signal.
	minSaneDeliveryMinutes = 0.0
	maxSaneDeliveryMinutes = 60.0
)

type performanceEntry struct {
	perf      *models.RunnerPerformance
	fetchedAt time.Time
}

// PerformanceTracker computes a rolling average delivery duration per
// runner from recent completed deliveries, behind a read-through TTL
// cache. Runner stats drift slowly, so a few minutes of staleness is
// acceptable.
type PerformanceTracker struct {
	store  OrderStore
	clock  Clock
	ttl    time.Duration
	window int

	mu    sync.Mutex
	cache map[string]performanceEntry
}

func NewPerformanceTracker(store OrderStore, clock Clock, ttl time.Duration, window int) *PerformanceTracker {
	if window <= 0 || window > maxPerformanceWindow {
		window = maxPerformanceWindow
	}
	return &PerformanceTracker{
		store:  store,
		clock:  clock,
		ttl:    ttl,
		window: window,
		cache:  make(map[string]performanceEntry),
	}
}

// Get returns the runner's rolling performance, or nil when the runner
// has no usable history. Callers must treat nil as "no adjustment",
// never as a zero-minute average. Store failures also resolve to nil.
func (t *PerformanceTracker) Get(ctx context.Context, runnerID string) *models.RunnerPerformance {
	if runnerID == "" {
		return nil
	}

	now := t.clock.Now()

	t.mu.Lock()
	if entry, ok := t.cache[runnerID]; ok && now.Sub(entry.fetchedAt) < t.ttl {
		t.mu.Unlock()
		return entry.perf
	}
	t.mu.Unlock()

	perf := t.compute(ctx, runnerID)

	t.mu.Lock()
	t.cache[runnerID] = performanceEntry{perf: perf, fetchedAt: now}
	t.mu.Unlock()

	return perf
}

// Invalidate drops the cached entry for a runner, forcing the next Get
// to recompute. Used after a delivery completes.
func (t *PerformanceTracker) Invalidate(runnerID string) {
	t.mu.Lock()
	delete(t.cache, runnerID)
	t.mu.Unlock()
}

func (t *PerformanceTracker) compute(ctx context.Context, runnerID string) *models.RunnerPerformance {
	records, err := t.store.ListRecentDelivered(ctx, runnerID, t.window)
	if err != nil {
		log.Printf("delivery history lookup failed for runner %s: %v", runnerID, err)
		return nil
	}

	var total float64
	var samples int
	for _, rec := range records {
		minutes := rec.DeliveredAt.Sub(rec.CreatedAt).Minutes()
		if minutes <= minSaneDeliveryMinutes || minutes >= maxSaneDeliveryMinutes {
			continue
		}
		total += minutes
		samples++
	}

	if samples == 0 {
		return nil
	}

	return &models.RunnerPerformance{
		RunnerID:           runnerID,
		AvgDeliveryMinutes: total / float64(samples),
		SampleSize:         samples,
	}
}
