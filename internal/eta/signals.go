package eta

import (
	"context"
	"log"
	"time"

	"github.com/chrisdamba/foodeta/internal/models"
)

// DefaultDistanceKm is assumed when no routing estimate exists for an
// order. Short on purpose: unknown distances are overwhelmingly
// nearby orders placed before routing ran.
const DefaultDistanceKm = 0.5

// OrderStore is the slice of the order repository the estimation core
// reads from.
type OrderStore interface {
	CountActiveForRunner(ctx context.Context, runnerID string) (int, error)
	ListRecentDelivered(ctx context.Context, runnerID string, limit int) ([]models.DeliveryRecord, error)
}

// DistanceStore resolves the routing distance recorded for an order.
type DistanceStore interface {
	EstimatedDistanceKm(ctx context.Context, orderID string) (float64, error)
}

// SignalProvider reads the live inputs an estimate is built from. All
// reads degrade to documented defaults instead of returning errors, so
// the estimator always has something to work with.
type SignalProvider struct {
	orders    OrderStore
	distances DistanceStore
}

func NewSignalProvider(orders OrderStore, distances DistanceStore) *SignalProvider {
	return &SignalProvider{orders: orders, distances: distances}
}

// QueueDepth counts the runner's active (packed or out_for_delivery)
// orders. No runner, or a failed read, counts as an empty queue.
func (p *SignalProvider) QueueDepth(ctx context.Context, runnerID string) int {
	if runnerID == "" || p.orders == nil {
		return 0
	}
	depth, err := p.orders.CountActiveForRunner(ctx, runnerID)
	if err != nil {
		log.Printf("queue depth lookup failed for runner %s: %v", runnerID, err)
		return 0
	}
	if depth < 0 {
		return 0
	}
	return depth
}

// DistanceKm resolves the order's routing distance, falling back to
// DefaultDistanceKm when the order is unknown or the read fails.
func (p *SignalProvider) DistanceKm(ctx context.Context, orderID string) float64 {
	if orderID == "" || p.distances == nil {
		return DefaultDistanceKm
	}
	km, err := p.distances.EstimatedDistanceKm(ctx, orderID)
	if err != nil || km <= 0 {
		return DefaultDistanceKm
	}
	return km
}

// TimeOfDayAt buckets a wall-clock instant: 6-12 morning, 12-17
// afternoon, 17-21 evening, everything else night.
func TimeOfDayAt(t time.Time) string {
	hour := t.Hour()
	switch {
	case hour >= 6 && hour < 12:
		return models.TimeOfDayMorning
	case hour >= 12 && hour < 17:
		return models.TimeOfDayAfternoon
	case hour >= 17 && hour < 21:
		return models.TimeOfDayEvening
	default:
		return models.TimeOfDayNight
	}
}

// TrafficLevelAt derives the traffic category from the hour of day:
// commute peaks 8-10 and 17-20 are high, the 10-17 daytime stretch is
// medium, the rest is low.
func TrafficLevelAt(t time.Time) string {
	hour := t.Hour()
	switch {
	case (hour >= 8 && hour < 10) || (hour >= 17 && hour < 20):
		return models.TrafficHigh
	case hour >= 10 && hour < 17:
		return models.TrafficMedium
	default:
		return models.TrafficLow
	}
}
