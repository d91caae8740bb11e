package eta

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/chrisdamba/foodeta/internal/models"
)

const (
	baseTimeStandardMinutes = 10.0
	baseTimeExpressMinutes  = 8.0
	floorStandardMinutes    = 10
	floorExpressMinutes     = 8

	queueDelayPerOrder    = 4.0
	trafficDelayMedium    = 2.0
	trafficDelayHigh      = 5.0
	eveningRushExtraDelay = 3.0
	distanceDelayPerKm    = 2.0
	expressBonusMinutes   = -2.0

	// runnerDamping scales how much of a runner's historical speed-up is
	// credited to the estimate. Full credit would make one fast week
	// overpromise every delivery after it.
	runnerDamping = 0.3
)

// ValidationError reports structurally invalid estimation input.
// Missing optional inputs never produce one; only values that cannot
// mean anything, like a negative distance, fail fast.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Estimator combines live signals, runner history and time-of-day
// heuristics into a floor-clamped arrival estimate with a confidence
// tier and a per-factor breakdown.
type Estimator struct {
	signals     *SignalProvider
	performance *PerformanceTracker
	clock       Clock
}

func NewEstimator(signals *SignalProvider, performance *PerformanceTracker, clock Clock) *Estimator {
	return &Estimator{signals: signals, performance: performance, clock: clock}
}

// Estimate resolves any unset input through the signal providers and
// produces an EstimationResult. Provider failures degrade to defaults;
// the only error path is structurally invalid input.
func (e *Estimator) Estimate(ctx context.Context, input models.EstimationInput) (models.EstimationResult, error) {
	if input.DistanceKm != nil && *input.DistanceKm < 0 {
		return models.EstimationResult{}, &ValidationError{Field: "distance_km", Reason: "must be non-negative"}
	}
	if input.OrderQueueDepth != nil && *input.OrderQueueDepth < 0 {
		return models.EstimationResult{}, &ValidationError{Field: "order_queue_depth", Reason: "must be non-negative"}
	}

	now := e.clock.Now()

	timeOfDay := input.TimeOfDay
	if timeOfDay == "" {
		timeOfDay = TimeOfDayAt(now)
	}

	trafficLevel := input.TrafficLevel
	if trafficLevel == "" {
		trafficLevel = TrafficLevelAt(now)
	}

	// queue depth and distance are independent reads; fan out and join
	var queueDepth int
	var distanceKm float64
	var wg sync.WaitGroup

	if input.OrderQueueDepth != nil {
		queueDepth = *input.OrderQueueDepth
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queueDepth = e.signals.QueueDepth(ctx, input.RunnerID)
		}()
	}

	if input.DistanceKm != nil {
		distanceKm = *input.DistanceKm
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			distanceKm = e.signals.DistanceKm(ctx, input.OrderID)
		}()
	}
	wg.Wait()

	baseTime := baseTimeStandardMinutes
	floor := floorStandardMinutes
	if input.IsExpress {
		baseTime = baseTimeExpressMinutes
		floor = floorExpressMinutes
	}

	factors := models.EstimationFactors{
		BaseTime:      baseTime,
		QueueDelay:    float64(queueDepth) * queueDelayPerOrder,
		DistanceDelay: math.Round(distanceKm * distanceDelayPerKm),
	}

	switch trafficLevel {
	case models.TrafficMedium:
		factors.TrafficDelay = trafficDelayMedium
	case models.TrafficHigh:
		factors.TrafficDelay = trafficDelayHigh
		if timeOfDay == models.TimeOfDayEvening {
			factors.TrafficDelay += eveningRushExtraDelay
		}
	}

	if input.IsExpress {
		factors.ExpressBonus = expressBonusMinutes
	}

	if input.RunnerID != "" {
		if perf := e.performance.Get(ctx, input.RunnerID); perf != nil && perf.AvgDeliveryMinutes < baseTime {
			// damped speed-up only; history never slows an estimate down
			factors.RunnerAdjustment = -(baseTime - perf.AvgDeliveryMinutes) * runnerDamping
		}
	}

	raw := factors.BaseTime + factors.QueueDelay + factors.TrafficDelay +
		factors.DistanceDelay + factors.ExpressBonus + factors.RunnerAdjustment
	total := int(math.Round(raw))
	if total < floor {
		total = floor
	}

	return models.EstimationResult{
		EstimatedMinutes: total,
		EstimatedTime:    now.Add(time.Duration(total) * time.Minute),
		Confidence:       confidenceTier(input.RunnerID, queueDepth, trafficLevel),
		Factors:          factors,
	}, nil
}

// confidenceTier scores the reliability of the inputs: an assigned
// runner is worth two points, a short queue and light traffic one each.
func confidenceTier(runnerID string, queueDepth int, trafficLevel string) string {
	score := 0
	if runnerID != "" {
		score += 2
	}
	if queueDepth <= 1 {
		score++
	}
	if trafficLevel == models.TrafficLow {
		score++
	}

	switch {
	case score >= 3:
		return models.ConfidenceHigh
	case score >= 2:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
