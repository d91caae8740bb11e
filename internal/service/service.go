package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/chrisdamba/foodeta/internal/eta"
	"github.com/chrisdamba/foodeta/internal/lifecycle"
	"github.com/chrisdamba/foodeta/internal/models"
	"github.com/chrisdamba/foodeta/internal/repositories"
	"github.com/chrisdamba/foodeta/internal/service/producers"
)

// Tracker is the live-tracking loop: it keeps a refresh schedule for
// every active order, re-estimates each one on its due time, publishes
// the refreshed ETA, and drops orders once they reach a terminal
// status. Lifecycle transitions and one-off estimates are exposed as
// operations for external collaborators.
type Tracker struct {
	config    *models.Config
	orders    repositories.OrderRepository
	estimator *eta.Estimator
	machine   *lifecycle.Machine
	clock     eta.Clock
	output    OutputDestination

	queue   *models.RefreshQueue
	tracked map[string]bool
}

func NewTracker(
	config *models.Config,
	orders repositories.OrderRepository,
	estimator *eta.Estimator,
	machine *lifecycle.Machine,
	clock eta.Clock,
	output OutputDestination,
) *Tracker {
	return &Tracker{
		config:    config,
		orders:    orders,
		estimator: estimator,
		machine:   machine,
		clock:     clock,
		output:    output,
		queue:     models.NewRefreshQueue(),
		tracked:   make(map[string]bool),
	}
}

// Estimate computes a one-off arrival estimate.
func (t *Tracker) Estimate(ctx context.Context, input models.EstimationInput) (models.EstimationResult, error) {
	return t.estimator.Estimate(ctx, input)
}

// Advance applies a lifecycle transition and, if the order left the
// active set, stops tracking it on the next refresh pass.
func (t *Tracker) Advance(ctx context.Context, orderID, targetStatus string) (*models.Order, error) {
	return t.machine.Advance(ctx, orderID, targetStatus)
}

// Run drives the refresh schedule until the context is cancelled. New
// active orders are picked up on every rescan interval.
func (t *Tracker) Run(ctx context.Context) error {
	if err := t.rescanActiveOrders(ctx); err != nil {
		return fmt.Errorf("initial order scan: %w", err)
	}
	log.Printf("Tracking %d active orders", t.queue.Len())

	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	rescan := time.NewTicker(t.config.RefreshInterval)
	defer rescan.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-rescan.C:
			if err := t.rescanActiveOrders(ctx); err != nil {
				log.Printf("Order rescan failed: %v", err)
			}
		case <-tick.C:
			for _, event := range t.queue.DequeueDue(t.clock.Now()) {
				t.refresh(ctx, event.OrderID)
			}
		}
	}
}

func (t *Tracker) rescanActiveOrders(ctx context.Context) error {
	orders, err := t.orders.ListActive(ctx)
	if err != nil {
		return err
	}
	now := t.clock.Now()
	for _, order := range orders {
		if t.tracked[order.ID] {
			continue
		}
		t.tracked[order.ID] = true
		t.queue.Enqueue(&models.RefreshEvent{Time: now, OrderID: order.ID})
	}
	return nil
}

func (t *Tracker) refresh(ctx context.Context, orderID string) {
	order, err := t.orders.GetByID(ctx, orderID)
	if err != nil {
		log.Printf("Refresh lookup failed for order %s: %v", orderID, err)
		// keep the order scheduled; transient store errors should not
		// silently end tracking
		t.queue.Enqueue(&models.RefreshEvent{Time: t.clock.Now().Add(t.config.RefreshInterval), OrderID: orderID})
		return
	}

	if models.IsTerminalStatus(order.Status) {
		delete(t.tracked, orderID)
		return
	}

	result, err := t.estimator.Estimate(ctx, models.EstimationInput{
		RunnerID:  order.RunnerID,
		OrderID:   order.ID,
		IsExpress: order.IsExpress,
	})
	if err != nil {
		log.Printf("Estimation failed for order %s: %v", orderID, err)
	} else {
		t.publishEtaRefreshed(order, result)
	}

	t.queue.Enqueue(&models.RefreshEvent{Time: t.clock.Now().Add(t.config.RefreshInterval), OrderID: orderID})
}

func (t *Tracker) publishEtaRefreshed(order *models.Order, result models.EstimationResult) {
	event := models.EtaRefreshedEvent{
		BaseEvent:        models.NewBaseEvent("EtaRefreshed", t.clock.Now()),
		EstimatedMinutes: result.EstimatedMinutes,
		EstimatedTime:    result.EstimatedTime.Unix(),
		Confidence:       result.Confidence,
		BaseTime:         result.Factors.BaseTime,
		QueueDelay:       result.Factors.QueueDelay,
		TrafficDelay:     result.Factors.TrafficDelay,
		DistanceDelay:    result.Factors.DistanceDelay,
		ExpressBonus:     result.Factors.ExpressBonus,
		RunnerAdjustment: result.Factors.RunnerAdjustment,
	}
	event.OrderID = order.ID
	event.CustomerID = order.CustomerID
	event.RunnerID = order.RunnerID

	msg, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal ETA event for order %s: %v", order.ID, err)
		return
	}
	if err := t.output.WriteMessage(models.TopicEtaRefreshed, msg); err != nil {
		log.Printf("Failed to publish ETA event for order %s: %v", order.ID, err)
	}
}

// NewOutputDestination builds the configured event sink.
func NewOutputDestination(config *models.Config) (OutputDestination, error) {
	if config.KafkaEnabled {
		return producers.NewSaramaProducer(config)
	}
	switch config.OutputDestination {
	case "", "console":
		return &ConsoleOutput{}, nil
	case "json":
		return NewJSONOutput(config.OutputPath, config.OutputFolder), nil
	case "parquet":
		return NewParquetOutput(config)
	default:
		return nil, fmt.Errorf("unsupported output destination: %s", config.OutputDestination)
	}
}
