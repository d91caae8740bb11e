package eta

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chrisdamba/foodeta/internal/models"
)

func deliveryAfter(placed time.Time, minutes float64) models.DeliveryRecord {
	return models.DeliveryRecord{
		CreatedAt:   placed,
		DeliveredAt: placed.Add(time.Duration(minutes * float64(time.Minute))),
	}
}

func TestPerformanceRollingAverage(t *testing.T) {
	now := at(12, 0)
	placed := now.Add(-2 * time.Hour)
	orders := &fakeOrderStore{history: map[string][]models.DeliveryRecord{
		"runner-1": {
			deliveryAfter(placed, 20),
			deliveryAfter(placed, 30),
			deliveryAfter(placed, 40),
		},
	}}
	tracker := NewPerformanceTracker(orders, &fakeClock{now: now}, time.Minute, 20)

	perf := tracker.Get(context.Background(), "runner-1")
	if perf == nil {
		t.Fatal("expected performance, got nil")
	}
	if perf.AvgDeliveryMinutes != 30 {
		t.Errorf("avg = %v, want 30", perf.AvgDeliveryMinutes)
	}
	if perf.SampleSize != 3 {
		t.Errorf("sample size = %d, want 3", perf.SampleSize)
	}
}

func TestPerformanceFiltersOutliers(t *testing.T) {
	now := at(12, 0)
	placed := now.Add(-24 * time.Hour)
	orders := &fakeOrderStore{history: map[string][]models.DeliveryRecord{
		"runner-1": {
			deliveryAfter(placed, 25),
			deliveryAfter(placed, 0),   // clock skew
			deliveryAfter(placed, -10), // clock skew
			deliveryAfter(placed, 60),  // abandoned
			deliveryAfter(placed, 95),  // abandoned
		},
	}}
	tracker := NewPerformanceTracker(orders, &fakeClock{now: now}, time.Minute, 20)

	perf := tracker.Get(context.Background(), "runner-1")
	if perf == nil {
		t.Fatal("expected performance, got nil")
	}
	if perf.SampleSize != 1 {
		t.Errorf("sample size = %d, want 1 after outlier filtering", perf.SampleSize)
	}
	if perf.AvgDeliveryMinutes != 25 {
		t.Errorf("avg = %v, want 25", perf.AvgDeliveryMinutes)
	}
}

func TestPerformanceNilWithoutSamples(t *testing.T) {
	now := at(12, 0)
	placed := now.Add(-24 * time.Hour)

	tests := []struct {
		name   string
		orders *fakeOrderStore
	}{
		{"no history", &fakeOrderStore{}},
		{"only outliers", &fakeOrderStore{history: map[string][]models.DeliveryRecord{
			"runner-1": {deliveryAfter(placed, 0), deliveryAfter(placed, 120)},
		}}},
		{"store failure", &fakeOrderStore{historyErr: errors.New("down")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewPerformanceTracker(tt.orders, &fakeClock{now: now}, time.Minute, 20)
			if perf := tracker.Get(context.Background(), "runner-1"); perf != nil {
				t.Errorf("expected nil performance, got %+v", perf)
			}
		})
	}
}

func TestPerformanceCacheTTL(t *testing.T) {
	now := at(12, 0)
	placed := now.Add(-2 * time.Hour)
	orders := &fakeOrderStore{history: map[string][]models.DeliveryRecord{
		"runner-1": {deliveryAfter(placed, 20)},
	}}
	clock := &fakeClock{now: now}
	tracker := NewPerformanceTracker(orders, clock, 5*time.Minute, 20)

	tracker.Get(context.Background(), "runner-1")
	tracker.Get(context.Background(), "runner-1")
	if orders.fetches != 1 {
		t.Errorf("fetches within TTL = %d, want 1", orders.fetches)
	}

	clock.now = now.Add(6 * time.Minute)
	tracker.Get(context.Background(), "runner-1")
	if orders.fetches != 2 {
		t.Errorf("fetches after TTL = %d, want 2", orders.fetches)
	}
}

func TestPerformanceInvalidate(t *testing.T) {
	now := at(12, 0)
	placed := now.Add(-2 * time.Hour)
	orders := &fakeOrderStore{history: map[string][]models.DeliveryRecord{
		"runner-1": {deliveryAfter(placed, 20)},
	}}
	tracker := NewPerformanceTracker(orders, &fakeClock{now: now}, time.Hour, 20)

	tracker.Get(context.Background(), "runner-1")
	tracker.Invalidate("runner-1")
	tracker.Get(context.Background(), "runner-1")
	if orders.fetches != 2 {
		t.Errorf("fetches after invalidate = %d, want 2", orders.fetches)
	}
}

func TestPerformanceWindowCapped(t *testing.T) {
	now := at(12, 0)
	orders := &fakeOrderStore{}
	tracker := NewPerformanceTracker(orders, &fakeClock{now: now}, time.Minute, 500)

	if tracker.window != maxPerformanceWindow {
		t.Errorf("window = %d, want capped at %d", tracker.window, maxPerformanceWindow)
	}
}
