package models

import "time"

// EstimationInput carries the signals for one ETA computation. Any nil
// or empty field is resolved through the signal providers at estimation
// time; TimeOfDay is always derived from the clock and never stored.
type EstimationInput struct {
	RunnerID        string   `json:"runner_id,omitempty"`
	OrderID         string   `json:"order_id,omitempty"`
	IsExpress       bool     `json:"is_express"`
	TimeOfDay       string   `json:"time_of_day,omitempty"`
	OrderQueueDepth *int     `json:"order_queue_depth,omitempty"`
	DistanceKm      *float64 `json:"distance_km,omitempty"`
	TrafficLevel    string   `json:"traffic_level,omitempty"`
}

// EstimationFactors is the per-component breakdown of an estimate, in
// signed minutes. Values are pre-floor: the floor applies to the final
// total only, so the parts stay honest for debugging.
type EstimationFactors struct {
	BaseTime         float64 `json:"base_time"`
	QueueDelay       float64 `json:"queue_delay"`
	TrafficDelay     float64 `json:"traffic_delay"`
	DistanceDelay    float64 `json:"distance_delay"`
	ExpressBonus     float64 `json:"express_bonus"`
	RunnerAdjustment float64 `json:"runner_adjustment"`
}

type EstimationResult struct {
	EstimatedMinutes int               `json:"estimated_minutes"`
	EstimatedTime    time.Time         `json:"estimated_time"`
	Confidence       string            `json:"confidence"`
	Factors          EstimationFactors `json:"factors"`
}

// Projection is one tick of a live countdown toward an EstimatedTime.
type Projection struct {
	RemainingSeconds int  `json:"remaining_seconds"`
	Overdue          bool `json:"overdue"`
}
