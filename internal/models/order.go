package models

import "time"

type Order struct {
	ID               string     `json:"id"`
	CustomerID       string     `json:"customer_id"`
	RunnerID         string     `json:"runner_id"` // empty means unassigned
	IsExpress        bool       `json:"is_express"`
	DistanceKm       float64    `json:"distance_km"`
	TotalAmount      float64    `json:"total_amount"`
	Status           string     `json:"status"`
	Version          int64      `json:"version"`
	PlacedAt         time.Time  `json:"placed_at"`
	PackedAt         *time.Time `json:"packed_at,omitempty"`
	OutForDeliveryAt *time.Time `json:"out_for_delivery_at,omitempty"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
}

// DeliveryRecord is the slice of a completed order the performance
// tracker needs: when it was placed and when it arrived.
type DeliveryRecord struct {
	CreatedAt   time.Time `json:"created_at"`
	DeliveredAt time.Time `json:"delivered_at"`
}

type Runner struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinDate time.Time `json:"join_date"`
	Rating   float64   `json:"rating"`
	Status   string    `json:"status"`
}

// RunnerPerformance is the rolling view of a runner's recent completed
// deliveries. A nil RunnerPerformance means "no usable history" and the
// estimator must not apply any adjustment from it.
type RunnerPerformance struct {
	RunnerID           string  `json:"runner_id"`
	AvgDeliveryMinutes float64 `json:"avg_delivery_minutes"`
	SampleSize         int     `json:"sample_size"`
}
