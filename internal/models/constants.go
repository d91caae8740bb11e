package models

const (
	OrderStatusPlaced         = "placed"
	OrderStatusPacked         = "packed"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"

	TrafficLow    = "low"
	TrafficMedium = "medium"
	TrafficHigh   = "high"

	TimeOfDayMorning   = "morning"
	TimeOfDayAfternoon = "afternoon"
	TimeOfDayEvening   = "evening"
	TimeOfDayNight     = "night"

	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"

	TopicStatusChanged = "order_status_events"
	TopicEtaRefreshed  = "eta_refresh_events"
)

// OrderStatuses lists the lifecycle states in forward order; cancelled
// sits outside the sequence and is reachable from any non-terminal state.
var OrderStatuses = []string{
	OrderStatusPlaced,
	OrderStatusPacked,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

func IsTerminalStatus(status string) bool {
	return status == OrderStatusDelivered || status == OrderStatusCancelled
}
