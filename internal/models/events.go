package models

import (
	"fmt"
	"log"
	"time"

	"github.com/xitongsys/parquet-go/schema"
)

// BaseEvent is the common structure for all events
type BaseEvent struct {
	Timestamp  int64  `json:"timestamp" parquet:"name=timestamp,type=INT64"`
	EventType  string `json:"eventType" parquet:"name=eventType,type=BYTE_ARRAY,convertedtype=UTF8"`
	OrderID    string `json:"orderId" parquet:"name=orderId,type=BYTE_ARRAY,convertedtype=UTF8"`
	CustomerID string `json:"customerId,omitempty" parquet:"name=customerId,type=BYTE_ARRAY,convertedtype=UTF8"`
	RunnerID   string `json:"runnerId,omitempty" parquet:"name=runnerId,type=BYTE_ARRAY,convertedtype=UTF8"`
}

// StatusChangedEvent is emitted on every accepted lifecycle transition.
// Downstream notification dispatch keys off PreviousStatus/NewStatus;
// the delivered transition additionally unlocks the rating prompt and
// the reorder action on the consumer side.
type StatusChangedEvent struct {
	BaseEvent
	PreviousStatus  string `json:"previousStatus" parquet:"name=previousStatus,type=BYTE_ARRAY,convertedtype=UTF8"`
	NewStatus       string `json:"newStatus" parquet:"name=newStatus,type=BYTE_ARRAY,convertedtype=UTF8"`
	TransitionedAt  int64  `json:"transitionedAt" parquet:"name=transitionedAt,type=INT64"`
	RatingPromptDue bool   `json:"ratingPromptDue" parquet:"name=ratingPromptDue,type=BOOLEAN"`
	ReorderUnlocked bool   `json:"reorderUnlocked" parquet:"name=reorderUnlocked,type=BOOLEAN"`
}

// EtaRefreshedEvent carries a freshly computed arrival estimate for a
// tracked order, including the factor breakdown for transparency.
type EtaRefreshedEvent struct {
	BaseEvent
	EstimatedMinutes int     `json:"estimatedMinutes" parquet:"name=estimatedMinutes,type=INT32"`
	EstimatedTime    int64   `json:"estimatedTime" parquet:"name=estimatedTime,type=INT64"`
	Confidence       string  `json:"confidence" parquet:"name=confidence,type=BYTE_ARRAY,convertedtype=UTF8"`
	BaseTime         float64 `json:"baseTime" parquet:"name=baseTime,type=DOUBLE"`
	QueueDelay       float64 `json:"queueDelay" parquet:"name=queueDelay,type=DOUBLE"`
	TrafficDelay     float64 `json:"trafficDelay" parquet:"name=trafficDelay,type=DOUBLE"`
	DistanceDelay    float64 `json:"distanceDelay" parquet:"name=distanceDelay,type=DOUBLE"`
	ExpressBonus     float64 `json:"expressBonus" parquet:"name=expressBonus,type=DOUBLE"`
	RunnerAdjustment float64 `json:"runnerAdjustment" parquet:"name=runnerAdjustment,type=DOUBLE"`
}

func GetSchema(eventType string) (*schema.SchemaHandler, error) {
	var sh *schema.SchemaHandler
	var err error

	switch eventType {
	case TopicStatusChanged:
		sh, err = schema.NewSchemaHandlerFromStruct(new(StatusChangedEvent))
	case TopicEtaRefreshed:
		sh, err = schema.NewSchemaHandlerFromStruct(new(EtaRefreshedEvent))
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	if err != nil {
		log.Printf("Error creating schema for %s: %v", eventType, err)
		return nil, fmt.Errorf("error creating schema for %s: %w", eventType, err)
	}

	return sh, nil
}

func NewBaseEvent(eventType string, timestamp time.Time) BaseEvent {
	return BaseEvent{
		Timestamp: timestamp.Unix(),
		EventType: eventType,
	}
}
