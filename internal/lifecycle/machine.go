package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chrisdamba/foodeta/internal/models"
)

// ErrConflict means a concurrent transition won the race for the same
// order. The caller should refetch and retry if the move still applies.
var ErrConflict = errors.New("order status changed concurrently")

// InvalidTransitionError reports an out-of-sequence or terminal-state
// transition attempt. The order is left unchanged.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition from %q to %q", e.From, e.To)
}

// nextStatus maps each lifecycle state to its only forward successor.
var nextStatus = map[string]string{
	models.OrderStatusPlaced:         models.OrderStatusPacked,
	models.OrderStatusPacked:         models.OrderStatusOutForDelivery,
	models.OrderStatusOutForDelivery: models.OrderStatusDelivered,
}

// OrderStore persists lifecycle transitions. UpdateStatus must be
// guarded on the order's current status and version and report whether
// the guarded row matched.
type OrderStore interface {
	GetByID(ctx context.Context, orderID string) (*models.Order, error)
	UpdateStatus(ctx context.Context, order *models.Order, newStatus string) (bool, error)
}

// EventSink receives the status-changed events downstream notification
// dispatch consumes.
type EventSink interface {
	WriteMessage(topic string, msg []byte) error
}

// Clock matches eta.Clock; redeclared here so the lifecycle package
// stays independent of the estimation core.
type Clock interface {
	Now() time.Time
}

// Machine owns order lifecycle transitions. Transitions for the same
// order serialize through a per-order lock, and the store's optimistic
// guard closes the race against writers outside this process.
type Machine struct {
	store OrderStore
	sink  EventSink
	clock Clock

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMachine(store OrderStore, sink EventSink, clock Clock) *Machine {
	return &Machine{
		store: store,
		sink:  sink,
		clock: clock,
		locks: make(map[string]*sync.Mutex),
	}
}

// Advance moves an order to targetStatus. Valid targets are the
// immediate forward successor, or cancelled from any non-terminal
// state. On success the new status and transition timestamp are
// persisted and a StatusChangedEvent is published; on an invalid
// sequence the order is untouched and an InvalidTransitionError
// identifies both states; a lost race returns ErrConflict.
func (m *Machine) Advance(ctx context.Context, orderID, targetStatus string) (*models.Order, error) {
	lock := m.lockFor(orderID)
	lock.Lock()
	defer lock.Unlock()

	order, err := m.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("loading order %s: %w", orderID, err)
	}

	if !validTransition(order.Status, targetStatus) {
		return nil, &InvalidTransitionError{From: order.Status, To: targetStatus}
	}

	ok, err := m.store.UpdateStatus(ctx, order, targetStatus)
	if err != nil {
		return nil, fmt.Errorf("updating order %s status: %w", orderID, err)
	}
	if !ok {
		return nil, ErrConflict
	}

	previous := order.Status
	now := m.clock.Now()
	applyTransition(order, targetStatus, now)

	m.publishStatusChanged(order, previous, now)

	return order, nil
}

func validTransition(current, target string) bool {
	if models.IsTerminalStatus(current) {
		return false
	}
	if target == models.OrderStatusCancelled {
		return true
	}
	return nextStatus[current] == target
}

func applyTransition(order *models.Order, targetStatus string, at time.Time) {
	order.Status = targetStatus
	order.Version++
	switch targetStatus {
	case models.OrderStatusPacked:
		order.PackedAt = &at
	case models.OrderStatusOutForDelivery:
		order.OutForDeliveryAt = &at
	case models.OrderStatusDelivered:
		order.DeliveredAt = &at
	case models.OrderStatusCancelled:
		order.CancelledAt = &at
	}
}

func (m *Machine) publishStatusChanged(order *models.Order, previous string, at time.Time) {
	if m.sink == nil {
		return
	}

	event := models.StatusChangedEvent{
		BaseEvent:       models.NewBaseEvent("StatusChanged", at),
		PreviousStatus:  previous,
		NewStatus:       order.Status,
		TransitionedAt:  at.Unix(),
		RatingPromptDue: order.Status == models.OrderStatusDelivered,
		ReorderUnlocked: order.Status == models.OrderStatusDelivered,
	}
	event.OrderID = order.ID
	event.CustomerID = order.CustomerID
	event.RunnerID = order.RunnerID

	msg, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal status change event for order %s: %v", order.ID, err)
		return
	}
	if err := m.sink.WriteMessage(models.TopicStatusChanged, msg); err != nil {
		log.Printf("Failed to publish status change event for order %s: %v", order.ID, err)
	}
}

func (m *Machine) lockFor(orderID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[orderID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[orderID] = lock
	}
	return lock
}
