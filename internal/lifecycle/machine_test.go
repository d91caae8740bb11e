package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chrisdamba/foodeta/internal/models"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// memoryOrderStore is an in-memory store with the same optimistic guard
// semantics the Postgres repository has: the update applies only when
// status and version still match.
type memoryOrderStore struct {
	mu     sync.Mutex
	orders map[string]*models.Order
}

func newMemoryOrderStore(orders ...*models.Order) *memoryOrderStore {
	s := &memoryOrderStore{orders: make(map[string]*models.Order)}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *memoryOrderStore) GetByID(ctx context.Context, orderID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, errors.New("order not found")
	}
	copied := *order
	return &copied, nil
}

func (s *memoryOrderStore) UpdateStatus(ctx context.Context, order *models.Order, newStatus string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.orders[order.ID]
	if !ok {
		return false, errors.New("order not found")
	}
	if current.Status != order.Status || current.Version != order.Version {
		return false, nil
	}
	current.Status = newStatus
	current.Version++
	return true, nil
}

type captureSink struct {
	mu       sync.Mutex
	messages []json.RawMessage
	err      error
}

func (s *captureSink) WriteMessage(topic string, msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, append(json.RawMessage{}, msg...))
	return nil
}

func (s *captureSink) lastEvent(t *testing.T) models.StatusChangedEvent {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		t.Fatal("no events published")
	}
	var event models.StatusChangedEvent
	if err := json.Unmarshal(s.messages[len(s.messages)-1], &event); err != nil {
		t.Fatalf("unmarshalling event: %v", err)
	}
	return event
}

func orderIn(status string) *models.Order {
	return &models.Order{
		ID:         "order-1",
		CustomerID: "customer-1",
		RunnerID:   "runner-1",
		Status:     status,
		Version:    1,
		PlacedAt:   time.Date(2024, 6, 12, 11, 0, 0, 0, time.UTC),
	}
}

func newTestMachine(store OrderStore, sink EventSink) *Machine {
	clock := &fakeClock{now: time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)}
	return NewMachine(store, sink, clock)
}

func TestAdvanceForwardSequence(t *testing.T) {
	tests := []struct {
		from string
		to   string
	}{
		{models.OrderStatusPlaced, models.OrderStatusPacked},
		{models.OrderStatusPacked, models.OrderStatusOutForDelivery},
		{models.OrderStatusOutForDelivery, models.OrderStatusDelivered},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			store := newMemoryOrderStore(orderIn(tt.from))
			sink := &captureSink{}
			machine := newTestMachine(store, sink)

			order, err := machine.Advance(context.Background(), "order-1", tt.to)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if order.Status != tt.to {
				t.Errorf("status = %s, want %s", order.Status, tt.to)
			}
			if order.Version != 2 {
				t.Errorf("version = %d, want 2", order.Version)
			}

			event := sink.lastEvent(t)
			if event.PreviousStatus != tt.from || event.NewStatus != tt.to {
				t.Errorf("event transition %s->%s, want %s->%s",
					event.PreviousStatus, event.NewStatus, tt.from, tt.to)
			}
		})
	}
}

func TestAdvanceStampsTransitionTime(t *testing.T) {
	store := newMemoryOrderStore(orderIn(models.OrderStatusOutForDelivery))
	machine := newTestMachine(store, &captureSink{})

	order, err := machine.Advance(context.Background(), "order-1", models.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.DeliveredAt == nil {
		t.Fatal("delivered_at not stamped")
	}
}

func TestAdvanceRejectsInvalidTransitions(t *testing.T) {
	tests := []struct {
		from string
		to   string
	}{
		{models.OrderStatusPlaced, models.OrderStatusOutForDelivery}, // skipping
		{models.OrderStatusPlaced, models.OrderStatusDelivered},
		{models.OrderStatusPacked, models.OrderStatusPlaced}, // backwards
		{models.OrderStatusDelivered, models.OrderStatusCancelled},
		{models.OrderStatusCancelled, models.OrderStatusPacked},
		{models.OrderStatusDelivered, models.OrderStatusDelivered},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			store := newMemoryOrderStore(orderIn(tt.from))
			sink := &captureSink{}
			machine := newTestMachine(store, sink)

			_, err := machine.Advance(context.Background(), "order-1", tt.to)
			var terr *InvalidTransitionError
			if !errors.As(err, &terr) {
				t.Fatalf("err = %v, want InvalidTransitionError", err)
			}
			if terr.From != tt.from || terr.To != tt.to {
				t.Errorf("error identifies %s->%s, want %s->%s", terr.From, terr.To, tt.from, tt.to)
			}

			// order untouched, nothing published
			order, _ := store.GetByID(context.Background(), "order-1")
			if order.Status != tt.from || order.Version != 1 {
				t.Errorf("order mutated on invalid transition: %+v", order)
			}
			if len(sink.messages) != 0 {
				t.Errorf("published %d events on invalid transition", len(sink.messages))
			}
		})
	}
}

func TestCancelFromNonTerminalStates(t *testing.T) {
	for _, from := range []string{
		models.OrderStatusPlaced,
		models.OrderStatusPacked,
		models.OrderStatusOutForDelivery,
	} {
		t.Run(from, func(t *testing.T) {
			store := newMemoryOrderStore(orderIn(from))
			machine := newTestMachine(store, &captureSink{})

			order, err := machine.Advance(context.Background(), "order-1", models.OrderStatusCancelled)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if order.Status != models.OrderStatusCancelled {
				t.Errorf("status = %s, want cancelled", order.Status)
			}
			if order.CancelledAt == nil {
				t.Error("cancelled_at not stamped")
			}
		})
	}
}

func TestDeliveredEventUnlocksDownstreamActions(t *testing.T) {
	store := newMemoryOrderStore(orderIn(models.OrderStatusOutForDelivery))
	sink := &captureSink{}
	machine := newTestMachine(store, sink)

	if _, err := machine.Advance(context.Background(), "order-1", models.OrderStatusDelivered); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	event := sink.lastEvent(t)
	if !event.RatingPromptDue {
		t.Error("delivered event must flag the rating prompt")
	}
	if !event.ReorderUnlocked {
		t.Error("delivered event must unlock reorder")
	}
}

func TestAdvanceSurvivesSinkFailure(t *testing.T) {
	store := newMemoryOrderStore(orderIn(models.OrderStatusPlaced))
	sink := &captureSink{err: errors.New("broker down")}
	machine := newTestMachine(store, sink)

	order, err := machine.Advance(context.Background(), "order-1", models.OrderStatusPacked)
	if err != nil {
		t.Fatalf("transition must not fail on publish error: %v", err)
	}
	if order.Status != models.OrderStatusPacked {
		t.Errorf("status = %s, want packed", order.Status)
	}
}

type stubbornStore struct {
	*memoryOrderStore
}

func (s *stubbornStore) UpdateStatus(ctx context.Context, order *models.Order, newStatus string) (bool, error) {
	// behave as if another writer always got there first
	return false, nil
}

func TestAdvanceReturnsConflictWhenGuardMisses(t *testing.T) {
	store := &stubbornStore{newMemoryOrderStore(orderIn(models.OrderStatusOutForDelivery))}
	machine := newTestMachine(store, &captureSink{})

	_, err := machine.Advance(context.Background(), "order-1", models.OrderStatusDelivered)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestConcurrentAdvanceRace(t *testing.T) {
	// two separate machine instances sharing one store model two service
	// replicas: per-order locks do not help across instances, so the
	// store's optimistic guard must pick exactly one winner
	store := newMemoryOrderStore(orderIn(models.OrderStatusOutForDelivery))
	sink := &captureSink{}
	m1 := newTestMachine(store, sink)
	m2 := newTestMachine(store, sink)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = m1.Advance(context.Background(), "order-1", models.OrderStatusDelivered)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = m2.Advance(context.Background(), "order-1", models.OrderStatusCancelled)
	}()
	wg.Wait()

	var wins, conflicts, invalid int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			var terr *InvalidTransitionError
			if errors.As(err, &terr) {
				// the loser read the winner's terminal state before
				// attempting its update
				invalid++
			} else {
				t.Fatalf("unexpected error: %v", err)
			}
		}
	}

	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
	if conflicts+invalid != 1 {
		t.Fatalf("losers = %d, want exactly 1", conflicts+invalid)
	}

	order, _ := store.GetByID(context.Background(), "order-1")
	if !models.IsTerminalStatus(order.Status) {
		t.Errorf("final status = %s, want terminal", order.Status)
	}
	if order.Version != 2 {
		t.Errorf("version = %d, want exactly one bump", order.Version)
	}
}
