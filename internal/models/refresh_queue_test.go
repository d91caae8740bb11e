package models

import (
	"testing"
	"time"
)

func TestRefreshQueueOrdersByDueTime(t *testing.T) {
	base := time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)
	queue := NewRefreshQueue()

	queue.Enqueue(&RefreshEvent{Time: base.Add(30 * time.Second), OrderID: "late"})
	queue.Enqueue(&RefreshEvent{Time: base, OrderID: "now"})
	queue.Enqueue(&RefreshEvent{Time: base.Add(10 * time.Second), OrderID: "soon"})

	if peek := queue.Peek(); peek == nil || peek.OrderID != "now" {
		t.Fatalf("peek = %+v, want the earliest event", peek)
	}

	due := queue.DequeueDue(base.Add(15 * time.Second))
	if len(due) != 2 {
		t.Fatalf("due events = %d, want 2", len(due))
	}
	if due[0].OrderID != "now" || due[1].OrderID != "soon" {
		t.Errorf("due order = [%s %s], want [now soon]", due[0].OrderID, due[1].OrderID)
	}
	if queue.Len() != 1 {
		t.Errorf("remaining = %d, want 1", queue.Len())
	}
}

func TestRefreshQueueDequeueDueEmpty(t *testing.T) {
	queue := NewRefreshQueue()
	if due := queue.DequeueDue(time.Now()); len(due) != 0 {
		t.Errorf("due events on empty queue = %d, want 0", len(due))
	}
}

func TestGetSchemaKnownTopics(t *testing.T) {
	for _, topic := range []string{TopicStatusChanged, TopicEtaRefreshed} {
		if _, err := GetSchema(topic); err != nil {
			t.Errorf("GetSchema(%s): %v", topic, err)
		}
	}
	if _, err := GetSchema("mystery_events"); err == nil {
		t.Error("expected error for unknown event type")
	}
}
