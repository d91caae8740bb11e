package models

import (
	"container/heap"
	"sync"
	"time"
)

// RefreshEvent schedules the next ETA recomputation for a tracked order.
type RefreshEvent struct {
	Time    time.Time
	OrderID string
}

// RefreshQueue is a priority queue of refresh events ordered by due time
type RefreshQueue struct {
	events []*RefreshEvent
	mutex  sync.Mutex
}

// refreshHeap implements heap.Interface and holds RefreshEvents
type refreshHeap []*RefreshEvent

func (h refreshHeap) Len() int           { return len(h) }
func (h refreshHeap) Less(i, j int) bool { return h[i].Time.Before(h[j].Time) }
func (h refreshHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *refreshHeap) Push(x interface{}) {
	*h = append(*h, x.(*RefreshEvent))
}

func (h *refreshHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// NewRefreshQueue creates a new RefreshQueue
func NewRefreshQueue() *RefreshQueue {
	return &RefreshQueue{events: make([]*RefreshEvent, 0)}
}

// Enqueue adds a refresh event to the queue
func (rq *RefreshQueue) Enqueue(event *RefreshEvent) {
	rq.mutex.Lock()
	defer rq.mutex.Unlock()
	heap.Push((*refreshHeap)(&rq.events), event)
}

// Peek returns the earliest event without removing it
func (rq *RefreshQueue) Peek() *RefreshEvent {
	rq.mutex.Lock()
	defer rq.mutex.Unlock()
	if len(rq.events) == 0 {
		return nil
	}
	return rq.events[0]
}

// DequeueDue removes and returns every event due at or before now.
func (rq *RefreshQueue) DequeueDue(now time.Time) []*RefreshEvent {
	rq.mutex.Lock()
	defer rq.mutex.Unlock()

	var due []*RefreshEvent
	for len(rq.events) > 0 && !rq.events[0].Time.After(now) {
		due = append(due, heap.Pop((*refreshHeap)(&rq.events)).(*RefreshEvent))
	}
	return due
}

// Len returns the number of events in the queue
func (rq *RefreshQueue) Len() int {
	rq.mutex.Lock()
	defer rq.mutex.Unlock()
	return len(rq.events)
}
