package events

import (
	"sync"
	"time"
)

// DecisionEvent is broadcast once per routing decision.
type DecisionEvent struct {
	Status         string    `json:"status"`
	Reason         string    `json:"reason,omitempty"`
	SubmissionType string    `json:"submission_type"`
	Source         string    `json:"source"`
	Composite      float64   `json:"composite"`
	StoredID       string    `json:"stored_id,omitempty"`
	PendingID      string    `json:"pending_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

const subscriberBuffer = 16

// Bus fans decision events out to websocket subscribers. Publish never
// blocks: a subscriber that falls behind loses events rather than
// stalling the pipeline.
type Bus struct {
	mu   sync.Mutex
	subs map[chan DecisionEvent]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan DecisionEvent]struct{})}
}

func (b *Bus) Subscribe() chan DecisionEvent {
	ch := make(chan DecisionEvent, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Bus) Unsubscribe(ch chan DecisionEvent) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(evt DecisionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
