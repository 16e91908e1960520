// services/events.go - In-process per-user event fan-out
package services

import (
	"sync"
	"time"
)

// Event types published on the hub.
const (
	EventWalletUpdated       = "wallet.updated"
	EventProgressionUpdated  = "progression.updated"
	EventLevelUp             = "progression.level_up"
	EventAchievementUnlocked = "achievement.unlocked"
	EventQuestCompleted      = "quest.completed"
	EventQuestActivated      = "quest.activated"
	EventStatsUpdated        = "stats.updated"
	EventPayoutFailed        = "payout.failed"
)

// Event is a change notification for one user.
type Event struct {
	Type   string      `json:"type"`
	UserID string      `json:"user_id"`
	Data   interface{} `json:"data,omitempty"`
	At     time.Time   `json:"at"`
}

// Hub delivers events to the subscribers of a user. Publishing never blocks:
// a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
}

// Subscription receives the events of one user until closed.
type Subscription struct {
	C <-chan Event

	ch     chan Event
	userID string
	hub    *Hub
	once   sync.Once
}

// NewHub creates a hub with the given per-subscriber buffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a subscriber for userID.
func (h *Hub) Subscribe(userID string) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch, userID: userID, hub: h}

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		if set, ok := h.subs[s.userID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.userID)
			}
		}
		close(s.ch)
		h.mu.Unlock()
	})
}

// Publish delivers evt to every subscriber of evt.UserID and returns how
// many received it. A nil hub drops everything.
func (h *Hub) Publish(evt Event) int {
	if h == nil {
		return 0
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.subs[evt.UserID] {
		select {
		case sub.ch <- evt:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers returns the number of live subscriptions for userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
