// Package notify is the subscription/notification boundary the stores push
// state changes through. Mutations publish after commit, fire-and-forget;
// delivery to live clients is eventually consistent and never part of the
// mutation itself.
package notify

import (
	"sync"
	"time"

	"chatsyncd/pkg/logger"
	"chatsyncd/pkg/telemetry"
)

// Event describes one committed state change, addressed by topic.
type Event struct {
	Topic    string `json:"topic"`
	Kind     string `json:"kind"`
	EntityID string `json:"entity_id,omitempty"`
	At       int64  `json:"at"`
}

// Notifier is what the stores depend on. Publish must not block the caller.
type Notifier interface {
	Publish(ev Event)
}

// Topic helpers. Conversation-scoped changes (messages, reactions, typing)
// go to the conversation topic; per-user list invalidation goes to the user
// topic; presence changes share a single global topic.
func TopicConversation(id string) string { return "conv:" + id }
func TopicUser(id string) string         { return "user:" + id }

const TopicPresence = "presence"

// Nop discards all events. Useful default for tests.
type Nop struct{}

func (Nop) Publish(Event) {}

// Hub is an in-process subscription registry with per-subscriber buffers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscriber]struct{}
}

// Subscriber receives events for its topics on a buffered channel. A
// subscriber that falls behind has events dropped rather than blocking
// publishers.
type Subscriber struct {
	ch     chan Event
	topics []string
}

// Events is the subscriber's receive channel. Closed on Unsubscribe.
func (s *Subscriber) Events() <-chan Event { return s.ch }

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe registers interest in the given topics. buffer <= 0 gets a
// sane default.
func (h *Hub) Subscribe(topics []string, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 16
	}
	s := &Subscriber{ch: make(chan Event, buffer), topics: topics}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range topics {
		m, ok := h.subs[t]
		if !ok {
			m = make(map[*Subscriber]struct{})
			h.subs[t] = m
		}
		m[s] = struct{}{}
	}
	return s
}

// Unsubscribe removes the subscriber from all topics and closes its channel.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range s.topics {
		if m, ok := h.subs[t]; ok {
			if _, present := m[s]; !present {
				continue
			}
			delete(m, s)
			if len(m) == 0 {
				delete(h.subs, t)
			}
		}
	}
	close(s.ch)
	s.topics = nil
}

// Publish fans the event out to the topic's subscribers without blocking.
func (h *Hub) Publish(ev Event) {
	if ev.At == 0 {
		ev.At = time.Now().UTC().UnixNano()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[ev.Topic] {
		select {
		case s.ch <- ev:
		default:
			telemetry.CountDroppedEvent()
			logger.Warn("notify_subscriber_lagging", "topic", ev.Topic, "kind", ev.Kind)
		}
	}
}

// SubscriberCount reports how many subscribers a topic currently has.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
