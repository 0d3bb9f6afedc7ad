// Package chat implements the synchronization model: identity, conversations
// and membership, messages, reactions, presence and typing. Durable rows live
// in the pebble store; presence and typing live in the ephemeral store.
// Derived views (unread counts, reaction tallies, read receipts) are
// recomputed on every read rather than cached.
package chat

import (
	"time"

	"chatsyncd/pkg/ephemeral"
	"chatsyncd/pkg/notify"
)

// DeletedPlaceholder is the fixed body shown for soft-deleted messages.
const DeletedPlaceholder = "This message was deleted"

// Options tunes the read-time staleness windows and paging.
type Options struct {
	// OnlineWindow bounds how stale a heartbeat may be before a user is
	// forced offline even with the online flag set.
	OnlineWindow time.Duration
	// TypingWindow bounds how old a typing mark may be and still appear in
	// listTyping.
	TypingWindow time.Duration
	// PageSize is the default message page size when the caller passes none.
	PageSize int
}

func (o Options) withDefaults() Options {
	if o.OnlineWindow <= 0 {
		o.OnlineWindow = 30 * time.Second
	}
	if o.TypingWindow <= 0 {
		o.TypingWindow = 5 * time.Second
	}
	if o.PageSize <= 0 {
		o.PageSize = 100
	}
	return o
}

// Service wires the durable store, the ephemeral store and the notifier.
type Service struct {
	eph      *ephemeral.Store
	notifier notify.Notifier
	opts     Options
	now      func() time.Time
}

func New(eph *ephemeral.Store, n notify.Notifier, opts Options) *Service {
	if n == nil {
		n = notify.Nop{}
	}
	return &Service{eph: eph, notifier: n, opts: opts.withDefaults(), now: time.Now}
}

// SetClock replaces the service clock. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) nowNanos() int64 { return s.now().UTC().UnixNano() }

func (s *Service) publish(topic, kind, entityID string) {
	s.notifier.Publish(notify.Event{Topic: topic, Kind: kind, EntityID: entityID, At: s.nowNanos()})
}
