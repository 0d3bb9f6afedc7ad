// Package ephemeral holds the low-durability presence and typing state.
// These rows never survive a process restart and are filtered against
// staleness windows at read time, so no server-side timers are needed to
// expire them.
package ephemeral

import (
	"sync"
	"time"

	"chatsyncd/pkg/models"
)

type Store struct {
	mu       sync.RWMutex
	presence map[string]models.Presence
	// typing is conversationID -> userID -> mark
	typing map[string]map[string]models.TypingMark

	// now is swappable for tests
	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		presence: make(map[string]models.Presence),
		typing:   make(map[string]map[string]models.TypingMark),
		now:      time.Now,
	}
}

// SetClock replaces the store's clock. Tests only.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Heartbeat upserts the user's presence row with online=true.
func (s *Store) Heartbeat(userID string) models.Presence {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Presence{UserID: userID, Online: true, UpdatedAt: s.now().UTC().UnixNano()}
	s.presence[userID] = p
	return p
}

// Disconnect flips the user's presence row to offline. Idempotent; a
// disconnect for an unknown user inserts an offline row.
func (s *Store) Disconnect(userID string) models.Presence {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Presence{UserID: userID, Online: false, UpdatedAt: s.now().UTC().UnixNano()}
	s.presence[userID] = p
	return p
}

// Presence returns the raw presence row, if any.
func (s *Store) Presence(userID string) (models.Presence, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.presence[userID]
	return p, ok
}

// ListPresence returns all presence rows.
func (s *Store) ListPresence() []models.Presence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Presence, 0, len(s.presence))
	for _, p := range s.presence {
		out = append(out, p)
	}
	return out
}

// SetTyping upserts the (conversation, user) typing mark.
func (s *Store) SetTyping(convID, userID string) models.TypingMark {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := models.TypingMark{ConversationID: convID, UserID: userID, UpdatedAt: s.now().UTC().UnixNano()}
	byUser, ok := s.typing[convID]
	if !ok {
		byUser = make(map[string]models.TypingMark)
		s.typing[convID] = byUser
	}
	byUser[userID] = m
	return m
}

// ClearTyping deletes the (conversation, user) typing mark. Idempotent.
func (s *Store) ClearTyping(convID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if byUser, ok := s.typing[convID]; ok {
		delete(byUser, userID)
		if len(byUser) == 0 {
			delete(s.typing, convID)
		}
	}
}

// ListTyping returns all typing marks of a conversation, unfiltered; the
// caller applies the typing window.
func (s *Store) ListTyping(convID string) []models.TypingMark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byUser := s.typing[convID]
	out := make([]models.TypingMark, 0, len(byUser))
	for _, m := range byUser {
		out = append(out, m)
	}
	return out
}

// Sweep drops typing marks and offline presence rows whose updatedAt is
// older than cutoff (unix nanos). Returns the number of rows removed.
func (s *Store) Sweep(cutoff int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for convID, byUser := range s.typing {
		for userID, m := range byUser {
			if m.UpdatedAt < cutoff {
				delete(byUser, userID)
				n++
			}
		}
		if len(byUser) == 0 {
			delete(s.typing, convID)
		}
	}
	for userID, p := range s.presence {
		if !p.Online && p.UpdatedAt < cutoff {
			delete(s.presence, userID)
			n++
		}
	}
	return n
}
