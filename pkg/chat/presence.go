package chat

import (
	"chatsyncd/pkg/models"
	"chatsyncd/pkg/notify"
	"chatsyncd/pkg/store"
)

// Heartbeat upserts the caller's presence row with online=true. Clients
// send this on a fixed interval; missing heartbeats push the user offline
// via the staleness window rather than a server-side timer.
func (s *Service) Heartbeat(userID string) {
	s.eph.Heartbeat(userID)
	s.publish(notify.TopicPresence, "presence.heartbeat", userID)
}

// Disconnect flips the caller offline immediately and records lastSeenAt on
// the durable user row. Graceful teardown only; a crashed client is caught
// by the window instead.
func (s *Service) Disconnect(userID string) error {
	p := s.eph.Disconnect(userID)
	if u, err := store.GetUser(userID); err == nil {
		u.IsOnline = false
		u.LastSeenAt = p.UpdatedAt
		if err := store.SaveUser(u); err != nil {
			return err
		}
	}
	s.publish(notify.TopicPresence, "presence.disconnect", userID)
	return nil
}

// IsOnline applies the hybrid policy: the explicit online flag holds only
// while the last heartbeat is inside the online window, so a flag stuck
// true (crash, network loss) goes stale-offline on its own.
func (s *Service) IsOnline(userID string) bool {
	p, ok := s.eph.Presence(userID)
	if !ok || !p.Online {
		return false
	}
	return s.nowNanos()-p.UpdatedAt < s.opts.OnlineWindow.Nanoseconds()
}

// ListPresence returns every presence row with Online recomputed under the
// hybrid policy.
func (s *Service) ListPresence() []models.Presence {
	rows := s.eph.ListPresence()
	cutoff := s.nowNanos() - s.opts.OnlineWindow.Nanoseconds()
	out := make([]models.Presence, 0, len(rows))
	for _, p := range rows {
		p.Online = p.Online && p.UpdatedAt >= cutoff
		out = append(out, p)
	}
	return out
}
