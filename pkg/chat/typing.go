package chat

import (
	"chatsyncd/pkg/models"
	"chatsyncd/pkg/notify"
	"chatsyncd/pkg/store"
)

// SetTyping upserts the caller's typing mark for the conversation. Callers
// are expected to throttle repeats and to clear on send or empty input.
func (s *Service) SetTyping(userID, convID string) error {
	if _, err := s.requireMember(convID, userID); err != nil {
		return err
	}
	s.eph.SetTyping(convID, userID)
	s.publish(notify.TopicConversation(convID), "typing.set", userID)
	return nil
}

// ClearTyping deletes the caller's typing mark. Idempotent.
func (s *Service) ClearTyping(userID, convID string) {
	s.eph.ClearTyping(convID, userID)
	s.publish(notify.TopicConversation(convID), "typing.cleared", userID)
}

// ListTyping returns the members typing within the typing window, excluding
// the viewer, resolved to display names.
func (s *Service) ListTyping(viewerID, convID string) ([]models.TypingUser, error) {
	if _, err := s.requireMember(convID, viewerID); err != nil {
		return nil, err
	}
	cutoff := s.nowNanos() - s.opts.TypingWindow.Nanoseconds()
	marks := s.eph.ListTyping(convID)
	out := make([]models.TypingUser, 0, len(marks))
	for _, m := range marks {
		if m.UserID == viewerID || m.UpdatedAt < cutoff {
			continue
		}
		name := "Someone"
		if u, err := store.GetUser(m.UserID); err == nil {
			name = u.Name
		}
		out = append(out, models.TypingUser{UserID: m.UserID, Name: name})
	}
	return out, nil
}
