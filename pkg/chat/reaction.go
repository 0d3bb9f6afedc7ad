package chat

import (
	"fmt"

	"chatsyncd/pkg/models"
	"chatsyncd/pkg/notify"
	"chatsyncd/pkg/store"
	"chatsyncd/pkg/validation"
)

// ToggleReaction flips the (message, user, emoji) row: absent inserts,
// present deletes. Returns true when the reaction now exists. The pair of
// calls is idempotent, a single call is not; a retry after an ambiguous
// failure can flip state unexpectedly.
func (s *Service) ToggleReaction(userID, msgID, emoji string) (bool, error) {
	if err := validation.Emoji(emoji); err != nil {
		return false, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if _, err := s.ResolveUser(userID); err != nil {
		return false, err
	}
	msg, err := store.GetMessage(msgID)
	if err != nil {
		if store.ErrKeyNotFound(err) {
			return false, ErrNotFound
		}
		return false, err
	}
	if _, err := s.requireMember(msg.ConversationID, userID); err != nil {
		return false, err
	}

	_, err = store.GetReaction(msgID, userID, emoji)
	if err == nil {
		if err := store.DeleteReaction(msgID, userID, emoji); err != nil {
			return false, err
		}
		s.publish(notify.TopicConversation(msg.ConversationID), "reaction.removed", msgID)
		return false, nil
	}
	if !store.ErrKeyNotFound(err) {
		return false, err
	}
	r := models.Reaction{MessageID: msgID, UserID: userID, Emoji: emoji, CreatedAt: s.nowNanos()}
	if err := store.SaveReaction(r); err != nil {
		return false, err
	}
	s.publish(notify.TopicConversation(msg.ConversationID), "reaction.added", msgID)
	return true, nil
}
