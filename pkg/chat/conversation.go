package chat

import (
	"fmt"
	"sort"

	"chatsyncd/pkg/logger"
	"chatsyncd/pkg/models"
	"chatsyncd/pkg/notify"
	"chatsyncd/pkg/store"
	"chatsyncd/pkg/utils"
	"chatsyncd/pkg/validation"
)

// CreateConversation creates a conversation with the creator plus the given
// participants as members. For a 1:1 request it first scans the creator's
// existing non-group conversations and returns the existing one when the
// other member matches, so two users never share more than one 1:1 thread.
func (s *Service) CreateConversation(creatorID string, participantIDs []string, isGroup bool, name string) (string, error) {
	if _, err := s.ResolveUser(creatorID); err != nil {
		return "", err
	}

	// member set: creator is implicitly included even when absent from input
	memberSet := map[string]struct{}{creatorID: {}}
	for _, id := range participantIDs {
		if _, err := s.ResolveUser(id); err != nil {
			return "", fmt.Errorf("participant %s: %w", id, err)
		}
		memberSet[id] = struct{}{}
	}

	if !isGroup {
		if len(memberSet) != 2 {
			return "", fmt.Errorf("%w: a direct conversation has exactly two members", ErrValidation)
		}
		otherID := ""
		for id := range memberSet {
			if id != creatorID {
				otherID = id
			}
		}
		if existing, err := s.findDirectConversation(creatorID, otherID); err != nil {
			return "", err
		} else if existing != "" {
			logger.Debug("direct_conversation_dedup", "conversation", existing)
			return existing, nil
		}
	}

	now := s.nowNanos()
	conv := models.Conversation{
		ID:        utils.GenConversationID(),
		Name:      name,
		IsGroup:   isGroup,
		CreatedAt: now,
	}
	members := make([]models.Member, 0, len(memberSet))
	for id := range memberSet {
		members = append(members, models.Member{ConversationID: conv.ID, UserID: id, JoinedAt: now})
	}
	if err := store.CreateConversation(conv, members); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPartial, err)
	}
	for _, m := range members {
		s.publish(notify.TopicUser(m.UserID), "conversation.created", conv.ID)
	}
	return conv.ID, nil
}

// findDirectConversation returns the ID of an existing non-group
// conversation whose members are exactly the two given users, or "".
func (s *Service) findDirectConversation(userID, otherID string) (string, error) {
	convIDs, err := store.ListUserConversationIDs(userID)
	if err != nil {
		return "", err
	}
	for _, convID := range convIDs {
		conv, err := store.GetConversation(convID)
		if err != nil {
			if store.ErrKeyNotFound(err) {
				continue
			}
			return "", err
		}
		if conv.IsGroup {
			continue
		}
		if _, err := store.GetMember(convID, otherID); err == nil {
			return convID, nil
		} else if !store.ErrKeyNotFound(err) {
			return "", err
		}
	}
	return "", nil
}

// ListConversations returns every conversation the viewer belongs to,
// annotated and ordered most-recently-active first.
func (s *Service) ListConversations(viewerID string) ([]models.ConversationView, error) {
	convIDs, err := store.ListUserConversationIDs(viewerID)
	if err != nil {
		return nil, err
	}
	out := make([]models.ConversationView, 0, len(convIDs))
	for _, convID := range convIDs {
		conv, err := store.GetConversation(convID)
		if err != nil {
			if store.ErrKeyNotFound(err) {
				continue
			}
			return nil, err
		}
		members, err := store.ListMembers(convID)
		if err != nil {
			return nil, err
		}
		view := models.ConversationView{Conversation: conv, MemberProfiles: []models.User{}, MemberCount: len(members)}
		var viewerLastRead int64
		for _, m := range members {
			if m.UserID == viewerID {
				viewerLastRead = m.LastReadAt
				continue
			}
			u, err := store.GetUser(m.UserID)
			if err != nil {
				continue
			}
			view.MemberProfiles = append(view.MemberProfiles, u)
		}
		if !conv.IsGroup && len(view.MemberProfiles) > 0 {
			view.OtherMember = &view.MemberProfiles[0]
		}
		if conv.LastMessageID != "" {
			if lm, err := store.GetMessage(conv.LastMessageID); err == nil {
				if lm.Deleted {
					lm.Body = DeletedPlaceholder
				}
				view.LastMessage = &lm
			}
		}
		unread, err := store.CountMessagesAfter(convID, viewerLastRead)
		if err != nil {
			return nil, err
		}
		view.UnreadCount = unread
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := activityTime(out[i]), activityTime(out[j])
		if ti != tj {
			return ti > tj
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func activityTime(v models.ConversationView) int64 {
	if v.LastMessage != nil {
		return v.LastMessage.CreatedAt
	}
	return v.CreatedAt
}

// MarkRead sets the viewer's membership lastReadAt to now. A non-member
// call is a silent no-op; redundant calls are safe.
func (s *Service) MarkRead(viewerID, convID string) error {
	m, err := store.GetMember(convID, viewerID)
	if err != nil {
		if store.ErrKeyNotFound(err) {
			return nil
		}
		return err
	}
	m.LastReadAt = s.nowNanos()
	if err := store.SaveMember(m); err != nil {
		return err
	}
	s.publish(notify.TopicConversation(convID), "conversation.read", viewerID)
	s.publish(notify.TopicUser(viewerID), "conversation.read", convID)
	return nil
}

// UpdateConversationName patches the conversation name. Membership is the
// only authorization check at this layer.
func (s *Service) UpdateConversationName(callerID, convID, name string) error {
	if _, err := store.GetMember(convID, callerID); err != nil {
		if store.ErrKeyNotFound(err) {
			return ErrForbidden
		}
		return err
	}
	if err := validation.ConversationName(name); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	conv, err := store.GetConversation(convID)
	if err != nil {
		if store.ErrKeyNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	conv.Name = name
	if err := store.SaveConversation(conv); err != nil {
		return err
	}
	logger.Info("conversation_renamed", "conversation", convID, "by", callerID)
	s.publish(notify.TopicConversation(convID), "conversation.renamed", convID)
	return nil
}

// SubscriptionTopics lists the notification topics covering everything the
// viewer can see: their user topic, global presence and each conversation
// they belong to.
func (s *Service) SubscriptionTopics(viewerID string) ([]string, error) {
	convIDs, err := store.ListUserConversationIDs(viewerID)
	if err != nil {
		return nil, err
	}
	topics := make([]string, 0, len(convIDs)+2)
	topics = append(topics, notify.TopicUser(viewerID), notify.TopicPresence)
	for _, id := range convIDs {
		topics = append(topics, notify.TopicConversation(id))
	}
	return topics, nil
}

// requireMember resolves the membership row or maps its absence to
// ErrForbidden (conversation missing entirely maps to ErrNotFound).
func (s *Service) requireMember(convID, userID string) (models.Member, error) {
	m, err := store.GetMember(convID, userID)
	if err == nil {
		return m, nil
	}
	if !store.ErrKeyNotFound(err) {
		return models.Member{}, err
	}
	if _, cerr := store.GetConversation(convID); cerr != nil {
		if store.ErrKeyNotFound(cerr) {
			return models.Member{}, ErrNotFound
		}
		return models.Member{}, cerr
	}
	return models.Member{}, ErrForbidden
}
