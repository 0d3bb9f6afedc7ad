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

// MessagePage is one page of a chronological message listing.
type MessagePage struct {
	Messages []models.MessageView `json:"messages"`
	// NextCursor resumes the scan; empty when the listing is exhausted.
	NextCursor string `json:"next_cursor,omitempty"`
}

// ListMessages returns the conversation's messages oldest-first, starting
// after cursor, at most limit rows (0 uses the configured page size). The
// viewer must be a member.
func (s *Service) ListMessages(viewerID, convID, cursor string, limit int) (MessagePage, error) {
	if _, err := s.requireMember(convID, viewerID); err != nil {
		return MessagePage{}, err
	}
	if limit <= 0 {
		limit = s.opts.PageSize
	}
	msgs, next, err := store.ListConversationMessages(convID, cursor, limit)
	if err != nil {
		return MessagePage{}, err
	}
	members, err := store.ListMembers(convID)
	if err != nil {
		return MessagePage{}, err
	}
	readBy := make([]models.ReadMark, 0, len(members))
	for _, m := range members {
		if m.UserID == viewerID {
			continue
		}
		readBy = append(readBy, models.ReadMark{UserID: m.UserID, LastReadAt: m.LastReadAt})
	}

	views := make([]models.MessageView, 0, len(msgs))
	for _, msg := range msgs {
		v := models.MessageView{Message: msg, ReadBy: readBy}
		if msg.Deleted {
			v.Body = DeletedPlaceholder
		}
		groups, err := s.reactionGroups(msg.ID)
		if err != nil {
			return MessagePage{}, err
		}
		v.Reactions = groups
		if msg.ReplyTo != "" {
			// dangling references are tolerated; the preview is omitted
			if orig, err := store.GetMessage(msg.ReplyTo); err == nil && orig.ConversationID == convID {
				p := models.ReplyPreview{AuthorName: orig.AuthorName, Body: orig.Body, Deleted: orig.Deleted}
				if orig.Deleted {
					p.Body = DeletedPlaceholder
				}
				v.RepliedTo = &p
			}
		}
		views = append(views, v)
	}
	return MessagePage{Messages: views, NextCursor: next}, nil
}

func (s *Service) reactionGroups(msgID string) ([]models.ReactionGroup, error) {
	rows, err := store.ListMessageReactions(msgID)
	if err != nil {
		return nil, err
	}
	byEmoji := map[string]*models.ReactionGroup{}
	for _, r := range rows {
		g, ok := byEmoji[r.Emoji]
		if !ok {
			g = &models.ReactionGroup{Emoji: r.Emoji}
			byEmoji[r.Emoji] = g
		}
		g.Count++
		g.UserIDs = append(g.UserIDs, r.UserID)
	}
	out := make([]models.ReactionGroup, 0, len(byEmoji))
	for _, g := range byEmoji {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Emoji < out[j].Emoji })
	return out, nil
}

// SendMessage appends a message to the conversation, snapshots the author's
// display name, repoints the conversation's last message and clears the
// author's typing mark.
func (s *Service) SendMessage(authorID, convID, body, replyTo string) (models.Message, error) {
	author, err := s.ResolveUser(authorID)
	if err != nil {
		return models.Message{}, err
	}
	if _, err := s.requireMember(convID, authorID); err != nil {
		return models.Message{}, err
	}
	if err := validation.MessageBody(body); err != nil {
		return models.Message{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if replyTo != "" {
		if orig, err := store.GetMessage(replyTo); err == nil && orig.ConversationID != convID {
			return models.Message{}, fmt.Errorf("%w: replyTo references another conversation", ErrValidation)
		}
	}
	conv, err := store.GetConversation(convID)
	if err != nil {
		if store.ErrKeyNotFound(err) {
			return models.Message{}, ErrNotFound
		}
		return models.Message{}, err
	}

	msg := models.Message{
		ID:             utils.GenMessageID(),
		ConversationID: convID,
		AuthorID:       authorID,
		AuthorName:     author.Name,
		Body:           body,
		CreatedAt:      s.nowNanos(),
		ReplyTo:        replyTo,
	}
	if err := store.AppendMessage(msg, conv); err != nil {
		return models.Message{}, err
	}
	s.eph.ClearTyping(convID, authorID)

	logger.Info("message_sent", "conversation", convID, "id", msg.ID)
	s.publish(notify.TopicConversation(convID), "message.sent", msg.ID)
	members, err := store.ListMembers(convID)
	if err == nil {
		for _, m := range members {
			s.publish(notify.TopicUser(m.UserID), "message.sent", msg.ID)
		}
	}
	return msg, nil
}

// RemoveMessage soft-deletes a message. Only the author may delete; the
// body is retained but masked on reads. Deleting an absent message is a
// no-op so retries stay safe.
func (s *Service) RemoveMessage(callerID, msgID string) error {
	msg, err := store.GetMessage(msgID)
	if err != nil {
		if store.ErrKeyNotFound(err) {
			return nil
		}
		return err
	}
	if msg.AuthorID != callerID {
		return fmt.Errorf("%w: only the author may delete a message", ErrForbidden)
	}
	msg.Deleted = true
	msg.UpdatedAt = s.nowNanos()
	if err := store.UpdateMessage(msg); err != nil {
		return err
	}
	logger.Info("message_deleted", "conversation", msg.ConversationID, "id", msgID)
	s.publish(notify.TopicConversation(msg.ConversationID), "message.deleted", msgID)
	return nil
}

// UpdateMessage replaces the body of the caller's own message and marks it
// edited. The message keeps its position in the conversation.
func (s *Service) UpdateMessage(callerID, msgID, body string) (models.Message, error) {
	msg, err := store.GetMessage(msgID)
	if err != nil {
		if store.ErrKeyNotFound(err) {
			return models.Message{}, ErrNotFound
		}
		return models.Message{}, err
	}
	if msg.AuthorID != callerID {
		return models.Message{}, fmt.Errorf("%w: only the author may edit a message", ErrForbidden)
	}
	if err := validation.MessageBody(body); err != nil {
		return models.Message{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msg.Body = body
	msg.Edited = true
	msg.UpdatedAt = s.nowNanos()
	if err := store.UpdateMessage(msg); err != nil {
		return models.Message{}, err
	}
	logger.Info("message_edited", "conversation", msg.ConversationID, "id", msgID)
	s.publish(notify.TopicConversation(msg.ConversationID), "message.edited", msgID)
	return msg, nil
}

// ListMessageVersions returns the stored edit history of a message, oldest
// first. The caller must be a member of the message's conversation.
func (s *Service) ListMessageVersions(callerID, msgID string) ([]models.Message, error) {
	msg, err := store.GetMessage(msgID)
	if err != nil {
		if store.ErrKeyNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if _, err := s.requireMember(msg.ConversationID, callerID); err != nil {
		return nil, err
	}
	return store.ListMessageVersions(msgID)
}
