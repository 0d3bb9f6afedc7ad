package models

// Conversation is a 1:1 or group thread. Name is only meaningful for
// groups. LastMessageID is maintained by the message store on every send.
type Conversation struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	IsGroup       bool   `json:"is_group"`
	LastMessageID string `json:"last_message_id,omitempty"`
	CreatedAt     int64  `json:"created_at"`
}

// Member is one (conversation, user) membership row. Membership is the
// authorization boundary for everything scoped to a conversation.
// LastReadAt is updated only by the owning user via markRead.
type Member struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	LastReadAt     int64  `json:"last_read_at,omitempty"`
	JoinedAt       int64  `json:"joined_at"`
}
