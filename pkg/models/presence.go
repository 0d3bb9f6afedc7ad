package models

// Presence is one ephemeral row per user, upserted on heartbeat. Online
// combines the explicit flag with a staleness window at read time.
type Presence struct {
	UserID    string `json:"user_id"`
	Online    bool   `json:"online"`
	UpdatedAt int64  `json:"updated_at"`
}

// TypingMark is one ephemeral row per (conversation, user), upserted while
// the user types and filtered against the typing window on reads.
type TypingMark struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	UpdatedAt      int64  `json:"updated_at"`
}
