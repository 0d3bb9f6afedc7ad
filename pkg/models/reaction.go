package models

// Reaction exists per (message, user, emoji) triple; presence of the row is
// the state. A user may react with several distinct emoji to one message.
type Reaction struct {
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
	CreatedAt int64  `json:"created_at"`
}
