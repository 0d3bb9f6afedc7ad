package models

type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	// AuthorID may be empty for system rows; AuthorName is a snapshot taken
	// at send time so later profile renames do not rewrite history.
	AuthorID   string `json:"author_id,omitempty"`
	AuthorName string `json:"author_name"`
	Body       string `json:"body"`
	CreatedAt  int64  `json:"created_at"`
	// Deleted marks a soft-deleted message; the body is retained but masked
	// on reads.
	Deleted   bool  `json:"deleted,omitempty"`
	Edited    bool  `json:"edited,omitempty"`
	UpdatedAt int64 `json:"updated_at,omitempty"`
	// Optional reply-to message ID; must resolve within the same
	// conversation, dangling references are tolerated on reads.
	ReplyTo string `json:"reply_to,omitempty"`
}
