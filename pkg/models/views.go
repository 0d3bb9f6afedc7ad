package models

// ConversationView is the annotated per-viewer shape returned by
// listConversations.
type ConversationView struct {
	Conversation
	// OtherMember is set for 1:1 conversations only.
	OtherMember *User `json:"other_member,omitempty"`
	// MemberProfiles lists every member except the viewer.
	MemberProfiles []User   `json:"member_profiles"`
	LastMessage    *Message `json:"last_message,omitempty"`
	UnreadCount    int      `json:"unread_count"`
	MemberCount    int      `json:"member_count"`
}

// ReactionGroup is the per-emoji tally computed on each message read.
type ReactionGroup struct {
	Emoji   string   `json:"emoji"`
	Count   int      `json:"count"`
	UserIDs []string `json:"user_ids"`
}

// ReplyPreview is the snapshot of a replied-to message embedded in a
// MessageView. Deleted originals keep their placeholder body.
type ReplyPreview struct {
	AuthorName string `json:"author_name"`
	Body       string `json:"body"`
	Deleted    bool   `json:"deleted,omitempty"`
}

// ReadMark exposes a member's lastReadAt so clients can compute read
// receipts (read iff lastReadAt >= message.CreatedAt).
type ReadMark struct {
	UserID     string `json:"user_id"`
	LastReadAt int64  `json:"last_read_at"`
}

// MessageView is a message annotated with its derived read-side state.
type MessageView struct {
	Message
	Reactions []ReactionGroup `json:"reactions"`
	ReadBy    []ReadMark      `json:"read_by"`
	RepliedTo *ReplyPreview   `json:"replied_to,omitempty"`
}

// TypingUser is one actively-typing member resolved to a display name.
type TypingUser struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}
