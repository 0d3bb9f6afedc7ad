package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"chatsyncd/pkg/logger"
	"chatsyncd/pkg/models"

	"github.com/cockroachdb/pebble"
)

var (
	db     *pebble.DB
	dbPath string
)

// seq provides a small counter to reduce key collisions when multiple
// messages share the same nanosecond timestamp.
var seq uint64

// Key layout:
//
//	user:<id>                          -> models.User
//	user:token:<token>                 -> user id
//	conv:<id>:meta                     -> models.Conversation
//	conv:<id>:member:<userID>          -> models.Member
//	user:<id>:conv:<convID>            -> conversation id
//	conv:<id>:msg:<padded-ts>-<seq>    -> models.Message (creation order)
//	msg:<id>                           -> conv msg key (id indirection)
//	version:msg:<id>:<padded-ts>-<seq> -> models.Message (edit history)
//	reaction:<msgID>:<userID>:<emoji>  -> models.Reaction

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

var errNotOpen = fmt.Errorf("pebble not opened; call store.Open first")

// ErrKeyNotFound reports whether err is the underlying missing-key error.
func ErrKeyNotFound(err error) bool {
	return err != nil && err == pebble.ErrNotFound
}

func get(key string) ([]byte, error) {
	if db == nil {
		return nil, errNotOpen
	}
	v, closer, err := db.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), v...)
	if closer != nil {
		_ = closer.Close()
	}
	return out, nil
}

func set(key string, value []byte) error {
	if db == nil {
		return errNotOpen
	}
	return db.Set([]byte(key), value, pebble.Sync)
}

func del(key string) error {
	if db == nil {
		return errNotOpen
	}
	return db.Delete([]byte(key), pebble.Sync)
}

// orderedSuffix builds the sortable <padded-ts>-<seq> component used for
// message keys. Zero-padding keeps byte order equal to creation order.
func orderedSuffix(ts int64) string {
	s := atomic.AddUint64(&seq, 1)
	return fmt.Sprintf("%020d-%06d", ts, s)
}

// --- users ---

// SaveUser writes the user row and its identity-token index entry.
func SaveUser(u models.User) error {
	if db == nil {
		return errNotOpen
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	b := db.NewBatch()
	defer b.Close()
	if err := b.Set([]byte("user:"+u.ID), data, nil); err != nil {
		return err
	}
	if err := b.Set([]byte("user:token:"+u.IdentityToken), []byte(u.ID), nil); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		logger.Error("save_user_failed", "user", u.ID, "error", err)
		return err
	}
	return nil
}

// GetUser returns the user row for an internal user ID.
func GetUser(id string) (models.User, error) {
	var u models.User
	v, err := get("user:" + id)
	if err != nil {
		return u, err
	}
	if err := json.Unmarshal(v, &u); err != nil {
		return u, fmt.Errorf("invalid user JSON: %w", err)
	}
	return u, nil
}

// GetUserIDByToken resolves an identity token to an internal user ID.
func GetUserIDByToken(token string) (string, error) {
	v, err := get("user:token:" + token)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// ListUsers returns all user rows.
func ListUsers() ([]models.User, error) {
	vals, err := scanValues("user:", func(k string) bool {
		// skip token index and membership index entries
		return !strings.Contains(k[len("user:"):], ":")
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(vals))
	for _, v := range vals {
		var u models.User
		if err := json.Unmarshal(v, &u); err != nil {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// --- conversations & membership ---

// SaveConversation writes conversation metadata.
func SaveConversation(c models.Conversation) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	return set("conv:"+c.ID+":meta", data)
}

// GetConversation returns the conversation metadata row.
func GetConversation(id string) (models.Conversation, error) {
	var c models.Conversation
	v, err := get("conv:" + id + ":meta")
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(v, &c); err != nil {
		return c, fmt.Errorf("invalid conversation JSON: %w", err)
	}
	return c, nil
}

// CreateConversation inserts the conversation plus all member rows and
// per-user membership index entries in a single batch, so a partially
// created conversation is never observable.
func CreateConversation(c models.Conversation, members []models.Member) error {
	if db == nil {
		return errNotOpen
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	b := db.NewBatch()
	defer b.Close()
	if err := b.Set([]byte("conv:"+c.ID+":meta"), data, nil); err != nil {
		return err
	}
	for _, m := range members {
		md, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal member: %w", err)
		}
		if err := b.Set([]byte("conv:"+c.ID+":member:"+m.UserID), md, nil); err != nil {
			return err
		}
		if err := b.Set([]byte("user:"+m.UserID+":conv:"+c.ID), []byte(c.ID), nil); err != nil {
			return err
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		logger.Error("create_conversation_failed", "conversation", c.ID, "error", err)
		return err
	}
	logger.Info("conversation_created", "conversation", c.ID, "members", len(members))
	return nil
}

// GetMember returns the membership row for (conversation, user).
func GetMember(convID, userID string) (models.Member, error) {
	var m models.Member
	v, err := get("conv:" + convID + ":member:" + userID)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(v, &m); err != nil {
		return m, fmt.Errorf("invalid member JSON: %w", err)
	}
	return m, nil
}

// SaveMember overwrites a membership row (used for lastReadAt updates).
func SaveMember(m models.Member) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal member: %w", err)
	}
	return set("conv:"+m.ConversationID+":member:"+m.UserID, data)
}

// ListMembers returns all membership rows of a conversation.
func ListMembers(convID string) ([]models.Member, error) {
	vals, err := scanValues("conv:"+convID+":member:", nil)
	if err != nil {
		return nil, err
	}
	out := make([]models.Member, 0, len(vals))
	for _, v := range vals {
		var m models.Member
		if err := json.Unmarshal(v, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// ListUserConversationIDs returns the IDs of every conversation the user is
// a member of.
func ListUserConversationIDs(userID string) ([]string, error) {
	vals, err := scanValues("user:"+userID+":conv:", nil)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		out = append(out, string(v))
	}
	return out, nil
}

// --- messages ---

// AppendMessage inserts a new message at a creation-ordered key, writes the
// id indirection and the initial version row, and repoints the conversation's
// lastMessageId, all in one batch.
func AppendMessage(msg models.Message, conv models.Conversation) error {
	if db == nil {
		return errNotOpen
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	suffix := orderedSuffix(msg.CreatedAt)
	key := "conv:" + msg.ConversationID + ":msg:" + suffix

	conv.LastMessageID = msg.ID
	cdata, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	b := db.NewBatch()
	defer b.Close()
	if err := b.Set([]byte(key), data, nil); err != nil {
		return err
	}
	if err := b.Set([]byte("msg:"+msg.ID), []byte(key), nil); err != nil {
		return err
	}
	if err := b.Set([]byte("version:msg:"+msg.ID+":"+suffix), data, nil); err != nil {
		return err
	}
	if err := b.Set([]byte("conv:"+conv.ID+":meta"), cdata, nil); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		logger.Error("append_message_failed", "conversation", msg.ConversationID, "key", key, "error", err)
		return err
	}
	logger.Debug("message_appended", "conversation", msg.ConversationID, "id", msg.ID)
	return nil
}

// GetMessage resolves a message ID through the indirection key and returns
// the current row.
func GetMessage(id string) (models.Message, error) {
	var m models.Message
	keyb, err := get("msg:" + id)
	if err != nil {
		return m, err
	}
	v, err := get(string(keyb))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(v, &m); err != nil {
		return m, fmt.Errorf("invalid message JSON: %w", err)
	}
	return m, nil
}

// UpdateMessage rewrites the message in place at its original conversation
// key (creation order never changes) and appends a version row.
func UpdateMessage(msg models.Message) error {
	if db == nil {
		return errNotOpen
	}
	keyb, err := get("msg:" + msg.ID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	ts := msg.UpdatedAt
	if ts == 0 {
		ts = time.Now().UTC().UnixNano()
	}
	b := db.NewBatch()
	defer b.Close()
	if err := b.Set(keyb, data, nil); err != nil {
		return err
	}
	if err := b.Set([]byte("version:msg:"+msg.ID+":"+orderedSuffix(ts)), data, nil); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		logger.Error("update_message_failed", "id", msg.ID, "error", err)
		return err
	}
	return nil
}

// ListConversationMessages returns messages of a conversation in creation
// order, starting after the opaque cursor (empty for the beginning), at most
// limit rows (<=0 means no bound). The returned cursor resumes the scan; it
// is empty when the scan reached the end.
func ListConversationMessages(convID, cursor string, limit int) ([]models.Message, string, error) {
	if db == nil {
		return nil, "", errNotOpen
	}
	prefix := []byte("conv:" + convID + ":msg:")
	start := prefix
	if cursor != "" {
		// resume strictly after the cursor key
		start = append(append([]byte(nil), prefix...), []byte(cursor+"\x00")...)
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, "", err
	}
	defer iter.Close()

	var out []models.Message
	next := ""
	for iter.SeekGE(start); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			next = ""
			break
		}
		v := append([]byte(nil), iter.Value()...)
		var m models.Message
		if err := json.Unmarshal(v, &m); err != nil {
			logger.Error("list_messages_invalid_json", "conversation", convID, "error", err)
			continue
		}
		out = append(out, m)
		next = string(iter.Key()[len(prefix):])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return nil, "", err
	}
	// only hand back a cursor when there may be more rows
	if limit <= 0 || len(out) < limit {
		next = ""
	}
	return out, next, nil
}

// CountMessagesAfter counts messages in a conversation created strictly
// after ts. Unread counts are recomputed on every read rather than cached.
func CountMessagesAfter(convID string, ts int64) (int, error) {
	if db == nil {
		return 0, errNotOpen
	}
	prefix := []byte("conv:" + convID + ":msg:")
	start := append(append([]byte(nil), prefix...), []byte(fmt.Sprintf("%020d", ts+1))...)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	n := 0
	for iter.SeekGE(start); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		n++
	}
	return n, iter.Error()
}

// ListMessageVersions returns all stored versions for a message ID in
// chronological order.
func ListMessageVersions(msgID string) ([]models.Message, error) {
	vals, err := scanValues("version:msg:"+msgID+":", nil)
	if err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(vals))
	for _, v := range vals {
		var m models.Message
		if err := json.Unmarshal(v, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// DeleteMessageVersionsBefore removes version rows older than ts for all
// messages; used by the retention sweeper. Returns the number deleted.
func DeleteMessageVersionsBefore(ts int64) (int, error) {
	if db == nil {
		return 0, errNotOpen
	}
	prefix := []byte("version:msg:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	var victims [][]byte
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		k := string(iter.Key())
		// suffix after the last ':' is <padded-ts>-<seq>
		idx := strings.LastIndex(k, ":")
		if idx < 0 || len(k[idx+1:]) < 20 {
			continue
		}
		var kts int64
		if _, err := fmt.Sscanf(k[idx+1:idx+21], "%d", &kts); err != nil {
			continue
		}
		if kts < ts {
			victims = append(victims, append([]byte(nil), iter.Key()...))
		}
	}
	if err := iter.Error(); err != nil {
		return 0, err
	}
	for _, k := range victims {
		if err := db.Delete(k, pebble.Sync); err != nil {
			return 0, err
		}
	}
	return len(victims), nil
}

// --- reactions ---

func reactionKey(msgID, userID, emoji string) string {
	return "reaction:" + msgID + ":" + userID + ":" + emoji
}

// SaveReaction inserts a reaction row for the exact triple.
func SaveReaction(r models.Reaction) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reaction: %w", err)
	}
	return set(reactionKey(r.MessageID, r.UserID, r.Emoji), data)
}

// GetReaction looks up the exact (message, user, emoji) row.
func GetReaction(msgID, userID, emoji string) (models.Reaction, error) {
	var r models.Reaction
	v, err := get(reactionKey(msgID, userID, emoji))
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(v, &r); err != nil {
		return r, fmt.Errorf("invalid reaction JSON: %w", err)
	}
	return r, nil
}

// DeleteReaction removes the exact (message, user, emoji) row.
func DeleteReaction(msgID, userID, emoji string) error {
	return del(reactionKey(msgID, userID, emoji))
}

// ListMessageReactions returns all reaction rows of a message.
func ListMessageReactions(msgID string) ([]models.Reaction, error) {
	vals, err := scanValues("reaction:"+msgID+":", nil)
	if err != nil {
		return nil, err
	}
	out := make([]models.Reaction, 0, len(vals))
	for _, v := range vals {
		var r models.Reaction
		if err := json.Unmarshal(v, &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// --- helpers ---

// scanValues collects values for all keys with the given prefix, optionally
// filtered by the full key.
func scanValues(prefix string, keep func(key string) bool) ([][]byte, error) {
	if db == nil {
		return nil, errNotOpen
	}
	pfx := []byte(prefix)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out [][]byte
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		if keep != nil && !keep(string(iter.Key())) {
			continue
		}
		out = append(out, append([]byte(nil), iter.Value()...))
	}
	return out, iter.Error()
}
