package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"chatsyncd/pkg/models"
)

func openTestDB(t *testing.T) {
	t.Helper()
	if err := Open(filepath.Join(t.TempDir(), "db")); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = Close() })
}

func TestUserRoundTripAndTokenIndex(t *testing.T) {
	openTestDB(t)

	u := models.User{ID: "user-1", Name: "Alice", IdentityToken: "tok-1", CreatedAt: 1}
	if err := SaveUser(u); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	got, err := GetUser("user-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Name != "Alice" {
		t.Fatalf("expected Alice, got %q", got.Name)
	}
	id, err := GetUserIDByToken("tok-1")
	if err != nil || id != "user-1" {
		t.Fatalf("token index: id=%q err=%v", id, err)
	}
	if _, err := GetUserIDByToken("tok-none"); !ErrKeyNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestListUsersSkipsIndexRows(t *testing.T) {
	openTestDB(t)

	for i := 0; i < 3; i++ {
		u := models.User{ID: fmt.Sprintf("user-%d", i), Name: fmt.Sprintf("u%d", i), IdentityToken: fmt.Sprintf("tok-%d", i)}
		if err := SaveUser(u); err != nil {
			t.Fatalf("SaveUser: %v", err)
		}
	}
	// membership index rows share the user: prefix and must not leak
	conv := models.Conversation{ID: "conv-1", CreatedAt: 1}
	members := []models.Member{{ConversationID: "conv-1", UserID: "user-0"}}
	if err := CreateConversation(conv, members); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	users, err := ListUsers()
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
}

func TestConversationBatchAndMembership(t *testing.T) {
	openTestDB(t)

	conv := models.Conversation{ID: "conv-1", Name: "team", IsGroup: true, CreatedAt: 1}
	members := []models.Member{
		{ConversationID: "conv-1", UserID: "user-a", JoinedAt: 1},
		{ConversationID: "conv-1", UserID: "user-b", JoinedAt: 1},
	}
	if err := CreateConversation(conv, members); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	got, err := GetConversation("conv-1")
	if err != nil || got.Name != "team" {
		t.Fatalf("GetConversation: %+v err=%v", got, err)
	}
	ms, err := ListMembers("conv-1")
	if err != nil || len(ms) != 2 {
		t.Fatalf("ListMembers: n=%d err=%v", len(ms), err)
	}
	ids, err := ListUserConversationIDs("user-a")
	if err != nil || len(ids) != 1 || ids[0] != "conv-1" {
		t.Fatalf("ListUserConversationIDs: %v err=%v", ids, err)
	}

	m, err := GetMember("conv-1", "user-a")
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	m.LastReadAt = 42
	if err := SaveMember(m); err != nil {
		t.Fatalf("SaveMember: %v", err)
	}
	m2, _ := GetMember("conv-1", "user-a")
	if m2.LastReadAt != 42 {
		t.Fatalf("lastReadAt not persisted: %d", m2.LastReadAt)
	}
}

func appendTestMessage(t *testing.T, conv models.Conversation, id, body string, ts int64) models.Message {
	t.Helper()
	msg := models.Message{ID: id, ConversationID: conv.ID, AuthorID: "user-a", Body: body, CreatedAt: ts}
	if err := AppendMessage(msg, conv); err != nil {
		t.Fatalf("AppendMessage %s: %v", id, err)
	}
	return msg
}

func TestMessageOrderAndCursor(t *testing.T) {
	openTestDB(t)

	conv := models.Conversation{ID: "conv-1", CreatedAt: 1}
	if err := CreateConversation(conv, nil); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).UnixNano()
	for i := 0; i < 5; i++ {
		appendTestMessage(t, conv, fmt.Sprintf("msg-%d", i), fmt.Sprintf("body-%d", i), base+int64(i))
	}

	// full scan comes back in creation order
	all, next, err := ListConversationMessages("conv-1", "", 0)
	if err != nil {
		t.Fatalf("ListConversationMessages: %v", err)
	}
	if len(all) != 5 || next != "" {
		t.Fatalf("expected 5 rows no cursor, got %d %q", len(all), next)
	}
	for i, m := range all {
		if m.ID != fmt.Sprintf("msg-%d", i) {
			t.Fatalf("order broken at %d: %s", i, m.ID)
		}
	}

	// paged scan resumes strictly after the cursor, no overlap
	var paged []models.Message
	cursor := ""
	for {
		page, nc, err := ListConversationMessages("conv-1", cursor, 2)
		if err != nil {
			t.Fatalf("paged list: %v", err)
		}
		paged = append(paged, page...)
		if nc == "" {
			break
		}
		cursor = nc
	}
	if len(paged) != 5 {
		t.Fatalf("paged scan returned %d rows", len(paged))
	}

	// unread counting is strictly-after
	n, err := CountMessagesAfter("conv-1", base+1)
	if err != nil || n != 3 {
		t.Fatalf("CountMessagesAfter: n=%d err=%v", n, err)
	}
	n, _ = CountMessagesAfter("conv-1", 0)
	if n != 5 {
		t.Fatalf("CountMessagesAfter(0): %d", n)
	}

	// the conversation meta tracks the newest message
	got, _ := GetConversation("conv-1")
	if got.LastMessageID != "msg-4" {
		t.Fatalf("LastMessageID = %q", got.LastMessageID)
	}
}

func TestUpdateMessageInPlaceWithVersions(t *testing.T) {
	openTestDB(t)

	conv := models.Conversation{ID: "conv-1", CreatedAt: 1}
	if err := CreateConversation(conv, nil); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).UnixNano()
	msg := appendTestMessage(t, conv, "msg-1", "original", base)
	appendTestMessage(t, conv, "msg-2", "after", base+1)

	msg.Body = "edited"
	msg.Edited = true
	msg.UpdatedAt = base + 100
	if err := UpdateMessage(msg); err != nil {
		t.Fatalf("UpdateMessage: %v", err)
	}

	got, err := GetMessage("msg-1")
	if err != nil || got.Body != "edited" {
		t.Fatalf("GetMessage after edit: %+v err=%v", got, err)
	}

	// position unchanged
	all, _, err := ListConversationMessages("conv-1", "", 0)
	if err != nil || len(all) != 2 || all[0].ID != "msg-1" {
		t.Fatalf("edit moved the message: %+v err=%v", all, err)
	}

	versions, err := ListMessageVersions("msg-1")
	if err != nil || len(versions) != 2 {
		t.Fatalf("ListMessageVersions: n=%d err=%v", len(versions), err)
	}
	if versions[0].Body != "original" || versions[1].Body != "edited" {
		t.Fatalf("version order wrong: %q %q", versions[0].Body, versions[1].Body)
	}

	// retention prunes only rows older than the cutoff
	deleted, err := DeleteMessageVersionsBefore(base + 50)
	if err != nil {
		t.Fatalf("DeleteMessageVersionsBefore: %v", err)
	}
	if deleted != 2 { // msg-1 original + msg-2 initial version
		t.Fatalf("deleted %d version rows", deleted)
	}
	versions, _ = ListMessageVersions("msg-1")
	if len(versions) != 1 || versions[0].Body != "edited" {
		t.Fatalf("surviving versions wrong: %+v", versions)
	}
}

func TestReactionRows(t *testing.T) {
	openTestDB(t)

	r := models.Reaction{MessageID: "msg-1", UserID: "user-a", Emoji: "👍", CreatedAt: 1}
	if err := SaveReaction(r); err != nil {
		t.Fatalf("SaveReaction: %v", err)
	}
	if err := SaveReaction(models.Reaction{MessageID: "msg-1", UserID: "user-b", Emoji: "👍", CreatedAt: 2}); err != nil {
		t.Fatalf("SaveReaction: %v", err)
	}

	if _, err := GetReaction("msg-1", "user-a", "👍"); err != nil {
		t.Fatalf("GetReaction: %v", err)
	}
	if _, err := GetReaction("msg-1", "user-a", "🔥"); !ErrKeyNotFound(err) {
		t.Fatalf("expected not-found for other emoji, got %v", err)
	}

	rows, err := ListMessageReactions("msg-1")
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListMessageReactions: n=%d err=%v", len(rows), err)
	}

	if err := DeleteReaction("msg-1", "user-a", "👍"); err != nil {
		t.Fatalf("DeleteReaction: %v", err)
	}
	rows, _ = ListMessageReactions("msg-1")
	if len(rows) != 1 || rows[0].UserID != "user-b" {
		t.Fatalf("wrong survivor: %+v", rows)
	}
}
