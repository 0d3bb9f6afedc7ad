package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"chatsyncd/pkg/chat"
	"chatsyncd/pkg/ephemeral"
	"chatsyncd/pkg/models"
	"chatsyncd/pkg/notify"
	"chatsyncd/pkg/store"
)

// newTestServer wires the full /v1 surface against a temp store. Requests
// carry the backend role header directly, standing in for the gateway
// middleware that sets it after API-key checks.
func newTestServer(t *testing.T) (*httptest.Server, *chat.Service) {
	t.Helper()
	if err := store.Open(filepath.Join(t.TempDir(), "db")); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	hub := notify.NewHub()
	svc := chat.New(ephemeral.NewStore(), hub, chat.Options{})
	srv := httptest.NewServer(Handler(svc, hub))
	t.Cleanup(srv.Close)
	return srv, svc
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Role-Name", "backend")
	if token != "" {
		req.Header.Set("X-User-ID", token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func syncUser(t *testing.T, srv *httptest.Server, token, name string) models.User {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/users/sync", nil)
	req.Header.Set("X-Role-Name", "backend")
	req.Header.Set("X-User-ID", token)
	req.Header.Set("X-User-Name", name)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sync %s: status %d", token, resp.StatusCode)
	}
	var u models.User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	return u
}

func TestUserSyncAndList(t *testing.T) {
	srv, _ := newTestServer(t)

	alice := syncUser(t, srv, "tok-a", "Alice")
	if alice.ID == "" || alice.Name != "Alice" {
		t.Fatalf("bad user: %+v", alice)
	}
	syncUser(t, srv, "tok-b", "Bob")

	resp := doJSON(t, srv, http.MethodGet, "/v1/users?search=bob", "tok-a", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list users: %d", resp.StatusCode)
	}
	var out struct {
		Users []models.User `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Users) != 1 || out.Users[0].Name != "Bob" {
		t.Fatalf("search result: %+v", out.Users)
	}
}

func TestUnauthenticatedRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	// frontend caller without a signature is cut off by the identity layer
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/conversations", nil)
	req.Header.Set("X-Role-Name", "frontend")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	// a token that never synced is unauthenticated, not unknown
	resp = doJSON(t, srv, http.MethodGet, "/v1/conversations", "tok-ghost", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unsynced token, got %d", resp.StatusCode)
	}
}

func TestConversationAndMessageFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	syncUser(t, srv, "tok-a", "Alice")
	bob := syncUser(t, srv, "tok-b", "Bob")
	syncUser(t, srv, "tok-e", "Eve")

	// create a 1:1
	resp := doJSON(t, srv, http.MethodPost, "/v1/conversations", "tok-a", map[string]interface{}{
		"participantIds": []string{bob.ID},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create conversation: %d", resp.StatusCode)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()

	// send a message
	resp = doJSON(t, srv, http.MethodPost, "/v1/conversations/"+created.ID+"/messages", "tok-a", map[string]string{"body": "hello"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send: %d", resp.StatusCode)
	}
	var msg models.Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	resp.Body.Close()

	// empty body is a 400
	resp = doJSON(t, srv, http.MethodPost, "/v1/conversations/"+created.ID+"/messages", "tok-a", map[string]string{"body": "  "})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty body: %d", resp.StatusCode)
	}

	// outsider cannot list or send
	resp = doJSON(t, srv, http.MethodGet, "/v1/conversations/"+created.ID+"/messages", "tok-e", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("outsider list: %d", resp.StatusCode)
	}

	// unknown conversation is a 404
	resp = doJSON(t, srv, http.MethodGet, "/v1/conversations/conv-nope/messages", "tok-a", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown conversation: %d", resp.StatusCode)
	}

	// member list sees the message
	resp = doJSON(t, srv, http.MethodGet, "/v1/conversations/"+created.ID+"/messages", "tok-b", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("member list: %d", resp.StatusCode)
	}
	var page struct {
		Messages []models.MessageView `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	resp.Body.Close()
	if len(page.Messages) != 1 || page.Messages[0].Body != "hello" {
		t.Fatalf("page: %+v", page.Messages)
	}

	// reaction toggle on and off
	resp = doJSON(t, srv, http.MethodPost, "/v1/messages/"+msg.ID+"/reactions", "tok-b", map[string]string{"emoji": "👍"})
	var toggled struct {
		Added bool `json:"added"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&toggled); err != nil {
		t.Fatalf("decode toggle: %v", err)
	}
	resp.Body.Close()
	if !toggled.Added {
		t.Fatal("first toggle should add")
	}
	resp = doJSON(t, srv, http.MethodPost, "/v1/messages/"+msg.ID+"/reactions", "tok-b", map[string]string{"emoji": "👍"})
	_ = json.NewDecoder(resp.Body).Decode(&toggled)
	resp.Body.Close()
	if toggled.Added {
		t.Fatal("second toggle should remove")
	}

	// only the author may edit
	resp = doJSON(t, srv, http.MethodPatch, "/v1/messages/"+msg.ID, "tok-b", map[string]string{"body": "hijack"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-author edit: %d", resp.StatusCode)
	}

	// mark read
	resp = doJSON(t, srv, http.MethodPost, "/v1/conversations/"+created.ID+"/read", "tok-b", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark read: %d", resp.StatusCode)
	}

	// conversation list reflects the read pointer
	resp = doJSON(t, srv, http.MethodGet, "/v1/conversations", "tok-b", nil)
	var convs struct {
		Conversations []models.ConversationView `json:"conversations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&convs); err != nil {
		t.Fatalf("decode conversations: %v", err)
	}
	resp.Body.Close()
	if len(convs.Conversations) != 1 || convs.Conversations[0].UnreadCount != 0 {
		t.Fatalf("conversations: %+v", convs.Conversations)
	}
}

func TestTypingAndPresenceEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	syncUser(t, srv, "tok-a", "Alice")
	bob := syncUser(t, srv, "tok-b", "Bob")

	resp := doJSON(t, srv, http.MethodPost, "/v1/conversations", "tok-a", map[string]interface{}{
		"participantIds": []string{bob.ID},
	})
	var created struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	resp = doJSON(t, srv, http.MethodPost, "/v1/conversations/"+created.ID+"/typing", "tok-b", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set typing: %d", resp.StatusCode)
	}

	resp = doJSON(t, srv, http.MethodGet, "/v1/conversations/"+created.ID+"/typing", "tok-a", nil)
	var typing struct {
		Typing []models.TypingUser `json:"typing"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&typing); err != nil {
		t.Fatalf("decode typing: %v", err)
	}
	resp.Body.Close()
	if len(typing.Typing) != 1 || typing.Typing[0].Name != "Bob" {
		t.Fatalf("typing: %+v", typing.Typing)
	}

	resp = doJSON(t, srv, http.MethodPost, "/v1/presence/heartbeat", "tok-a", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("heartbeat: %d", resp.StatusCode)
	}
	resp = doJSON(t, srv, http.MethodGet, "/v1/presence", "tok-b", nil)
	var pres struct {
		Presence []models.Presence `json:"presence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pres); err != nil {
		t.Fatalf("decode presence: %v", err)
	}
	resp.Body.Close()
	if len(pres.Presence) != 1 || !pres.Presence[0].Online {
		t.Fatalf("presence: %+v", pres.Presence)
	}
}

func TestAdminStatsRoleGate(t *testing.T) {
	srv, _ := newTestServer(t)
	syncUser(t, srv, "tok-a", "Alice")

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/admin/stats", nil)
	req.Header.Set("X-Role-Name", "frontend")
	req.Header.Set("X-User-ID", "tok-a")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("frontend admin stats: %d", resp.StatusCode)
	}

	resp = doJSON(t, srv, http.MethodGet, "/v1/admin/stats", "tok-a", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("backend admin stats: %d", resp.StatusCode)
	}
	var stats map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if _, ok := stats["disk_bytes"]; !ok {
		t.Fatalf("stats missing disk_bytes: %v", stats)
	}
}
