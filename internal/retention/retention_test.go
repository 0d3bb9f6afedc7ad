package retention

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"chatsyncd/pkg/config"
	"chatsyncd/pkg/ephemeral"
	"chatsyncd/pkg/models"
	"chatsyncd/pkg/store"
)

func testEff(t *testing.T, ret config.RetentionConfig) config.EffectiveConfigResult {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{Retention: ret}
	return config.EffectiveConfigResult{Config: cfg, DBPath: filepath.Join(dir, "db")}
}

func TestStartDisabledIsNoop(t *testing.T) {
	s := New(testEff(t, config.RetentionConfig{Enabled: false}), nil)
	cancel, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()
}

func TestStartRejectsBadCron(t *testing.T) {
	s := New(testEff(t, config.RetentionConfig{Enabled: true, Cron: "not a cron"}), nil)
	if _, err := s.Start(context.Background()); err == nil {
		t.Fatal("invalid cron accepted")
	}
}

func TestRunOncePrunesVersionsAndEphemeral(t *testing.T) {
	eff := testEff(t, config.RetentionConfig{Enabled: true, VersionMaxAgeDays: 7})
	if err := store.Open(eff.DBPath); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	conv := models.Conversation{ID: "conv-1", CreatedAt: 1}
	if err := store.CreateConversation(conv, nil); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	old := time.Now().UTC().AddDate(0, 0, -30).UnixNano()
	msg := models.Message{ID: "msg-1", ConversationID: "conv-1", AuthorID: "user-a", Body: "stale", CreatedAt: old}
	if err := store.AppendMessage(msg, conv); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	msg.Body = "fresh"
	msg.Edited = true
	msg.UpdatedAt = time.Now().UTC().UnixNano()
	if err := store.UpdateMessage(msg); err != nil {
		t.Fatalf("UpdateMessage: %v", err)
	}

	eph := ephemeral.NewStore()
	eph.Disconnect("user-a") // recent offline row, inside the window

	s := New(eff, eph)
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	// the sweep cutoff trails the online window, so a fresh row survives
	if _, ok := eph.Presence("user-a"); !ok {
		t.Fatal("fresh presence row swept")
	}

	versions, err := store.ListMessageVersions("msg-1")
	if err != nil {
		t.Fatalf("ListMessageVersions: %v", err)
	}
	if len(versions) != 1 || versions[0].Body != "fresh" {
		t.Fatalf("stale version survived: %+v", versions)
	}
}
