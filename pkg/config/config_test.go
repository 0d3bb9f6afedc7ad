package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAddrDefaults(t *testing.T) {
	c := &Config{}
	if got := c.Addr(); got != "0.0.0.0:8080" {
		t.Fatalf("default addr = %q", got)
	}
	c.Server.Address = "127.0.0.1"
	c.Server.Port = 9090
	if got := c.Addr(); got != "127.0.0.1:9090" {
		t.Fatalf("addr = %q", got)
	}
}

func TestChatConfigDefaults(t *testing.T) {
	var c ChatConfig
	if c.OnlineWindowSecondsOrDefault() != 30 {
		t.Fatalf("online window default: %d", c.OnlineWindowSecondsOrDefault())
	}
	if c.TypingWindowSecondsOrDefault() != 5 {
		t.Fatalf("typing window default: %d", c.TypingWindowSecondsOrDefault())
	}
	if c.MessagePageSizeOrDefault() != 100 {
		t.Fatalf("page size default: %d", c.MessagePageSizeOrDefault())
	}
	c = ChatConfig{OnlineWindowSeconds: 60, TypingWindowSeconds: 10, MessagePageSize: 25}
	if c.OnlineWindowSecondsOrDefault() != 60 || c.TypingWindowSecondsOrDefault() != 10 || c.MessagePageSizeOrDefault() != 25 {
		t.Fatalf("configured values not honored: %+v", c)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  address: "127.0.0.1"
  port: 9191
  db_path: "/tmp/chat-db"
chat:
  online_window_seconds: 45
retention:
  enabled: true
  cron: "0 3 * * *"
  version_max_age_days: 14
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9191 || cfg.Server.DBPath != "/tmp/chat-db" {
		t.Fatalf("server section: %+v", cfg.Server)
	}
	if cfg.Chat.OnlineWindowSeconds != 45 {
		t.Fatalf("chat section: %+v", cfg.Chat)
	}
	if !cfg.Retention.Enabled || cfg.Retention.Cron != "0 3 * * *" || cfg.Retention.VersionMaxAgeDays != 14 {
		t.Fatalf("retention section: %+v", cfg.Retention)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHATSYNCD_ADDR", "10.0.0.1:7070")
	t.Setenv("CHATSYNCD_DB_PATH", "/data/chat")
	t.Setenv("CHATSYNCD_API_BACKEND_KEYS", "bk-1, bk-2")
	t.Setenv("CHATSYNCD_ONLINE_WINDOW_SECONDS", "90")

	cfg := &Config{}
	backendKeys, signingKeys, envUsed := LoadEnvOverrides(cfg)
	if !envUsed {
		t.Fatal("env overrides not detected")
	}
	if cfg.Server.Address != "10.0.0.1" || cfg.Server.Port != 7070 {
		t.Fatalf("addr override: %+v", cfg.Server)
	}
	if cfg.Server.DBPath != "/data/chat" {
		t.Fatalf("db path override: %q", cfg.Server.DBPath)
	}
	if cfg.Chat.OnlineWindowSeconds != 90 {
		t.Fatalf("window override: %d", cfg.Chat.OnlineWindowSeconds)
	}
	if len(backendKeys) != 2 {
		t.Fatalf("backend keys: %v", backendKeys)
	}
	// signing keys mirror the backend key set
	for k := range backendKeys {
		if _, ok := signingKeys[k]; !ok {
			t.Fatalf("signing key missing for %q", k)
		}
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("CHATSYNCD_CONFIG", "/etc/chatsyncd/config.yaml")
	if got := ResolveConfigPath("./config.yaml", true); got != "./config.yaml" {
		t.Fatalf("explicit flag should win: %q", got)
	}
	if got := ResolveConfigPath("./config.yaml", false); got != "/etc/chatsyncd/config.yaml" {
		t.Fatalf("env should win over default: %q", got)
	}
}

func TestRuntimeKeyCopies(t *testing.T) {
	SetRuntime(&RuntimeConfig{SigningKeys: map[string]struct{}{"sk": {}}})
	defer SetRuntime(nil)

	keys := GetSigningKeys()
	if _, ok := keys["sk"]; !ok {
		t.Fatalf("signing keys: %v", keys)
	}
	// mutating the copy must not touch the runtime state
	delete(keys, "sk")
	if len(GetSigningKeys()) != 1 {
		t.Fatal("runtime key set mutated through copy")
	}
}
