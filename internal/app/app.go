package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"chatsyncd/internal/retention"
	"chatsyncd/pkg/chat"
	"chatsyncd/pkg/config"
	"chatsyncd/pkg/ephemeral"
	"chatsyncd/pkg/notify"
	"chatsyncd/pkg/store"
	"chatsyncd/pkg/telemetry"
	"chatsyncd/pkg/validation"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	eph     *ephemeral.Store
	hub     *notify.Hub
	svc     *chat.Service
	sweeper *retention.Sweeper

	srv *http.Server
}

// New initializes resources that do not require a running context (DB,
// validation rules, runtime keys, the chat service). It does not start the
// HTTP server or the retention scheduler; call Run to start those and block
// until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	// validate effective config early and fail fast
	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	// runtime keys
	runtimeCfg := &config.RuntimeConfig{BackendKeys: map[string]struct{}{}, SigningKeys: map[string]struct{}{}}
	for _, k := range eff.Config.Security.APIKeys.Backend {
		runtimeCfg.BackendKeys[k] = struct{}{}
		runtimeCfg.SigningKeys[k] = struct{}{}
	}
	config.SetRuntime(runtimeCfg)

	// validation rules
	validation.SetRules(validation.Rules{
		MaxBodyLength:  eff.Config.Validation.MaxBodyLength,
		MaxNameLength:  eff.Config.Validation.MaxNameLength,
		MaxEmojiLength: eff.Config.Validation.MaxEmojiLength,
	})

	// open store
	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}
	telemetry.RegisterDiskGauge(store.DiskUsage)

	eph := ephemeral.NewStore()
	hub := notify.NewHub()
	svc := chat.New(eph, hub, chat.Options{
		OnlineWindow: time.Duration(eff.Config.Chat.OnlineWindowSecondsOrDefault()) * time.Second,
		TypingWindow: time.Duration(eff.Config.Chat.TypingWindowSecondsOrDefault()) * time.Second,
		PageSize:     eff.Config.Chat.MessagePageSizeOrDefault(),
	})

	a := &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		eph:       eph,
		hub:       hub,
		svc:       svc,
		sweeper:   retention.New(eff, eph),
	}
	return a, nil
}

// Run starts the retention scheduler and the HTTP server, and blocks until
// ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	stopRetention, err := a.sweeper.Start(ctx)
	if err != nil {
		return err
	}
	defer stopRetention()

	a.printBanner()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Close releases resources opened in New.
func (a *App) Close() error {
	if a.srv != nil {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.srv.Shutdown(shutCtx)
	}
	return store.Close()
}
