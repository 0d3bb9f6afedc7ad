// Package retention runs the background sweeper: it prunes aged message
// edit-versions from the durable store and evicts stale typing marks and
// offline presence rows from the ephemeral store on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adhocore/gronx"

	"chatsyncd/pkg/config"
	"chatsyncd/pkg/ephemeral"
	"chatsyncd/pkg/logger"
	"chatsyncd/pkg/store"
)

// Sweeper owns one scheduled retention loop.
type Sweeper struct {
	eff config.EffectiveConfigResult
	eph *ephemeral.Store
}

func New(eff config.EffectiveConfigResult, eph *ephemeral.Store) *Sweeper {
	return &Sweeper{eff: eff, eph: eph}
}

// Start starts the retention scheduler if enabled. Returns a cancel func.
func (s *Sweeper) Start(ctx context.Context) (context.CancelFunc, error) {
	ret := s.eff.Config.Retention

	// if retention is not enabled, return no-op cancel
	if !ret.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}

	// Use a stable retention folder under the DB path for lock and run
	// artifacts: <DBPath>/state/retention.
	retentionPath := filepath.Join(s.eff.DBPath, "state", "retention")
	if err := os.MkdirAll(retentionPath, 0o700); err != nil {
		logger.Error("retention_path_create_failed", "path", retentionPath, "error", err)
		return nil, err
	}

	// map empty cron to default daily @02:00
	cronExpr := ret.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	// validate cron expression using gronx
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", ret.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", ret.Cron)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "path", retentionPath)
	ctx2, cancel := context.WithCancel(ctx)
	go s.runScheduler(ctx2, cronExpr)

	logger.Info("retention_scheduler_started", "path", retentionPath)
	return cancel, nil
}

// runScheduler uses gronx to compute the next tick for the configured cron
// expression and sleeps until that time. This yields sharper scheduling and
// supports full cron syntax.
func (s *Sweeper) runScheduler(ctx context.Context, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		// compute next tick after now (UTC). allowCurrent=false so we get the
		// next future tick.
		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			// fallback sleep then retry
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				logger.Info("retention_scheduler_stopping")
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait < 0 {
			wait = time.Second
		}

		// wait until the exact next tick or cancellation
		select {
		case <-time.After(wait):
			if err := s.RunOnce(ctx); err != nil {
				logger.Error("retention_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
	}
}

// RunOnce performs a single sweep. Exposed so admin tooling and tests can
// trigger retention without waiting for the cron tick.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	start := time.Now()

	// durable: prune message edit-versions past their age cap
	pruned := 0
	if days := s.eff.Config.Retention.VersionMaxAgeDays; days > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -days).UnixNano()
		n, err := store.DeleteMessageVersionsBefore(cutoff)
		if err != nil {
			return fmt.Errorf("prune message versions: %w", err)
		}
		pruned = n
	}

	// ephemeral: marks older than the longest staleness window are garbage
	// under any read-time policy, so evicting them never changes results
	if s.eph != nil {
		window := time.Duration(s.eff.Config.Chat.OnlineWindowSecondsOrDefault()) * time.Second
		s.eph.Sweep(time.Now().UTC().Add(-window).UnixNano())
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	logger.Info("retention_run_complete", "versions_pruned", pruned, "took_ms", time.Since(start).Milliseconds())
	return nil
}
