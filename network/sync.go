package network

import (
	"context"
	"fmt"
	"log/slog"
	stdSync "sync"
	"time"

	apperrors "github.com/rintaro216/hokkaido-community-app/errors"
	"github.com/rintaro216/hokkaido-community-app/logging"
	"github.com/rintaro216/hokkaido-community-app/outbox"
)

// SyncResult reports a completed outbox flush.
type SyncResult struct {
	// Synced is the number of entries transmitted and acknowledged.
	Synced int

	// Failed is the number of entries left pending for the next flush.
	Failed int

	// Skipped is true when the flush was skipped for lack of connectivity.
	Skipped bool

	// Errors contains the per-entry failures.
	Errors []error

	// StartTime is when the flush began.
	StartTime time.Time

	// Duration is how long the flush took.
	Duration time.Duration
}

// Syncer drains the offline outbox through the network service, marking
// each entry synced individually so a partial flush loses nothing.
type Syncer struct {
	service *Service
	outbox  *outbox.Outbox
	logger  *logging.Logger

	// Interval between automatic flushes; zero disables auto-sync.
	Interval time.Duration

	mu           stdSync.Mutex
	autoSyncStop chan struct{}
}

// NewSyncer creates a Syncer over the given service and outbox.
func NewSyncer(service *Service, ob *outbox.Outbox, logger *logging.Logger) *Syncer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Syncer{
		service: service,
		outbox:  ob,
		logger:  logger.WithComponent("syncer"),
	}
}

// Sync flushes all pending outbox entries. Each successful transmission is
// acknowledged per item; failures stay queued. Disconnected state skips the
// flush entirely.
func (sy *Syncer) Sync(ctx context.Context) *SyncResult {
	result := &SyncResult{StartTime: time.Now()}
	defer func() {
		result.Duration = time.Since(result.StartTime)
	}()

	if !sy.service.State().IsConnected {
		result.Skipped = true
		sy.logger.InfoContext(ctx, "not connected, skipping sync")
		return result
	}

	pending := sy.outbox.Pending(ctx)
	if len(pending) == 0 {
		return result
	}

	sy.logger.InfoContext(ctx, "starting offline data sync",
		slog.Int("pending", len(pending)),
	)

	for _, entry := range pending {
		select {
		case <-ctx.Done():
			result.Errors = append(result.Errors, ctx.Err())
			result.Failed = len(pending) - result.Synced
			return result
		default:
		}

		resp := sy.service.APICall(ctx, "/posts", "POST", entry, &CallOptions{RequireConnection: false})
		if !resp.Success {
			result.Failed++
			result.Errors = append(result.Errors,
				apperrors.NewNetworkError(apperrors.OpSync,
					fmt.Errorf("post %s: %s", entry.ID, resp.Err)))
			continue
		}

		if err := sy.outbox.MarkSynced(ctx, entry.ID); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Synced++
	}

	sy.logger.InfoContext(ctx, "offline data sync completed",
		slog.Int("synced", result.Synced),
		slog.Int("failed", result.Failed),
	)
	return result
}

// StartAutoSync begins periodic flushing at the configured Interval.
func (sy *Syncer) StartAutoSync(ctx context.Context) error {
	sy.mu.Lock()
	defer sy.mu.Unlock()

	if sy.Interval <= 0 {
		return apperrors.New(apperrors.OpSync, fmt.Errorf("sync interval must be positive"))
	}
	if sy.autoSyncStop != nil {
		return apperrors.New(apperrors.OpSync, fmt.Errorf("auto sync is already running"))
	}

	stopChan := make(chan struct{})
	sy.autoSyncStop = stopChan

	go func() {
		ticker := time.NewTicker(sy.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stopChan:
				return
			case <-ticker.C:
				sy.Sync(ctx)
			}
		}
	}()

	return nil
}

// StopAutoSync stops periodic flushing.
func (sy *Syncer) StopAutoSync() error {
	sy.mu.Lock()
	defer sy.mu.Unlock()

	if sy.autoSyncStop == nil {
		return apperrors.New(apperrors.OpSync, fmt.Errorf("auto sync is not running"))
	}

	close(sy.autoSyncStop)
	sy.autoSyncStop = nil
	return nil
}
