// Package outbox implements the durable queue of posts written while
// offline. Entries are keyed by a collision-resistant id and acknowledged
// individually, so a partial flush that crashes mid-way loses nothing: the
// unacked entries are still pending on restart.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	stdSync "sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/rintaro216/hokkaido-community-app/errors"
	"github.com/rintaro216/hokkaido-community-app/kvstore"
	"github.com/rintaro216/hokkaido-community-app/logging"
	"github.com/rintaro216/hokkaido-community-app/types"
)

// Key is the storage key holding the queued entries.
const Key = "offline_posts"

// Outbox is the offline post queue over a key-value store. All list
// mutations are serialized by a single mutex.
type Outbox struct {
	store    kvstore.Store
	logger   *logging.Logger
	recorder *apperrors.Recorder
	now      func() time.Time

	mu stdSync.Mutex
}

// New creates an Outbox. logger and recorder may be nil.
func New(store kvstore.Store, logger *logging.Logger, recorder *apperrors.Recorder) *Outbox {
	if logger == nil {
		logger = logging.Default()
	}
	if recorder == nil {
		recorder = apperrors.NewRecorder()
	}
	return &Outbox{
		store:    store,
		logger:   logger.WithComponent("outbox"),
		recorder: recorder,
		now:      time.Now,
	}
}

// Add queues a post for later transmission. The post's ID is ignored; a
// fresh "offline_<uuid>" id is assigned so two adds in the same millisecond
// still produce distinct entries. Returns the stored entry.
func (o *Outbox) Add(ctx context.Context, post types.Post) (types.OfflinePost, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	post.ID = fmt.Sprintf("offline_%s", uuid.NewString())
	post.CreatedAt = o.now()

	entry := types.OfflinePost{Post: post, NeedsSync: true}

	entries := o.loadLocked(ctx)
	entries = append(entries, entry)
	if err := o.saveLocked(ctx, entries); err != nil {
		return types.OfflinePost{}, err
	}
	return entry, nil
}

// Pending returns all entries still awaiting sync. Absence or corruption
// degrades to an empty list.
func (o *Outbox) Pending(ctx context.Context) []types.OfflinePost {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.loadLocked(ctx)
}

// MarkSynced acknowledges a single entry by id and removes it from the
// queue. Acknowledging an unknown id is a no-op.
func (o *Outbox) MarkSynced(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	entries := o.loadLocked(ctx)
	kept := entries[:0]
	for _, entry := range entries {
		if entry.ID != id {
			kept = append(kept, entry)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}
	return o.saveLocked(ctx, kept)
}

// Clear deletes the entire queue. Prefer MarkSynced for normal operation;
// Clear is the legacy wholesale reset.
func (o *Outbox) Clear(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.store.Remove(ctx, Key); err != nil {
		appErr := apperrors.NewStorageError(apperrors.OpRemove, err)
		o.recorder.Record(appErr)
		return appErr
	}
	return nil
}

func (o *Outbox) loadLocked(ctx context.Context) []types.OfflinePost {
	raw, found, err := o.store.Get(ctx, Key)
	if err != nil {
		appErr := apperrors.NewStorageError(apperrors.OpGet, err)
		o.recorder.Record(appErr)
		o.logger.LogError(ctx, appErr, "outbox read degraded to empty")
		return []types.OfflinePost{}
	}
	if !found {
		return []types.OfflinePost{}
	}

	var entries []types.OfflinePost
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		appErr := apperrors.NewStorageError(apperrors.OpLoad, err)
		o.recorder.Record(appErr)
		o.logger.LogError(ctx, appErr, "corrupt outbox degraded to empty")
		return []types.OfflinePost{}
	}
	if entries == nil {
		entries = []types.OfflinePost{}
	}
	return entries
}

func (o *Outbox) saveLocked(ctx context.Context, entries []types.OfflinePost) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return apperrors.NewStorageError(apperrors.OpSave, err)
	}
	if err := o.store.Set(ctx, Key, string(raw)); err != nil {
		appErr := apperrors.NewStorageError(apperrors.OpSave, err)
		o.recorder.Record(appErr)
		return appErr
	}
	return nil
}
