// Package storage provides CRUD over JSON-serialized domain records stored
// in a key-value store. Read and parse failures degrade to the empty or
// default value and are logged; they never propagate to callers. Write
// failures are returned as structured errors.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	stdSync "sync"
	"time"

	apperrors "github.com/rintaro216/hokkaido-community-app/errors"
	"github.com/rintaro216/hokkaido-community-app/kvstore"
	"github.com/rintaro216/hokkaido-community-app/logging"
	"github.com/rintaro216/hokkaido-community-app/types"
)

// Logical storage keys. Values are JSON-encoded.
const (
	KeyUserProfile    = "user_profile"
	KeySavedTracks    = "saved_tracks"
	KeySavedPosts     = "saved_posts"
	KeyFollowingUsers = "following_users"
	KeyUserSettings   = "user_settings"
	KeyOfflinePosts   = "offline_posts"
	KeyFavoriteSpots  = "favorite_spots"
)

// contentKeys are the keys wiped by ClearAllData. Auth keys are managed by
// the auth package and deliberately excluded.
var contentKeys = []string{
	KeyUserProfile,
	KeySavedTracks,
	KeySavedPosts,
	KeyFollowingUsers,
	KeyOfflinePosts,
	KeyFavoriteSpots,
}

// Service is the repository over a key-value store. Read-modify-write
// appends on a key are serialized by a per-key mutex so concurrent writers
// cannot clobber each other's appends.
type Service struct {
	store    kvstore.Store
	logger   *logging.Logger
	recorder *apperrors.Recorder
	now      func() time.Time

	keyMu stdSync.Mutex
	locks map[string]*stdSync.Mutex
}

// New creates a Service over the given store. logger and recorder may be
// nil; defaults are used.
func New(store kvstore.Store, logger *logging.Logger, recorder *apperrors.Recorder) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if recorder == nil {
		recorder = apperrors.NewRecorder()
	}
	return &Service{
		store:    store,
		logger:   logger.WithComponent("storage"),
		recorder: recorder,
		now:      time.Now,
		locks:    make(map[string]*stdSync.Mutex),
	}
}

// Store exposes the underlying key-value store for collaborating packages.
func (s *Service) Store() kvstore.Store { return s.store }

// Recorder exposes the error recorder for diagnostics.
func (s *Service) Recorder() *apperrors.Recorder { return s.recorder }

// lockKey returns the mutex serializing writes to a storage key.
func (s *Service) lockKey(key string) *stdSync.Mutex {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()

	mu, ok := s.locks[key]
	if !ok {
		mu = &stdSync.Mutex{}
		s.locks[key] = mu
	}
	return mu
}

// getJSON reads and decodes the value at key into out. It returns false on
// absence or any read/parse failure; failures are recorded and logged, never
// returned.
func (s *Service) getJSON(ctx context.Context, key string, out interface{}) bool {
	raw, found, err := s.store.Get(ctx, key)
	if err != nil {
		appErr := apperrors.NewStorageError(apperrors.OpGet, err)
		s.recorder.Record(appErr)
		s.logger.LogError(ctx, appErr, "read degraded to default")
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		appErr := apperrors.NewStorageError(apperrors.OpLoad, err)
		s.recorder.Record(appErr)
		s.logger.LogError(ctx, appErr, "corrupt record degraded to default")
		return false
	}
	return true
}

// setJSON encodes v and writes it under key. Write failures are returned.
func (s *Service) setJSON(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return apperrors.NewStorageError(apperrors.OpSave, err)
	}
	if err := s.store.Set(ctx, key, string(raw)); err != nil {
		appErr := apperrors.NewStorageError(apperrors.OpSave, err)
		s.recorder.Record(appErr)
		return appErr
	}
	return nil
}

// SaveUserProfile overwrites the whole profile record.
func (s *Service) SaveUserProfile(ctx context.Context, user *types.User) error {
	mu := s.lockKey(KeyUserProfile)
	mu.Lock()
	defer mu.Unlock()

	return s.setJSON(ctx, KeyUserProfile, user)
}

// GetUserProfile returns the stored profile, or nil if absent or corrupt.
func (s *Service) GetUserProfile(ctx context.Context) *types.User {
	var user types.User
	if !s.getJSON(ctx, KeyUserProfile, &user) {
		return nil
	}
	return &user
}

// SaveTrack merges a track into the saved-tracks map under trackID.
func (s *Service) SaveTrack(ctx context.Context, trackID string, track types.Track) error {
	mu := s.lockKey(KeySavedTracks)
	mu.Lock()
	defer mu.Unlock()

	tracks := s.getSavedTracksLocked(ctx)
	track.SavedAt = s.now()
	tracks[trackID] = track
	return s.setJSON(ctx, KeySavedTracks, tracks)
}

// GetSavedTracks returns the track map, empty on absence or corruption.
func (s *Service) GetSavedTracks(ctx context.Context) map[string]types.Track {
	mu := s.lockKey(KeySavedTracks)
	mu.Lock()
	defer mu.Unlock()

	return s.getSavedTracksLocked(ctx)
}

func (s *Service) getSavedTracksLocked(ctx context.Context) map[string]types.Track {
	tracks := make(map[string]types.Track)
	s.getJSON(ctx, KeySavedTracks, &tracks)
	return tracks
}

// DeleteTrack removes a single track by id. Deleting an absent id is a no-op.
func (s *Service) DeleteTrack(ctx context.Context, trackID string) error {
	mu := s.lockKey(KeySavedTracks)
	mu.Lock()
	defer mu.Unlock()

	tracks := s.getSavedTracksLocked(ctx)
	delete(tracks, trackID)
	return s.setJSON(ctx, KeySavedTracks, tracks)
}

// SavePost appends a post to the saved-posts list. The post's UserID must
// reference the stored profile.
func (s *Service) SavePost(ctx context.Context, post types.Post) error {
	profile := s.GetUserProfile(ctx)
	if profile == nil {
		return apperrors.NewValidationError(apperrors.OpSave,
			fmt.Errorf("no user profile exists for post author %q", post.UserID))
	}

	mu := s.lockKey(KeySavedPosts)
	mu.Lock()
	defer mu.Unlock()

	posts := s.getSavedPostsLocked(ctx)
	posts = append(posts, types.SavedPost{Post: post, SavedAt: s.now()})
	return s.setJSON(ctx, KeySavedPosts, posts)
}

// GetSavedPosts returns the saved-post list, empty on absence or corruption.
func (s *Service) GetSavedPosts(ctx context.Context) []types.SavedPost {
	mu := s.lockKey(KeySavedPosts)
	mu.Lock()
	defer mu.Unlock()

	return s.getSavedPostsLocked(ctx)
}

func (s *Service) getSavedPostsLocked(ctx context.Context) []types.SavedPost {
	var posts []types.SavedPost
	s.getJSON(ctx, KeySavedPosts, &posts)
	if posts == nil {
		posts = []types.SavedPost{}
	}
	return posts
}

// SaveFollowingUsers overwrites the following list.
func (s *Service) SaveFollowingUsers(ctx context.Context, userIDs []string) error {
	mu := s.lockKey(KeyFollowingUsers)
	mu.Lock()
	defer mu.Unlock()

	return s.setJSON(ctx, KeyFollowingUsers, userIDs)
}

// GetFollowingUsers returns the following list, empty on absence.
func (s *Service) GetFollowingUsers(ctx context.Context) []string {
	var ids []string
	s.getJSON(ctx, KeyFollowingUsers, &ids)
	if ids == nil {
		ids = []string{}
	}
	return ids
}

// SaveFavoriteSpot appends a spot unless one with the same id is already
// stored. Duplicate saves are a no-op.
func (s *Service) SaveFavoriteSpot(ctx context.Context, spot types.Spot) error {
	mu := s.lockKey(KeyFavoriteSpots)
	mu.Lock()
	defer mu.Unlock()

	spots := s.getFavoriteSpotsLocked(ctx)
	for _, existing := range spots {
		if existing.ID == spot.ID {
			return nil
		}
	}
	spots = append(spots, types.FavoriteSpot{Spot: spot, SavedAt: s.now()})
	return s.setJSON(ctx, KeyFavoriteSpots, spots)
}

// GetFavoriteSpots returns the favorite-spot list, empty on absence.
func (s *Service) GetFavoriteSpots(ctx context.Context) []types.FavoriteSpot {
	mu := s.lockKey(KeyFavoriteSpots)
	mu.Lock()
	defer mu.Unlock()

	return s.getFavoriteSpotsLocked(ctx)
}

func (s *Service) getFavoriteSpotsLocked(ctx context.Context) []types.FavoriteSpot {
	var spots []types.FavoriteSpot
	s.getJSON(ctx, KeyFavoriteSpots, &spots)
	if spots == nil {
		spots = []types.FavoriteSpot{}
	}
	return spots
}

// RemoveFavoriteSpot drops the spot with the given id from the list.
func (s *Service) RemoveFavoriteSpot(ctx context.Context, spotID string) error {
	mu := s.lockKey(KeyFavoriteSpots)
	mu.Lock()
	defer mu.Unlock()

	spots := s.getFavoriteSpotsLocked(ctx)
	filtered := spots[:0]
	for _, spot := range spots {
		if spot.ID != spotID {
			filtered = append(filtered, spot)
		}
	}
	return s.setJSON(ctx, KeyFavoriteSpots, filtered)
}

// SaveUserSettings overwrites the whole settings record.
func (s *Service) SaveUserSettings(ctx context.Context, settings types.Settings) error {
	mu := s.lockKey(KeyUserSettings)
	mu.Lock()
	defer mu.Unlock()

	return s.setJSON(ctx, KeyUserSettings, settings)
}

// GetUserSettings returns stored settings, or the defaults on absence or
// corruption.
func (s *Service) GetUserSettings(ctx context.Context) types.Settings {
	settings := types.DefaultSettings()
	if !s.getJSON(ctx, KeyUserSettings, &settings) {
		return types.DefaultSettings()
	}
	return settings
}

// ClearAllData removes profile, tracks, posts, following list, offline posts
// and favorite spots in one best-effort batch. Underlying atomicity depends
// on the backend.
func (s *Service) ClearAllData(ctx context.Context) error {
	if err := s.store.MultiRemove(ctx, contentKeys); err != nil {
		appErr := apperrors.NewStorageError(apperrors.OpRemove, err)
		s.recorder.Record(appErr)
		return appErr
	}
	return nil
}
