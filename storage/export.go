package storage

import (
	"context"
	"encoding/json"
	"time"

	apperrors "github.com/rintaro216/hokkaido-community-app/errors"
	"github.com/rintaro216/hokkaido-community-app/types"
)

// Snapshot is the backup export format. Fields absent from an imported
// snapshot are left untouched in the store.
type Snapshot struct {
	UserProfile    *types.User            `json:"userProfile,omitempty"`
	SavedTracks    map[string]types.Track `json:"savedTracks,omitempty"`
	SavedPosts     []types.SavedPost      `json:"savedPosts,omitempty"`
	FollowingUsers []string               `json:"followingUsers,omitempty"`
	FavoriteSpots  []types.FavoriteSpot   `json:"favoriteSpots,omitempty"`
	UserSettings   *types.Settings        `json:"userSettings,omitempty"`
	ExportedAt     time.Time              `json:"exportedAt"`
}

// ExportAllData produces a single JSON snapshot of all entity stores plus an
// export timestamp.
func (s *Service) ExportAllData(ctx context.Context) (string, error) {
	settings := s.GetUserSettings(ctx)
	snapshot := Snapshot{
		UserProfile:    s.GetUserProfile(ctx),
		SavedTracks:    s.GetSavedTracks(ctx),
		SavedPosts:     s.GetSavedPosts(ctx),
		FollowingUsers: s.GetFollowingUsers(ctx),
		FavoriteSpots:  s.GetFavoriteSpots(ctx),
		UserSettings:   &settings,
		ExportedAt:     s.now(),
	}

	raw, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", apperrors.NewStorageError(apperrors.OpExport, err)
	}
	return string(raw), nil
}

// ImportAllData parses a snapshot and writes back each present field
// independently. Absent fields leave the corresponding store untouched.
func (s *Service) ImportAllData(ctx context.Context, jsonData string) error {
	var snapshot Snapshot
	if err := json.Unmarshal([]byte(jsonData), &snapshot); err != nil {
		return apperrors.NewValidationError(apperrors.OpImport, err)
	}

	if snapshot.UserProfile != nil {
		if err := s.SaveUserProfile(ctx, snapshot.UserProfile); err != nil {
			return err
		}
	}
	if snapshot.SavedTracks != nil {
		mu := s.lockKey(KeySavedTracks)
		mu.Lock()
		err := s.setJSON(ctx, KeySavedTracks, snapshot.SavedTracks)
		mu.Unlock()
		if err != nil {
			return err
		}
	}
	if snapshot.SavedPosts != nil {
		mu := s.lockKey(KeySavedPosts)
		mu.Lock()
		err := s.setJSON(ctx, KeySavedPosts, snapshot.SavedPosts)
		mu.Unlock()
		if err != nil {
			return err
		}
	}
	if snapshot.FollowingUsers != nil {
		if err := s.SaveFollowingUsers(ctx, snapshot.FollowingUsers); err != nil {
			return err
		}
	}
	if snapshot.FavoriteSpots != nil {
		mu := s.lockKey(KeyFavoriteSpots)
		mu.Lock()
		err := s.setJSON(ctx, KeyFavoriteSpots, snapshot.FavoriteSpots)
		mu.Unlock()
		if err != nil {
			return err
		}
	}
	if snapshot.UserSettings != nil {
		if err := s.SaveUserSettings(ctx, *snapshot.UserSettings); err != nil {
			return err
		}
	}

	return nil
}
