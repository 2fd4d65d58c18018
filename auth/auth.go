// Package auth manages the local identity and session records. There is no
// credential verification against a server; sessions are a client-side
// convenience with a fixed 30-day expiry checked lazily on read.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/rintaro216/hokkaido-community-app/errors"
	"github.com/rintaro216/hokkaido-community-app/logging"
	"github.com/rintaro216/hokkaido-community-app/storage"
	"github.com/rintaro216/hokkaido-community-app/types"
)

// Storage keys owned by this package.
const (
	KeyAuthUser  = "auth_user"
	KeySession   = "auth_session"
	KeyAutoLogin = "auto_login_enabled"
)

// SessionTTL is the fixed session lifetime.
const SessionTTL = 30 * 24 * time.Hour

// minPasswordLen is the minimum accepted password length.
const minPasswordLen = 6

// LoginMethod identifies how the user authenticated.
type LoginMethod string

const (
	MethodGuest  LoginMethod = "guest"
	MethodEmail  LoginMethod = "email"
	MethodSocial LoginMethod = "social"
)

// AuthUser is the identity record, distinct from the profile.
type AuthUser struct {
	ID              string      `json:"id"`
	Email           string      `json:"email"`
	Name            string      `json:"name"`
	IsAuthenticated bool        `json:"isAuthenticated"`
	LoginMethod     LoginMethod `json:"loginMethod"`
}

// Session is the time-bounded authorization record. ExpiresAt is always
// CreatedAt + SessionTTL.
type Session struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Manager issues and checks sessions over the repository's key-value store.
type Manager struct {
	storage *storage.Service
	logger  *logging.Logger
	now     func() time.Time
}

// New creates a Manager over the given repository.
func New(store *storage.Service, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		storage: store,
		logger:  logger.WithComponent("auth"),
		now:     time.Now,
	}
}

// LoginAsGuest synthesizes a guest identity, a default profile and a fresh
// session, and persists all three.
func (m *Manager) LoginAsGuest(ctx context.Context, name string) (*AuthUser, error) {
	user := &AuthUser{
		ID:              fmt.Sprintf("guest_%s", uuid.NewString()),
		Email:           "",
		Name:            name,
		IsAuthenticated: true,
		LoginMethod:     MethodGuest,
	}
	if err := m.persistLogin(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// LoginWithEmail validates that both fields are present and derives a
// deterministic identity from the email address. No credential check is
// performed against any stored account.
func (m *Manager) LoginWithEmail(ctx context.Context, email, password string) (*AuthUser, error) {
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError(apperrors.OpLogin,
			fmt.Errorf("email and password are required"))
	}

	user := &AuthUser{
		ID:              deterministicID(email),
		Email:           email,
		Name:            strings.SplitN(email, "@", 2)[0],
		IsAuthenticated: true,
		LoginMethod:     MethodEmail,
	}
	if err := m.persistLogin(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateAccount validates all three fields and the password length, then
// persists a new identity with a fresh id.
func (m *Manager) CreateAccount(ctx context.Context, email, password, name string) (*AuthUser, error) {
	if email == "" || password == "" || name == "" {
		return nil, apperrors.NewValidationError(apperrors.OpLogin,
			fmt.Errorf("email, password and name are required"))
	}
	if len(password) < minPasswordLen {
		return nil, apperrors.NewValidationError(apperrors.OpLogin,
			fmt.Errorf("password must be at least %d characters", minPasswordLen))
	}

	user := &AuthUser{
		ID:              fmt.Sprintf("user_%s", uuid.NewString()),
		Email:           email,
		Name:            name,
		IsAuthenticated: true,
		LoginMethod:     MethodEmail,
	}
	if err := m.persistLogin(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// persistLogin writes the auth user, a fresh session and a matching default
// profile.
func (m *Manager) persistLogin(ctx context.Context, user *AuthUser) error {
	store := m.storage.Store()

	userJSON, err := json.Marshal(user)
	if err != nil {
		return apperrors.NewAuthError(apperrors.OpLogin, err)
	}
	if err := store.Set(ctx, KeyAuthUser, string(userJSON)); err != nil {
		return apperrors.NewAuthError(apperrors.OpLogin, err)
	}

	if err := m.writeSession(ctx); err != nil {
		return err
	}

	profile := &types.User{
		ID:                   user.ID,
		Name:                 user.Name,
		Bio:                  "",
		TravelStyle:          []types.TravelStyle{types.TravelCar},
		ExperienceLevel:      types.LevelBeginner,
		Interests:            []types.Interest{},
		LocationSharingLevel: 2,
		CreatedAt:            m.now(),
	}
	return m.storage.SaveUserProfile(ctx, profile)
}

// writeSession persists a session expiring SessionTTL from now.
func (m *Manager) writeSession(ctx context.Context) error {
	created := m.now()
	session := Session{
		SessionID: fmt.Sprintf("session_%s", uuid.NewString()),
		CreatedAt: created,
		ExpiresAt: created.Add(SessionTTL),
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return apperrors.NewAuthError(apperrors.OpSession, err)
	}
	if err := m.storage.Store().Set(ctx, KeySession, string(raw)); err != nil {
		return apperrors.NewAuthError(apperrors.OpSession, err)
	}
	return nil
}

// GetCurrentUser reads the identity and session records. A missing record
// means logged out. An expired session triggers an implicit Logout before
// returning nil: expiry enforcement happens at read time, not in a
// background sweep.
func (m *Manager) GetCurrentUser(ctx context.Context) *AuthUser {
	store := m.storage.Store()

	userRaw, userFound, err := store.Get(ctx, KeyAuthUser)
	if err != nil || !userFound {
		return nil
	}
	sessionRaw, sessionFound, err := store.Get(ctx, KeySession)
	if err != nil || !sessionFound {
		return nil
	}

	var user AuthUser
	if err := json.Unmarshal([]byte(userRaw), &user); err != nil {
		m.logger.LogError(ctx, apperrors.NewAuthError(apperrors.OpGet, err), "corrupt auth record")
		return nil
	}
	var session Session
	if err := json.Unmarshal([]byte(sessionRaw), &session); err != nil {
		m.logger.LogError(ctx, apperrors.NewAuthError(apperrors.OpGet, err), "corrupt session record")
		return nil
	}

	if m.now().After(session.ExpiresAt) {
		if err := m.Logout(ctx); err != nil {
			m.logger.LogError(ctx, err, "implicit logout on expired session failed")
		}
		return nil
	}

	return &user
}

// IsAuthenticated reports whether a live authenticated session exists.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	user := m.GetCurrentUser(ctx)
	return user != nil && user.IsAuthenticated
}

// Logout removes the identity and session keys only. Profile, post and
// track data is deliberately retained: the session is ephemeral, content is
// durable.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.storage.Store().MultiRemove(ctx, []string{KeyAuthUser, KeySession}); err != nil {
		return apperrors.NewAuthError(apperrors.OpLogout, err)
	}
	return nil
}

// RefreshSession is a no-op when logged out; otherwise it rewrites the
// session with a new id and a fresh 30-day expiry, leaving the identity
// record untouched.
func (m *Manager) RefreshSession(ctx context.Context) error {
	if m.GetCurrentUser(ctx) == nil {
		return nil
	}
	return m.writeSession(ctx)
}

// ChangePassword validates the new password length. There is no server to
// verify the current password against, so nothing else happens.
func (m *Manager) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return apperrors.NewValidationError(apperrors.OpSession,
			fmt.Errorf("new password must be at least %d characters", minPasswordLen))
	}
	return nil
}

// DeleteAccount is the only path that destroys content alongside identity:
// it composes Logout with a full data wipe.
func (m *Manager) DeleteAccount(ctx context.Context) error {
	if err := m.Logout(ctx); err != nil {
		return err
	}
	return m.storage.ClearAllData(ctx)
}

// SetAutoLogin stores the auto-login preference.
func (m *Manager) SetAutoLogin(ctx context.Context, enabled bool) error {
	raw, _ := json.Marshal(enabled)
	if err := m.storage.Store().Set(ctx, KeyAutoLogin, string(raw)); err != nil {
		return apperrors.NewAuthError(apperrors.OpSet, err)
	}
	return nil
}

// AutoLoginEnabled returns the stored preference, defaulting to true.
func (m *Manager) AutoLoginEnabled(ctx context.Context) bool {
	raw, found, err := m.storage.Store().Get(ctx, KeyAutoLogin)
	if err != nil || !found {
		return true
	}
	var enabled bool
	if err := json.Unmarshal([]byte(raw), &enabled); err != nil {
		return true
	}
	return enabled
}

// deterministicID derives a stable id from an email address, matching ids
// across repeat logins on the same device.
func deterministicID(email string) string {
	sanitized := strings.NewReplacer("@", "_", ".", "_").Replace(email)
	return fmt.Sprintf("user_%s", sanitized)
}
