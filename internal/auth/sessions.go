package auth

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
)

// Session data keys
const (
	SessionKeyUserID   = "user_id"
	SessionKeyUsername = "username"
)

// CookieName is the name of the cookie carrying the session token.
const CookieName = "session"

// Identity is the authenticated principal a session token resolves to.
type Identity struct {
	UserID   uint
	Username string
}

// SessionManager issues, resolves and revokes opaque session tokens.
// Tokens are backed by a SQLite store, so sessions survive restarts.
type SessionManager struct {
	scs *scs.SessionManager
}

// NewSessionManager creates a configured session manager.
// The sqlDB parameter should be the underlying *sql.DB from GORM.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	// Create the sessions table if it doesn't exist
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)
	sm.Lifetime = cfg.SessionLifetime

	// Cookie settings are used by the HTTP layer when it writes the
	// token out; the manager itself only deals in tokens.
	sm.Cookie.Name = CookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{scs: sm}, nil
}

// Cookie exposes the cookie settings for handlers that set or clear the
// session cookie.
func (sm *SessionManager) Cookie() scs.SessionCookie {
	return sm.scs.Cookie
}

// Lifetime returns how long issued tokens stay valid.
func (sm *SessionManager) Lifetime() time.Duration {
	return sm.scs.Lifetime
}

// Create issues a fresh token bound to the user. Each call returns a
// distinct token; logging in twice yields two independent sessions.
func (sm *SessionManager) Create(ctx context.Context, user *entities.User) (string, error) {
	// Load with an empty token always starts a brand new session
	sessionCtx, err := sm.scs.Load(ctx, "")
	if err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}

	sm.scs.Put(sessionCtx, SessionKeyUserID, int(user.ID))
	sm.scs.Put(sessionCtx, SessionKeyUsername, user.Username)

	token, _, err := sm.scs.Commit(sessionCtx)
	if err != nil {
		return "", fmt.Errorf("failed to persist session: %w", err)
	}
	return token, nil
}

// Resolve maps a token to the identity it was issued for. An unknown,
// expired or revoked token resolves to (nil, nil), not an error.
func (sm *SessionManager) Resolve(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, nil
	}

	sessionCtx, err := sm.scs.Load(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	userID := sm.scs.GetInt(sessionCtx, SessionKeyUserID)
	if userID == 0 {
		return nil, nil
	}

	return &Identity{
		UserID:   uint(userID),
		Username: sm.scs.GetString(sessionCtx, SessionKeyUsername),
	}, nil
}

// Destroy revokes a token. Destroying an already-revoked or unknown
// token is a no-op.
func (sm *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	sessionCtx, err := sm.scs.Load(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	return sm.scs.Destroy(sessionCtx)
}
