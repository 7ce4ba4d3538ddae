package auth

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/entities"
)

func setupSessionManager(t *testing.T) *SessionManager {
	t.Helper()

	dbPath := "./test_sessions_" + t.Name() + ".db"
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})

	sm, err := NewSessionManager(db, config.Auth{
		SessionLifetime: time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func TestSessionManager_CreateAndResolve(t *testing.T) {
	sm := setupSessionManager(t)
	ctx := context.Background()
	user := &entities.User{Username: "alice"}
	user.ID = 42

	token, err := sm.Create(ctx, user)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if token == "" {
		t.Fatal("Create() returned empty token")
	}

	identity, err := sm.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if identity == nil {
		t.Fatal("Resolve() returned nil for a freshly issued token")
	}
	if identity.UserID != 42 {
		t.Errorf("Resolve() UserID = %d, want 42", identity.UserID)
	}
	if identity.Username != "alice" {
		t.Errorf("Resolve() Username = %q, want alice", identity.Username)
	}
}

func TestSessionManager_Resolve_UnknownToken(t *testing.T) {
	sm := setupSessionManager(t)
	ctx := context.Background()

	identity, err := sm.Resolve(ctx, "bogus-token")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if identity != nil {
		t.Errorf("Resolve() = %+v for unknown token, want nil", identity)
	}
}

func TestSessionManager_Resolve_EmptyToken(t *testing.T) {
	sm := setupSessionManager(t)

	identity, err := sm.Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if identity != nil {
		t.Errorf("Resolve() = %+v for empty token, want nil", identity)
	}
}

func TestSessionManager_Destroy(t *testing.T) {
	sm := setupSessionManager(t)
	ctx := context.Background()
	user := &entities.User{Username: "alice"}
	user.ID = 1

	token, err := sm.Create(ctx, user)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := sm.Destroy(ctx, token); err != nil {
		t.Fatalf("Destroy() error: %v", err)
	}

	identity, err := sm.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if identity != nil {
		t.Error("Resolve() returned an identity for a destroyed token")
	}

	// Destroying again is a no-op
	if err := sm.Destroy(ctx, token); err != nil {
		t.Errorf("second Destroy() error: %v", err)
	}
}

func TestSessionManager_IndependentSessions(t *testing.T) {
	sm := setupSessionManager(t)
	ctx := context.Background()
	user := &entities.User{Username: "alice"}
	user.ID = 1

	first, err := sm.Create(ctx, user)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	second, err := sm.Create(ctx, user)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if first == second {
		t.Fatal("two logins produced the same token")
	}

	if err := sm.Destroy(ctx, first); err != nil {
		t.Fatalf("Destroy() error: %v", err)
	}

	identity, err := sm.Resolve(ctx, second)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if identity == nil {
		t.Error("destroying one session invalidated another")
	}
}
