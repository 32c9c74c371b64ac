package telegram

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func newTestSessionDB(t *testing.T) *SessionRepository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE chat_sessions (
		chat_id INTEGER PRIMARY KEY,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		email TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	return NewSessionRepository(db)
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestSessionDB(t)

	t.Run("GetMissingReturnsNil", func(t *testing.T) {
		got, err := repo.Get(ctx, 42)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != nil {
			t.Errorf("Expected nil for unknown chat, got %+v", got)
		}
	})

	t.Run("SaveAndGet", func(t *testing.T) {
		err := repo.Save(ctx, StoredSession{
			ChatID:       42,
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			Email:        "a@b.c",
		})
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := repo.Get(ctx, 42)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got == nil || got.AccessToken != "access-1" || got.Email != "a@b.c" {
			t.Errorf("Unexpected stored session: %+v", got)
		}
	})

	t.Run("SaveReplacesTokens", func(t *testing.T) {
		err := repo.Save(ctx, StoredSession{
			ChatID:       42,
			AccessToken:  "access-2",
			RefreshToken: "refresh-2",
			Email:        "a@b.c",
		})
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := repo.Get(ctx, 42)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.AccessToken != "access-2" || got.RefreshToken != "refresh-2" {
			t.Errorf("Expected replaced tokens, got %+v", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete(ctx, 42); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		got, err := repo.Get(ctx, 42)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got != nil {
			t.Errorf("Expected session gone after delete, got %+v", got)
		}
	})
}
