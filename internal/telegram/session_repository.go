package telegram

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// StoredSession maps a Telegram chat to its backend tokens so a restart
// of the bot does not sign everyone out. Only the tokens are kept; the
// catalog and week plan are re-fetched from the backend on first use.
type StoredSession struct {
	ChatID       int64
	AccessToken  string
	RefreshToken string
	Email        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionRepository provides access to per-chat session persistence.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Save inserts or replaces the session for a chat.
func (sr *SessionRepository) Save(ctx context.Context, s StoredSession) error {
	now := time.Now().UTC()
	_, err := sr.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (chat_id, access_token, refresh_token, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			email = excluded.email,
			updated_at = excluded.updated_at`,
		s.ChatID, s.AccessToken, s.RefreshToken, s.Email, now, now)
	if err != nil {
		return fmt.Errorf("failed to save chat session: %w", err)
	}
	return nil
}

// Get retrieves the stored session for a chat, or nil when there is none.
func (sr *SessionRepository) Get(ctx context.Context, chatID int64) (*StoredSession, error) {
	row := sr.db.QueryRowContext(ctx, `
		SELECT chat_id, access_token, refresh_token, email, created_at, updated_at
		FROM chat_sessions WHERE chat_id = ?`, chatID)

	var s StoredSession
	err := row.Scan(&s.ChatID, &s.AccessToken, &s.RefreshToken, &s.Email, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat session: %w", err)
	}
	return &s, nil
}

// Delete removes the stored session for a chat.
func (sr *SessionRepository) Delete(ctx context.Context, chatID int64) error {
	_, err := sr.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE chat_id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("failed to delete chat session: %w", err)
	}
	return nil
}
