package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"smartplanner/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// Session is an authenticated Supabase session. It is replaced wholesale
// on sign-in and dropped on sign-out; nothing mutates it in place.
type Session struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	ExpiresAt    time.Time
}

// Expired reports whether the access token is past (or within a minute
// of) its expiry.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt.Add(-time.Minute))
}

// NewSessionFromTokens rebuilds a session from stored tokens, recovering
// the user id and expiry from the access token claims.
func NewSessionFromTokens(accessToken, refreshToken string) (*Session, error) {
	userID, expiresAt, err := parseAccessToken(accessToken)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		UserID:       userID,
		ExpiresAt:    expiresAt,
	}, nil
}

// parseAccessToken extracts sub and exp from a GoTrue access token. The
// signature is not verified here: the backend rejects forged tokens on
// every call, and the client only needs the claims for row scoping and
// refresh timing.
func parseAccessToken(accessToken string) (string, time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to parse access token: %w", err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", time.Time{}, fmt.Errorf("access token has no subject claim")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return "", time.Time{}, fmt.Errorf("access token has no expiry claim")
	}

	return sub, exp.Time, nil
}

// Auth is a client for the GoTrue auth endpoints.
type Auth struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewAuth creates a new auth client.
func NewAuth(cfg *config.Config) *Auth {
	return &Auth{
		baseURL: cfg.SupabaseURL,
		anonKey: cfg.SupabaseAnonKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SignIn exchanges email and password for a session.
func (a *Auth) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	return a.tokenRequest(ctx, "password", body)
}

// Refresh exchanges a refresh token for a fresh session.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	return a.tokenRequest(ctx, "refresh_token", body)
}

func (a *Auth) tokenRequest(ctx context.Context, grantType string, body map[string]string) (*Session, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal auth request: %w", err)
	}

	url := fmt.Sprintf("%s/auth/v1/token?grant_type=%s", a.baseURL, grantType)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", a.anonKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("auth error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}

	return NewSessionFromTokens(tr.AccessToken, tr.RefreshToken)
}

// SignOut revokes the session's refresh token on the backend. Local state
// is the caller's to clear regardless of the outcome.
func (a *Auth) SignOut(ctx context.Context, session *Session) error {
	url := fmt.Sprintf("%s/auth/v1/logout", a.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", a.anonKey)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send logout request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("logout error: status %d", resp.StatusCode)
	}
	return nil
}
