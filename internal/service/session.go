package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wot-clan-dashboard/internal/cache"
	"wot-clan-dashboard/internal/model"
)

// SessionPrefix marks dashboard session tokens.
const SessionPrefix = "wcd_"

// ErrSessionNotFound is returned for unknown or expired tokens.
var ErrSessionNotFound = errors.New("session not found or expired")

// SessionService issues and resolves opaque session tokens backed by the
// configured cache (memory or Redis).
type SessionService struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewSessionService creates a session service with the given TTL.
func NewSessionService(c cache.Cache, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionService{cache: c, ttl: ttl}
}

// Create issues a new session token for the username.
func (s *SessionService) Create(ctx context.Context, username string) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	token := SessionPrefix + hex.EncodeToString(tokenBytes)

	now := time.Now()
	sess := model.Session{
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("failed to serialize session: %w", err)
	}

	if err := s.cache.Set(ctx, token, data, s.ttl); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

// Get resolves a token to its session.
func (s *SessionService) Get(ctx context.Context, token string) (*model.Session, error) {
	data, err := s.cache.Get(ctx, token)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

// Destroy removes a session token.
func (s *SessionService) Destroy(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, token)
}

// TTL returns the configured session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}
