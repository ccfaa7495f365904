package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

const (
	// sessionKeyPrefix is the Redis key prefix for login sessions.
	sessionKeyPrefix = "session:"
)

// Session represents a logged-in user session stored in Redis.
type Session struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// SetSession stores a session keyed by a hash of the bearer token.
// The raw token is never written to Redis.
func (c *Cache) SetSession(ctx context.Context, token string, session *Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return c.client.Set(ctx, sessionKey(token), data, ttl).Err()
}

// GetSession retrieves a session by bearer token.
// Returns nil on a miss or corrupted entry.
func (c *Cache) GetSession(ctx context.Context, token string) (*Session, error) {
	data, err := c.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		// Corrupted entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &session, nil
}

// DeleteSession removes a session. Used on logout.
func (c *Cache) DeleteSession(ctx context.Context, token string) error {
	return c.client.Del(ctx, sessionKey(token)).Err()
}

func sessionKey(token string) string {
	hash := sha256.Sum256([]byte(token))
	return sessionKeyPrefix + hex.EncodeToString(hash[:])
}
