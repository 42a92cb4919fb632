package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lenana-drops/lenana/internal/shared"
)

const tokenKeyPrefix = "auth:token:"

// TokenStore keeps opaque bearer tokens in Redis. Expiry rides on the key
// TTL, so a restart never resurrects stale tokens.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

// TTL reports the configured token lifetime.
func (s *TokenStore) TTL() time.Duration {
	return s.ttl
}

type tokenPayload struct {
	UserID int64       `json:"user_id"`
	Name   string      `json:"name"`
	Role   shared.Role `json:"role"`
}

// Issue creates a fresh token bound to the actor.
func (s *TokenStore) Issue(ctx context.Context, actor shared.Actor) (string, error) {
	token := uuid.NewString()

	raw, err := json.Marshal(tokenPayload{UserID: actor.ID, Name: actor.Name, Role: actor.Role})
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, tokenKeyPrefix+token, raw, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: store token: %w", err)
	}
	return token, nil
}

// Resolve looks a token up and returns the bound actor. Unknown or expired
// tokens report ok=false with a nil error.
func (s *TokenStore) Resolve(ctx context.Context, token string) (shared.Actor, bool, error) {
	raw, err := s.client.Get(ctx, tokenKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.Actor{}, false, nil
		}
		return shared.Actor{}, false, fmt.Errorf("auth: lookup token: %w", err)
	}
	var payload tokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return shared.Actor{}, false, fmt.Errorf("auth: decode token payload: %w", err)
	}
	return shared.Actor{ID: payload.UserID, Name: payload.Name, Role: payload.Role}, true, nil
}

// Revoke deletes a token. Revoking an unknown token is not an error.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, tokenKeyPrefix+token).Err()
}
