package auth

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrSessionExpired = errors.New("login session expired")

// LoginChecker resolves session tokens into portal callers
type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
	}
}

// GetCaller returns the Caller for the given session token, or
// ErrSessionExpired if the session outlived its TTL
func (lc *LoginChecker) GetCaller(ctx context.Context, token string) (Caller, error) {
	sessionKey := sessionKeyPrefix + token
	cmd := lc.redisClient.Get(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		return Caller{}, err
	}

	userID, role, createdAt, err := parseSessionValue(cmd.Val())
	if err != nil {
		return Caller{}, err
	}

	if time.Since(createdAt) > lc.ttl {
		return Caller{}, ErrSessionExpired
	}

	return Caller{UserID: userID, Role: role}, nil
}
