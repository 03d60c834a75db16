package auth

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/liftlab/liftlab/pkg"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTTL       = 24 * 7 * time.Hour
	sessionKeyPrefix = "liftlab-session||"
	tokensSetKey     = "liftlab-sessions"
)

// Service manages login sessions in redis. A session value holds the
// user id, role and creation time, so the login checker can rebuild the
// Caller from the token alone.
type Service struct {
	redisClient *redis.Client
	ttl         time.Duration
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
}

func NewService(ttl time.Duration, redisClient *redis.Client) *Service {
	return &Service{
		ttl:            ttl,
		redisClient:    redisClient,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

func sessionValue(userID int, role Role, createdAt time.Time) string {
	return fmt.Sprintf("%d|%s|%d", userID, role, createdAt.Unix())
}

func parseSessionValue(val string) (userID int, role Role, createdAt time.Time, err error) {
	parts := strings.Split(val, "|")
	if len(parts) != 3 {
		return 0, "", time.Time{}, fmt.Errorf("malformed session value: %s", val)
	}

	userID, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", time.Time{}, fmt.Errorf("malformed session user id: %w", err)
	}

	role = Role(parts[1])
	if !role.IsValid() {
		return 0, "", time.Time{}, fmt.Errorf("malformed session role: %s", parts[1])
	}

	createdAtUnix, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, "", time.Time{}, fmt.Errorf("malformed session created at: %w", err)
	}

	return userID, role, time.Unix(createdAtUnix, 0), nil
}

func (s *Service) Login(ctx context.Context, userID int, role Role, createdAt time.Time) (string, error) {
	token, err := s.RandStringFunc(35)
	if err != nil {
		return "", err
	}

	sessionKey := sessionKeyPrefix + token
	cmdSet := s.redisClient.Set(ctx, sessionKey, sessionValue(userID, role, createdAt), 0)
	if err := cmdSet.Err(); err != nil {
		return "", err
	}

	// add token to the set of sessions, for scan and clean
	cmdSAdd := s.redisClient.SAdd(ctx, tokensSetKey, token)
	if err := cmdSAdd.Err(); err != nil {
		return "", err
	}

	return token, nil
}

func (s *Service) Logout(ctx context.Context, token string) (bool, error) {
	sessionKey := sessionKeyPrefix + token
	cmd := s.redisClient.Get(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		return false, err
	}

	cmdDel := s.redisClient.Del(ctx, sessionKey)
	if err := cmdDel.Err(); err != nil {
		return false, err
	}

	cmdSRem := s.redisClient.SRem(ctx, tokensSetKey, token)
	if err := cmdSRem.Err(); err != nil {
		return false, err
	}

	return cmd.Val() != "", nil
}

// ScanAndClean will run through all sessions, check the TTL, and clean them if old
func (s *Service) ScanAndClean(ctx context.Context) {
	cmd := s.redisClient.SMembers(ctx, tokensSetKey)
	if err := cmd.Err(); err != nil {
		log.Errorf("auth service, scan and clean, get sessions: %s", err)
		return
	}

	sessionTokens := cmd.Val()
	if len(sessionTokens) == 0 {
		return
	}

	log.Debugf("auth service, scan and clean [%d sessions] start ...", len(sessionTokens))
	var toRemove []string
	for _, token := range sessionTokens {
		sessionKey := sessionKeyPrefix + token
		cmd := s.redisClient.Get(ctx, sessionKey)
		if err := cmd.Err(); err != nil {
			log.Errorf("auth service, scan and clean token %s: %s", token, err)
			continue
		}

		_, _, createdAt, err := parseSessionValue(cmd.Val())
		if err != nil {
			log.Errorf("auth service, scan and clean token %s: %s", token, err)
			toRemove = append(toRemove, token)
			continue
		}

		if time.Since(createdAt) > s.ttl {
			toRemove = append(toRemove, token)
		}
	}

	for _, token := range toRemove {
		sessionKey := sessionKeyPrefix + token
		if err := s.redisClient.Del(ctx, sessionKey).Err(); err != nil {
			log.Errorf("auth service, clean token %s: %s", token, err)
			continue
		}
		if err := s.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
			log.Errorf("auth service, clean token %s: %s", token, err)
		}
	}
}
