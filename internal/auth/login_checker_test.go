package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginChecker_GetCaller(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	loginChecker := NewLoginChecker(time.Hour, db)
	require.NotNil(t, loginChecker)

	ctx := context.Background()

	mock.ExpectGet(sessionKeyPrefix + "invalid token").SetErr(redis.Nil)
	_, err := loginChecker.GetCaller(ctx, "invalid token")
	require.Equal(t, "redis: nil", err.Error())

	testToken := "test-token"
	now := time.Now()
	sessionKey := sessionKeyPrefix + testToken

	mock.ExpectGet(sessionKey).SetVal(sessionValue(42, RoleClient, now))
	caller, err := loginChecker.GetCaller(ctx, testToken)
	require.NoError(t, err)
	assert.Equal(t, Caller{UserID: 42, Role: RoleClient}, caller)
	assert.False(t, caller.IsTrainer())

	// session older than the ttl is expired
	mock.ExpectGet(sessionKey).SetVal(sessionValue(42, RoleClient, now.Add(-2*time.Hour)))
	_, err = loginChecker.GetCaller(ctx, testToken)
	require.ErrorIs(t, err, ErrSessionExpired)
}
