package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func TestAuthService_Login(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	authService := NewService(time.Hour, db)
	require.NotNil(t, authService)
	assert.NotNil(t, authService.redisClient)
	assert.Equal(t, time.Hour, authService.ttl)

	testToken := "test_token"
	authService.RandStringFunc = func(s int) (string, error) {
		return testToken, nil
	}

	now := time.Now()
	sessionKey := sessionKeyPrefix + testToken
	mock.ExpectSet(sessionKey, sessionValue(42, RoleClient, now), 0).SetVal(sessionValue(42, RoleClient, now))
	mock.ExpectSAdd(tokensSetKey, testToken).SetVal(1)

	token, err := authService.Login(context.Background(), 42, RoleClient, now)
	require.NoError(t, err)
	assert.Equal(t, testToken, token)
}

func TestAuthService_Logout(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	authService := NewService(time.Hour, db)

	testToken := "test_token"
	sessionKey := sessionKeyPrefix + testToken
	now := time.Now()

	mock.ExpectGet(sessionKey).SetVal(sessionValue(42, RoleClient, now))
	mock.ExpectDel(sessionKey).SetVal(1)
	mock.ExpectSRem(tokensSetKey, testToken).SetVal(1)

	loggedOut, err := authService.Logout(context.Background(), testToken)
	require.NoError(t, err)
	assert.True(t, loggedOut)
}

func TestAuthService_ScanAndClean(t *testing.T) {
	ttl := time.Hour
	now := time.Now()
	then := now.Add(-2 * time.Hour)

	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()

	authService := NewService(ttl, rdb)
	require.NotNil(t, authService)

	// expected calls
	t1, t2 := "token1", "token2"
	mock.ExpectSMembers(tokensSetKey).SetVal([]string{t1, t2})
	mock.ExpectGet(sessionKeyPrefix + t1).SetVal(sessionValue(1, RoleClient, then))
	mock.ExpectGet(sessionKeyPrefix + t2).SetVal(sessionValue(2, RoleTrainer, now))
	// expect deleted only t1, old life
	mock.ExpectDel(sessionKeyPrefix + t1).SetVal(1)
	mock.ExpectSRem(tokensSetKey, t1).SetVal(1)

	authService.ScanAndClean(context.Background())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionValue_Roundtrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)

	userID, role, createdAt, err := parseSessionValue(sessionValue(13, RoleTrainer, now))
	require.NoError(t, err)
	assert.Equal(t, 13, userID)
	assert.Equal(t, RoleTrainer, role)
	assert.Equal(t, now.Unix(), createdAt.Unix())

	_, _, _, err = parseSessionValue("garbage")
	require.Error(t, err)

	_, _, _, err = parseSessionValue("13|superuser|12345")
	require.Error(t, err)
}
