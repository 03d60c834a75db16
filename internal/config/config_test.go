package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigToml = `
[development]
host = "localhost"
port = 9000
log_level = "trace"
log_to_stdout = true
postgres_host = "localhost"
postgres_port = "5432"
postgres_db_name = "liftlab"
redis_host = "localhost"
redis_port = "6379"
login_rate_limit_allowed_per_min = 15

[production]
host = ""
port = 9000
log_level = "debug"
logs_path = "/var/log/liftlab/service.log"
sentry_enabled = true
postgres_host = "localhost"
postgres_port = "5432"
postgres_db_name = "liftlab"
redis_host = "localhost"
redis_port = "6379"
login_rate_limit_allowed_per_min = 5
`

func TestLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(testConfigToml), 0o600))

	devCfg, err := Load("development", configPath)
	require.NoError(t, err)
	assert.Equal(t, "localhost", devCfg.Host)
	assert.Equal(t, 9000, devCfg.Port)
	assert.Equal(t, "trace", devCfg.LogLevel)
	assert.True(t, devCfg.LogToStdout)
	assert.False(t, devCfg.SentryEnabled)
	assert.Equal(t, 15, devCfg.LoginRateLimitAllowedPerMin)
	assert.Equal(t, "development", devCfg.Environment)

	prodCfg, err := Load("prod", configPath)
	require.NoError(t, err)
	assert.True(t, prodCfg.SentryEnabled)
	assert.Equal(t, "/var/log/liftlab/service.log", prodCfg.LogsPath)

	_, err = Load("staging", configPath)
	assert.Error(t, err)
}
