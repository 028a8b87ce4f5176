// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
app:
  name: notifier
  environment: test
database:
  postgres:
    host: localhost
    port: 5432
    database: nkalendar
    user: notifier
    password: secret
  redis:
    address: localhost:6379
push:
  vapid_public_key: pub-key
  vapid_private_key: priv-key
  subscriber: admin@example.com
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.ListenAddress)
	assert.Equal(t, 86400, cfg.Push.TTL)
	assert.Equal(t, 10000, cfg.Push.Timeout)
	assert.Equal(t, 32, cfg.Push.MaxInFlight)
	assert.Equal(t, 55000, cfg.Scan.LockTTL)
	assert.Equal(t, "Europe/Berlin", cfg.Scan.DisplayTimezone)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
}

func TestLoadFromFile_ExplicitValuesWin(t *testing.T) {
	cfg, err := LoadFromFile(writeConfigFile(t, minimalConfig+`
scan:
  lock_ttl: 30000
  display_timezone: UTC
`))
	require.NoError(t, err)

	assert.Equal(t, 30000, cfg.Scan.LockTTL)
	assert.Equal(t, "UTC", cfg.Scan.DisplayTimezone)
}

func TestLoadFromFile_AdminTokenFromEnv(t *testing.T) {
	t.Setenv("NOTIFY_ADMIN_TOKEN", "env-token")

	cfg, err := LoadFromFile(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Notify.AdminToken)
}

func TestLoadFromFile_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing postgres host",
			content: `
database:
  postgres:
    database: nkalendar
    user: notifier
  redis:
    address: localhost:6379
push:
  vapid_public_key: pub
  vapid_private_key: priv
  subscriber: admin@example.com
`,
		},
		{
			name: "missing vapid keys",
			content: `
database:
  postgres:
    host: localhost
    database: nkalendar
    user: notifier
  redis:
    address: localhost:6379
push:
  subscriber: admin@example.com
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfigFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 10*time.Second, GetDuration(10000))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}
