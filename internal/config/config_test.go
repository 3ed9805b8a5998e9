// ABOUTME: Tests for YAML config loading, env expansion, and validation
// ABOUTME: Covers defaults, duration parsing, and required-field failures

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":9090"
database:
  path: "/tmp/care.db"
auth:
  jwt_secret: "s3cret"
chat:
  send_buffer: 128
  read_timeout: 30s
  write_timeout: 5s
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.HTTPAddr)
	assert.Equal(t, "/tmp/care.db", cfg.Database.Path)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 128, cfg.Chat.SendBuffer)
	assert.Equal(t, 30*time.Second, cfg.Chat.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.Chat.WriteTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_DefaultsFillMissingFields(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "s3cret"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "data/care-gateway.db", cfg.Database.Path)
	assert.Equal(t, 64, cfg.Chat.SendBuffer)
	assert.Equal(t, 60*time.Second, cfg.Chat.ReadTimeout)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "from-env")
	path := writeConfig(t, `
auth:
  jwt_secret: "${TEST_JWT_SECRET}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestLoad_MissingSecretFails(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: ":8080"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestLoad_BadDurationFails(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "s3cret"
chat:
  read_timeout: "sixty seconds"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read_timeout")
}

func TestLoad_BadLogLevelFails(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "s3cret"
logging:
  level: verbose
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
