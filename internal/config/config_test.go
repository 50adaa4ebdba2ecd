package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:14777", cfg.Server.Address)
	assert.Equal(t, "extrachat.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Nil(t, cfg.Influx)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[server]
address = "127.0.0.1:9000"

[database]
path = "/tmp/chat.db"

[logging]
level = "debug"
format = "json"
file = ""

[influx]
url = "http://localhost:8086"
org = "extrachat"
bucket = "stats"
token = "secret"
`))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	assert.Equal(t, "/tmp/chat.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Empty(t, cfg.Logging.File)
	require.NotNil(t, cfg.Influx)
	assert.Equal(t, "http://localhost:8086", cfg.Influx.URL)
	assert.Equal(t, "stats", cfg.Influx.Bucket)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorContains(t, err, "read config")
}

func TestLoadBadTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "[server\naddress = 5"))
	assert.ErrorContains(t, err, "parse config")
}
