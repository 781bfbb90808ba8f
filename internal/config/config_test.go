package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", "", "")
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "primary", cfg.GoogleCalendarID)
	assert.Equal(t, "siriplus.db", cfg.SQLitePath)
	assert.Equal(t, 60, cfg.DefaultDurationMinutes)
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"store_backend": "sqlite",
		"sqlite_path": "/tmp/custom.db",
		"llm": {"model": "gpt-4o"},
		"log": {"level": "debug", "format": "console"},
		"default_duration_minutes": 45
	}`)

	cfg, err := Load(path, "", "")
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, "/tmp/custom.db", cfg.SQLitePath)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 45, cfg.DefaultDurationMinutes)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "config.json", `{"store_backend": "sqlite", "log": {"level": "warn"}}`)

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("SIRIPLUS_STORE", "memory")

		cfg, err := Load(path, "", "")
		require.NoError(t, err)
		assert.Equal(t, BackendMemory, cfg.StoreBackend)
	})

	t.Run("flag overrides env and file", func(t *testing.T) {
		t.Setenv("SIRIPLUS_STORE", "memory")

		cfg, err := Load(path, BackendSQLite, "debug")
		require.NoError(t, err)
		assert.Equal(t, BackendSQLite, cfg.StoreBackend)
		assert.Equal(t, "debug", cfg.Log.Level)
	})
}

func TestLoadValidation(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		_, err := Load("", "carrier-pigeon", "")
		assert.Error(t, err)
	})

	t.Run("google backend needs credentials", func(t *testing.T) {
		_, err := Load("", BackendGoogle, "")
		assert.Error(t, err)
	})

	t.Run("caldav backend needs server and credentials", func(t *testing.T) {
		_, err := Load("", BackendCalDAV, "")
		assert.Error(t, err)
	})

	t.Run("caldav calendar path defaults from username", func(t *testing.T) {
		t.Setenv("CALDAV_SERVER_URL", "https://caldav.example.com")
		t.Setenv("CALDAV_USERNAME", "user@example.com")
		t.Setenv("CALDAV_PASSWORD", "secret")

		cfg, err := Load("", BackendCalDAV, "")
		require.NoError(t, err)
		assert.Equal(t, "/user@example.com/calendars/home/", cfg.CalDAV.CalendarPath)
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := Load("/nonexistent/config.json", "", "")
		assert.Error(t, err)
	})
}

func TestLoadGoogleCredentials(t *testing.T) {
	t.Run("installed section", func(t *testing.T) {
		path := writeFile(t, "creds.json", `{"installed": {"client_id": "id-1", "client_secret": "secret-1"}}`)

		id, secret, err := LoadGoogleCredentials(path)
		require.NoError(t, err)
		assert.Equal(t, "id-1", id)
		assert.Equal(t, "secret-1", secret)
	})

	t.Run("web section", func(t *testing.T) {
		path := writeFile(t, "creds.json", `{"web": {"client_id": "id-2", "client_secret": "secret-2"}}`)

		id, secret, err := LoadGoogleCredentials(path)
		require.NoError(t, err)
		assert.Equal(t, "id-2", id)
		assert.Equal(t, "secret-2", secret)
	})

	t.Run("neither section", func(t *testing.T) {
		path := writeFile(t, "creds.json", `{}`)
		_, _, err := LoadGoogleCredentials(path)
		assert.Error(t, err)
	})
}
